package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/dofusdb"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/loader"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/normalize"
	"github.com/cesargomez89/dofusdb-explorer/internal/sqlgen"
)

// CatalogStore is what a direct load needs from a store.
type CatalogStore interface {
	loader.Sink
	CountItems(ctx context.Context) (int, error)
}

// PipelineOptions configures a pipeline. Policies apply to direct loads and
// StatementPolicies to statement logs, which default to ignoring conflicts.
type PipelineOptions struct {
	ImageBase          string
	Policies           domain.ConflictPolicies
	StatementPolicies  domain.ConflictPolicies
	FetchPageSize      int
	InsertBatchSize    int
	SkipItemsThreshold int
}

// RunOptions selects what a single run produces. Output is required in SQL
// mode. ForceItems fetches items even when the store already holds enough.
type RunOptions struct {
	Output        io.Writer
	FetchProgress dofusdb.Progress
	LoadProgress  loader.Progress
	Mode          domain.ImportMode
	ForceItems    bool
}

// Report describes a finished run.
type Report struct {
	Statements     sqlgen.Stats
	Summary        loader.Summary
	Skipped        []domain.SkippedRecipe
	Mode           domain.ImportMode
	ItemsFetched   int
	RecipesFetched int
	Items          int
	Recipes        int
	Ingredients    int
	Duration       time.Duration
	ItemsSkipped   bool
}

// Counts returns the per-relation rows written, or rendered in SQL mode.
func (r *Report) Counts() domain.ImportCounts {
	if r.Mode == domain.ImportModeSQL {
		return domain.ImportCounts{
			Items:       r.Statements[domain.RelationItems],
			Recipes:     r.Statements[domain.RelationRecipes],
			Ingredients: r.Statements[domain.RelationIngredients],
		}
	}
	return domain.ImportCounts{
		Items:         r.Summary.Inserted[domain.RelationItems],
		Recipes:       r.Summary.Inserted[domain.RelationRecipes],
		Ingredients:   r.Summary.Inserted[domain.RelationIngredients],
		FailedBatches: len(r.Summary.Failed),
	}
}

// Pipeline fetches both collections, normalizes them and either loads them
// into a store or renders them as a statement log.
type Pipeline struct {
	source dofusdb.Source
	store  CatalogStore
	logger *logger.Logger
	opts   PipelineOptions
}

// NewPipeline builds a pipeline. store may be nil when only SQL mode is used.
func NewPipeline(source dofusdb.Source, store CatalogStore, opts PipelineOptions, log *logger.Logger) *Pipeline {
	if opts.FetchPageSize <= 0 {
		opts.FetchPageSize = constants.DefaultFetchPageSize
	}
	if opts.InsertBatchSize <= 0 {
		opts.InsertBatchSize = constants.DefaultInsertBatchSize
	}
	if opts.StatementPolicies == (domain.ConflictPolicies{}) {
		opts.StatementPolicies = domain.StatementLogPolicies
	}
	if opts.ImageBase == "" {
		opts.ImageBase = constants.DefaultAPIURL
	}
	if log == nil {
		log = logger.Default()
	}
	return &Pipeline{
		source: source,
		store:  store,
		opts:   opts,
		logger: log.WithComponent("pipeline"),
	}
}

// Run executes one import. A fetch that exhausts its retries aborts the run
// before anything is written.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	start := time.Now()
	report := &Report{Mode: opts.Mode}
	if report.Mode == "" {
		report.Mode = domain.ImportModeLoad
	}

	switch report.Mode {
	case domain.ImportModeLoad:
		if p.store == nil {
			return nil, errors.New("direct load requires a store")
		}
	case domain.ImportModeSQL:
		if opts.Output == nil {
			return nil, errors.New("statement log requires an output")
		}
	default:
		return nil, fmt.Errorf("unknown import mode %q", report.Mode)
	}

	acc := normalize.NewAccumulator(p.opts.ImageBase, p.logger)

	skip, err := p.shouldSkipItems(ctx, report.Mode, opts.ForceItems)
	if err != nil {
		return nil, err
	}
	report.ItemsSkipped = skip

	if !skip {
		items, err := p.source.FetchItems(ctx, p.opts.FetchPageSize, opts.FetchProgress)
		if err != nil {
			return nil, fmt.Errorf("fetch items: %w", err)
		}
		report.ItemsFetched = len(items)
		acc.AddItems(items)
	}

	recipes, err := p.source.FetchRecipes(ctx, p.opts.FetchPageSize, opts.FetchProgress)
	if err != nil {
		return nil, fmt.Errorf("fetch recipes: %w", err)
	}
	report.RecipesFetched = len(recipes)
	acc.AddRecipes(recipes)

	ds := acc.Result()
	report.Items = len(ds.Items)
	report.Recipes = len(ds.Recipes)
	report.Ingredients = len(ds.Ingredients)
	report.Skipped = ds.Skipped
	p.logger.Info("Dataset normalized",
		"items", report.Items,
		"recipes", report.Recipes,
		"ingredients", report.Ingredients,
		"skipped_recipes", len(ds.Skipped),
	)

	if report.Mode == domain.ImportModeSQL {
		stats, err := sqlgen.Write(opts.Output, ds, sqlgen.Options{Policies: p.opts.StatementPolicies})
		if err != nil {
			return nil, err
		}
		report.Statements = stats
	} else {
		policies := p.opts.Policies
		if skip {
			// Only recipe-embedded items were collected; keep the stored rows.
			policies.Items = domain.ConflictIgnore
		}
		l := loader.New(p.store, loader.Options{
			BatchSize: p.opts.InsertBatchSize,
			Policies:  policies,
			Progress:  opts.LoadProgress,
		}, p.logger)
		summary, err := l.Load(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		report.Summary = summary
	}

	report.Duration = time.Since(start)
	p.logger.Info("Import finished", "mode", report.Mode, "duration", report.Duration)
	return report, nil
}

// shouldSkipItems applies to direct loads only; a statement log always
// carries the full item set.
func (p *Pipeline) shouldSkipItems(ctx context.Context, mode domain.ImportMode, force bool) (bool, error) {
	if mode != domain.ImportModeLoad || force || p.opts.SkipItemsThreshold <= 0 {
		return false, nil
	}
	n, err := p.store.CountItems(ctx)
	if err != nil {
		return false, fmt.Errorf("count stored items: %w", err)
	}
	if n >= p.opts.SkipItemsThreshold {
		p.logger.Info("Items already imported, skipping items fetch", "stored", n, "threshold", p.opts.SkipItemsThreshold)
		return true, nil
	}
	return false, nil
}
