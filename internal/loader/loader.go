// Package loader writes a normalized dataset into a store in fixed-size batches.
package loader

import (
	"context"
	"fmt"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/metrics"
)

// Sink is the write side of a store. Each call writes one batch atomically.
type Sink interface {
	UpsertItems(ctx context.Context, items []domain.Item, policy domain.ConflictPolicy) error
	UpsertRecipes(ctx context.Context, recipes []domain.Recipe, policy domain.ConflictPolicy) error
	UpsertIngredients(ctx context.Context, rows []domain.RecipeIngredient, policy domain.ConflictPolicy) error
}

// FailedBatch describes a batch the store rejected.
type FailedBatch struct {
	Err      error
	Relation domain.Relation
	Index    int
	Size     int
}

func (f FailedBatch) Error() string {
	return fmt.Sprintf("%s batch %d (%d rows): %v", f.Relation, f.Index, f.Size, f.Err)
}

// Summary reports what a load wrote.
type Summary struct {
	Inserted map[domain.Relation]int
	Failed   []FailedBatch
}

// Total returns the number of rows written across relations.
func (s Summary) Total() int {
	n := 0
	for _, v := range s.Inserted {
		n += v
	}
	return n
}

// Progress receives the cumulative written count of a relation after each batch.
type Progress func(rel domain.Relation, written, total int)

type Options struct {
	Policies  domain.ConflictPolicies
	Progress  Progress
	BatchSize int
}

type Loader struct {
	sink   Sink
	logger *logger.Logger
	opts   Options
}

func New(sink Sink, opts Options, log *logger.Logger) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = constants.DefaultInsertBatchSize
	}
	if log == nil {
		log = logger.Default()
	}
	return &Loader{
		sink:   sink,
		opts:   opts,
		logger: log.WithComponent("loader"),
	}
}

// Load writes items, then recipes, then ingredients. Batches run one at a
// time; a rejected batch is recorded and skipped. Only context cancellation
// stops the load early.
func (l *Loader) Load(ctx context.Context, ds domain.Dataset) (Summary, error) {
	summary := Summary{Inserted: map[domain.Relation]int{
		domain.RelationItems:       0,
		domain.RelationRecipes:     0,
		domain.RelationIngredients: 0,
	}}

	steps := []struct {
		write func(ctx context.Context, start, end int, policy domain.ConflictPolicy) error
		rel   domain.Relation
		total int
	}{
		{
			rel:   domain.RelationItems,
			total: len(ds.Items),
			write: func(ctx context.Context, start, end int, p domain.ConflictPolicy) error {
				return l.sink.UpsertItems(ctx, ds.Items[start:end], p)
			},
		},
		{
			rel:   domain.RelationRecipes,
			total: len(ds.Recipes),
			write: func(ctx context.Context, start, end int, p domain.ConflictPolicy) error {
				return l.sink.UpsertRecipes(ctx, ds.Recipes[start:end], p)
			},
		},
		{
			rel:   domain.RelationIngredients,
			total: len(ds.Ingredients),
			write: func(ctx context.Context, start, end int, p domain.ConflictPolicy) error {
				return l.sink.UpsertIngredients(ctx, ds.Ingredients[start:end], p)
			},
		},
	}

	for _, step := range steps {
		policy := l.opts.Policies.For(step.rel)
		log := l.logger.With("relation", step.rel, "policy", policy)
		log.Info("Writing relation", "rows", step.total, "batch_size", l.opts.BatchSize)

		for start, index := 0, 0; start < step.total; start, index = start+l.opts.BatchSize, index+1 {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			end := min(start+l.opts.BatchSize, step.total)

			if err := step.write(ctx, start, end, policy); err != nil {
				if ctx.Err() != nil {
					return summary, ctx.Err()
				}
				failed := FailedBatch{Relation: step.rel, Index: index, Size: end - start, Err: err}
				summary.Failed = append(summary.Failed, failed)
				metrics.BatchesFailed.WithLabelValues(string(step.rel)).Inc()
				log.Error("Batch rejected", "batch", index, "size", end-start, "error", err)
				continue
			}

			summary.Inserted[step.rel] += end - start
			metrics.RowsWritten.WithLabelValues(string(step.rel)).Add(float64(end - start))
			if l.opts.Progress != nil {
				l.opts.Progress(step.rel, summary.Inserted[step.rel], step.total)
			}
		}

		log.Info("Relation written", "written", summary.Inserted[step.rel], "rows", step.total)
	}

	return summary, nil
}
