package app

import (
	"context"
	"fmt"

	"github.com/cesargomez89/dofusdb-explorer/internal/browse"
	"github.com/cesargomez89/dofusdb-explorer/internal/config"
	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/dofusdb"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/pgstore"
	"github.com/cesargomez89/dofusdb-explorer/internal/store"
	"github.com/cesargomez89/dofusdb-explorer/internal/worker"
)

// Backend is a store serving every part of the application.
type Backend interface {
	browse.Repository
	CatalogStore
	ImportRepository
	worker.Repository
	PingContext(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*store.DB)(nil)
	_ Backend = (*pgstore.Store)(nil)
)

// OpenBackend opens the store selected by cfg.DBDriver.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.DBDriver {
	case constants.DriverSQLite:
		db, err := store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	case constants.DriverPostgres:
		s, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// NewSource builds the upstream client described by cfg.
func NewSource(cfg *config.Config, log *logger.Logger) *dofusdb.Client {
	return dofusdb.NewClient(cfg.APIURL, dofusdb.Options{
		RateLimit:  cfg.RateLimit,
		RetryBase:  constants.DefaultRetryBase,
		MaxRetries: cfg.MaxRetries,
	}, log)
}

// PipelineOptionsFrom maps cfg onto pipeline options for both modes.
func PipelineOptionsFrom(cfg *config.Config) PipelineOptions {
	return PipelineOptions{
		ImageBase:          cfg.APIURL,
		Policies:           cfg.ConflictPolicies(),
		StatementPolicies:  cfg.StatementConflictPolicies(),
		FetchPageSize:      cfg.FetchPageSize,
		InsertBatchSize:    cfg.InsertBatchSize,
		SkipItemsThreshold: cfg.SkipItemsThreshold,
	}
}
