package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

const importRunColumns = `id, mode, status, items, recipes, ingredients, failed_batches, error, created_at, updated_at`

func (s *Store) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, mode, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Mode), string(run.Status), run.CreatedAt, run.UpdatedAt)
	return err
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*domain.ImportRun, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[domain.ImportRun])
}

func (s *Store) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	runs, err := s.queryRuns(ctx, `SELECT `+importRunColumns+` FROM import_runs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return runs[0], nil
}

func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]*domain.ImportRun, error) {
	return s.queryRuns(ctx, `SELECT `+importRunColumns+` FROM import_runs ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *Store) ListQueuedImportRuns(ctx context.Context) ([]*domain.ImportRun, error) {
	return s.queryRuns(ctx, `SELECT `+importRunColumns+` FROM import_runs WHERE status = $1 ORDER BY created_at ASC`,
		string(domain.ImportStatusQueued))
}

func (s *Store) GetActiveImportRun(ctx context.Context) (*domain.ImportRun, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+importRunColumns+` FROM import_runs
		WHERE status IN ('queued', 'running') ORDER BY created_at ASC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	run, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[domain.ImportRun])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *Store) UpdateImportRunStatus(ctx context.Context, id string, status domain.ImportStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE import_runs SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	return err
}

func (s *Store) FinishImportRun(ctx context.Context, id string, counts domain.ImportCounts) error {
	_, err := s.pool.Exec(ctx, `UPDATE import_runs
		SET status = $1, items = $2, recipes = $3, ingredients = $4, failed_batches = $5, updated_at = NOW()
		WHERE id = $6`,
		string(domain.ImportStatusCompleted), counts.Items, counts.Recipes, counts.Ingredients, counts.FailedBatches, id)
	return err
}

func (s *Store) FailImportRun(ctx context.Context, id string, errorMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE import_runs SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`,
		string(domain.ImportStatusFailed), errorMsg, id)
	return err
}

func (s *Store) ResetStuckImportRuns(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `UPDATE import_runs SET status = $1, updated_at = NOW() WHERE status = $2`,
		string(domain.ImportStatusQueued), string(domain.ImportStatusRunning))
	return err
}
