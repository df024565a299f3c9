package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

const importRunColumns = `id, mode, status, items, recipes, ingredients, failed_batches, error, created_at, updated_at`

func (db *DB) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	query := `INSERT INTO import_runs (id, mode, status, created_at, updated_at)
		VALUES (:id, :mode, :status, :created_at, :updated_at)`

	_, err := db.NamedExecContext(ctx, query, run)
	return err
}

func (db *DB) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	run := &domain.ImportRun{}
	err := db.GetContext(ctx, run, `SELECT `+importRunColumns+` FROM import_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (db *DB) ListImportRuns(ctx context.Context, limit int) ([]*domain.ImportRun, error) {
	runs := []*domain.ImportRun{}
	err := db.SelectContext(ctx, &runs,
		`SELECT `+importRunColumns+` FROM import_runs ORDER BY created_at DESC LIMIT ?`, limit)
	return runs, err
}

func (db *DB) ListQueuedImportRuns(ctx context.Context) ([]*domain.ImportRun, error) {
	var runs []*domain.ImportRun
	err := db.SelectContext(ctx, &runs,
		`SELECT `+importRunColumns+` FROM import_runs WHERE status = ? ORDER BY created_at ASC`, domain.ImportStatusQueued)
	return runs, err
}

// GetActiveImportRun returns the queued or running run, or nil when idle.
func (db *DB) GetActiveImportRun(ctx context.Context) (*domain.ImportRun, error) {
	run := &domain.ImportRun{}
	err := db.GetContext(ctx, run,
		`SELECT `+importRunColumns+` FROM import_runs WHERE status IN ('queued', 'running') ORDER BY created_at ASC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (db *DB) UpdateImportRunStatus(ctx context.Context, id string, status domain.ImportStatus) error {
	_, err := db.ExecContext(ctx, `UPDATE import_runs SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	return err
}

func (db *DB) FinishImportRun(ctx context.Context, id string, counts domain.ImportCounts) error {
	query := `UPDATE import_runs SET status = ?, items = ?, recipes = ?, ingredients = ?, failed_batches = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, domain.ImportStatusCompleted,
		counts.Items, counts.Recipes, counts.Ingredients, counts.FailedBatches, time.Now(), id)
	return err
}

func (db *DB) FailImportRun(ctx context.Context, id string, errorMsg string) error {
	_, err := db.ExecContext(ctx, `UPDATE import_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		domain.ImportStatusFailed, errorMsg, time.Now(), id)
	return err
}

// ResetStuckImportRuns requeues runs left running by a previous process.
func (db *DB) ResetStuckImportRuns(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `UPDATE import_runs SET status = ?, updated_at = ? WHERE status = ?`,
		domain.ImportStatusQueued, time.Now(), domain.ImportStatusRunning)
	return err
}
