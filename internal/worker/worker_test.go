package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/store"
)

type runnerFunc func(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error)

func (f runnerFunc) Run(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error) {
	return f(ctx, run)
}

func setup(t *testing.T, runner Runner) (*store.DB, *Worker) {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	w := NewWorker(db, runner, logger.Default())
	w.PollInterval = 10 * time.Millisecond
	return db, w
}

func enqueue(t *testing.T, db *store.DB, id string, status domain.ImportStatus) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.CreateImportRun(context.Background(), &domain.ImportRun{
		ID: id, Mode: domain.ImportModeLoad, Status: status, CreatedAt: now, UpdatedAt: now,
	}))
}

func waitForStatus(t *testing.T, db *store.DB, id string, want domain.ImportStatus) *domain.ImportRun {
	t.Helper()
	var got *domain.ImportRun
	require.Eventually(t, func() bool {
		run, err := db.GetImportRun(context.Background(), id)
		if err != nil {
			return false
		}
		got = run
		return run.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func TestWorker_CompletesRun(t *testing.T) {
	db, w := setup(t, runnerFunc(func(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error) {
		return domain.ImportCounts{Items: 5, Recipes: 2, Ingredients: 7, FailedBatches: 1}, nil
	}))

	var completed atomic.Int32
	w.OnComplete = func(run *domain.ImportRun) { completed.Add(1) }

	enqueue(t, db, "run-1", domain.ImportStatusQueued)
	w.Start()
	defer w.Stop()

	run := waitForStatus(t, db, "run-1", domain.ImportStatusCompleted)
	assert.Equal(t, 5, run.Items)
	assert.Equal(t, 7, run.Ingredients)
	assert.Equal(t, 1, run.FailedBatches)
	assert.Eventually(t, func() bool { return completed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWorker_RecordsFailure(t *testing.T) {
	db, w := setup(t, runnerFunc(func(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error) {
		return domain.ImportCounts{}, errors.New("fetch recipes: retries exhausted")
	}))

	var completed atomic.Int32
	w.OnComplete = func(run *domain.ImportRun) { completed.Add(1) }

	enqueue(t, db, "run-1", domain.ImportStatusQueued)
	w.Start()
	defer w.Stop()

	run := waitForStatus(t, db, "run-1", domain.ImportStatusFailed)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "retries exhausted")
	assert.Equal(t, int32(0), completed.Load())
}

func TestWorker_RecoversPanic(t *testing.T) {
	db, w := setup(t, runnerFunc(func(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error) {
		panic("boom")
	}))

	enqueue(t, db, "run-1", domain.ImportStatusQueued)
	w.Start()
	defer w.Stop()

	run := waitForStatus(t, db, "run-1", domain.ImportStatusFailed)
	require.NotNil(t, run.Error)
	assert.Equal(t, "Panic: boom", *run.Error)
}

func TestWorker_RequeuesInterruptedRun(t *testing.T) {
	var calls atomic.Int32
	db, w := setup(t, runnerFunc(func(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error) {
		calls.Add(1)
		return domain.ImportCounts{}, nil
	}))

	enqueue(t, db, "stuck", domain.ImportStatusRunning)
	w.Start()
	defer w.Stop()

	waitForStatus(t, db, "stuck", domain.ImportStatusCompleted)
	assert.Equal(t, int32(1), calls.Load())
}
