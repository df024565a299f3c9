// Package worker runs queued import runs in the background, one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/metrics"
)

// Repository is the import-run side of a store.
type Repository interface {
	ListQueuedImportRuns(ctx context.Context) ([]*domain.ImportRun, error)
	UpdateImportRunStatus(ctx context.Context, id string, status domain.ImportStatus) error
	FinishImportRun(ctx context.Context, id string, counts domain.ImportCounts) error
	FailImportRun(ctx context.Context, id string, errorMsg string) error
	ResetStuckImportRuns(ctx context.Context) error
}

// Runner executes a single run.
type Runner interface {
	Run(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error)
}

type Worker struct {
	ctx    context.Context
	Repo   Repository
	Runner Runner
	Logger *logger.Logger
	// OnComplete is called after a run finishes successfully.
	OnComplete   func(run *domain.ImportRun)
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	PollInterval time.Duration
}

func NewWorker(repo Repository, runner Runner, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.Default()
	}

	return &Worker{
		Repo:         repo,
		Runner:       runner,
		PollInterval: constants.DefaultPollInterval,
		Logger:       log.WithComponent("worker"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start requeues runs interrupted by a previous shutdown and begins polling.
func (w *Worker) Start() {
	w.Logger.Info("Starting worker")

	if err := w.Repo.ResetStuckImportRuns(w.ctx); err != nil {
		w.Logger.Error("Failed to reset stuck import runs", "error", err)
	}

	w.wg.Add(1)
	go w.processRuns()
}

// Stop cancels the run in progress and waits for the poll loop to exit.
func (w *Worker) Stop() {
	w.Logger.Info("Stopping worker")
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) processRuns() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			runs, err := w.Repo.ListQueuedImportRuns(w.ctx)
			if err != nil {
				w.Logger.Error("Failed to list queued import runs", "error", err)
				continue
			}

			for _, run := range runs {
				if w.ctx.Err() != nil {
					return
				}
				w.runImport(w.ctx, run)
			}
		}
	}
}

func (w *Worker) runImport(ctx context.Context, run *domain.ImportRun) {
	log := w.Logger.WithRun(run.ID, string(run.Mode))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in import run", "panic", r)
			w.fail(run, fmt.Sprintf("Panic: %v", r))
		}
	}()

	log.Info("Running import")

	if err := w.Repo.UpdateImportRunStatus(ctx, run.ID, domain.ImportStatusRunning); err != nil {
		log.Error("Failed to update status", "error", err)
		return
	}

	start := time.Now()
	counts, err := w.Runner.Run(ctx, run)
	if err != nil {
		if ctx.Err() != nil {
			// Left running; ResetStuckImportRuns requeues it on the next start.
			log.Warn("Import interrupted by shutdown")
			return
		}
		log.Error("Import failed", "error", err)
		w.fail(run, err.Error())
		return
	}

	if err := w.Repo.FinishImportRun(ctx, run.ID, counts); err != nil {
		log.Error("Failed to record finished import", "error", err)
		return
	}
	metrics.ImportRuns.WithLabelValues(string(run.Mode), string(domain.ImportStatusCompleted)).Inc()
	log.Info("Import completed",
		"items", counts.Items,
		"recipes", counts.Recipes,
		"ingredients", counts.Ingredients,
		"failed_batches", counts.FailedBatches,
		"duration", time.Since(start),
	)

	if w.OnComplete != nil {
		w.OnComplete(run)
	}
}

func (w *Worker) fail(run *domain.ImportRun, msg string) {
	// The worker context may already be cancelled; the failure must still be recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Repo.FailImportRun(ctx, run.ID, msg); err != nil {
		w.Logger.Error("Failed to record import failure", "run_id", run.ID, "error", err)
	}
	metrics.ImportRuns.WithLabelValues(string(run.Mode), string(domain.ImportStatusFailed)).Inc()
}
