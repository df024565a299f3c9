package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/storage"
)

// ImportRepository persists import runs.
type ImportRepository interface {
	CreateImportRun(ctx context.Context, run *domain.ImportRun) error
	GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error)
	ListImportRuns(ctx context.Context, limit int) ([]*domain.ImportRun, error)
	GetActiveImportRun(ctx context.Context) (*domain.ImportRun, error)
}

type ImportService struct {
	Repo   ImportRepository
	Logger *logger.Logger
}

func NewImportService(repo ImportRepository, log *logger.Logger) *ImportService {
	if log == nil {
		log = logger.Default()
	}
	return &ImportService{Repo: repo, Logger: log}
}

// Enqueue queues a run in the given mode. While another run is queued or
// running, that run is returned instead.
func (s *ImportService) Enqueue(ctx context.Context, mode domain.ImportMode) (*domain.ImportRun, error) {
	existing, err := s.Repo.GetActiveImportRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active import: %w", err)
	}
	if existing != nil {
		s.Logger.Info("Import already active", "run_id", existing.ID, "mode", existing.Mode)
		return existing, nil
	}

	now := time.Now()
	run := &domain.ImportRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		Status:    domain.ImportStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.CreateImportRun(ctx, run); err != nil {
		return nil, err
	}
	s.Logger.Info("Import enqueued", "run_id", run.ID, "mode", mode)
	return run, nil
}

func (s *ImportService) List(ctx context.Context) ([]*domain.ImportRun, error) {
	return s.Repo.ListImportRuns(ctx, constants.MaxImportHistory)
}

func (s *ImportService) Get(ctx context.Context, id string) (*domain.ImportRun, error) {
	return s.Repo.GetImportRun(ctx, id)
}

// ImportRunner executes queued runs with a pipeline. SQL runs write their
// statement log to OutputDir.
type ImportRunner struct {
	Pipeline  *Pipeline
	OutputDir string
}

// SQLPath is where the statement log of a run is written.
func (r *ImportRunner) SQLPath(runID string) string {
	return filepath.Join(r.OutputDir, "dofusdb-"+runID+".sql")
}

func (r *ImportRunner) Run(ctx context.Context, run *domain.ImportRun) (domain.ImportCounts, error) {
	if run.Mode != domain.ImportModeSQL {
		report, err := r.Pipeline.Run(ctx, RunOptions{Mode: run.Mode})
		if err != nil {
			return domain.ImportCounts{}, err
		}
		return report.Counts(), nil
	}

	f, err := storage.Create(r.SQLPath(run.ID))
	if err != nil {
		return domain.ImportCounts{}, fmt.Errorf("create statement log: %w", err)
	}
	defer f.Abort()

	report, err := r.Pipeline.Run(ctx, RunOptions{Mode: run.Mode, Output: f})
	if err != nil {
		return domain.ImportCounts{}, err
	}
	if err := f.Commit(); err != nil {
		return domain.ImportCounts{}, fmt.Errorf("write statement log: %w", err)
	}

	sum, err := storage.HashFile(f.Path())
	if err != nil {
		return domain.ImportCounts{}, err
	}
	r.Pipeline.logger.Info("Statement log written", "run_id", run.ID, "path", f.Path(), "sha256", sum)
	return report.Counts(), nil
}
