package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cesargomez89/dofusdb-explorer/internal/app"
	"github.com/cesargomez89/dofusdb-explorer/internal/browse"
	"github.com/cesargomez89/dofusdb-explorer/internal/config"
	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	httpapp "github.com/cesargomez89/dofusdb-explorer/internal/http"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/metrics"
	"github.com/cesargomez89/dofusdb-explorer/internal/worker"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize Store
	backend, err := app.OpenBackend(context.Background(), cfg)
	if err != nil {
		appLogger.Error("Failed to init store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Initialize Services
	browseService := browse.NewService(backend, browse.Options{
		PageSize:  cfg.BrowsePageSize,
		RecipeTTL: constants.DefaultRecipeTTL,
	}, appLogger)
	importService := app.NewImportService(backend, appLogger)

	pipeline := app.NewPipeline(app.NewSource(cfg, appLogger), backend, app.PipelineOptionsFrom(cfg), appLogger)

	// Initialize Worker
	w := worker.NewWorker(backend, &app.ImportRunner{Pipeline: pipeline, OutputDir: cfg.SQLOutputDir}, appLogger)
	w.OnComplete = func(run *domain.ImportRun) {
		if run.Mode == domain.ImportModeLoad {
			browseService.Invalidate()
		}
	}
	w.Start()
	defer w.Stop()

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Handle("/metrics", promhttp.Handler())

	// Routes
	h := httpapp.NewHandler(browseService, importService, backend.PingContext, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting")
}
