package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/http/dto"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
)

// Browser is the read API served under /api/items and /api/ranking.
type Browser interface {
	PageSize() int
	ListItems(ctx context.Context, filter domain.ItemFilter, offset int) (*domain.ItemPage, error)
	ItemTypes(ctx context.Context) ([]string, error)
	RankingPage(ctx context.Context, offset int) (*domain.RankingPage, error)
	GetRecipeFor(ctx context.Context, itemID int) (*domain.RecipeDetail, error)
	UsedIn(ctx context.Context, itemID int) (*domain.UsedIn, error)
}

// Importer queues and reports import runs.
type Importer interface {
	Enqueue(ctx context.Context, mode domain.ImportMode) (*domain.ImportRun, error)
	List(ctx context.Context) ([]*domain.ImportRun, error)
	Get(ctx context.Context, id string) (*domain.ImportRun, error)
}

type Handler struct {
	Browse  Browser
	Imports Importer
	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error
	Logger *logger.Logger
}

func NewHandler(browse Browser, imports Importer, health func(ctx context.Context) error, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Browse:  browse,
		Imports: imports,
		Health:  health,
		Logger:  log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", h.ListItems)
		r.Get("/items/types", h.ItemTypes)
		r.Get("/items/{id}/recipe", h.ItemRecipe)
		r.Get("/items/{id}/used-in", h.ItemUsedIn)
		r.Get("/ranking", h.Ranking)

		r.Post("/imports", h.CreateImport)
		r.Get("/imports", h.ListImports)
		r.Get("/imports/{id}", h.GetImport)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, dto.ErrorResponse{Error: message})
}

func respondValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// respondServiceError maps domain errors to status codes. Anything unexpected
// is logged and reported as a 500 without details.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}
