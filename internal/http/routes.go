package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/dofusdb-explorer/internal/http/dto"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			h.Logger.Warn("Health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q, errs := dto.ParseItemQuery(r.URL.Query())
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	page, err := h.Browse.ListItems(r.Context(), q.Filter(), q.Offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ItemListResponse{
		Items:      page.Items,
		Pagination: dto.NewPagination(page.Offset, page.Offset+len(page.Items), h.Browse.PageSize(), page.Total),
	})
}

func (h *Handler) ItemTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Browse.ItemTypes(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"types": types})
}

func (h *Handler) ItemRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	detail, err := h.Browse.GetRecipeFor(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) ItemUsedIn(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	usedIn, err := h.Browse.UsedIn(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, usedIn)
}

func (h *Handler) Ranking(w http.ResponseWriter, r *http.Request) {
	q, errs := dto.ParseOffsetQuery(r.URL.Query())
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	page, err := h.Browse.RankingPage(r.Context(), q.Offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.RankingResponse{
		Items:      page.Items,
		Pagination: dto.NewPagination(page.Offset, page.NextOffset, h.Browse.PageSize(), page.Total),
	})
}

func (h *Handler) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := dto.Validate(req); len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	run, err := h.Imports.Enqueue(r.Context(), req.ImportMode())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, dto.NewImportRunResponse(run))
}

func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Imports.List(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	resp := make([]dto.ImportRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, dto.NewImportRunResponse(run))
	}
	respondJSON(w, http.StatusOK, map[string][]dto.ImportRunResponse{"imports": resp})
}

func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	run, err := h.Imports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewImportRunResponse(run))
}

func itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}
