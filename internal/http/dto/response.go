package dto

import "github.com/cesargomez89/dofusdb-explorer/internal/domain"

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type ItemListResponse struct {
	Pagination *Pagination   `json:"pagination"`
	Items      []domain.Item `json:"items"`
}

type RankingResponse struct {
	Pagination *Pagination         `json:"pagination"`
	Items      []domain.RankedItem `json:"items"`
}

type ImportRunResponse struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	Error         string `json:"error,omitempty"`
	Items         int    `json:"items"`
	Recipes       int    `json:"recipes"`
	Ingredients   int    `json:"ingredients"`
	FailedBatches int    `json:"failed_batches"`
}

func NewImportRunResponse(r *domain.ImportRun) ImportRunResponse {
	resp := ImportRunResponse{
		ID:            r.ID,
		Mode:          string(r.Mode),
		Status:        string(r.Status),
		Items:         r.Items,
		Recipes:       r.Recipes,
		Ingredients:   r.Ingredients,
		FailedBatches: r.FailedBatches,
		CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if r.Error != nil {
		resp.Error = *r.Error
	}
	return resp
}
