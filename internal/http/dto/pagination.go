package dto

import "math"

// Pagination describes an offset window for clients that render page numbers.
type Pagination struct {
	Offset      int  `json:"offset"`
	NextOffset  int  `json:"next_offset"`
	PageSize    int  `json:"page_size"`
	Total       int  `json:"total"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasMore     bool `json:"has_more"`
}

func NewPagination(offset, nextOffset, pageSize, total int) *Pagination {
	if offset < 0 {
		offset = 0
	}
	if pageSize < 1 {
		pageSize = 50
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	page := offset/pageSize + 1
	if page > totalPages {
		page = totalPages
	}

	return &Pagination{
		Offset:      offset,
		NextOffset:  nextOffset,
		PageSize:    pageSize,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasMore:     nextOffset < total,
	}
}
