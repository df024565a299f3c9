package dto

import (
	"net/url"

	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

// ItemQuery is the query string of GET /api/items. Zero levels mean unset.
type ItemQuery struct {
	Search   string `form:"q" validate:"max=100"`
	Type     string `form:"type" validate:"max=100"`
	MinLevel int    `form:"min_level" validate:"min=0,max=200"`
	MaxLevel int    `form:"max_level" validate:"min=0,max=200"`
	Offset   int    `form:"offset" validate:"min=0"`
}

func ParseItemQuery(values url.Values) (ItemQuery, []ValidationError) {
	q := ItemQuery{
		Search: values.Get("q"),
		Type:   values.Get("type"),
	}

	var errs []ValidationError
	errs = append(errs, parseInt(values.Get("min_level"), "min_level", &q.MinLevel)...)
	errs = append(errs, parseInt(values.Get("max_level"), "max_level", &q.MaxLevel)...)
	errs = append(errs, parseInt(values.Get("offset"), "offset", &q.Offset)...)
	if len(errs) > 0 {
		return q, errs
	}
	return q, Validate(q)
}

func (q ItemQuery) Filter() domain.ItemFilter {
	return domain.ItemFilter{
		Search:   q.Search,
		Type:     q.Type,
		MinLevel: q.MinLevel,
		MaxLevel: q.MaxLevel,
	}.Normalize()
}

// OffsetQuery is the query string of offset-paged endpoints without filters.
type OffsetQuery struct {
	Offset int `form:"offset" validate:"min=0"`
}

func ParseOffsetQuery(values url.Values) (OffsetQuery, []ValidationError) {
	var q OffsetQuery
	if errs := parseInt(values.Get("offset"), "offset", &q.Offset); len(errs) > 0 {
		return q, errs
	}
	return q, Validate(q)
}

// ImportRequest is the body of POST /api/imports. An empty mode means a direct load.
type ImportRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=load sql"`
}

func (r ImportRequest) ImportMode() domain.ImportMode {
	if r.Mode == "" {
		return domain.ImportModeLoad
	}
	return domain.ImportMode(r.Mode)
}
