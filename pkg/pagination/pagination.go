package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:   1,
		Limit:  defaultLimit,
		Offset: 0,
	}
}

// FromRequest extracts "page" and "limit" query parameters from an HTTP
// request, clamping limit to [1, 100]. Invalid values fall back to defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= maxLimit {
			p.Limit = v
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// Normalize clamps out-of-range values to defaults and recomputes Offset.
// Services call this on filter structs built outside FromRequest.
func (p *Params) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	p.Offset = (p.Page - 1) * p.Limit
}

// Meta describes the pagination block returned alongside list payloads.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewMeta computes the pagination block for the given total row count.
func NewMeta(total int, params Params) Meta {
	pages := total / params.Limit
	if total%params.Limit > 0 {
		pages++
	}
	return Meta{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Pages: pages,
	}
}

// Result wraps a paginated list payload.
type Result[T any] struct {
	Items      []T  `json:"items"`
	Pagination Meta `json:"pagination"`
}

// NewResult creates a paginated result. A nil items slice is normalized to an
// empty slice so list endpoints always serialize as [].
func NewResult[T any](items []T, total int, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		Pagination: NewMeta(total, params),
	}
}
