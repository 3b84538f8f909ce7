package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Skip       int `json:"skip"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata from skip/limit offsets.
func NewPagination(skip, limit, total int) Pagination {
	if limit <= 0 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Skip: skip, Limit: limit, Total: total, TotalPages: totalPages}
}
