package shared

import "math"

// DefaultPageSize is applied when callers supply a non-positive page size.
const DefaultPageSize = 5

// PagedResult carries one page of a listing together with totals.
type PagedResult[T any] struct {
	Items      []T
	TotalItems int
	Page       int
	PageSize   int
	TotalPages int
}

// NewPagedResult clamps page/pageSize and derives TotalPages.
func NewPagedResult[T any](items []T, totalItems, page, pageSize int) PagedResult[T] {
	page, pageSize = ClampPaging(page, pageSize)
	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))
	return PagedResult[T]{
		Items:      items,
		TotalItems: totalItems,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// ClampPaging normalizes raw page/pageSize input before querying.
func ClampPaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
