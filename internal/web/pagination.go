package web

import "math"

// Pagination describes one page of a listing. Pages are 1-indexed.
type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Paginate computes ceil(total / pageSize) pages, never fewer than one, so
// an empty listing still renders page 1.
func Paginate(page, pageSize, total int) Pagination {
	if pageSize <= 0 {
		pageSize = 10
	}
	if page < 1 {
		page = 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

// InRange reports whether page is at least 1 and its offset fits in an int.
func InRange(page, pageSize int) bool {
	if pageSize <= 0 {
		pageSize = 10
	}
	return page >= 1 && page-1 <= math.MaxInt/pageSize
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

func (p Pagination) HasPrev() bool { return p.Page > 1 }

func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
