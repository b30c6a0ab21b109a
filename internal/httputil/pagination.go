package httputil

import (
	"fmt"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is returned next to every list.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// NewPagination fills in the page count for total rows.
func NewPagination(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, Pages: pages}
}

// ParsePagination reads the page and per_page query values. A page below 1
// is clamped; per_page outside 1..MaxPerPage is an error.
func ParsePagination(pageStr, perPageStr string) (page, perPage int, err error) {
	page, perPage = 1, DefaultPerPage

	if pageStr != "" {
		if page, err = strconv.Atoi(pageStr); err != nil {
			return 0, 0, fmt.Errorf("invalid page parameter: must be an integer")
		}
		page = max(page, 1)
	}

	if perPageStr != "" {
		if perPage, err = strconv.Atoi(perPageStr); err != nil {
			return 0, 0, fmt.Errorf("invalid per_page parameter: must be an integer")
		}
		if perPage < 1 || perPage > MaxPerPage {
			return 0, 0, fmt.Errorf("per_page must be between 1 and %d", MaxPerPage)
		}
	}

	return page, perPage, nil
}
