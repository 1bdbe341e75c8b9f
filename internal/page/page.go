// Package page computes list pagination.
package page

import "strconv"

// Page describes one page of a paginated list.
type Page struct {
	Number  int  `json:"number"`
	Size    int  `json:"size"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// New returns the page for the requested number. A missing or invalid
// number selects the first page; a number past the end selects the last.
func New(total, size int, requested string) Page {
	if size < 1 {
		size = 1
	}
	if total < 0 {
		total = 0
	}

	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}

	n, err := strconv.Atoi(requested)
	if err != nil || n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}

	return Page{
		Number:  n,
		Size:    size,
		Total:   total,
		Pages:   pages,
		HasNext: n < pages,
		HasPrev: n > 1,
	}
}

// Offset returns the SQL OFFSET for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
