// Package paginator slices ordered result sets into fixed-size pages.
//
// Requested page numbers never cause an error: absent or malformed numbers
// resolve to the first page, numbers below one to the first page, and
// numbers past the end to the last page. An empty result set still has one
// (empty) page.
package paginator

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// PerPage is the page size used by every listing.
const PerPage = 10

type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	PerPage  int
	Total    int64
}

// New resolves the requested page number against total items.
func New[T any](total int64, perPage int, requested string) *Page[T] {
	if perPage < 1 {
		perPage = PerPage
	}
	if total < 0 {
		total = 0
	}

	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	return &Page[T]{
		Number:   clamp(ParseNumber(requested), numPages),
		NumPages: numPages,
		PerPage:  perPage,
		Total:    total,
	}
}

// FromSlice pages an already ordered in-memory collection.
func FromSlice[T any](items []T, perPage int, requested string) *Page[T] {
	p := New[T](int64(len(items)), perPage, requested)
	start, end := p.bounds()
	p.Items = items[start:end]
	return p
}

// ParseNumber returns the 1-based page number in s, or 1 when s is not a
// number.
func ParseNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return n
}

func clamp(n, numPages int) int {
	if n < 1 {
		return 1
	}
	if n > numPages {
		return numPages
	}
	return n
}

func (p *Page[T]) Offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p *Page[T]) bounds() (int, int) {
	start := p.Offset()
	if int64(start) > p.Total {
		start = int(p.Total)
	}
	end := start + p.PerPage
	if int64(end) > p.Total {
		end = int(p.Total)
	}
	return start, end
}

// Scope applies the page window to a gorm query.
func (p *Page[T]) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.PerPage)
}

func (p *Page[T]) HasNext() bool {
	return p.Number < p.NumPages
}

func (p *Page[T]) HasPrevious() bool {
	return p.Number > 1
}

func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p *Page[T]) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

func (p *Page[T]) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

// StartIndex is the 1-based index of the first item on the page, 0 if the
// page is empty.
func (p *Page[T]) StartIndex() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// PageRange lists every page number, for rendering numbered links.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}
