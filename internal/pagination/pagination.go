// Package pagination tracks the page window over a list of rows.
package pagination

import "fmt"

// Defaults used when a State is created with zero values.
const (
	DefaultItemsPerPage    = 50
	DefaultMaxVisiblePages = 5
)

// Ellipsis marks a gap in the list returned by PageNumbers.
const Ellipsis = 0

// State is the current page, page size and total item count.
//
// In server-side mode the total is supplied with SetTotal and the caller is
// expected to hold only the current page of rows locally, so Window should
// not be used to slice local data.
type State struct {
	currentPage  int
	itemsPerPage int
	totalCount   int
	serverSide   bool

	// OnPageChange is called after GoToPage moves to a new page.
	OnPageChange func(page int)
}

// New returns a State on page 1 with the given page size.
func New(itemsPerPage int) *State {
	s := &State{currentPage: 1}
	s.Configure(itemsPerPage, 0)
	return s
}

// NewServerSide returns a State whose total count is driven externally.
func NewServerSide(itemsPerPage int) *State {
	s := New(itemsPerPage)
	s.serverSide = true
	return s
}

// Configure sets page size and total count, clamping the current page.
// A page size below 1 is clamped to 1 and a negative total to 0.
func (s *State) Configure(itemsPerPage, totalCount int) {
	if itemsPerPage < 1 {
		itemsPerPage = 1
	}
	s.itemsPerPage = itemsPerPage
	s.SetTotal(totalCount)
}

// SetTotal updates the total item count and clamps the current page into
// the new range.
func (s *State) SetTotal(totalCount int) {
	if totalCount < 0 {
		totalCount = 0
	}
	s.totalCount = totalCount
	s.clamp()
}

func (s *State) clamp() {
	total := s.TotalPages()
	switch {
	case total == 0 || s.currentPage < 1:
		s.currentPage = 1
	case s.currentPage > total:
		s.currentPage = total
	}
}

// ServerSide reports whether the total is driven externally.
func (s *State) ServerSide() bool { return s.serverSide }

// CurrentPage returns the 1-based current page.
func (s *State) CurrentPage() int { return s.currentPage }

// ItemsPerPage returns the page size.
func (s *State) ItemsPerPage() int { return s.itemsPerPage }

// TotalCount returns the number of items being paged.
func (s *State) TotalCount() int { return s.totalCount }

// TotalPages is ceil(total/itemsPerPage). It is 0 when there are no items.
func (s *State) TotalPages() int {
	return (s.totalCount + s.itemsPerPage - 1) / s.itemsPerPage
}

// DisplayPages is TotalPages but never less than 1, for "page 1 of 1" on an
// empty list.
func (s *State) DisplayPages() int {
	if t := s.TotalPages(); t > 0 {
		return t
	}
	return 1
}

// GoToPage moves to page n. It returns false and does nothing if n is out of
// range or already current.
func (s *State) GoToPage(n int) bool {
	if n < 1 || n > s.TotalPages() || n == s.currentPage {
		return false
	}
	s.currentPage = n
	if s.OnPageChange != nil {
		s.OnPageChange(n)
	}
	return true
}

// Reset returns to page 1 without notifying.
func (s *State) Reset() {
	s.currentPage = 1
}

func (s *State) Next() bool  { return s.GoToPage(s.currentPage + 1) }
func (s *State) Prev() bool  { return s.GoToPage(s.currentPage - 1) }
func (s *State) First() bool { return s.GoToPage(1) }
func (s *State) Last() bool  { return s.GoToPage(s.TotalPages()) }

// Bounds returns the half-open index range [start, end) of the current page
// within a collection of the given length.
func (s *State) Bounds(length int) (start, end int) {
	start = (s.currentPage - 1) * s.itemsPerPage
	end = min(s.currentPage*s.itemsPerPage, length)
	if start > end {
		start = end
	}
	return start, end
}

// Window returns the current page's slice of items.
func Window[T any](s *State, items []T) []T {
	start, end := s.Bounds(len(items))
	return items[start:end]
}

// Info describes the visible range, e.g. "Showing 51 to 100 of 240 records".
func (s *State) Info() string {
	if s.totalCount == 0 {
		return "Showing 0 to 0 of 0 records"
	}
	start := (s.currentPage-1)*s.itemsPerPage + 1
	end := min(s.currentPage*s.itemsPerPage, s.totalCount)
	return fmt.Sprintf("Showing %d to %d of %d records", start, end, s.totalCount)
}

// PageNumbers returns up to maxVisible page numbers centred on the current
// page. The first and last pages are always present; Ellipsis marks a gap.
func (s *State) PageNumbers(maxVisible int) []int {
	total := s.TotalPages()
	if total == 0 {
		return nil
	}
	if maxVisible < 1 {
		maxVisible = DefaultMaxVisiblePages
	}

	startPage := max(1, s.currentPage-maxVisible/2)
	endPage := min(total, startPage+maxVisible-1)
	if endPage-startPage < maxVisible-1 {
		startPage = max(1, endPage-maxVisible+1)
	}

	var pages []int
	if startPage > 1 {
		pages = append(pages, 1)
		if startPage > 2 {
			pages = append(pages, Ellipsis)
		}
	}
	for i := startPage; i <= endPage; i++ {
		pages = append(pages, i)
	}
	if endPage < total {
		if endPage < total-1 {
			pages = append(pages, Ellipsis)
		}
		pages = append(pages, total)
	}
	return pages
}
