// Package pagination slices an ordered record list into fixed-size pages.
package pagination

import (
	"strconv"

	"github.com/m3rciful/supportbot/internal/records"
)

// PageSize is the number of records shown per page.
const PageSize = 10

// Nav describes the navigation row of a page.
type Nav struct {
	Prev    bool
	Next    bool
	Current int // zero-based effective page
	Total   int
}

// Label is the text of the inert page indicator, e.g. "2/3".
func (n Nav) Label() string {
	return strconv.Itoa(n.Current+1) + "/" + strconv.Itoa(n.Total)
}

// Page is the visible window of a list.
type Page struct {
	Items []records.Record
	Index int
	Total int
	// Nav is nil when the list fits on one page.
	Nav *Nav
}

// TotalPages returns max(1, ceil(n/PageSize)).
func TotalPages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// Clamp maps requested into [0, TotalPages(n)-1].
func Clamp(requested, n int) int {
	last := TotalPages(n) - 1
	switch {
	case requested < 0:
		return 0
	case requested > last:
		return last
	}
	return requested
}

// Paginate returns the window of items at the requested page. items is not
// modified; the returned window shares its backing array.
func Paginate(items []records.Record, requested int) Page {
	total := TotalPages(len(items))
	idx := Clamp(requested, len(items))
	lo := idx * PageSize
	hi := min(len(items), lo+PageSize)

	p := Page{Items: items[lo:hi:hi], Index: idx, Total: total}
	if total > 1 {
		p.Nav = &Nav{Prev: idx > 0, Next: idx < total-1, Current: idx, Total: total}
	}
	return p
}
