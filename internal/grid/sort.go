package grid

import (
	"sort"
	"strings"

	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/record"
)

// Direction is a sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc"/"desc" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, true
	case "desc", "descending":
		return Descending, true
	}
	return Ascending, false
}

// Comparator orders two field values, returning <0, 0 or >0.
type Comparator func(a, b any) int

// CompareValues is the default ordering: nil sorts as the empty string, two
// numbers compare numerically and everything else compares as
// case-insensitive text.
func CompareValues(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(record.Fold(record.Stringify(a)), record.Fold(record.Stringify(b)))
}

// CompareNumeric orders values as numbers, parsing numeric strings. Values
// that are not numbers sort first.
func CompareNumeric(a, b any) int {
	fa, okA := record.Float(a)
	fb, okB := record.Float(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// CompareDates orders values by calendar date. Unparsable dates sort first.
func CompareDates(a, b any) int {
	ta, okA := filter.ParseRecordDate(a)
	tb, okB := filter.ParseRecordDate(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return ta.Compare(tb)
}

func number(v any) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return record.Float(v)
}

// SetComparator overrides the ordering of one column.
func (v *View) SetComparator(column string, cmp Comparator) {
	v.comparators[column] = cmp
}

// Sortable reports whether column may be sorted.
func (v *View) Sortable(column string) bool {
	return v.sortable[column]
}

// SortState returns the active sort column ("" when unsorted) and direction.
func (v *View) SortState() (string, Direction) {
	return v.sortColumn, v.sortDir
}

// Sort orders the filtered view by column. Sorting the active column again
// flips the direction, a new column starts ascending, and an explicit
// direction wins over both. Columns not declared sortable are ignored.
// Local pagination returns to page 1.
func (v *View) Sort(column string, dir ...Direction) bool {
	if !v.sortable[column] {
		v.log.Debug("sort ignored, column not sortable", "column", column)
		return false
	}

	switch {
	case len(dir) > 0:
		v.sortDir = dir[0]
	case v.sortColumn == column:
		if v.sortDir == Ascending {
			v.sortDir = Descending
		} else {
			v.sortDir = Ascending
		}
	default:
		v.sortDir = Ascending
	}
	v.sortColumn = column

	v.applySort()
	if !v.opts.ServerSidePagination {
		v.pager.Reset()
	}
	v.render()
	return true
}

func (v *View) applySort() {
	if v.sortColumn == "" {
		return
	}
	cmp := v.comparators[v.sortColumn]
	if cmp == nil {
		cmp = CompareValues
	}
	col, desc := v.sortColumn, v.sortDir == Descending
	sort.SliceStable(v.filtered, func(i, j int) bool {
		a, _ := v.filtered[i].Lookup(col)
		b, _ := v.filtered[j].Lookup(col)
		c := cmp(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Registry
// ═══════════════════════════════════════════════════════════════════════════

// Registry maps table ids to their views. The composition root owns one and
// routes sort requests through it instead of looking views up globally.
type Registry struct {
	views map[string]*View
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*View)}
}

// Register adds or replaces a view.
func (r *Registry) Register(tableID string, v *View) {
	if _, ok := r.views[tableID]; !ok {
		r.order = append(r.order, tableID)
	}
	r.views[tableID] = v
}

// Get returns the view registered under tableID.
func (r *Registry) Get(tableID string) (*View, bool) {
	v, ok := r.views[tableID]
	return v, ok
}

// Sort sorts the named table. Unknown tables are ignored.
func (r *Registry) Sort(tableID, column string, dir ...Direction) bool {
	v, ok := r.views[tableID]
	if !ok {
		return false
	}
	return v.Sort(column, dir...)
}

// IDs returns the registered table ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
