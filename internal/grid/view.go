// Package grid is the in-memory model behind a paginated, optionally
// hierarchical data table. A View owns the canonical record set and derives
// the filtered, sorted and paged rows from it. Nothing else mutates records.
package grid

import (
	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/logger"
	"github.com/imgajeed76/invgrid/internal/pagination"
	"github.com/imgajeed76/invgrid/internal/record"
)

// EmptyText is shown when the current view has no rows.
const EmptyText = "No data found"

// Options configures a View.
type Options struct {
	RowIdentifier   string // default "id"
	ItemsPerPage    int    // default 50
	MaxVisiblePages int    // default 5
	Hierarchical    bool
	ParentKey       string // default "parent_id"
	SortableColumns []string

	// ServerSidePagination means the view holds one page of rows fetched by
	// the caller; the total comes from SetServerSideTotal and page changes
	// go to OnPageChange instead of re-slicing local data.
	ServerSidePagination bool

	// PrependNewRows puts AddRow records first instead of last.
	PrependNewRows bool

	Logger *logger.Logger

	OnDataUpdate      func(data []record.Record)
	OnSelectionChange func(selected []record.Record)
	OnRender          func(page Page)
	OnPageChange      func(page int)
}

// View is not safe for concurrent use; drive it from one event loop.
type View struct {
	opts Options
	log  *logger.Logger

	data     []record.Record
	filtered []record.Record

	selected map[record.ID]uint64
	selSeq   uint64
	expanded map[record.ID]bool

	sortable    map[string]bool
	comparators map[string]Comparator
	sortColumn  string
	sortDir     Direction

	pager *pagination.State
}

// New returns an empty view.
func New(opts Options) *View {
	if opts.RowIdentifier == "" {
		opts.RowIdentifier = "id"
	}
	if opts.ParentKey == "" {
		opts.ParentKey = "parent_id"
	}
	if opts.ItemsPerPage == 0 {
		opts.ItemsPerPage = pagination.DefaultItemsPerPage
	}
	if opts.MaxVisiblePages <= 0 {
		opts.MaxVisiblePages = pagination.DefaultMaxVisiblePages
	}

	v := &View{
		opts:        opts,
		log:         opts.Logger,
		selected:    make(map[record.ID]uint64),
		expanded:    make(map[record.ID]bool),
		sortable:    make(map[string]bool, len(opts.SortableColumns)),
		comparators: make(map[string]Comparator),
	}
	if v.log == nil {
		v.log = logger.Nop()
	}
	for _, c := range opts.SortableColumns {
		v.sortable[c] = true
	}

	if opts.ServerSidePagination {
		v.pager = pagination.NewServerSide(opts.ItemsPerPage)
	} else {
		v.pager = pagination.New(opts.ItemsPerPage)
	}
	v.pager.OnPageChange = v.pageChanged
	return v
}

// RowIdentifier returns the field holding each record's id.
func (v *View) RowIdentifier() string { return v.opts.RowIdentifier }

// ServerSide reports whether pages are fetched by the caller.
func (v *View) ServerSide() bool { return v.opts.ServerSidePagination }

// Hierarchical reports whether parent/child grouping is on.
func (v *View) Hierarchical() bool { return v.opts.Hierarchical }

func (v *View) idOf(r record.Record) record.ID {
	return r.ID(v.opts.RowIdentifier)
}

// ═══════════════════════════════════════════════════════════════════════════
// Data
// ═══════════════════════════════════════════════════════════════════════════

// SetData replaces the canonical set. The filtered view becomes a copy of it
// (re-sorted if a sort is active) and the view returns to page 1 unless pages
// are server driven. OnDataUpdate receives the new set after rendering.
func (v *View) SetData(records []record.Record) {
	v.data = make([]record.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			v.data = append(v.data, r)
		}
	}
	v.filtered = append([]record.Record(nil), v.data...)
	v.applySort()

	if !v.opts.ServerSidePagination {
		v.pager.Reset()
	}
	v.syncPager()
	v.render()

	if v.opts.OnDataUpdate != nil {
		v.opts.OnDataUpdate(v.Data())
	}
}

// SetServerSideTotal sets the total row count reported by the server.
func (v *View) SetServerSideTotal(total int) {
	v.pager.SetTotal(max(total, 0))
	v.render()
}

// Data returns the canonical records. Callers must not modify them.
func (v *View) Data() []record.Record {
	return append([]record.Record(nil), v.data...)
}

// Filtered returns the filtered, sorted records across all pages.
func (v *View) Filtered() []record.Record {
	return append([]record.Record(nil), v.filtered...)
}

// Len returns the number of canonical records.
func (v *View) Len() int { return len(v.data) }

// ApplyFilters recomputes the filtered view, keeps the active sort and
// re-renders. Local pagination returns to page 1.
func (v *View) ApplyFilters(defs []filter.Definition, values filter.Values) {
	v.filtered = filter.ApplyAll(v.data, defs, values)
	v.applySort()
	if !v.opts.ServerSidePagination {
		v.pager.Reset()
	}
	v.syncPager()
	v.render()
}

// GetRowByID finds a canonical record by identifier.
func (v *View) GetRowByID(id any) (record.Record, bool) {
	want := record.NormalizeID(id)
	if want.IsZero() {
		return nil, false
	}
	for _, r := range v.data {
		if v.idOf(r) == want {
			return r, true
		}
	}
	return nil, false
}

func (v *View) filteredByID(id record.ID) record.Record {
	for _, r := range v.filtered {
		if v.idOf(r) == id {
			return r
		}
	}
	return nil
}

func (v *View) mergeInto(id record.ID, fields map[string]any) bool {
	row, ok := v.GetRowByID(id)
	if !ok {
		v.log.Debug("update skipped, row not found", "id", id.String())
		return false
	}
	row.Merge(fields)
	// Filtered rows normally share the canonical map; merge a detached copy too.
	if fr := v.filteredByID(id); fr != nil {
		fr.Merge(fields)
	}
	return true
}

// UpdateRow merges fields into the record with the given id.
func (v *View) UpdateRow(id any, fields map[string]any) bool {
	ok := v.mergeInto(record.NormalizeID(id), fields)
	if ok {
		v.render()
	}
	return ok
}

// UpdateRows merges the same fields into several records and reports per id
// whether it was found.
func (v *View) UpdateRows(ids []record.ID, fields map[string]any) []bool {
	results := make([]bool, len(ids))
	found := false
	for i, id := range ids {
		results[i] = v.mergeInto(id, fields)
		found = found || results[i]
	}
	if found {
		v.render()
	}
	return results
}

// RemoveRows deletes records and forgets their selection and expansion.
// It returns how many canonical records were removed.
func (v *View) RemoveRows(ids []record.ID) int {
	drop := make(map[record.ID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	before := len(v.data)
	v.data = v.without(v.data, drop)
	v.filtered = v.without(v.filtered, drop)

	selectionChanged := false
	for id := range drop {
		if _, ok := v.selected[id]; ok {
			delete(v.selected, id)
			selectionChanged = true
		}
		delete(v.expanded, id)
	}

	v.syncPager()
	v.render()
	if selectionChanged {
		v.notifySelection()
	}
	return before - len(v.data)
}

func (v *View) without(rows []record.Record, drop map[record.ID]bool) []record.Record {
	out := rows[:0:0]
	for _, r := range rows {
		if !drop[v.idOf(r)] {
			out = append(out, r)
		}
	}
	return out
}

// AddRow inserts a record into the canonical and filtered sets.
func (v *View) AddRow(r record.Record) bool {
	if r == nil {
		return false
	}
	if v.opts.PrependNewRows {
		v.data = append([]record.Record{r}, v.data...)
		v.filtered = append([]record.Record{r}, v.filtered...)
	} else {
		v.data = append(v.data, r)
		v.filtered = append(v.filtered, r)
	}
	v.syncPager()
	v.render()
	return true
}

// Reset drops all data, selection and expansion.
func (v *View) Reset() {
	v.selected = make(map[record.ID]uint64)
	v.expanded = make(map[record.ID]bool)
	v.SetData(nil)
	v.notifySelection()
}

// ═══════════════════════════════════════════════════════════════════════════
// Hierarchy
// ═══════════════════════════════════════════════════════════════════════════

// IsParent reports whether r has no parent key value.
func (v *View) IsParent(r record.Record) bool {
	return record.IsBlank(r[v.opts.ParentKey])
}

func (v *View) parents(rows []record.Record) []record.Record {
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if v.IsParent(r) {
			out = append(out, r)
		}
	}
	return out
}

func (v *View) childMap(rows []record.Record) map[record.ID][]record.Record {
	m := make(map[record.ID][]record.Record)
	for _, r := range rows {
		if v.IsParent(r) {
			continue
		}
		pid := record.NormalizeID(r[v.opts.ParentKey])
		m[pid] = append(m[pid], r)
	}
	return m
}

// ToggleRowExpansion shows or hides a parent's children. It is a no-op
// outside hierarchical mode.
func (v *View) ToggleRowExpansion(id any) bool {
	if !v.opts.Hierarchical {
		v.log.Debug("expansion ignored, view is flat")
		return false
	}
	key := record.NormalizeID(id)
	if key.IsZero() {
		return false
	}
	if v.expanded[key] {
		delete(v.expanded, key)
	} else {
		v.expanded[key] = true
	}
	v.render()
	return true
}

// IsExpanded reports whether a parent row is expanded.
func (v *View) IsExpanded(id any) bool {
	return v.expanded[record.NormalizeID(id)]
}
