package grid

import (
	"github.com/imgajeed76/invgrid/internal/pagination"
	"github.com/imgajeed76/invgrid/internal/record"
)

// RowKind distinguishes flat, parent and child rows.
type RowKind int

const (
	FlatRow RowKind = iota
	ParentRow
	ChildRow
)

// Row is one rendered row. Checked is always read from the selection set.
type Row struct {
	ID       record.ID
	Record   record.Record
	Kind     RowKind
	Index    int // position in the paged list; children share their parent's
	Checked  bool
	Expanded bool
	Children int
}

// Page is the rendered state of the current page.
type Page struct {
	Rows        []Row
	Number      int
	TotalPages  int // at least 1
	TotalCount  int
	Info        string
	PageNumbers []int
	SortColumn  string
	SortDir     Direction
	Selected    int
}

// Empty reports whether the page has no rows.
func (p Page) Empty() bool { return len(p.Rows) == 0 }

// Page computes the visible rows from the current state without side
// effects. Calling it twice with unchanged state gives the same result.
func (v *View) Page() Page {
	p := Page{
		Number:      v.pager.CurrentPage(),
		TotalPages:  v.pager.DisplayPages(),
		TotalCount:  v.pager.TotalCount(),
		Info:        v.pager.Info(),
		PageNumbers: v.pager.PageNumbers(v.opts.MaxVisiblePages),
		SortColumn:  v.sortColumn,
		SortDir:     v.sortDir,
		Selected:    len(v.selected),
	}

	start, _ := v.pager.Bounds(v.pager.TotalCount())
	if v.opts.ServerSidePagination {
		p.Rows = v.rows(v.filtered, start)
		return p
	}
	p.Rows = v.rows(pagination.Window(v.pager, v.pagedList()), start)
	return p
}

func (v *View) rows(pageData []record.Record, start int) []Row {
	if !v.opts.Hierarchical {
		rows := make([]Row, 0, len(pageData))
		for i, r := range pageData {
			rows = append(rows, v.row(r, FlatRow, start+i))
		}
		return rows
	}

	children := v.childMap(v.filtered)
	rows := make([]Row, 0, len(pageData))
	for i, parent := range pageData {
		if !v.IsParent(parent) {
			// Server-side pages may carry orphans; show them flat.
			rows = append(rows, v.row(parent, FlatRow, start+i))
			continue
		}
		pid := v.idOf(parent)
		row := v.row(parent, ParentRow, start+i)
		row.Children = len(children[pid])
		row.Expanded = v.expanded[pid]
		rows = append(rows, row)
		if !row.Expanded {
			continue
		}
		for _, child := range children[pid] {
			rows = append(rows, v.row(child, ChildRow, start+i))
		}
	}
	return rows
}

func (v *View) row(r record.Record, kind RowKind, index int) Row {
	id := v.idOf(r)
	_, checked := v.selected[id]
	return Row{ID: id, Record: r, Kind: kind, Index: index, Checked: checked}
}

// pagedList is the list that consumes page slots: parents only in
// hierarchical mode.
func (v *View) pagedList() []record.Record {
	if v.opts.Hierarchical {
		return v.parents(v.filtered)
	}
	return v.filtered
}

func (v *View) syncPager() {
	if v.opts.ServerSidePagination {
		return
	}
	v.pager.SetTotal(len(v.pagedList()))
}

// Render recomputes the page and hands it to OnRender.
func (v *View) Render() Page {
	return v.render()
}

func (v *View) render() Page {
	p := v.Page()
	if v.opts.OnRender != nil {
		v.opts.OnRender(p)
	}
	return p
}

// ═══════════════════════════════════════════════════════════════════════════
// Paging
// ═══════════════════════════════════════════════════════════════════════════

func (v *View) pageChanged(page int) {
	if v.opts.ServerSidePagination && v.opts.OnPageChange != nil {
		v.opts.OnPageChange(page)
		return
	}
	v.render()
}

// GoToPage moves to page n; out of range or current pages are ignored.
func (v *View) GoToPage(n int) bool { return v.pager.GoToPage(n) }

func (v *View) NextPage() bool  { return v.pager.Next() }
func (v *View) PrevPage() bool  { return v.pager.Prev() }
func (v *View) FirstPage() bool { return v.pager.First() }
func (v *View) LastPage() bool  { return v.pager.Last() }

// CurrentPage returns the 1-based page number.
func (v *View) CurrentPage() int { return v.pager.CurrentPage() }

// ItemsPerPage returns the page size.
func (v *View) ItemsPerPage() int { return v.pager.ItemsPerPage() }
