package grid

import (
	"reflect"
	"testing"

	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/record"
)

func makeRows(n int) []record.Record {
	rows := make([]record.Record, n)
	for i := range rows {
		rows[i] = record.Record{"id": float64(i + 1), "name": string(rune('a' + i))}
	}
	return rows
}

func pageIDs(p Page) []string {
	out := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.ID.String()
	}
	return out
}

func checked(p Page) map[string]bool {
	out := make(map[string]bool)
	for _, r := range p.Rows {
		out[r.ID.String()] = r.Checked
	}
	return out
}

func TestSetDataTwiceIsIdempotent(t *testing.T) {
	v := New(Options{ItemsPerPage: 3})
	data := makeRows(7)

	v.SetData(data)
	first := v.Page()
	firstFiltered := v.Filtered()

	v.SetData(data)
	second := v.Page()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("pages differ:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(firstFiltered, v.Filtered()) {
		t.Fatal("filtered views differ")
	}
}

func TestSetDataResetsPageAndNotifies(t *testing.T) {
	var updates int
	v := New(Options{ItemsPerPage: 2, OnDataUpdate: func([]record.Record) { updates++ }})
	v.SetData(makeRows(6))
	v.GoToPage(3)

	v.SetData(makeRows(6))
	if v.CurrentPage() != 1 {
		t.Fatalf("CurrentPage = %d, want 1", v.CurrentPage())
	}
	if updates != 2 {
		t.Fatalf("OnDataUpdate called %d times, want 2", updates)
	}
}

func TestSelectionPersistsAcrossPages(t *testing.T) {
	v := New(Options{ItemsPerPage: 5})
	v.SetData(makeRows(12))

	v.HandleRowSelection(2, true)
	v.GoToPage(2)
	if checked(v.Page())["2"] {
		t.Fatal("row 2 should not be on page 2")
	}
	v.GoToPage(1)
	if !checked(v.Page())["2"] {
		t.Fatal("row 2 lost its checked state")
	}
	// Render twice: the checked state comes from the set both times.
	if !reflect.DeepEqual(v.Render(), v.Render()) {
		t.Fatal("render is not idempotent")
	}
}

func TestSelectAllOnlyCurrentPage(t *testing.T) {
	var last []record.Record
	v := New(Options{ItemsPerPage: 5, OnSelectionChange: func(s []record.Record) { last = s }})
	v.SetData(makeRows(12))

	v.GoToPage(2)
	v.SelectAll(true)
	if len(last) != 5 {
		t.Fatalf("selected %d rows, want 5", len(last))
	}
	if v.IsSelected(1) || !v.IsSelected("6") || !v.IsSelected(10.0) {
		t.Fatal("selection not limited to page 2")
	}

	v.HandleRowSelection(1, true)
	v.SelectAll(false)
	if !v.IsSelected(1) || len(v.SelectedIDs()) != 1 {
		t.Fatalf("unselecting page 2 touched page 1: %v", v.SelectedIDs())
	}

	v.ClearSelection()
	if len(v.SelectedIDs()) != 0 || len(last) != 0 {
		t.Fatal("ClearSelection left rows selected")
	}
}

func TestSelectedRowsDropsStaleIDs(t *testing.T) {
	v := New(Options{})
	v.SetData(makeRows(3))
	v.HandleRowSelection(99, true)
	v.HandleRowSelection("2", true)

	rows := v.SelectedRows()
	if len(rows) != 1 || rows[0].String("id") != "2" {
		t.Fatalf("SelectedRows = %v", rows)
	}
	if len(v.SelectedIDs()) != 2 {
		t.Fatal("stale id should stay in the set")
	}
}

func TestRemoveRows(t *testing.T) {
	v := New(Options{})
	v.SetData(makeRows(10))
	v.HandleRowSelection(3, true)
	v.HandleRowSelection(7, true)
	v.HandleRowSelection(1, true)

	n := v.RemoveRows(record.IDs(3, "7"))
	if n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if v.Len() != 8 || len(v.Filtered()) != 8 {
		t.Fatalf("len = %d/%d, want 8", v.Len(), len(v.Filtered()))
	}
	if v.IsSelected(3) || v.IsSelected(7) || !v.IsSelected(1) {
		t.Fatalf("selection after remove = %v", v.SelectedIDs())
	}
}

func TestUpdateRowMergesFields(t *testing.T) {
	v := New(Options{})
	v.SetData([]record.Record{{"id": 1.0, "color": "red", "qty": 4.0}})

	if !v.UpdateRow("1", map[string]any{"qty": 2.0}) {
		t.Fatal("UpdateRow returned false")
	}
	row, _ := v.GetRowByID(1)
	if row["qty"] != 2.0 || row["color"] != "red" {
		t.Fatalf("row = %v", row)
	}
	if v.Filtered()[0]["qty"] != 2.0 {
		t.Fatal("filtered view not updated")
	}

	got := v.UpdateRows(record.IDs(1, 5), map[string]any{"color": "blue"})
	if !reflect.DeepEqual(got, []bool{true, false}) {
		t.Fatalf("UpdateRows = %v", got)
	}
	if v.UpdateRow(9, nil) {
		t.Fatal("missing row should report false")
	}
}

func TestAddRowAppendOrPrepend(t *testing.T) {
	v := New(Options{})
	v.SetData(makeRows(2))
	v.AddRow(record.Record{"id": "temp_x"})
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"1", "2", "temp_x"}) {
		t.Fatalf("append: %v", got)
	}

	p := New(Options{PrependNewRows: true})
	p.SetData(makeRows(2))
	p.AddRow(record.Record{"id": "temp_x"})
	if got := pageIDs(p.Page()); !reflect.DeepEqual(got, []string{"temp_x", "1", "2"}) {
		t.Fatalf("prepend: %v", got)
	}
	if p.AddRow(nil) {
		t.Fatal("nil row accepted")
	}
}

func TestEmptyDataIsOnePage(t *testing.T) {
	v := New(Options{ItemsPerPage: 10})
	v.SetData(nil)
	p := v.Page()
	if !p.Empty() || p.TotalPages != 1 || p.Number != 1 {
		t.Fatalf("empty page = %+v", p)
	}
}

func TestApplyFiltersResetsPage(t *testing.T) {
	v := New(Options{ItemsPerPage: 2})
	v.SetData(makeRows(6))
	v.GoToPage(2)

	defs := []filter.Definition{{ID: "name", Type: filter.TextInput}}
	v.ApplyFilters(defs, filter.Values{"name": filter.Text("C")})
	if v.CurrentPage() != 1 {
		t.Fatal("page not reset")
	}
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("filtered page = %v", got)
	}
	if v.Len() != 6 {
		t.Fatal("filtering changed the canonical set")
	}
}

func TestSort(t *testing.T) {
	v := New(Options{SortableColumns: []string{"name", "qty"}})
	v.SetData([]record.Record{
		{"id": 1.0, "name": "banana", "qty": 10.0},
		{"id": 2.0, "name": nil, "qty": 2.0},
		{"id": 3.0, "name": "Apple", "qty": 2.0},
		{"id": 4.0, "name": "cherry", "qty": 7.0},
	})

	if v.Sort("color") {
		t.Fatal("unsortable column was sorted")
	}

	v.Sort("name")
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"2", "3", "1", "4"}) {
		t.Fatalf("asc = %v", got)
	}
	v.Sort("name")
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"4", "1", "3", "2"}) {
		t.Fatalf("desc = %v", got)
	}

	// Ties keep their current relative order.
	v.Sort("qty", Ascending)
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"3", "2", "4", "1"}) {
		t.Fatalf("qty asc = %v", got)
	}
	col, dir := v.SortState()
	if col != "qty" || dir != Ascending {
		t.Fatalf("sort state = %s %s", col, dir)
	}
}

func TestCompareDatesComparator(t *testing.T) {
	v := New(Options{SortableColumns: []string{"invoice_date"}})
	v.SetComparator("invoice_date", CompareDates)
	v.SetData([]record.Record{
		{"id": 1.0, "invoice_date": "2024-03-20"},
		{"id": 2.0, "invoice_date": "Fri, 15 Mar 2024 00:00:00 GMT"},
		{"id": 3.0, "invoice_date": "2023-12-31"},
	})
	v.Sort("invoice_date")
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Fatalf("date sort = %v", got)
	}
}

func hierarchicalData() []record.Record {
	return []record.Record{
		{"id": 1.0, "parent_id": nil},
		{"id": 2.0, "parent_id": ""},
		{"id": 3.0},
		{"id": 31.0, "parent_id": 3.0},
		{"id": 32.0, "parent_id": "3"},
		{"id": 33.0, "parent_id": 3.0},
		{"id": 4.0},
		{"id": 41.0, "parent_id": 4.0},
		{"id": 5.0},
	}
}

func TestHierarchicalPaginationCountsParentsOnly(t *testing.T) {
	v := New(Options{ItemsPerPage: 2, Hierarchical: true})
	v.SetData(hierarchicalData())

	if v.Page().TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", v.Page().TotalPages)
	}

	v.GoToPage(2)
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"3", "4"}) {
		t.Fatalf("collapsed page 2 = %v", got)
	}

	v.ToggleRowExpansion(3)
	p := v.Page()
	if got := pageIDs(p); !reflect.DeepEqual(got, []string{"3", "31", "32", "33", "4"}) {
		t.Fatalf("expanded page 2 = %v", got)
	}
	if p.Rows[0].Kind != ParentRow || !p.Rows[0].Expanded || p.Rows[0].Children != 3 {
		t.Fatalf("parent row = %+v", p.Rows[0])
	}
	if p.Rows[1].Kind != ChildRow {
		t.Fatalf("child row kind = %v", p.Rows[1].Kind)
	}

	v.ToggleRowExpansion("3")
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"3", "4"}) {
		t.Fatalf("collapsed again = %v", got)
	}
}

func TestToggleRowExpansionFlatIsNoop(t *testing.T) {
	v := New(Options{})
	v.SetData(makeRows(2))
	if v.ToggleRowExpansion(1) || v.IsExpanded(1) {
		t.Fatal("flat view expanded a row")
	}
}

func TestServerSidePagination(t *testing.T) {
	var requested []int
	v := New(Options{
		ItemsPerPage:         2,
		ServerSidePagination: true,
		OnPageChange:         func(p int) { requested = append(requested, p) },
	})
	v.SetData(makeRows(2))
	v.SetServerSideTotal(9)

	p := v.Page()
	if p.TotalPages != 5 || len(p.Rows) != 2 {
		t.Fatalf("page = %+v", p)
	}

	v.GoToPage(3)
	if !reflect.DeepEqual(requested, []int{3}) {
		t.Fatalf("requested = %v", requested)
	}
	v.SetData([]record.Record{{"id": 5.0}, {"id": 6.0}})
	if v.CurrentPage() != 3 {
		t.Fatalf("SetData moved the server page to %d", v.CurrentPage())
	}
	if p := v.Page(); p.Rows[0].Index != 4 {
		t.Fatalf("first index = %d, want 4", p.Rows[0].Index)
	}

	v.SetServerSideTotal(-3)
	if v.Page().TotalCount != 0 {
		t.Fatal("negative total not clamped")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	v := New(Options{SortableColumns: []string{"name"}})
	v.SetData(makeRows(3))
	r.Register("invoices", v)

	if r.Sort("missing", "name") {
		t.Fatal("unknown table sorted")
	}
	if !r.Sort("invoices", "name", Descending) {
		t.Fatal("registered table not sorted")
	}
	if got := pageIDs(v.Page()); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Fatalf("sorted = %v", got)
	}
	if !reflect.DeepEqual(r.IDs(), []string{"invoices"}) {
		t.Fatalf("IDs = %v", r.IDs())
	}
}
