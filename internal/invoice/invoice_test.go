package invoice

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/apitest"
	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/grid"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/record"
)

func lines() []record.Record {
	return []record.Record{
		{"id": 1.0, "invoice_date": "2024-03-20", "customer": map[string]any{"short_name": "ACME"}, "invoice_number": "INV001-1", "item_name": "Cotton", "color": "red", "yards_sent": 100.0, "pending_yards": 100.0, "unit_price": 10.0},
		{"id": 2.0, "invoice_date": "2024-03-10", "customer": map[string]any{"short_name": "Bolt"}, "invoice_number": "INV001-2", "item_name": "Silk", "color": "blue", "yards_sent": 30.0, "pending_yards": 0.0, "unit_price": 20.0, "commission_sales_count": 1.0, "total_commission_yards": 30.0},
		{"id": 3.0, "invoice_date": "2024-04-01", "customer": map[string]any{"short_name": "ACME"}, "invoice_number": "INV002-1", "item_name": "Linen", "color": "white", "quantity": 5.0, "yards_consumed": 2.0, "unit_price": 8.0},
	}
}

func ids(rs []record.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String("id")
	}
	return out
}

func newPage(t *testing.T, s Settings) (*Page, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t, lines())
	client := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	s.Actions = action.DefaultOptions()
	return NewPage(s, client, &notify.Recorder{}), srv
}

func TestDerivedQuantities(t *testing.T) {
	rs := lines()
	if got := YardsSent(rs[2]); got != 5 {
		t.Fatalf("YardsSent fallback = %v, want 5", got)
	}
	if got := Pending(rs[2]); got != 3 {
		t.Fatalf("derived Pending = %v, want 3", got)
	}
	if got := Pending(rs[1]); got != 0 {
		t.Fatalf("server Pending = %v, want 0", got)
	}
	if got := Statuses(rs[1]); !reflect.DeepEqual(got, []string{StatusCommission}) {
		t.Fatalf("Statuses = %v", got)
	}
	if got := StatusText(rs[2]); got != "S 2.00" {
		t.Fatalf("StatusText = %q", got)
	}
}

func TestColumnCells(t *testing.T) {
	r := lines()[0]
	want := map[string]string{
		action.FieldInvoiceDate: "20/03/24",
		FieldCustomer:           "ACME",
		FieldYardsSent:          "100.00",
		"total":                 "1,000.00",
	}
	for _, c := range Columns() {
		if w, ok := want[c.Key]; ok {
			if got := c.Cell(r); got != w {
				t.Fatalf("%s cell = %q, want %q", c.Key, got, w)
			}
		}
	}
}

func TestStockFilterDefaultsToInStock(t *testing.T) {
	e := filter.NewEngine(Filters(), time.Millisecond)
	if got := ids(e.Apply(lines())); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("default stock filter = %v", got)
	}
	if e.Active() {
		t.Fatal("stock radio at its default counts as active")
	}

	_ = e.Set(FilterStock, filter.Choice(StockOut))
	if got := ids(e.Apply(lines())); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("no_stock = %v", got)
	}
	_ = e.Set(FilterStock, filter.Choice(StockAll))
	if got := len(e.Apply(lines())); got != 3 {
		t.Fatalf("all = %d rows", got)
	}
}

func TestStatusAndCustomerFilters(t *testing.T) {
	e := filter.NewEngine(Filters(), time.Millisecond)
	_ = e.Set(FilterStock, filter.Choice(StockAll))

	if got := e.Options(FilterStatus, lines()); !reflect.DeepEqual(got, []string{StatusCommission, StatusStitched, StatusUnused}) {
		t.Fatalf("status options = %v", got)
	}
	if got := e.Options(FilterCustomer, lines()); !reflect.DeepEqual(got, []string{"ACME", "Bolt"}) {
		t.Fatalf("customer options = %v", got)
	}

	_ = e.Set(FilterStatus, filter.Multi{StatusStitched})
	if got := ids(e.Apply(lines())); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("stitched = %v", got)
	}
	_ = e.Set(FilterStatus, filter.Multi{})
	_ = e.Set(FilterCustomer, filter.Multi{"ACME"})
	_ = e.Set(FilterDateFrom, filter.Date("15/03/24"))
	if got := ids(e.Apply(lines())); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("ACME from 15/03/24 = %v", got)
	}
}

func TestPageReappliesFiltersAfterRefresh(t *testing.T) {
	p, srv := newPage(t, Settings{ItemsPerPage: 10})
	ctx := context.Background()

	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := ids(p.View.Filtered()); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("filtered after load = %v", got)
	}

	// Selling the rest of line 1 empties it; the forced refresh must keep
	// the in-stock filter applied.
	if !p.Actions.CreateCommissionSale(ctx, 1, 100, "2024-03-21") {
		t.Fatal("sale failed")
	}
	if srv.Count(apitest.RouteList) != 2 {
		t.Fatalf("list requests = %d, want 2", srv.Count(apitest.RouteList))
	}
	if got := ids(p.View.Filtered()); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("filtered after refresh = %v", got)
	}
}

func TestPageSortUsesColumnComparators(t *testing.T) {
	p, _ := newPage(t, Settings{})
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = p.Filters.Set(FilterStock, filter.Choice(StockAll))

	if !p.Sort(action.FieldInvoiceDate) {
		t.Fatal("date column not sortable")
	}
	if got := ids(p.View.Filtered()); !reflect.DeepEqual(got, []string{"2", "1", "3"}) {
		t.Fatalf("by date = %v", got)
	}
	if p.Sort("status") {
		t.Fatal("status column should not be sortable")
	}
	if col, dir := p.View.SortState(); col != action.FieldInvoiceDate || dir != grid.Ascending {
		t.Fatalf("sort state = %s %v", col, dir)
	}
}

func TestServerSidePageLoad(t *testing.T) {
	p, _ := newPage(t, Settings{ItemsPerPage: 2, ServerSide: true})
	_ = p.Filters.Set(FilterStock, filter.Choice(StockAll))

	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	pg := p.View.Page()
	if pg.TotalCount != 3 || pg.TotalPages != 2 || len(pg.Rows) != 2 {
		t.Fatalf("page 1 = count %d pages %d rows %d", pg.TotalCount, pg.TotalPages, len(pg.Rows))
	}

	if !p.View.NextPage() {
		t.Fatal("NextPage refused")
	}
	pg = p.View.Page()
	if pg.Number != 2 || len(pg.Rows) != 1 || pg.Rows[0].ID != record.NormalizeID(3) {
		t.Fatalf("page 2 = %+v", pg)
	}
}
