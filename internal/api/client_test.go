package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/imgajeed76/invgrid/internal/apitest"
	"github.com/imgajeed76/invgrid/internal/record"
)

func seedLines() []record.Record {
	return []record.Record{
		{"id": 1.0, "invoice_number": "INV001-1", "item_name": "Cotton", "color": "red", "pending_yards": 100.0, "unit_price": 10.0},
		{"id": 2.0, "invoice_number": "INV001-2", "item_name": "Silk", "color": "blue", "pending_yards": 30.0, "unit_price": 20.0},
		{"id": 3.0, "invoice_number": "INV002-1", "item_name": "Linen", "color": "white", "pending_yards": 5.0, "unit_price": 8.0},
	}
}

func newTestClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t, seedLines())
	return New(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}), srv
}

func TestFetchInvoices(t *testing.T) {
	c, _ := newTestClient(t)
	rows, err := c.FetchInvoices(context.Background())
	if err != nil {
		t.Fatalf("FetchInvoices: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1].ID("id") != record.NormalizeID(2) {
		t.Fatalf("unexpected id %v", rows[1]["id"])
	}
}

func TestFetchPage(t *testing.T) {
	c, _ := newTestClient(t)
	p, err := c.FetchPage(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if p.Total != 3 || len(p.Items) != 1 || p.Items[0].String("id") != "3" {
		t.Fatalf("page = %+v", p)
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Fail(apitest.RouteAssignLoc, http.StatusConflict, "Location is locked")

	_, err := c.AssignLocation(context.Background(), AssignLocationRequest{
		Lines:    []LocationLine{{InvoiceNumber: "INV001-1", ItemName: "Cotton", Color: "red"}},
		Location: "Warehouse A",
	})
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServerError, got %T %v", err, err)
	}
	if se.StatusCode != http.StatusConflict || se.Message != "Location is locked" {
		t.Fatalf("got %d %q", se.StatusCode, se.Message)
	}
	if got := UserMessage(err, "fallback"); got != "Location is locked" {
		t.Fatalf("UserMessage = %q", got)
	}
	if srv.Count(apitest.RouteAssignLoc) != 1 {
		t.Fatal("mutation must not be retried")
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second})
	_, err := c.DeleteLines(context.Background(), record.IDs(1))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if got := UserMessage(err, "Network error"); got != "Network error" {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id": 9}]`))
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL, MaxRetries: 2})
	rows, err := c.FetchInvoices(context.Background())
	if err != nil {
		t.Fatalf("FetchInvoices: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(rows) != 1 || calls != 2 {
		t.Fatalf("rows=%d calls=%d", len(rows), calls)
	}
}

func TestDecodeFailureIsTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL})
	_, err := c.CreateLine(context.Background(), map[string]any{"item_name": "x"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
}

func TestMutationsRoundTrip(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	if _, err := c.AssignTaxInvoice(ctx, AssignTaxInvoiceRequest{BaseInvoiceNumber: "INV001", TaxInvoiceNumber: "TX-9"}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{1, 2} {
		l, _ := srv.Line(id)
		if l["tax_invoice_number"] != "TX-9" {
			t.Fatalf("line %d tax = %v", id, l["tax_invoice_number"])
		}
	}

	sale, err := c.MarkCommissionSale(ctx, CommissionSaleRequest{LineID: record.NormalizeID(2), YardsSold: 10, SaleDate: "2024-03-20"})
	if err != nil {
		t.Fatal(err)
	}
	if sale.CommissionAmount != 10 {
		t.Fatalf("commission = %v, want 10", sale.CommissionAmount)
	}

	bulk, err := c.MarkCommissionSaleBulk(ctx, BulkCommissionRequest{
		SaleDate: "2024-03-20",
		Lines:    []BulkCommissionLine{{LineID: record.NormalizeID(1), YardsSold: 20}, {LineID: record.NormalizeID(3), YardsSold: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(bulk.CommissionSales) != 2 || bulk.TotalCommission != 12 {
		t.Fatalf("bulk = %+v", bulk)
	}

	if _, err := c.UpdateLine(ctx, record.NormalizeID(3), map[string]any{"color": "ivory"}); err != nil {
		t.Fatal(err)
	}
	if l, _ := srv.Line(3); l["color"] != "ivory" {
		t.Fatalf("color = %v", l["color"])
	}

	created, err := c.CreateLine(ctx, map[string]any{"item_name": "Wool"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID("id") != record.NormalizeID(4) {
		t.Fatalf("created id = %v", created["id"])
	}

	if _, err := c.RemoveLocation(ctx, record.IDs(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DeleteLines(ctx, record.IDs(1, 2)); err != nil {
		t.Fatal(err)
	}
	if n := len(srv.Lines()); n != 2 {
		t.Fatalf("lines after delete = %d, want 2", n)
	}
}

func TestReloadDoesNotShareInflightFetch(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	release := srv.Stall(apitest.RouteList)
	defer release()

	type result struct {
		rows []record.Record
		err  error
	}
	fetched := make(chan result, 1)
	go func() {
		rows, err := c.FetchInvoices(ctx)
		fetched <- result{rows, err}
	}()
	waitForCount(t, srv, apitest.RouteList, 1)

	srv.Set(2, map[string]any{"pending_yards": 0.0})
	reloaded := make(chan result, 1)
	go func() {
		rows, err := c.ReloadInvoices(ctx)
		reloaded <- result{rows, err}
	}()
	waitForCount(t, srv, apitest.RouteList, 2)
	release()

	old, fresh := <-fetched, <-reloaded
	if old.err != nil || fresh.err != nil {
		t.Fatalf("fetch: %v, reload: %v", old.err, fresh.err)
	}
	if got := old.rows[1]["pending_yards"]; got != 30.0 {
		t.Fatalf("earlier fetch pending_yards = %v, want 30", got)
	}
	if got := fresh.rows[1]["pending_yards"]; got != 0.0 {
		t.Fatalf("reload pending_yards = %v, want 0", got)
	}
}

func waitForCount(t *testing.T, srv *apitest.Server, route string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Count(route) < n {
		if time.Now().After(deadline) {
			t.Fatalf("%s reached %d requests, want %d", route, srv.Count(route), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
