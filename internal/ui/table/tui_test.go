package table

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/apitest"
	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/record"
)

func browserLines() []record.Record {
	return []record.Record{
		{"id": 1.0, "invoice_date": "2024-03-20", "customer": map[string]any{"short_name": "ACME"}, "invoice_number": "INV001-1", "item_name": "Cotton", "color": "red", "yards_sent": 100.0, "pending_yards": 100.0, "unit_price": 10.0},
		{"id": 2.0, "invoice_date": "2024-03-10", "customer": map[string]any{"short_name": "Bolt"}, "invoice_number": "INV001-2", "item_name": "Silk", "color": "blue", "yards_sent": 30.0, "pending_yards": 0.0, "unit_price": 20.0},
		{"id": 3.0, "invoice_date": "2024-04-01", "customer": map[string]any{"short_name": "ACME"}, "invoice_number": "INV002-1", "item_name": "Linen", "color": "white", "yards_sent": 5.0, "pending_yards": 3.0, "unit_price": 8.0},
	}
}

func newTestBrowser(t *testing.T, s invoice.Settings) (*browser, *apitest.Server) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	srv := apitest.NewServer(t, browserLines())
	client := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	n := NewNotifications()
	s.Actions = action.DefaultOptions()
	page := invoice.NewPage(s, client, n)

	m := newBrowser(context.Background(), page, BrowserOptions{RequestTimeout: 5 * time.Second})
	m.input.Cursor.SetMode(cursor.CursorStatic)
	n.b = m
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 20})
	m.run(t, m.Init())
	return m, srv
}

// run executes cmd and feeds the server round trips it produces back into
// the model. Timers and blinks are skipped.
func (m *browser) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(500 * time.Millisecond):
		return
	}

	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m.run(t, c)
		}
	case opDoneMsg, pageLoadedMsg, dispatchMsg:
		_, next := m.Update(msg)
		m.run(t, next)
	}
}

func (m *browser) press(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := m.Update(msg)
		m.run(t, cmd)
	}
}

func TestBrowserLoadsAndFiltersInStock(t *testing.T) {
	m, srv := newTestBrowser(t, invoice.Settings{ItemsPerPage: 10})

	if srv.Count(apitest.RouteList) != 1 {
		t.Fatalf("list requests = %d", srv.Count(apitest.RouteList))
	}
	if m.rowCount() != 2 {
		t.Fatalf("rows = %d, want 2 in-stock lines", m.rowCount())
	}
	if m.inFlight != 0 {
		t.Fatalf("inFlight = %d after load", m.inFlight)
	}

	out := m.View()
	if !strings.Contains(out, "Invoices: 2 lines") || !strings.Contains(out, "INV001-1") {
		t.Fatalf("view missing content:\n%s", out)
	}

	m.press(t, "i")
	if m.rowCount() != 1 {
		t.Fatalf("no_stock rows = %d", m.rowCount())
	}
	if !strings.Contains(m.View(), "stock=no_stock") {
		t.Fatal("active filter not shown")
	}
	m.press(t, "c")
	if m.rowCount() != 2 {
		t.Fatalf("rows after clear = %d", m.rowCount())
	}
}

func TestBrowserAssignsLocationToSelection(t *testing.T) {
	m, srv := newTestBrowser(t, invoice.Settings{ItemsPerPage: 10})

	m.press(t, " ")
	if ids := m.page.View.SelectedIDs(); len(ids) != 1 {
		t.Fatalf("selected = %v", ids)
	}
	if !strings.Contains(m.View(), "[x]") {
		t.Fatal("checked row not rendered")
	}

	m.press(t, "L", "Warehouse A", "enter")

	if srv.Count(apitest.RouteAssignLoc) != 1 {
		t.Fatalf("assign requests = %d", srv.Count(apitest.RouteAssignLoc))
	}
	row, _ := m.page.View.GetRowByID(1)
	if row.String(action.FieldDeliveredLocation) != "Warehouse A" {
		t.Fatalf("location = %q", row.String(action.FieldDeliveredLocation))
	}
	if m.statusLevel != notify.Success || !strings.Contains(m.statusMsg, "Location assigned") {
		t.Fatalf("status = %v %q", m.statusLevel, m.statusMsg)
	}
}

func TestBrowserRejectsOversale(t *testing.T) {
	m, srv := newTestBrowser(t, invoice.Settings{ItemsPerPage: 10})

	m.press(t, "C", "500", "enter")

	if srv.Count(apitest.RouteSale) != 0 {
		t.Fatal("rejected sale reached the server")
	}
	if m.statusLevel != notify.Warning || m.statusMsg != "Cannot sell 500 yards, only 100 yards available" {
		t.Fatalf("status = %v %q", m.statusLevel, m.statusMsg)
	}

	m.press(t, "C", "lots", "enter")
	if m.statusLevel != notify.Warning || !strings.Contains(m.statusMsg, "not a number") {
		t.Fatalf("status = %q", m.statusMsg)
	}
}

func TestBrowserFilterPromptAndSort(t *testing.T) {
	m, _ := newTestBrowser(t, invoice.Settings{ItemsPerPage: 10})

	m.press(t, "f", "stock=all", "enter")
	if m.rowCount() != 3 {
		t.Fatalf("rows = %d", m.rowCount())
	}
	m.press(t, "f", "color=white", "enter")
	if m.rowCount() != 1 {
		t.Fatalf("white rows = %d", m.rowCount())
	}
	m.press(t, "f", "nope=1", "enter")
	if m.statusLevel != notify.Warning {
		t.Fatal("unknown filter accepted")
	}
	m.press(t, "f", "color=", "enter")

	// First column is the invoice date.
	m.press(t, "S")
	if row, _ := m.cursorRow(); row.ID != record.NormalizeID(3) {
		t.Fatalf("newest first = %s", row.ID)
	}

	for range m.page.Columns {
		m.press(t, "l")
	}
	m.press(t, "s")
	if m.statusLevel != notify.Warning || !strings.Contains(m.statusMsg, "not sortable") {
		t.Fatalf("status = %q", m.statusMsg)
	}
}

func TestBrowserDeleteNeedsConfirmation(t *testing.T) {
	m, srv := newTestBrowser(t, invoice.Settings{ItemsPerPage: 10})

	m.press(t, "D", "n", "enter")
	if srv.Count(apitest.RouteDelete) != 0 {
		t.Fatal("delete sent without confirmation")
	}

	m.press(t, "D", "y", "enter")
	if srv.Count(apitest.RouteDelete) != 1 {
		t.Fatalf("delete requests = %d", srv.Count(apitest.RouteDelete))
	}
	if _, ok := m.page.View.GetRowByID(1); ok {
		t.Fatal("deleted line still in table")
	}
	if m.rowCount() != 1 || m.cursor != 0 {
		t.Fatalf("rows = %d cursor = %d", m.rowCount(), m.cursor)
	}
}

func TestBrowserServerSidePaging(t *testing.T) {
	m, srv := newTestBrowser(t, invoice.Settings{ItemsPerPage: 1, ServerSide: true})
	// Filters narrow the fetched page only; show every stock state.
	m.press(t, "f", "stock=all", "enter")

	if m.rowCount() != 1 || m.page.View.Page().TotalCount != 3 {
		t.Fatalf("page 1 rows = %d total = %d", m.rowCount(), m.page.View.Page().TotalCount)
	}

	m.press(t, "]")
	if m.page.View.CurrentPage() != 2 {
		t.Fatalf("page = %d", m.page.View.CurrentPage())
	}
	row, ok := m.cursorRow()
	if !ok || row.ID != record.NormalizeID(2) {
		t.Fatalf("page 2 row = %v", row.ID)
	}
	if srv.Count(apitest.RouteList) != 2 {
		t.Fatalf("list requests = %d", srv.Count(apitest.RouteList))
	}
	if !strings.Contains(m.View(), "[2]") {
		t.Fatal("current page not highlighted")
	}
}

func TestApplyViewportKeepsWidth(t *testing.T) {
	got := applyViewport("\x1b[31mhello world\x1b[0m", 6, 8)
	if !strings.Contains(got, "world") || !strings.HasPrefix(got, "\x1b[31m") {
		t.Fatalf("viewport = %q", got)
	}
	if plain := applyViewport("abc", 0, 5); plain != "abc  " {
		t.Fatalf("padding = %q", plain)
	}
}
