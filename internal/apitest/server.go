// Package apitest runs an in-memory invoice backend for tests. It speaks the
// same REST contract as the real server and can be told to fail or stall
// individual routes.
package apitest

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/imgajeed76/invgrid/internal/record"
)

// CommissionRate is the share of a sale's value paid as commission.
const CommissionRate = 0.05

// Route keys, as used by Fail, Stall and Count.
const (
	RouteList      = "GET /api/invoices"
	RouteCreate    = "POST /api/invoices"
	RouteAssignLoc = "POST /api/invoices/assign-location"
	RouteRemoveLoc = "POST /api/invoices/remove-location"
	RouteAssignTax = "POST /api/invoices/assign-tax-invoice"
	RouteSale      = "POST /api/invoices/mark-commission-sale"
	RouteSaleBulk  = "POST /api/invoices/mark-commission-sale-bulk"
	RouteDelete    = "POST /api/invoices/delete-multiple"
	RouteUpdate    = "PUT /api/invoices/{id}/update"
)

type failure struct {
	status  int
	message string
}

// Server is a fake invoice backend.
type Server struct {
	URL string

	mu       sync.Mutex
	lines    []record.Record
	nextID   int
	failures map[string]failure
	stalls   map[string]chan struct{}
	counts   map[string]int

	router *mux.Router
}

// NewServer starts a server seeded with lines and stops it when the test ends.
func NewServer(t testing.TB, lines []record.Record) *Server {
	t.Helper()
	s := New(lines)
	ts := httptest.NewServer(s.Handler())
	s.URL = ts.URL
	t.Cleanup(func() {
		s.releaseAll()
		ts.Close()
	})
	return s
}

// New builds the handler state without starting a listener.
func New(lines []record.Record) *Server {
	s := &Server{
		failures: make(map[string]failure),
		stalls:   make(map[string]chan struct{}),
		counts:   make(map[string]int),
		router:   mux.NewRouter(),
	}
	for _, l := range lines {
		c := l.Clone()
		s.lines = append(s.lines, c)
		if f, ok := record.Float(c["id"]); ok && int(f) >= s.nextID {
			s.nextID = int(f) + 1
		}
	}
	if s.nextID == 0 {
		s.nextID = 1
	}
	s.registerRoutes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.Use(s.track)

	api := s.router.PathPrefix("/api/invoices").Subrouter()
	api.HandleFunc("", s.list).Methods("GET")
	api.HandleFunc("", s.create).Methods("POST")
	api.HandleFunc("/assign-location", s.assignLocation).Methods("POST")
	api.HandleFunc("/remove-location", s.removeLocation).Methods("POST")
	api.HandleFunc("/assign-tax-invoice", s.assignTax).Methods("POST")
	api.HandleFunc("/mark-commission-sale", s.sale).Methods("POST")
	api.HandleFunc("/mark-commission-sale-bulk", s.saleBulk).Methods("POST")
	api.HandleFunc("/delete-multiple", s.deleteMultiple).Methods("POST")
	api.HandleFunc("/{id}/update", s.update).Methods("PUT")
}

// ═══════════════════════════════════════════════════════════════════════════
// Test controls
// ═══════════════════════════════════════════════════════════════════════════

// Fail makes route answer with status and an {"error": message} body.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Recover clears a failure set with Fail.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Stall holds responses to route until the returned func is called. The
// request itself is handled when it arrives.
func (s *Server) Stall(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.stalls[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.stalls[route] == ch {
				delete(s.stalls, route)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ch := range s.stalls {
		close(ch)
		delete(s.stalls, k)
	}
}

// Count returns how many requests route has received.
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

// Total returns the number of requests received on every route.
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Lines returns a copy of the stored lines.
func (s *Server) Lines() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Record, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.Clone()
	}
	return out
}

// Line returns a copy of one stored line.
func (s *Server) Line(id any) (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(record.NormalizeID(id)); i >= 0 {
		return s.lines[i].Clone(), true
	}
	return nil, false
}

// Set merges fields into a stored line, simulating a change made elsewhere.
func (s *Server) Set(id any, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(record.NormalizeID(id)); i >= 0 {
		s.lines[i].Merge(fields)
	}
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tpl
			}
		}

		s.mu.Lock()
		s.counts[key]++
		f, failing := s.failures[key]
		stall := s.stalls[key]
		s.mu.Unlock()

		if stall == nil {
			s.serve(w, r, next, f, failing)
			return
		}

		// The request is handled on arrival; only the response is held.
		rec := httptest.NewRecorder()
		s.serve(rec, r, next, f, failing)
		select {
		case <-stall:
		case <-r.Context().Done():
			return
		case <-time.After(10 * time.Second):
		}
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, next http.Handler, f failure, failing bool) {
	if failing {
		writeJSON(w, f.status, map[string]string{"error": f.message})
		return
	}
	next.ServeHTTP(w, r)
}

// ═══════════════════════════════════════════════════════════════════════════
// Handlers
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	lines := s.Lines()

	q := r.URL.Query()
	if q.Get("page") == "" {
		writeJSON(w, http.StatusOK, lines)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page, perPage = max(page, 1), max(perPage, 1)

	start := min((page-1)*perPage, len(lines))
	end := min(start+perPage, len(lines))
	writeJSON(w, http.StatusOK, map[string]any{"items": lines[start:end], "total": len(lines)})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var fields record.Record
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if fields == nil {
		fields = record.Record{}
	}

	s.mu.Lock()
	fields["id"] = float64(s.nextID)
	s.nextID++
	s.lines = append(s.lines, fields)
	created := fields.Clone()
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) assignLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []struct {
			InvoiceNumber string `json:"invoice_number"`
			ItemName      string `json:"item_name"`
			Color         string `json:"color"`
		} `json:"lines"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Lines) == 0 || req.Location == "" {
		writeError(w, http.StatusBadRequest, "lines and location are required")
		return
	}

	s.mu.Lock()
	n := 0
	for _, l := range s.lines {
		for _, want := range req.Lines {
			if l.String("invoice_number") == want.InvoiceNumber &&
				l.String("item_name") == want.ItemName &&
				l.String("color") == want.Color {
				l["delivered_location"] = req.Location
				n++
				break
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Location assigned to " + strconv.Itoa(n) + " lines"})
}

func (s *Server) removeLocation(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeLineIDs(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		if i := s.indexOf(id); i >= 0 {
			s.lines[i]["delivered_location"] = nil
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Location removed"})
}

func (s *Server) assignTax(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Base string `json:"base_invoice_number"`
		Tax  string `json:"tax_invoice_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Base == "" || req.Tax == "" {
		writeError(w, http.StatusBadRequest, "base_invoice_number and tax_invoice_number are required")
		return
	}

	s.mu.Lock()
	for _, l := range s.lines {
		base, _, _ := strings.Cut(l.String("invoice_number"), "-")
		if base == req.Base {
			l["tax_invoice_number"] = req.Tax
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{})
}

type saleLine struct {
	LineID    record.ID `json:"line_id"`
	YardsSold float64   `json:"yards_sold"`
}

// applySale must be called with s.mu held.
func (s *Server) applySale(l saleLine, date string) (record.Record, string) {
	i := s.indexOf(l.LineID)
	if i < 0 {
		return nil, "Invoice line not found"
	}
	line := s.lines[i]
	pending, _ := record.Float(line["pending_yards"])
	if l.YardsSold <= 0 || l.YardsSold > pending {
		return nil, "Yards sold exceeds pending yards"
	}
	price, _ := record.Float(line["unit_price"])
	amount := math.Round(l.YardsSold*price*CommissionRate*100) / 100

	line["pending_yards"] = pending - l.YardsSold
	consumed, _ := record.Float(line["yards_consumed"])
	line["yards_consumed"] = consumed + l.YardsSold
	count, _ := record.Float(line["commission_sales_count"])
	line["commission_sales_count"] = count + 1
	total, _ := record.Float(line["total_commission_amount"])
	line["total_commission_amount"] = total + amount

	return record.Record{
		"line_id":           l.LineID.Value(),
		"yards_sold":        l.YardsSold,
		"sale_date":         date,
		"commission_amount": amount,
	}, ""
}

func (s *Server) sale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		saleLine
		SaleDate string `json:"sale_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	sale, msg := s.applySale(req.saleLine, req.SaleDate)
	s.mu.Unlock()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commission_amount": sale["commission_amount"]})
}

func (s *Server) saleBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SaleDate string     `json:"sale_date"`
		Lines    []saleLine `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]record.Record, len(s.lines))
	for i, l := range s.lines {
		snapshot[i] = l.Clone()
	}

	var sales []record.Record
	total := 0.0
	for _, l := range req.Lines {
		sale, msg := s.applySale(l, req.SaleDate)
		if msg != "" {
			s.lines = snapshot
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		amount, _ := record.Float(sale["commission_amount"])
		total += amount
		sales = append(sales, sale)
	}
	writeJSON(w, http.StatusOK, map[string]any{"commission_sales": sales, "total_commission": total})
}

func (s *Server) deleteMultiple(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeLineIDs(w, r)
	if !ok {
		return
	}
	drop := make(map[record.ID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	kept := s.lines[:0]
	for _, l := range s.lines {
		if !drop[record.NormalizeID(l["id"])] {
			kept = append(kept, l)
		}
	}
	removed := len(s.lines) - len(kept)
	s.lines = kept
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted " + strconv.Itoa(removed) + " lines"})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := record.NormalizeID(mux.Vars(r)["id"])
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	delete(fields, "id")

	s.mu.Lock()
	i := s.indexOf(id)
	if i >= 0 {
		s.lines[i].Merge(fields)
	}
	s.mu.Unlock()

	if i < 0 {
		writeError(w, http.StatusNotFound, "Invoice line not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

// indexOf must be called with s.mu held.
func (s *Server) indexOf(id record.ID) int {
	for i, l := range s.lines {
		if record.NormalizeID(l["id"]) == id {
			return i
		}
	}
	return -1
}

func decodeLineIDs(w http.ResponseWriter, r *http.Request) ([]record.ID, bool) {
	var req struct {
		LineIDs []record.ID `json:"line_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.LineIDs) == 0 {
		writeError(w, http.StatusBadRequest, "line_ids are required")
		return nil, false
	}
	return req.LineIDs, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
