package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/grid"
	"github.com/imgajeed76/invgrid/internal/logger"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/record"
)

// TableID is the registry key of the invoice line table.
const TableID = "invoices"

// Backend is the invoice API including server-side paging.
type Backend interface {
	action.Backend
	FetchPage(ctx context.Context, page, perPage int) (api.Page, error)
}

// Settings configures a Page.
type Settings struct {
	ItemsPerPage    int
	MaxVisiblePages int
	Hierarchical    bool
	ParentKey       string
	RowIdentifier   string
	PrependNewRows  bool
	ServerSide      bool
	Debounce        time.Duration
	Actions         action.Options
	Logger          *logger.Logger
}

// Page ties the invoice table, its filters and its actions together.
// Like grid.View it must be driven from one goroutine.
type Page struct {
	Registry *grid.Registry
	View     *grid.View
	Filters  *filter.Engine
	Actions  *action.Controller
	Columns  []Column

	// PageRequested is called when a server-side page change needs rows.
	// When nil the page is loaded synchronously.
	PageRequested func(page int)

	backend Backend
	log     *logger.Logger
}

// NewPage builds the invoice page. Notifications go to n.
func NewPage(s Settings, backend Backend, n notify.Notifier) *Page {
	log := s.Logger
	if log == nil {
		log = logger.Nop()
	}
	p := &Page{
		Registry: grid.NewRegistry(),
		Columns:  Columns(),
		backend:  backend,
		log:      log,
	}

	p.View = grid.New(grid.Options{
		RowIdentifier:        s.RowIdentifier,
		ItemsPerPage:         s.ItemsPerPage,
		MaxVisiblePages:      s.MaxVisiblePages,
		Hierarchical:         s.Hierarchical,
		ParentKey:            s.ParentKey,
		SortableColumns:      SortableKeys(p.Columns),
		ServerSidePagination: s.ServerSide,
		PrependNewRows:       s.PrependNewRows,
		Logger:               log,
		OnDataUpdate:         func([]record.Record) { p.refilter() },
		OnPageChange:         p.pageChanged,
	})
	for _, c := range p.Columns {
		if c.Sortable && c.Compare != nil {
			p.View.SetComparator(c.Key, c.Compare)
		}
	}
	p.Registry.Register(TableID, p.View)

	p.Filters = filter.NewEngine(Filters(), s.Debounce)
	p.Filters.OnChange = func(vs filter.Values) {
		p.View.ApplyFilters(p.Filters.Definitions(), vs)
	}

	opts := s.Actions
	if opts.Logger == nil {
		opts.Logger = log
	}
	p.Actions = action.New(p.View, backend, n, opts)
	return p
}

// refilter narrows freshly loaded data by the current filter values.
func (p *Page) refilter() {
	if p.Filters == nil {
		return
	}
	p.View.ApplyFilters(p.Filters.Definitions(), p.Filters.Values())
}

func (p *Page) pageChanged(page int) {
	if p.PageRequested != nil {
		p.PageRequested(page)
		return
	}
	if err := p.LoadPage(context.Background(), page); err != nil {
		p.log.Warn("page load failed", "page", page, "error", err.Error())
	}
}

// Load fetches the data the table shows: every line, or the current page in
// server-side mode.
func (p *Page) Load(ctx context.Context) error {
	if p.serverSide() {
		return p.LoadPage(ctx, p.View.CurrentPage())
	}
	rows, err := p.backend.FetchInvoices(ctx)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	p.View.SetData(rows)
	p.log.Debug("invoices loaded", "rows", len(rows))
	return nil
}

// FetchPage loads one server-side page without touching the table, so it can
// run off the event loop; read perPage from View.ItemsPerPage beforehand.
// Apply the result with ApplyPage.
func (p *Page) FetchPage(ctx context.Context, page, perPage int) (api.Page, error) {
	pg, err := p.backend.FetchPage(ctx, page, perPage)
	if err != nil {
		return api.Page{}, fmt.Errorf("load page %d: %w", page, err)
	}
	return pg, nil
}

// ApplyPage shows a page fetched with FetchPage.
func (p *Page) ApplyPage(pg api.Page) {
	p.View.SetServerSideTotal(pg.Total)
	p.View.SetData(pg.Items)
}

// LoadPage fetches and shows one server-side page.
func (p *Page) LoadPage(ctx context.Context, page int) error {
	pg, err := p.FetchPage(ctx, page, p.View.ItemsPerPage())
	if err != nil {
		return err
	}
	p.ApplyPage(pg)
	return nil
}

func (p *Page) serverSide() bool { return p.View.ServerSide() }

// Sort sorts the invoice table through the registry.
func (p *Page) Sort(column string, dir ...grid.Direction) bool {
	return p.Registry.Sort(TableID, column, dir...)
}

// FilterOptions returns the choices of a filter derived from the loaded data.
func (p *Page) FilterOptions(id string) []string {
	return p.Filters.Options(id, p.View.Data())
}

// Column returns the column with the given key.
func (p *Page) Column(key string) (Column, bool) {
	for _, c := range p.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}
