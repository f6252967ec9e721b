package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/grid"
	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/pagination"
	"github.com/imgajeed76/invgrid/internal/record"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
)

// ═══════════════════════════════════════════════════════════════════════════
// Constants
// ═══════════════════════════════════════════════════════════════════════════

const (
	minColWidth    = 3
	hiddenColWidth = 3
	gutterWidth    = 6 // "[x] ▸ "
	chromeLines    = 6 // title, filters, header, separator, pager, help
)

// Column display state
type colState int

const (
	colStateDefault  colState = iota // the column's own width
	colStateExpanded                 // widest value on the page
	colStateHidden                   // minimal width (just "...")
)

type browserMode int

const (
	modeNormal browserMode = iota
	modeSearch
	modePrompt
)

type promptKind int

const (
	promptLocation promptKind = iota
	promptTaxInvoice
	promptYards
	promptFilter
	promptDelete
)

// ═══════════════════════════════════════════════════════════════════════════
// Messages
// ═══════════════════════════════════════════════════════════════════════════

// opDoneMsg carries the network outcome of an operation back to the loop.
type opDoneMsg struct {
	op  *action.Operation
	res action.Result
}

type pageLoadedMsg struct {
	number int
	page   api.Page
	err    error
}

// dispatchMsg runs a debounced filter notification on the loop.
type dispatchMsg func()

type statusClearMsg struct{}

// ═══════════════════════════════════════════════════════════════════════════
// Notifications
// ═══════════════════════════════════════════════════════════════════════════

// Notifications forwards action notifications to a running browser. Create
// it before the page so the page's controller can report to it.
type Notifications struct {
	b *browser
}

// NewNotifications returns a notifier that is silent until a browser runs.
func NewNotifications() *Notifications {
	return &Notifications{}
}

// Notify implements notify.Notifier. Actions call it from the browser's
// event loop only.
func (n *Notifications) Notify(level notify.Level, msg string) {
	if n.b != nil {
		n.b.flash(level, msg)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Model
// ═══════════════════════════════════════════════════════════════════════════

// BrowserOptions configures RunBrowser.
type BrowserOptions struct {
	Title string
	// RequestTimeout bounds each server round trip; zero means no bound
	// beyond the client's own.
	RequestTimeout time.Duration
}

type browser struct {
	ctx  context.Context
	page *invoice.Page
	opts BrowserOptions

	colStates []colState
	cursor    int // row on the current page
	colCursor int
	scrollX   int
	scrollY   int
	width     int
	height    int
	ready     bool

	mode       browserMode
	input      textinput.Model
	searchText string
	prompt     promptKind
	promptIDs  []record.ID

	spinner     spinner.Model
	inFlight    int
	pendingPage int

	statusMsg   string
	statusLevel notify.Level
	statusUntil time.Time
}

// ═══════════════════════════════════════════════════════════════════════════
// Key Bindings
// ═══════════════════════════════════════════════════════════════════════════

type browserKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	FirstPage   key.Binding
	LastPage    key.Binding
	Select      key.Binding
	SelectAll   key.Binding
	ClearSel    key.Binding
	Expand      key.Binding
	Widen       key.Binding
	Hide        key.Binding
	SortAsc     key.Binding
	SortDesc    key.Binding
	Search      key.Binding
	Filter      key.Binding
	Stock       key.Binding
	ClearFilter key.Binding
	Location    key.Binding
	Unlocate    key.Binding
	TaxInvoice  key.Binding
	Sell        key.Binding
	Delete      key.Binding
	Refresh     key.Binding
	YankCell    key.Binding
	YankRow     key.Binding
	Quit        key.Binding
}

var browserKeys = browserKeyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev column")),
	Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next column")),
	PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "scroll up")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "scroll down")),
	Home:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),
	End:         key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last row")),
	NextPage:    key.NewBinding(key.WithKeys("]", "n"), key.WithHelp("]", "next page")),
	PrevPage:    key.NewBinding(key.WithKeys("[", "p"), key.WithHelp("[", "prev page")),
	FirstPage:   key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "first page")),
	LastPage:    key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "last page")),
	Select:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	SelectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
	ClearSel:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "clear selection")),
	Expand:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
	Widen:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "widen column")),
	Hide:        key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "hide column")),
	SortAsc:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort asc")),
	SortDesc:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sort desc")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "invoice #")),
	Filter:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Stock:       key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "stock")),
	ClearFilter: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
	Location:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "location")),
	Unlocate:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "remove location")),
	TaxInvoice:  key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "tax invoice")),
	Sell:        key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "commission sale")),
	Delete:      key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	YankCell:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy cell")),
	YankRow:     key.NewBinding(key.WithKeys("Y"), key.WithHelp("Y", "copy row")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ═══════════════════════════════════════════════════════════════════════════
// Entry Point
// ═══════════════════════════════════════════════════════════════════════════

// RunBrowser shows page in an interactive full-screen browser until the user
// quits. n must be the notifier the page's controller was built with.
func RunBrowser(ctx context.Context, page *invoice.Page, n *Notifications, opts BrowserOptions) error {
	m := newBrowser(ctx, page, opts)
	n.b = m
	defer func() { n.b = nil }()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	page.Filters.Dispatch = func(fn func()) { p.Send(dispatchMsg(fn)) }
	defer func() { page.Filters.Dispatch = nil }()

	_, err := p.Run()
	return err
}

func newBrowser(ctx context.Context, page *invoice.Page, opts BrowserOptions) *browser {
	if opts.Title == "" {
		opts.Title = "Invoices"
	}

	ti := textinput.New()
	ti.CharLimit = 100
	ti.Width = 30

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Accent)),
	)

	m := &browser{
		ctx:       ctx,
		page:      page,
		opts:      opts,
		colStates: make([]colState, len(page.Columns)),
		input:     ti,
		spinner:   sp,
	}
	page.PageRequested = func(n int) { m.pendingPage = n }
	return m
}

// ═══════════════════════════════════════════════════════════════════════════
// Bubble Tea Interface
// ═══════════════════════════════════════════════════════════════════════════

func (m *browser) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)

	case opDoneMsg:
		m.inFlight--
		m.page.Actions.Finish(msg.op, msg.res)
		m.clampCursor()
		if f := m.page.Actions.FollowUp(); f != nil {
			cmd = m.startOp(f)
		}

	case pageLoadedMsg:
		m.inFlight--
		if msg.err != nil {
			m.flash(notify.Error, msg.err.Error())
		} else if msg.number == m.page.View.CurrentPage() {
			m.page.ApplyPage(msg.page)
			m.clampCursor()
		}

	case dispatchMsg:
		msg()
		m.clampCursor()

	case statusClearMsg:
		// Clear the flash message if it has expired
		if !m.statusUntil.IsZero() && time.Now().After(m.statusUntil) {
			m.statusMsg = ""
			m.statusUntil = time.Time{}
		}

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			cmd = m.updateSearch(msg)
		case modePrompt:
			cmd = m.updatePrompt(msg)
		default:
			cmd = m.updateNormal(msg)
		}
	}

	// A page change in server-side mode asks for rows through PageRequested.
	if m.pendingPage > 0 {
		cmd = tea.Batch(cmd, m.fetchPage(m.pendingPage))
		m.pendingPage = 0
	}
	return m, cmd
}

func (m *browser) updateNormal(msg tea.KeyMsg) tea.Cmd {
	view := m.page.View

	switch {
	case key.Matches(msg, browserKeys.Quit):
		return tea.Quit

	case key.Matches(msg, browserKeys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureRowVisible()
		}

	case key.Matches(msg, browserKeys.Down):
		if m.cursor < m.rowCount()-1 {
			m.cursor++
			m.ensureRowVisible()
		}

	case key.Matches(msg, browserKeys.PageUp):
		m.cursor -= m.visibleRowCount()
		m.clampCursor()

	case key.Matches(msg, browserKeys.PageDown):
		m.cursor += m.visibleRowCount()
		m.clampCursor()

	case key.Matches(msg, browserKeys.Home):
		m.cursor = 0
		m.scrollY = 0
		m.scrollX = 0

	case key.Matches(msg, browserKeys.End):
		m.cursor = m.rowCount() - 1
		m.clampCursor()

	case key.Matches(msg, browserKeys.Left):
		if m.colCursor > 0 {
			m.colCursor--
			m.ensureColVisible()
		}

	case key.Matches(msg, browserKeys.Right):
		if m.colCursor < len(m.page.Columns)-1 {
			m.colCursor++
			m.ensureColVisible()
		}

	case key.Matches(msg, browserKeys.NextPage):
		m.turnPage(view.NextPage)
	case key.Matches(msg, browserKeys.PrevPage):
		m.turnPage(view.PrevPage)
	case key.Matches(msg, browserKeys.FirstPage):
		m.turnPage(view.FirstPage)
	case key.Matches(msg, browserKeys.LastPage):
		m.turnPage(view.LastPage)

	case key.Matches(msg, browserKeys.Select):
		if row, ok := m.cursorRow(); ok {
			view.HandleRowSelection(row.ID, !row.Checked)
			if m.cursor < m.rowCount()-1 {
				m.cursor++
				m.ensureRowVisible()
			}
		}

	case key.Matches(msg, browserKeys.SelectAll):
		view.SelectAll(true)

	case key.Matches(msg, browserKeys.ClearSel):
		view.ClearSelection()

	case key.Matches(msg, browserKeys.Expand):
		if row, ok := m.cursorRow(); ok && row.Kind == grid.ParentRow {
			view.ToggleRowExpansion(row.ID)
		}

	case key.Matches(msg, browserKeys.Widen):
		m.toggleColState(colStateExpanded)

	case key.Matches(msg, browserKeys.Hide):
		m.toggleColState(colStateHidden)

	case key.Matches(msg, browserKeys.SortAsc):
		return m.sort(grid.Ascending)

	case key.Matches(msg, browserKeys.SortDesc):
		return m.sort(grid.Descending)

	case key.Matches(msg, browserKeys.Search):
		m.mode = modeSearch
		m.input.Prompt = "/"
		m.input.Placeholder = "invoice number..."
		m.input.SetValue(m.searchText)
		return m.input.Focus()

	case key.Matches(msg, browserKeys.Filter):
		return m.openPrompt(promptFilter, "filter> ", "id=value (e.g. color=red,blue)", nil)

	case key.Matches(msg, browserKeys.Stock):
		m.cycleStock()

	case key.Matches(msg, browserKeys.ClearFilter):
		m.searchText = ""
		m.page.Filters.Clear()
		m.clampCursor()

	case key.Matches(msg, browserKeys.Location):
		return m.openPrompt(promptLocation, "location> ", "delivered location", m.targets())

	case key.Matches(msg, browserKeys.Unlocate):
		return m.startOp(m.page.Actions.PlanRemoveLocation(m.targets()))

	case key.Matches(msg, browserKeys.TaxInvoice):
		return m.openPrompt(promptTaxInvoice, "tax invoice> ", "tax invoice number", m.targets())

	case key.Matches(msg, browserKeys.Sell):
		row, ok := m.cursorRow()
		if !ok {
			return nil
		}
		hint := fmt.Sprintf("yards (%s pending)", invoice.FormatNumber(invoice.Pending(row.Record)))
		return m.openPrompt(promptYards, "sell> ", hint, []record.ID{row.ID})

	case key.Matches(msg, browserKeys.Delete):
		ids := m.targets()
		return m.openPrompt(promptDelete, fmt.Sprintf("delete %d line(s)? ", len(ids)), "y/N", ids)

	case key.Matches(msg, browserKeys.Refresh):
		return m.load()

	case key.Matches(msg, browserKeys.YankCell):
		return m.yankCell()

	case key.Matches(msg, browserKeys.YankRow):
		return m.yankRow()
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Search and Prompts
// ═══════════════════════════════════════════════════════════════════════════

// updateSearch feeds keystrokes to the debounced invoice number filter.
func (m *browser) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		m.input.SetValue("")
		m.searchText = ""
		_ = m.page.Filters.Set(invoice.FilterInvoice, filter.Text(""))
		m.clampCursor()
		return nil
	case tea.KeyEnter:
		m.mode = modeNormal
		m.input.Blur()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != m.searchText {
		m.searchText = v
		_ = m.page.Filters.Input(invoice.FilterInvoice, filter.Text(v))
	}
	return cmd
}

func (m *browser) openPrompt(kind promptKind, prompt, placeholder string, ids []record.ID) tea.Cmd {
	m.mode = modePrompt
	m.prompt = kind
	m.promptIDs = ids
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *browser) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		kind, ids := m.prompt, m.promptIDs
		m.closePrompt()
		return m.submit(kind, ids, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *browser) closePrompt() {
	m.mode = modeNormal
	m.promptIDs = nil
	m.input.Blur()
	m.input.SetValue("")
}

// submit turns a confirmed prompt into an operation or a filter change.
func (m *browser) submit(kind promptKind, ids []record.ID, value string) tea.Cmd {
	actions := m.page.Actions

	switch kind {
	case promptLocation:
		return m.startOp(actions.PlanAssignLocation(ids, value))

	case promptTaxInvoice:
		return m.startOp(actions.PlanAssignTaxInvoice(ids, value))

	case promptYards:
		yards, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return m.flash(notify.Warning, fmt.Sprintf("%q is not a number of yards", value))
		}
		if len(ids) == 0 {
			return nil
		}
		return m.startOp(actions.PlanCommissionSale(ids[0], yards, ""))

	case promptDelete:
		if !strings.EqualFold(value, "y") && !strings.EqualFold(value, "yes") {
			return nil
		}
		return m.startOp(actions.PlanDelete(ids))

	case promptFilter:
		id, raw, ok := strings.Cut(value, "=")
		if !ok {
			return m.flash(notify.Warning, "Use id=value, e.g. customer=ACME")
		}
		def, found := m.page.Filters.Definition(strings.TrimSpace(id))
		if !found {
			return m.flash(notify.Warning, fmt.Sprintf("Unknown filter %q", id))
		}
		v, err := filter.Parse(def, raw)
		if err != nil {
			return m.flash(notify.Warning, err.Error())
		}
		if err := m.page.Filters.Set(def.ID, v); err != nil {
			return m.flash(notify.Warning, err.Error())
		}
		m.clampCursor()
	}
	return nil
}

// cycleStock moves the stock filter to its next choice.
func (m *browser) cycleStock() {
	def, ok := m.page.Filters.Definition(invoice.FilterStock)
	if !ok || len(def.Options) == 0 {
		return
	}
	cur := filter.String(m.page.Filters.Value(invoice.FilterStock))
	next := def.Options[0].Value
	for i, o := range def.Options {
		if o.Value == cur {
			next = def.Options[(i+1)%len(def.Options)].Value
			break
		}
	}
	_ = m.page.Filters.Set(invoice.FilterStock, filter.Choice(next))
	m.clampCursor()
}

// ═══════════════════════════════════════════════════════════════════════════
// Server Round Trips
// ═══════════════════════════════════════════════════════════════════════════

func (m *browser) requestContext() (context.Context, context.CancelFunc) {
	if m.opts.RequestTimeout > 0 {
		return context.WithTimeout(m.ctx, m.opts.RequestTimeout)
	}
	return context.WithCancel(m.ctx)
}

// startOp begins op on the loop and executes it in the background. The
// outcome comes back as an opDoneMsg.
func (m *browser) startOp(op *action.Operation) tea.Cmd {
	ctrl := m.page.Actions
	if !ctrl.Begin(op) {
		return nil
	}
	m.inFlight++
	m.clampCursor()
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return opDoneMsg{op: op, res: ctrl.Execute(ctx, op)}
	}
}

// load reloads the table: the current page in server-side mode, every line
// otherwise.
func (m *browser) load() tea.Cmd {
	if m.page.View.ServerSide() {
		return m.fetchPage(m.page.View.CurrentPage())
	}
	return m.startOp(m.page.Actions.PlanRefresh())
}

func (m *browser) fetchPage(n int) tea.Cmd {
	m.inFlight++
	perPage := m.page.View.ItemsPerPage()
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		pg, err := m.page.FetchPage(ctx, n, perPage)
		return pageLoadedMsg{number: n, page: pg, err: err}
	}
}

func (m *browser) turnPage(move func() bool) {
	if move() {
		m.cursor = 0
		m.scrollY = 0
	}
}

func (m *browser) sort(dir grid.Direction) tea.Cmd {
	col := m.page.Columns[m.colCursor]
	if !m.page.Sort(col.Key, dir) {
		return m.flash(notify.Warning, fmt.Sprintf("%s is not sortable", col.Title))
	}
	m.clampCursor()
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Status Message (flash notification)
// ═══════════════════════════════════════════════════════════════════════════

const statusDuration = 3 * time.Second

// flash sets a temporary status message that auto-clears.
func (m *browser) flash(level notify.Level, msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusLevel = level
	m.statusUntil = time.Now().Add(statusDuration)
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return statusClearMsg{}
	})
}

func (m *browser) renderStatus() string {
	switch m.statusLevel {
	case notify.Success:
		return styles.SuccessMsg(m.statusMsg)
	case notify.Warning:
		return styles.WarningMsg(m.statusMsg)
	case notify.Error:
		return styles.ErrorMsg(m.statusMsg)
	}
	return styles.InfoMsg(m.statusMsg)
}

// ═══════════════════════════════════════════════════════════════════════════
// Clipboard (yank)
// ═══════════════════════════════════════════════════════════════════════════

// yankCell copies the selected cell value to the system clipboard.
func (m *browser) yankCell() tea.Cmd {
	row, ok := m.cursorRow()
	if !ok {
		return nil
	}
	val := m.page.Columns[m.colCursor].Cell(row.Record)
	if err := clipboard.WriteAll(val); err != nil {
		return m.flash(notify.Error, fmt.Sprintf("clipboard error: %s", err))
	}
	return m.flash(notify.Success, fmt.Sprintf("Copied: %s", Truncate(val, 40)))
}

// yankRow copies the cursor row (tab-separated) to the clipboard.
func (m *browser) yankRow() tea.Cmd {
	row, ok := m.cursorRow()
	if !ok {
		return nil
	}
	cells := make([]string, len(m.page.Columns))
	for i, c := range m.page.Columns {
		cells[i] = c.Cell(row.Record)
	}
	if err := clipboard.WriteAll(strings.Join(cells, "\t")); err != nil {
		return m.flash(notify.Error, fmt.Sprintf("clipboard error: %s", err))
	}
	return m.flash(notify.Success, fmt.Sprintf("Copied line %s", row.ID))
}

// ═══════════════════════════════════════════════════════════════════════════
// Row / Column Helpers
// ═══════════════════════════════════════════════════════════════════════════

func (m *browser) rows() []grid.Row {
	return m.page.View.Page().Rows
}

func (m *browser) rowCount() int {
	return len(m.rows())
}

func (m *browser) cursorRow() (grid.Row, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return grid.Row{}, false
	}
	return rows[m.cursor], true
}

// targets are the checked rows, or the cursor row when nothing is checked.
func (m *browser) targets() []record.ID {
	if ids := m.page.View.SelectedIDs(); len(ids) > 0 {
		return ids
	}
	if row, ok := m.cursorRow(); ok {
		return []record.ID{row.ID}
	}
	return nil
}

func (m *browser) clampCursor() {
	n := m.rowCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.scrollY > m.cursor {
		m.scrollY = m.cursor
	}
	m.ensureRowVisible()
}

func (m *browser) toggleColState(s colState) {
	if m.colCursor >= len(m.colStates) {
		return
	}
	if m.colStates[m.colCursor] == s {
		m.colStates[m.colCursor] = colStateDefault
	} else {
		m.colStates[m.colCursor] = s
	}
	m.ensureColVisible()
}

func (m *browser) colWidth(i int, rows []grid.Row) int {
	col := m.page.Columns[i]
	switch m.colStates[i] {
	case colStateHidden:
		return hiddenColWidth
	case colStateExpanded:
		w := lipgloss.Width(col.Title)
		for _, r := range rows {
			if cw := lipgloss.Width(col.Cell(r.Record)); cw > w {
				w = cw
			}
		}
		return w
	}
	if col.Width < minColWidth {
		return minColWidth
	}
	return col.Width
}

func (m *browser) colStartX(idx int, rows []grid.Row) int {
	x := 0
	for i := 0; i < idx && i < len(m.page.Columns); i++ {
		x += m.colWidth(i, rows) + 2 // +2 for column separator spacing
	}
	return x
}

func (m *browser) totalWidth(rows []grid.Row) int {
	return m.colStartX(len(m.page.Columns), rows)
}

func (m *browser) viewportWidth() int {
	w := m.width - 2 - gutterWidth
	if w < 1 {
		w = 1
	}
	return w
}

func (m *browser) visibleRowCount() int {
	count := m.height - chromeLines
	if count < 1 {
		count = 1
	}
	return count
}

func (m *browser) ensureRowVisible() {
	visible := m.visibleRowCount()
	if m.cursor < m.scrollY {
		m.scrollY = m.cursor
	} else if m.cursor >= m.scrollY+visible {
		m.scrollY = m.cursor - visible + 1
	}
}

func (m *browser) ensureColVisible() {
	rows := m.rows()
	start := m.colStartX(m.colCursor, rows)
	end := start + m.colWidth(m.colCursor, rows)
	vw := m.viewportWidth()

	if start < m.scrollX {
		m.scrollX = start
	} else if end > m.scrollX+vw {
		if end-start <= vw {
			m.scrollX = end - vw
		} else {
			m.scrollX = start
		}
	}

	maxX := m.totalWidth(rows) - vw
	if m.scrollX > maxX {
		m.scrollX = maxX
	}
	if m.scrollX < 0 {
		m.scrollX = 0
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ANSI-aware Viewport Slicing
// ═══════════════════════════════════════════════════════════════════════════

// applyViewport extracts a horizontal slice of a string, handling ANSI escape
// codes properly. It returns the portion of the string from visual column
// startX with the given width.
func applyViewport(s string, startX, width int) string {
	if width <= 0 {
		return ""
	}
	if startX < 0 {
		startX = 0
	}

	var result strings.Builder
	result.Grow(width + 64)

	visualPos := 0
	outputChars := 0
	stylesApplied := false
	inEscape := false
	var escapeSeq strings.Builder
	var activeStyles []string

	runes := []rune(s)
	for i := 0; i < len(runes) && outputChars < width; i++ {
		r := runes[i]

		if r == '\x1b' && i+1 < len(runes) && runes[i+1] == '[' {
			inEscape = true
			escapeSeq.Reset()
			escapeSeq.WriteRune(r)
			continue
		}

		if inEscape {
			escapeSeq.WriteRune(r)
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
				seq := escapeSeq.String()
				if r == 'm' {
					if seq == "\x1b[0m" || seq == "\x1b[m" {
						activeStyles = nil
					} else {
						activeStyles = append(activeStyles, seq)
					}
				}
				if visualPos >= startX {
					result.WriteString(seq)
				}
			}
			continue
		}

		if visualPos >= startX {
			if !stylesApplied && len(activeStyles) > 0 {
				for _, style := range activeStyles {
					result.WriteString(style)
				}
				stylesApplied = true
			}
			result.WriteRune(r)
			outputChars++
		}
		visualPos++
	}

	if len(activeStyles) > 0 && outputChars > 0 {
		result.WriteString("\x1b[0m")
	}
	if outputChars < width {
		result.WriteString(strings.Repeat(" ", width-outputChars))
	}
	return result.String()
}

// ═══════════════════════════════════════════════════════════════════════════
// View
// ═══════════════════════════════════════════════════════════════════════════

func (m *browser) View() string {
	if !m.ready {
		return "Loading..."
	}

	page := m.page.View.Page()
	var sb strings.Builder

	// Title with counts
	title := fmt.Sprintf("%s: %d lines", m.opts.Title, page.TotalCount)
	if page.Selected > 0 {
		title += fmt.Sprintf(", %d selected", page.Selected)
	}
	if page.SortColumn != "" {
		title += fmt.Sprintf(", sorted by %s %s", page.SortColumn, page.SortDir)
	}
	sb.WriteString(styles.Render(styles.HeaderStyle, title))
	if m.inFlight > 0 {
		sb.WriteString("  " + m.spinner.View())
	}
	sb.WriteString("\n")

	// Search bar, prompt or active filters
	switch {
	case m.mode != modeNormal:
		sb.WriteString(m.input.View())
	case m.page.Filters.Active():
		sb.WriteString(styles.MutedMsg("filters: " + strings.Join(m.activeFilters(), "  ")))
	}
	sb.WriteString("\n")

	sb.WriteString(m.renderTable(page))

	// Footer
	sb.WriteString(m.renderPager(page))
	sb.WriteString("\n")
	switch {
	case m.statusMsg != "" && time.Now().Before(m.statusUntil):
		sb.WriteString(m.renderStatus())
	case m.mode != modeNormal:
		sb.WriteString(styles.MutedMsg("enter confirm  esc cancel"))
	default:
		sb.WriteString(styles.MutedMsg("space select  enter expand  s/S sort  / search  f filter  i stock  L/X location  T tax  C sell  D delete  r refresh  q quit"))
	}
	return sb.String()
}

// activeFilters describes every filter that narrows the data.
func (m *browser) activeFilters() []string {
	var out []string
	for _, d := range m.page.Filters.Definitions() {
		v := m.page.Filters.Value(d.ID)
		if v == nil || v.IsEmpty() {
			continue
		}
		if c, ok := v.(filter.Choice); ok && filter.Value(c) == d.DefaultValue() {
			continue
		}
		out = append(out, fmt.Sprintf("%s=%s", d.ID, filter.String(v)))
	}
	return out
}

func (m *browser) renderTable(page grid.Page) string {
	var sb strings.Builder
	vw := m.viewportWidth()
	gutter := strings.Repeat(" ", gutterWidth)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Info)
	selectedHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Accent)
	sepStyle := lipgloss.NewStyle().Foreground(styles.Muted)

	var header, sep strings.Builder
	for i, c := range m.page.Columns {
		w := m.colWidth(i, page.Rows)
		name := c.Title
		if m.colStates[i] == colStateHidden {
			name = "..."
		}
		if page.SortColumn == c.Key {
			name += sortArrow(page.SortDir)
		}
		st := headerStyle
		if i == m.colCursor {
			st = selectedHeaderStyle
		}
		header.WriteString(styles.Render(st, PadOrTruncate(name, w, c.Align)) + "  ")
		sep.WriteString(styles.Render(sepStyle, strings.Repeat("─", w)) + "  ")
	}
	sb.WriteString(gutter + applyViewport(header.String(), m.scrollX, vw) + "\n")
	sb.WriteString(gutter + applyViewport(sep.String(), m.scrollX, vw) + "\n")

	visible := m.visibleRowCount()
	if page.Empty() {
		sb.WriteString(styles.MutedMsg(gutter+grid.EmptyText) + "\n")
		visible--
	}

	end := m.scrollY + visible
	if end > len(page.Rows) {
		end = len(page.Rows)
	}
	for i := m.scrollY; i < end; i++ {
		sb.WriteString(m.renderRow(page.Rows[i], i == m.cursor, page.Rows, vw))
		sb.WriteString("\n")
	}
	for i := end - m.scrollY; i < visible; i++ {
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *browser) renderRow(row grid.Row, isCursor bool, rows []grid.Row, vw int) string {
	check := "[ ]"
	if row.Checked {
		check = "[x]"
	}
	marker := " "
	switch row.Kind {
	case grid.ParentRow:
		if row.Children > 0 {
			marker = styles.SymbolFolded
			if row.Expanded {
				marker = styles.SymbolExpanded
			}
		}
	case grid.ChildRow:
		check = "   "
		marker = styles.SymbolChild
	}
	gutter := check + " " + marker + " "

	rowStyle := lipgloss.NewStyle()
	switch {
	case isCursor:
		rowStyle = styles.CursorStyle
	case row.Checked:
		rowStyle = styles.SelectedStyle
	case row.Kind == grid.ChildRow:
		rowStyle = styles.ChildStyle
	}
	cellStyle := lipgloss.NewStyle().Background(styles.Accent).Foreground(lipgloss.Color("#000000"))
	plain := !isCursor && !row.Checked && row.Kind != grid.ChildRow

	var sb strings.Builder
	for i, c := range m.page.Columns {
		w := m.colWidth(i, rows)
		val := c.Cell(row.Record)
		if m.colStates[i] == colStateHidden {
			val = "..."
		}
		text := PadOrTruncate(val, w, c.Align)
		switch {
		case isCursor && i == m.colCursor:
			sb.WriteString(styles.Render(cellStyle, text))
		case plain && m.colStates[i] != colStateHidden:
			sb.WriteString(styleCell(c, row.Record, text))
		default:
			sb.WriteString(styles.Render(rowStyle, text))
		}
		sb.WriteString(styles.Render(rowStyle, "  "))
	}
	return styles.Render(rowStyle, gutter) + applyViewport(sb.String(), m.scrollX, vw)
}

func sortArrow(d grid.Direction) string {
	if d == grid.Descending {
		return "↓"
	}
	return "↑"
}

// renderPager shows the page numbers with the current one highlighted.
func (m *browser) renderPager(page grid.Page) string {
	parts := []string{styles.MutedMsg(page.Info)}
	for _, n := range page.PageNumbers {
		switch {
		case n == pagination.Ellipsis:
			parts = append(parts, styles.MutedMsg("…"))
		case n == page.Number:
			parts = append(parts, styles.Render(styles.HeaderStyle, fmt.Sprintf("[%d]", n)))
		default:
			parts = append(parts, strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}
