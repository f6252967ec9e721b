// Package action runs invoice operations with optimistic local feedback.
//
// An operation is planned against the current table, begun (validated and,
// in optimistic mode, applied to the table), executed (network only) and
// finished (notified and reconciled). Plan, Begin and Finish touch the table
// and must run on the goroutine that owns it. Execute may run anywhere, which
// lets an event loop issue the request in the background and hand the Result
// back to Finish.
package action

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/logger"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/record"
)

// Table is the part of grid.View the controller mutates.
type Table interface {
	RowIdentifier() string
	GetRowByID(id any) (record.Record, bool)
	UpdateRow(id any, fields map[string]any) bool
	UpdateRows(ids []record.ID, fields map[string]any) []bool
	RemoveRows(ids []record.ID) int
	AddRow(r record.Record) bool
	SetData(records []record.Record)
}

// Backend is the invoice API. *api.Client implements it.
type Backend interface {
	FetchInvoices(ctx context.Context) ([]record.Record, error)
	ReloadInvoices(ctx context.Context) ([]record.Record, error)
	AssignLocation(ctx context.Context, req api.AssignLocationRequest) (api.MessageResponse, error)
	RemoveLocation(ctx context.Context, ids []record.ID) (api.MessageResponse, error)
	AssignTaxInvoice(ctx context.Context, req api.AssignTaxInvoiceRequest) (api.MessageResponse, error)
	MarkCommissionSale(ctx context.Context, req api.CommissionSaleRequest) (api.CommissionSaleResponse, error)
	MarkCommissionSaleBulk(ctx context.Context, req api.BulkCommissionRequest) (api.BulkCommissionResponse, error)
	DeleteLines(ctx context.Context, ids []record.ID) (api.MessageResponse, error)
	UpdateLine(ctx context.Context, id record.ID, fields map[string]any) (api.MessageResponse, error)
	CreateLine(ctx context.Context, fields map[string]any) (record.Record, error)
}

// ValidationError is an input problem caught before any request is made.
// Its message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) *ValidationError { return &ValidationError{Message: msg} }

// Options configures a Controller.
type Options struct {
	// Optimistic applies each mutation to the table before the request is
	// sent. When off, the mutation is applied once the server confirms it.
	Optimistic bool

	// DiscardStale skips the refresh of an operation whose rows have since
	// been claimed by a newer operation.
	DiscardStale bool

	// Notifications enables user-facing notifications.
	Notifications bool

	Logger *logger.Logger

	// OnTransition is called on every state change.
	OnTransition func(op *Operation, from, to State)
}

// DefaultOptions turns everything on.
func DefaultOptions() Options {
	return Options{Optimistic: true, DiscardStale: true, Notifications: true}
}

// Controller runs operations against a table and a backend.
type Controller struct {
	table    Table
	backend  Backend
	notifier notify.Notifier
	opts     Options
	log      *logger.Logger

	seq     uint64
	claims  map[record.ID]uint64
	pending map[string]*Operation

	generation atomic.Uint64
	appliedGen uint64

	// owed holds rows of failed operations whose revert was skipped. They
	// are reloaded by FollowUp once no pending operation claims them.
	owed    map[record.ID]struct{}
	owedGen uint64
}

// New returns a controller. A nil notifier discards notifications.
func New(table Table, backend Backend, n notify.Notifier, opts Options) *Controller {
	if n == nil {
		n = notify.Discard
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		table:    table,
		backend:  backend,
		notifier: n,
		opts:     opts,
		log:      log.With("component", "action"),
		claims:   make(map[record.ID]uint64),
		pending:  make(map[string]*Operation),
		owed:     make(map[record.ID]struct{}),
	}
}

// Optimistic reports whether mutations are applied before confirmation.
func (c *Controller) Optimistic() bool { return c.opts.Optimistic }

// Pending returns the operations that have begun but not finished, oldest
// first.
func (c *Controller) Pending() []*Operation {
	out := make([]*Operation, 0, len(c.pending))
	for _, op := range c.pending {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Result is what Execute learned from the server.
type Result struct {
	// Message is the success notification text.
	Message string
	Err     error

	// Created is the stored record returned by an add.
	Created record.Record

	// Refreshed is set when a full reload was attempted; Rows holds it.
	Refreshed  bool
	Rows       []record.Record
	RefreshErr error
	Generation uint64
}

// Run begins, executes and finishes op. It never returns an error; the
// outcome is the boolean and the notifications.
func (c *Controller) Run(ctx context.Context, op *Operation) bool {
	if !c.Begin(op) {
		return false
	}
	ok := c.Finish(op, c.Execute(ctx, op))
	if f := c.FollowUp(); f != nil {
		c.Run(ctx, f)
	}
	return ok
}

// Begin validates op and applies its optimistic mutation. It returns false
// when op was rejected, in which case nothing was changed and no request
// must be sent.
func (c *Controller) Begin(op *Operation) bool {
	op.state = Validating
	if op.err != nil {
		c.transition(op, Rejected)
		c.log.Info("operation rejected", "op", op.ID, "kind", op.Kind, "reason", op.err.Error())
		c.notify(notify.Warning, op.err.Error())
		return false
	}

	c.seq++
	op.seq = c.seq
	for _, id := range op.targets {
		c.claims[id] = op.seq
	}
	c.pending[op.ID] = op

	if c.opts.Optimistic && op.mutate != nil {
		op.mutate(c.table)
		op.optimistic = true
		c.transition(op, Applied)
		if op.progress != "" {
			c.notify(notify.Info, op.progress)
		}
	} else {
		c.transition(op, Issued)
	}
	c.log.Debug("operation started", "op", op.ID, "kind", op.Kind, "seq", op.seq, "rows", len(op.targets))
	return true
}

// Execute sends op's request and, when reconciliation needs it, reloads the
// full data set. It does not touch the table and is safe to call from any
// goroutine.
func (c *Controller) Execute(ctx context.Context, op *Operation) Result {
	var res Result
	if op.send != nil {
		res.Err = op.send(ctx, c.backend, &res)
	}

	if (res.Err == nil && op.refresh) || (res.Err != nil && op.optimistic) {
		res.Refreshed = true
		res.Generation = c.generation.Add(1)
		if op.send == nil && !op.fresh {
			res.Rows, res.RefreshErr = c.backend.FetchInvoices(ctx)
			res.Err = res.RefreshErr
		} else {
			// A coalesced fetch could predate the write just sent.
			res.Rows, res.RefreshErr = c.backend.ReloadInvoices(ctx)
			if op.send == nil {
				res.Err = res.RefreshErr
			}
		}
	}
	return res
}

// Finish reconciles the table with res, notifies the user and reports
// whether the operation succeeded.
func (c *Controller) Finish(op *Operation, res Result) bool {
	defer delete(c.pending, op.ID)

	if res.Err != nil {
		if op.optimistic {
			c.transition(op, Reverting)
			c.reconcile(op, res)
			c.transition(op, Reverted)
		} else {
			c.transition(op, Failed)
		}
		msg := op.failureMessage(res.Err)
		c.log.Warn("operation failed", "op", op.ID, "kind", op.Kind, "error", res.Err.Error())
		c.notify(notify.Error, msg)
		return false
	}

	if res.Refreshed {
		c.reconcile(op, res)
	} else if !op.optimistic && op.mutate != nil {
		op.mutate(c.table)
	}
	c.transition(op, Confirmed)

	msg := res.Message
	if msg == "" {
		msg = op.success
	}
	if msg != "" {
		c.notify(notify.Success, msg)
	}
	c.log.Debug("operation confirmed", "op", op.ID, "kind", op.Kind)
	return true
}

// reconcile replaces the table contents with the refreshed rows unless the
// snapshot is stale. A failed operation that cannot revert leaves its rows
// owed to FollowUp.
func (c *Controller) reconcile(op *Operation, res Result) {
	if !res.Refreshed {
		return
	}
	if c.opts.DiscardStale && c.superseded(op) {
		c.log.Info("skipping stale reconciliation", "op", op.ID, "kind", op.Kind, "seq", op.seq)
		c.owe(op, res)
		return
	}
	if res.Generation < c.appliedGen {
		c.log.Info("dropping out of order snapshot", "op", op.ID, "generation", res.Generation, "applied", c.appliedGen)
		return
	}
	if res.RefreshErr != nil {
		c.log.Warn("refresh failed", "op", op.ID, "error", res.RefreshErr.Error())
		c.owe(op, res)
		return
	}
	c.appliedGen = res.Generation
	if res.Generation > c.owedGen {
		clear(c.owed)
	}
	c.logDrift(op, res.Rows)
	c.table.SetData(res.Rows)
}

// owe records the rows of a failed optimistic operation whose revert was
// not applied.
func (c *Controller) owe(op *Operation, res Result) {
	if res.Err == nil || !op.optimistic {
		return
	}
	for _, id := range op.targets {
		c.owed[id] = struct{}{}
	}
	c.owedGen = c.generation.Load()
}

// FollowUp returns the reload that undoes failed operations whose revert was
// skipped, or nil when nothing is owed or a pending operation still claims
// an owed row. Begin it like any other operation once Finish returns.
func (c *Controller) FollowUp() *Operation {
	if len(c.owed) == 0 {
		return nil
	}
	for _, p := range c.pending {
		for _, id := range p.targets {
			if _, ok := c.owed[id]; ok {
				return nil
			}
		}
	}
	c.log.Info("reloading after skipped revert", "rows", len(c.owed))
	clear(c.owed)
	op := c.PlanRefresh()
	op.fresh = true
	return op
}

// superseded reports whether a newer operation has claimed one of op's rows.
func (c *Controller) superseded(op *Operation) bool {
	for _, id := range op.targets {
		if c.claims[id] > op.seq {
			return true
		}
	}
	return false
}

// logDrift logs how the server's copy of each target row differs from the
// local one.
func (c *Controller) logDrift(op *Operation, rows []record.Record) {
	if len(op.targets) == 0 {
		return
	}
	key := c.table.RowIdentifier()
	fresh := make(map[record.ID]record.Record, len(rows))
	for _, r := range rows {
		fresh[r.ID(key)] = r
	}
	for _, id := range op.targets {
		local, _ := c.table.GetRowByID(id)
		lines := record.Diff(local, fresh[id])
		if record.Changed(lines) {
			c.log.Debug("row drift after refresh", "op", op.ID, "row", id.String(), "diff", record.FormatDiff(lines))
		}
	}
}

func (c *Controller) transition(op *Operation, to State) {
	from := op.state
	op.state = to
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(op, from, to)
	}
}

func (c *Controller) notify(level notify.Level, msg string) {
	if c.opts.Notifications {
		c.notifier.Notify(level, msg)
	}
}

// failureMessage picks the text shown when op fails with err.
func (op *Operation) failureMessage(err error) string {
	var te *api.TransportError
	if errors.As(err, &te) && op.transportPrefix != "" {
		return op.transportPrefix + ": " + te.Err.Error()
	}
	return api.UserMessage(err, op.failure)
}

// ═══════════════════════════════════════════════════════════════════════════
// Convenience wrappers
// ═══════════════════════════════════════════════════════════════════════════

func (c *Controller) AssignDeliveryLocation(ctx context.Context, ids []record.ID, location string) bool {
	return c.Run(ctx, c.PlanAssignLocation(ids, location))
}

func (c *Controller) RemoveDeliveryLocation(ctx context.Context, ids []record.ID) bool {
	return c.Run(ctx, c.PlanRemoveLocation(ids))
}

func (c *Controller) AssignTaxInvoiceNumber(ctx context.Context, ids []record.ID, taxInvoice string) bool {
	return c.Run(ctx, c.PlanAssignTaxInvoice(ids, taxInvoice))
}

func (c *Controller) CreateCommissionSale(ctx context.Context, id any, yards float64, saleDate string) bool {
	return c.Run(ctx, c.PlanCommissionSale(id, yards, saleDate))
}

func (c *Controller) CreateBulkCommissionSale(ctx context.Context, lines []SaleLine, saleDate string) bool {
	return c.Run(ctx, c.PlanBulkCommissionSale(lines, saleDate))
}

func (c *Controller) DeleteRows(ctx context.Context, ids []record.ID) bool {
	return c.Run(ctx, c.PlanDelete(ids))
}

func (c *Controller) UpdateRow(ctx context.Context, id any, fields map[string]any) bool {
	return c.Run(ctx, c.PlanUpdate(id, fields))
}

func (c *Controller) AddRow(ctx context.Context, fields map[string]any) bool {
	return c.Run(ctx, c.PlanAdd(fields))
}

// Refresh reloads every invoice line into the table.
func (c *Controller) Refresh(ctx context.Context) bool {
	return c.Run(ctx, c.PlanRefresh())
}
