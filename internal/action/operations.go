package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/record"
	"github.com/imgajeed76/invgrid/internal/util"
)

// Operation is one planned business operation. Build it with a Plan method
// and hand it to Run, or to Begin, Execute and Finish.
type Operation struct {
	ID   string
	Kind Kind

	state      State
	seq        uint64
	targets    []record.ID
	err        error
	optimistic bool

	progress        string
	success         string
	failure         string
	transportPrefix string

	// refresh forces a full reload after a successful request.
	refresh bool
	// fresh refreshes must not share a request started earlier.
	fresh   bool
	mutate  func(Table)
	send    func(ctx context.Context, b Backend, res *Result) error

	preview []record.DiffLine
}

func newOperation(kind Kind) *Operation {
	return &Operation{ID: util.NewOperationID(), Kind: kind}
}

// State returns the current lifecycle state.
func (op *Operation) State() State { return op.state }

// Err returns the validation error, if the operation is invalid.
func (op *Operation) Err() error { return op.err }

// Targets returns the rows the operation changes.
func (op *Operation) Targets() []record.ID { return append([]record.ID(nil), op.targets...) }

// Preview is the field diff an update will apply, or nil.
func (op *Operation) Preview() []record.DiffLine { return op.preview }

// Progress is the text shown while the request is in flight.
func (op *Operation) Progress() string { return op.progress }

// SaleLine is one line of a bulk commission sale.
type SaleLine struct {
	ID    record.ID
	Yards float64
}

// ═══════════════════════════════════════════════════════════════════════════
// Delivery location
// ═══════════════════════════════════════════════════════════════════════════

// PlanAssignLocation sets the delivery location on the selected lines.
func (c *Controller) PlanAssignLocation(ids []record.ID, location string) *Operation {
	op := newOperation(KindAssignLocation)
	op.failure = "Failed to assign location"
	op.transportPrefix = "Error assigning location"

	if len(ids) == 0 {
		op.err = invalid("Please select one or more invoice lines.")
		return op
	}
	location = strings.TrimSpace(location)
	if location == "" {
		op.err = invalid("Please select a location.")
		return op
	}

	var lines []api.LocationLine
	for _, id := range ids {
		row, ok := c.table.GetRowByID(id)
		if !ok {
			c.log.Warn("selected row not found", "row", id.String())
			continue
		}
		op.targets = append(op.targets, id)
		lines = append(lines, api.LocationLine{
			InvoiceNumber: row.String(FieldInvoiceNumber),
			ItemName:      row.String(FieldItemName),
			Color:         row.String(FieldColor),
		})
	}
	if len(lines) == 0 {
		op.err = invalid("Invoice line not found")
		return op
	}

	n := len(op.targets)
	targets := op.Targets()
	op.progress = fmt.Sprintf("Assigning location %q to %d line(s)...", location, n)
	op.success = fmt.Sprintf("Location assigned successfully to %d line(s)", n)
	op.mutate = func(t Table) {
		t.UpdateRows(targets, map[string]any{FieldDeliveredLocation: location})
	}
	req := api.AssignLocationRequest{Lines: lines, Location: location}
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		resp, err := b.AssignLocation(ctx, req)
		res.Message = resp.Message
		return err
	}
	return op
}

// PlanRemoveLocation clears the delivery location on the selected lines.
func (c *Controller) PlanRemoveLocation(ids []record.ID) *Operation {
	op := newOperation(KindRemoveLocation)
	op.failure = "Failed to remove location"
	op.transportPrefix = "Error removing location"

	if len(ids) == 0 {
		op.err = invalid("Please select one or more invoice lines.")
		return op
	}

	op.targets = append(op.targets, ids...)
	targets := op.Targets()
	op.progress = fmt.Sprintf("Removing location from %d line(s)...", len(ids))
	op.success = fmt.Sprintf("Location removed from %d line(s)", len(ids))
	op.mutate = func(t Table) {
		t.UpdateRows(targets, map[string]any{FieldDeliveredLocation: nil})
	}
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		resp, err := b.RemoveLocation(ctx, targets)
		res.Message = resp.Message
		return err
	}
	return op
}

// ═══════════════════════════════════════════════════════════════════════════
// Tax invoice
// ═══════════════════════════════════════════════════════════════════════════

// BaseInvoiceNumber is the invoice number without its line suffix.
func BaseInvoiceNumber(invoiceNumber string) string {
	base, _, _ := strings.Cut(invoiceNumber, "-")
	return base
}

// PlanAssignTaxInvoice assigns a tax invoice number. The server applies it
// to every line of the first selected line's invoice, so the table is
// reloaded afterwards.
func (c *Controller) PlanAssignTaxInvoice(ids []record.ID, taxInvoice string) *Operation {
	op := newOperation(KindAssignTax)
	op.failure = "Failed to assign tax invoice number"
	op.transportPrefix = "Error assigning tax invoice number"
	op.refresh = true

	if len(ids) == 0 {
		op.err = invalid("Please select one or more invoice lines.")
		return op
	}
	taxInvoice = strings.TrimSpace(taxInvoice)
	if taxInvoice == "" {
		op.err = invalid("Please enter a tax invoice number.")
		return op
	}

	base := ""
	for _, id := range ids {
		row, ok := c.table.GetRowByID(id)
		if !ok {
			continue
		}
		op.targets = append(op.targets, id)
		if base == "" {
			base = BaseInvoiceNumber(row.String(FieldInvoiceNumber))
		}
	}
	if base == "" {
		op.err = invalid("Invoice line not found")
		return op
	}

	targets := op.Targets()
	op.progress = fmt.Sprintf("Assigning tax invoice number %q...", taxInvoice)
	op.success = "Tax invoice number assigned successfully"
	op.mutate = func(t Table) {
		t.UpdateRows(targets, map[string]any{FieldTaxInvoiceNumber: taxInvoice})
	}
	req := api.AssignTaxInvoiceRequest{BaseInvoiceNumber: base, TaxInvoiceNumber: taxInvoice}
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		resp, err := b.AssignTaxInvoice(ctx, req)
		res.Message = resp.Message
		return err
	}
	return op
}

// ═══════════════════════════════════════════════════════════════════════════
// Commission sales
// ═══════════════════════════════════════════════════════════════════════════

// PlanCommissionSale sells yards from one line. An empty saleDate means today.
// The table is reloaded when the sale empties the line.
func (c *Controller) PlanCommissionSale(id any, yards float64, saleDate string) *Operation {
	op := newOperation(KindCommissionSale)
	op.failure = "Failed to create commission sale"
	op.transportPrefix = "Error creating commission sale"

	lineID := record.NormalizeID(id)
	row, ok := c.table.GetRowByID(lineID)
	if !ok {
		op.err = invalid("Invoice line not found")
		return op
	}
	sold := decimal.NewFromFloat(yards)
	if !sold.IsPositive() {
		op.err = invalid("Yards sold must be greater than zero")
		return op
	}
	available := pendingYards(row)
	if sold.GreaterThan(available) {
		op.err = invalid(fmt.Sprintf("Cannot sell %s yards, only %s yards available", sold, available))
		return op
	}
	if saleDate == "" {
		saleDate = today()
	}

	remaining := available.Sub(sold)
	op.targets = []record.ID{lineID}
	op.refresh = remaining.IsZero()
	op.progress = fmt.Sprintf("Creating commission sale for %s yards...", sold)
	op.mutate = func(t Table) {
		t.UpdateRow(lineID, map[string]any{FieldPendingYards: remaining.InexactFloat64()})
	}
	req := api.CommissionSaleRequest{LineID: lineID, YardsSold: yards, SaleDate: saleDate}
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		resp, err := b.MarkCommissionSale(ctx, req)
		if err != nil {
			return err
		}
		res.Message = fmt.Sprintf("Successfully marked %s yards as commission sale. Commission: %s",
			sold, FormatBaht(resp.CommissionAmount))
		return nil
	}
	return op
}

// PlanBulkCommissionSale sells from several lines in one request. Every line
// is checked before anything is applied; one bad line rejects the whole
// operation. Repeated lines draw on the same pending quantity.
func (c *Controller) PlanBulkCommissionSale(lines []SaleLine, saleDate string) *Operation {
	op := newOperation(KindBulkSale)
	op.failure = "Failed to create bulk commission sales"
	op.transportPrefix = "Error creating bulk commission sales"
	op.refresh = true

	if len(lines) == 0 {
		op.err = invalid("No lines provided for bulk commission sale")
		return op
	}

	remaining := make(map[record.ID]decimal.Decimal, len(lines))
	reqLines := make([]api.BulkCommissionLine, 0, len(lines))
	for _, l := range lines {
		avail, seen := remaining[l.ID]
		if !seen {
			row, ok := c.table.GetRowByID(l.ID)
			if !ok {
				op.err = invalid(fmt.Sprintf("Invoice line %s not found", l.ID))
				return op
			}
			avail = pendingYards(row)
			op.targets = append(op.targets, l.ID)
		}
		sold := decimal.NewFromFloat(l.Yards)
		if !sold.IsPositive() {
			op.err = invalid(fmt.Sprintf("Line %s: Yards sold must be greater than zero", l.ID))
			return op
		}
		if sold.GreaterThan(avail) {
			op.err = invalid(fmt.Sprintf("Line %s: Cannot sell %s yards, only %s yards available", l.ID, sold, avail))
			return op
		}
		remaining[l.ID] = avail.Sub(sold)
		reqLines = append(reqLines, api.BulkCommissionLine{LineID: l.ID, YardsSold: l.Yards})
	}
	if saleDate == "" {
		saleDate = today()
	}

	targets := op.Targets()
	op.progress = fmt.Sprintf("Creating %d commission sales...", len(reqLines))
	op.mutate = func(t Table) {
		for _, id := range targets {
			t.UpdateRow(id, map[string]any{FieldPendingYards: remaining[id].InexactFloat64()})
		}
	}
	req := api.BulkCommissionRequest{SaleDate: saleDate, Lines: reqLines}
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		resp, err := b.MarkCommissionSaleBulk(ctx, req)
		if err != nil {
			return err
		}
		res.Message = fmt.Sprintf("Successfully created %d commission sales. Total commission: %s",
			len(resp.CommissionSales), FormatBaht(resp.TotalCommission))
		return nil
	}
	return op
}

func pendingYards(row record.Record) decimal.Decimal {
	f, ok := record.Float(row[FieldPendingYards])
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ═══════════════════════════════════════════════════════════════════════════
// Rows
// ═══════════════════════════════════════════════════════════════════════════

// PlanDelete deletes the selected lines.
func (c *Controller) PlanDelete(ids []record.ID) *Operation {
	op := newOperation(KindDelete)
	op.failure = "Failed to delete invoice lines"
	op.transportPrefix = "Error deleting invoice lines"

	if len(ids) == 0 {
		op.err = invalid("Please select at least one invoice to delete.")
		return op
	}

	op.targets = append(op.targets, ids...)
	targets := op.Targets()
	op.progress = fmt.Sprintf("Deleting %d invoice line(s)...", len(ids))
	op.success = fmt.Sprintf("Successfully deleted %d invoice line(s)", len(ids))
	op.mutate = func(t Table) { t.RemoveRows(targets) }
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		resp, err := b.DeleteLines(ctx, targets)
		res.Message = resp.Message
		return err
	}
	return op
}

// PlanUpdate merges fields into one line.
func (c *Controller) PlanUpdate(id any, fields map[string]any) *Operation {
	op := newOperation(KindUpdate)
	op.failure = "Failed to update invoice line"
	op.transportPrefix = "Error updating invoice line"

	lineID := record.NormalizeID(id)
	row, ok := c.table.GetRowByID(lineID)
	if !ok {
		op.err = invalid("Invoice line not found")
		return op
	}
	if len(fields) == 0 {
		op.err = invalid("No changes to save")
		return op
	}

	updates := record.Record(fields).Clone()
	after := row.Clone()
	after.Merge(updates)
	op.preview = record.Diff(row, after)

	op.targets = []record.ID{lineID}
	op.progress = "Updating invoice line..."
	op.success = "Invoice line updated successfully"
	op.mutate = func(t Table) { t.UpdateRow(lineID, updates) }
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		_, err := b.UpdateLine(ctx, lineID, updates)
		return err
	}
	return op
}

// PlanAdd creates a line. A placeholder row with a temporary id stands in
// for it until the table is reloaded with the server's copy.
func (c *Controller) PlanAdd(fields map[string]any) *Operation {
	op := newOperation(KindAdd)
	op.failure = "Failed to add invoice line. Please check the data and try again."
	op.transportPrefix = "Error adding invoice line"
	op.refresh = true

	body := record.Record(fields).Clone()
	key := c.table.RowIdentifier()
	delete(body, key)

	placeholder := body.Clone()
	tempID := util.NewTempID()
	placeholder[key] = tempID
	if record.IsBlank(placeholder[FieldInvoiceDate]) {
		placeholder[FieldInvoiceDate] = today()
	}

	op.targets = []record.ID{record.NormalizeID(tempID)}
	op.progress = "Adding new invoice line..."
	op.success = "Invoice line added successfully!"
	op.mutate = func(t Table) { t.AddRow(placeholder) }
	op.send = func(ctx context.Context, b Backend, res *Result) error {
		created, err := b.CreateLine(ctx, body)
		res.Created = created
		return err
	}
	return op
}

// PlanRefresh reloads every line from the server.
func (c *Controller) PlanRefresh() *Operation {
	op := newOperation(KindRefresh)
	op.failure = "Failed to refresh invoice data"
	op.transportPrefix = "Error refreshing invoice data"
	op.refresh = true
	return op
}

// ═══════════════════════════════════════════════════════════════════════════
// Formatting
// ═══════════════════════════════════════════════════════════════════════════

var printer = message.NewPrinter(language.English)

// FormatBaht formats an amount as baht with grouping and two decimals.
func FormatBaht(amount float64) string {
	return printer.Sprintf("฿%.2f", amount)
}

func today() string {
	return time.Now().Format("2006-01-02")
}
