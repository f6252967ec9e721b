// Package invoice composes the generic grid, filter and action packages into
// the fabric invoice line table: its columns, its filters and the page that
// wires them to the backend.
package invoice

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/grid"
	"github.com/imgajeed76/invgrid/internal/record"
	"github.com/imgajeed76/invgrid/internal/util"
)

// Align is the horizontal alignment of a column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column is one displayed column of the invoice table.
type Column struct {
	Key   string // field path, also the sort key
	Title string
	Width int
	Align Align

	// Sortable columns sort by Key with Compare (grid.CompareValues when nil).
	Sortable bool
	Compare  grid.Comparator

	// Format renders the cell. Key's value is stringified when nil.
	Format func(r record.Record) string
}

// Cell renders r's value for the column.
func (c Column) Cell(r record.Record) string {
	if c.Format != nil {
		return c.Format(r)
	}
	return util.CellText(r.String(c.Key))
}

// Field paths not covered by action's field constants.
const (
	FieldCustomer       = "customer.short_name"
	FieldDeliveryNote   = "delivery_note"
	FieldYardsSent      = "yards_sent"
	FieldQuantity       = "quantity"
	FieldYardsConsumed  = "yards_consumed"
	FieldCommissionYds  = "total_commission_yards"
	FieldTotalUsed      = "total_used"
	FieldUnitPrice      = "unit_price"
	FieldCommissionSold = "commission_sales_count"
)

// KeyStatus is the key of the derived status column.
const KeyStatus = "status"

// Columns returns the invoice line columns in display order.
func Columns() []Column {
	return []Column{
		{Key: action.FieldInvoiceDate, Title: "Date", Width: 8, Sortable: true, Compare: grid.CompareDates, Format: func(r record.Record) string { return FormatDate(r[action.FieldInvoiceDate]) }},
		{Key: FieldCustomer, Title: "Customer", Width: 12, Sortable: true},
		{Key: action.FieldInvoiceNumber, Title: "Invoice", Width: 10, Sortable: true},
		{Key: action.FieldTaxInvoiceNumber, Title: "Tax Inv", Width: 10, Sortable: true},
		{Key: action.FieldItemName, Title: "Item", Width: 16, Sortable: true},
		{Key: action.FieldColor, Title: "Color", Width: 10, Sortable: true},
		{Key: FieldDeliveryNote, Title: "DN", Width: 8},
		{Key: FieldYardsSent, Title: "Sent", Width: 9, Align: AlignRight, Sortable: true, Compare: grid.CompareNumeric, Format: func(r record.Record) string { return FormatNumber(YardsSent(r)) }},
		{Key: FieldTotalUsed, Title: "Used", Width: 9, Align: AlignRight, Format: func(r record.Record) string { return FormatNumber(TotalUsed(r)) }},
		{Key: action.FieldPendingYards, Title: "Pending", Width: 9, Align: AlignRight, Sortable: true, Compare: grid.CompareNumeric, Format: func(r record.Record) string { return FormatNumber(Pending(r)) }},
		{Key: FieldUnitPrice, Title: "Price", Width: 8, Align: AlignRight, Sortable: true, Compare: grid.CompareNumeric, Format: func(r record.Record) string { return FormatNumber(num(r, FieldUnitPrice)) }},
		{Key: "total", Title: "Total", Width: 11, Align: AlignRight, Format: func(r record.Record) string { return FormatNumber(YardsSent(r) * num(r, FieldUnitPrice)) }},
		{Key: action.FieldDeliveredLocation, Title: "Location", Width: 12, Sortable: true},
		{Key: KeyStatus, Title: "Status", Width: 14, Format: func(r record.Record) string { return StatusText(r) }},
	}
}

// SortableKeys lists the keys of the sortable columns.
func SortableKeys(cols []Column) []string {
	var keys []string
	for _, c := range cols {
		if c.Sortable {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

func num(r record.Record, path string) float64 {
	v, _ := r.Lookup(path)
	f, _ := record.Float(v)
	return f
}

// YardsSent is the yardage delivered on the line, falling back to quantity.
func YardsSent(r record.Record) float64 {
	if f := num(r, FieldYardsSent); f != 0 {
		return f
	}
	return num(r, FieldQuantity)
}

// TotalUsed is the yardage stitched or sold on commission.
func TotalUsed(r record.Record) float64 {
	if f := num(r, FieldTotalUsed); f != 0 {
		return f
	}
	return num(r, FieldYardsConsumed) + num(r, FieldCommissionYds)
}

// Pending is the yardage still in stock. The server's pending_yards wins
// over the derived value.
func Pending(r record.Record) float64 {
	if v, ok := r[action.FieldPendingYards]; ok {
		if f, ok := record.Float(v); ok {
			return f
		}
	}
	return YardsSent(r) - TotalUsed(r)
}

// Status values reported by Statuses.
const (
	StatusCommission = "Commission"
	StatusStitched   = "Stitched"
	StatusUnused     = "Unused"
)

// Statuses lists what has happened to a line's fabric.
func Statuses(r record.Record) []string {
	var out []string
	if num(r, FieldCommissionSold) > 0 {
		out = append(out, StatusCommission)
	}
	if num(r, FieldYardsConsumed) > 0 {
		out = append(out, StatusStitched)
	}
	if len(out) == 0 {
		out = append(out, StatusUnused)
	}
	return out
}

// StatusText is the compact status cell, e.g. "C 12.00 | S 4.00".
func StatusText(r record.Record) string {
	s := ""
	if num(r, FieldCommissionSold) > 0 {
		s = "C " + FormatNumber(num(r, FieldCommissionYds))
	}
	if f := num(r, FieldYardsConsumed); f > 0 {
		if s != "" {
			s += " | "
		}
		s += "S " + FormatNumber(f)
	}
	return s
}

var printer = message.NewPrinter(language.English)

// FormatNumber renders a number with grouping and two decimals.
func FormatNumber(f float64) string {
	return printer.Sprintf("%.2f", f)
}

// FormatDate renders a record date as DD/MM/YY, or "" when it cannot be
// parsed.
func FormatDate(v any) string {
	t, ok := filter.ParseRecordDate(v)
	if !ok {
		return ""
	}
	return t.Format("02/01/06")
}
