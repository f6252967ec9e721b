package invoice

import (
	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/record"
)

// Filter ids.
const (
	FilterCustomer   = "customer"
	FilterInvoice    = "invoice_number"
	FilterTaxInvoice = "tax_invoice_number"
	FilterItem       = "item_name"
	FilterColor      = "color"
	FilterLocation   = "delivered_location"
	FilterStatus     = "status"
	FilterDateFrom   = "date_from"
	FilterDateTo     = "date_to"
	FilterStock      = "stock"
)

// Stock filter choices.
const (
	StockAll = "all"
	StockIn  = "in_stock"
	StockOut = "no_stock"
)

// Filters returns the invoice line filter definitions.
func Filters() []filter.Definition {
	return []filter.Definition{
		{ID: FilterCustomer, Label: "Customer", Type: filter.Dropdown, MultiSelect: true, DataKey: FieldCustomer},
		{ID: FilterInvoice, Label: "Invoice #", Type: filter.TextInput, Placeholder: "INV001"},
		{ID: FilterTaxInvoice, Label: "Tax invoice #", Type: filter.TextInput},
		{ID: FilterItem, Label: "Item", Type: filter.Dropdown, MultiSelect: true},
		{ID: FilterColor, Label: "Color", Type: filter.Dropdown, MultiSelect: true},
		{ID: FilterLocation, Label: "Location", Type: filter.Dropdown},
		{
			ID: FilterStatus, Label: "Status", Type: filter.Dropdown, MultiSelect: true,
			Extract:   Statuses,
			Predicate: matchStatus,
		},
		{ID: FilterDateFrom, Label: "From", Type: filter.DateInput, DataKey: action.FieldInvoiceDate, Range: filter.From, Placeholder: "DD/MM/YY"},
		{ID: FilterDateTo, Label: "To", Type: filter.DateInput, DataKey: action.FieldInvoiceDate, Range: filter.To, Placeholder: "DD/MM/YY"},
		{
			ID: FilterStock, Label: "Stock", Type: filter.Radio,
			Options: []filter.Option{
				{Value: StockIn, Label: "In stock"},
				{Value: StockOut, Label: "No stock"},
				{Value: StockAll, Label: "All"},
			},
			Default:   StockIn,
			Predicate: matchStock,
		},
	}
}

// matchStatus passes lines having any of the selected statuses.
func matchStatus(r record.Record, v filter.Value, _ filter.Values) bool {
	selected, ok := v.(filter.Multi)
	if !ok {
		return true
	}
	for _, s := range Statuses(r) {
		if selected.Contains(s) {
			return true
		}
	}
	return false
}

// matchStock splits lines by whether yardage is still pending.
func matchStock(r record.Record, v filter.Value, _ filter.Values) bool {
	switch filter.String(v) {
	case StockIn:
		return Pending(r) > 0
	case StockOut:
		return Pending(r) <= 0
	}
	return true
}
