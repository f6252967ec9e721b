package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/imgajeed76/invgrid/internal/record"
)

// LocationLine identifies the lines a delivery location applies to.
type LocationLine struct {
	InvoiceNumber string `json:"invoice_number"`
	ItemName      string `json:"item_name"`
	Color         string `json:"color"`
}

type AssignLocationRequest struct {
	Lines    []LocationLine `json:"lines"`
	Location string         `json:"location"`
}

type LineIDsRequest struct {
	LineIDs []record.ID `json:"line_ids"`
}

type AssignTaxInvoiceRequest struct {
	BaseInvoiceNumber string `json:"base_invoice_number"`
	TaxInvoiceNumber  string `json:"tax_invoice_number"`
}

type CommissionSaleRequest struct {
	LineID    record.ID `json:"line_id"`
	YardsSold float64   `json:"yards_sold"`
	SaleDate  string    `json:"sale_date"`
}

type CommissionSaleResponse struct {
	CommissionAmount float64 `json:"commission_amount"`
	Message          string  `json:"message,omitempty"`
}

type BulkCommissionLine struct {
	LineID    record.ID `json:"line_id"`
	YardsSold float64   `json:"yards_sold"`
}

type BulkCommissionRequest struct {
	SaleDate string               `json:"sale_date"`
	Lines    []BulkCommissionLine `json:"lines"`
}

type BulkCommissionResponse struct {
	CommissionSales []record.Record `json:"commission_sales"`
	TotalCommission float64         `json:"total_commission"`
	Message         string          `json:"message,omitempty"`
}

// MessageResponse is the body of mutations that only report a message.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}

// Page is one server-side page of invoice lines.
type Page struct {
	Items []record.Record `json:"items"`
	Total int             `json:"total"`
}

// FetchInvoices loads every invoice line. Concurrent calls share one request;
// each caller gets its own copies of the records. A shared request may have
// started before the caller's last write landed; use ReloadInvoices after a
// mutation.
func (c *Client) FetchInvoices(ctx context.Context) ([]record.Record, error) {
	v, err, shared := c.group.Do("invoices", func() (any, error) {
		return c.fetchInvoices(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("invoice fetch shared with a concurrent caller")
	}
	return cloneRows(v.([]record.Record)), nil
}

// ReloadInvoices loads every invoice line with a request of its own, so the
// result reflects every write that completed before the call.
func (c *Client) ReloadInvoices(ctx context.Context) ([]record.Record, error) {
	rows, err := c.fetchInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return cloneRows(rows), nil
}

func (c *Client) fetchInvoices(ctx context.Context) ([]record.Record, error) {
	var rows []record.Record
	if err := c.get(ctx, "/api/invoices", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func cloneRows(rows []record.Record) []record.Record {
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, r.Clone())
		}
	}
	return out
}

// FetchPage loads one page of invoice lines with the total count.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) (Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("per_page", strconv.Itoa(max(perPage, 1)))

	var p Page
	err := c.get(ctx, "/api/invoices?"+q.Encode(), &p)
	return p, err
}

func (c *Client) AssignLocation(ctx context.Context, req AssignLocationRequest) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/invoices/assign-location", req, &resp)
	return resp, err
}

func (c *Client) RemoveLocation(ctx context.Context, ids []record.ID) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/invoices/remove-location", LineIDsRequest{LineIDs: ids}, &resp)
	return resp, err
}

func (c *Client) AssignTaxInvoice(ctx context.Context, req AssignTaxInvoiceRequest) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/invoices/assign-tax-invoice", req, &resp)
	return resp, err
}

func (c *Client) MarkCommissionSale(ctx context.Context, req CommissionSaleRequest) (CommissionSaleResponse, error) {
	var resp CommissionSaleResponse
	err := c.do(ctx, http.MethodPost, "/api/invoices/mark-commission-sale", req, &resp)
	return resp, err
}

func (c *Client) MarkCommissionSaleBulk(ctx context.Context, req BulkCommissionRequest) (BulkCommissionResponse, error) {
	var resp BulkCommissionResponse
	err := c.do(ctx, http.MethodPost, "/api/invoices/mark-commission-sale-bulk", req, &resp)
	return resp, err
}

func (c *Client) DeleteLines(ctx context.Context, ids []record.ID) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/invoices/delete-multiple", LineIDsRequest{LineIDs: ids}, &resp)
	return resp, err
}

func (c *Client) UpdateLine(ctx context.Context, id record.ID, fields map[string]any) (MessageResponse, error) {
	var resp MessageResponse
	path := fmt.Sprintf("/api/invoices/%s/update", url.PathEscape(id.String()))
	err := c.do(ctx, http.MethodPut, path, fields, &resp)
	return resp, err
}

// CreateLine creates an invoice line and returns the stored record.
func (c *Client) CreateLine(ctx context.Context, fields map[string]any) (record.Record, error) {
	var created record.Record
	err := c.do(ctx, http.MethodPost, "/api/invoices", fields, &created)
	return created, err
}
