// Package table renders invoice lines: as an interactive grid browser, an
// aligned plain-text table, JSON, or raw tab-separated output.
//
// The browser is used by `invgrid browse`; the plain formatters back
// `invgrid list`.
package table

import (
	"io"

	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/record"
)

// DisplayOptions controls how results are rendered.
type DisplayOptions struct {
	// JSON outputs the records as a JSON array of objects.
	JSON bool
	// Raw outputs cells as tab-separated values (for piping).
	Raw bool
}

// DisplayRecords writes rows to w in the mode opts selects.
func DisplayRecords(w io.Writer, columns []invoice.Column, rows []record.Record, opts DisplayOptions) error {
	switch {
	case opts.JSON:
		return PrintJSON(w, rows)
	case opts.Raw:
		PrintRaw(w, columns, rows)
		return nil
	}
	PrintPlainTable(w, columns, rows)
	return nil
}
