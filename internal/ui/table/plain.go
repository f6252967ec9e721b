package table

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/record"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
)

// PrintJSON outputs records as a JSON array of objects.
func PrintJSON(w io.Writer, rows []record.Record) error {
	if rows == nil {
		rows = []record.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// PrintRaw outputs one tab-separated line of cells per record.
func PrintRaw(w io.Writer, columns []invoice.Column, rows []record.Record) {
	cells := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			cells[i] = strings.ReplaceAll(c.Cell(r), "\t", " ")
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}

// PrintPlainTable prints an aligned table for non-TTY output.
// Shows full content without truncation.
func PrintPlainTable(w io.Writer, columns []invoice.Column, rows []record.Record) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No data found")
		return
	}

	cells := make([][]string, len(rows))
	colWidths := make([]int, len(columns))
	for i, c := range columns {
		colWidths[i] = lipgloss.Width(c.Title)
	}
	for ri, r := range rows {
		cells[ri] = make([]string, len(columns))
		for i, c := range columns {
			val := styleCell(c, r, c.Cell(r))
			cells[ri][i] = val
			if vw := lipgloss.Width(val); vw > colWidths[i] {
				colWidths[i] = vw
			}
		}
	}

	line := func(vals []string) {
		for i, val := range vals {
			if i > 0 {
				fmt.Fprint(w, "  ")
			}
			fmt.Fprint(w, align(val, colWidths[i], columns[i].Align))
		}
		fmt.Fprintln(w)
	}

	titles := make([]string, len(columns))
	seps := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.Title
		seps[i] = strings.Repeat("─", colWidths[i])
	}
	line(titles)
	line(seps)
	for _, row := range cells {
		line(row)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

// styleCell colors the invoice number and status cells.
func styleCell(c invoice.Column, r record.Record, text string) string {
	switch c.Key {
	case action.FieldInvoiceNumber:
		return styles.Invoice(text)
	case invoice.KeyStatus:
		return styles.Status(invoice.Statuses(r)[0], text)
	}
	return text
}

// align pads s to width on the side opposite its alignment.
func align(s string, width int, a invoice.Align) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if a == invoice.AlignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// Truncate shortens a string to fit width, adding "..." if needed.
func Truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width > 3 {
		return string(r[:width-3]) + "..."
	}
	return string(r[:width])
}

// PadOrTruncate pads or truncates to exact width (for the browser).
func PadOrTruncate(s string, width int, a invoice.Align) string {
	if len([]rune(s)) > width {
		return Truncate(s, width)
	}
	return align(s, width, a)
}
