package cli

import (
	"fmt"
	"strings"

	"github.com/imgajeed76/invgrid/internal/filter"
	"github.com/imgajeed76/invgrid/internal/grid"
	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/record"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
	"github.com/imgajeed76/invgrid/internal/ui/table"
	"github.com/imgajeed76/invgrid/internal/util"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print invoice lines",
		Long: `Print one page of invoice lines.

Filters use the same ids as the browser. Multi-select filters take a
comma separated list. By default only lines with pending yards are
shown; use --filter stock=all for every line.

Filters:
  customer, invoice_number, tax_invoice_number, item_name, color,
  delivered_location, status, date_from, date_to (DD/MM/YY),
  stock (all, in_stock, no_stock)

Examples:
  invgrid list
  invgrid list --filter customer=ACME,Bolt --sort pending_yards --desc
  invgrid list --filter stock=all --page 2 --per-page 20
  invgrid list --json`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().StringArrayP("filter", "f", nil, "Filter as id=value (repeatable)")
	cmd.Flags().String("sort", "", "Sort by column key")
	cmd.Flags().Bool("desc", false, "Sort descending")
	cmd.Flags().Int("page", 1, "Page to print")
	cmd.Flags().Int("per-page", 0, "Rows per page (default from config)")
	cmd.Flags().Bool("server-side", false, "Fetch one page at a time from the server")
	cmd.Flags().Bool("hierarchical", false, "Group child lines under their parent")
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().Bool("raw", false, "Output tab separated values")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	settings := s.settings()
	applyTableFlags(cmd, &settings)

	page := invoice.NewPage(settings, s.client, notify.Discard)
	if err := page.Load(cmd.Context()); err != nil {
		return s.serverError("loading invoices", err)
	}

	rawFilters, _ := cmd.Flags().GetStringArray("filter")
	for _, raw := range rawFilters {
		if err := applyFilter(page, raw); err != nil {
			return err
		}
	}

	if col, _ := cmd.Flags().GetString("sort"); col != "" {
		dir := grid.Ascending
		if desc, _ := cmd.Flags().GetBool("desc"); desc {
			dir = grid.Descending
		}
		if !page.Sort(col, dir) {
			return util.InvalidArgumentError(col, "not a sortable column: "+strings.Join(invoice.SortableKeys(page.Columns), ", "))
		}
	}

	if n, _ := cmd.Flags().GetInt("page"); n != page.View.CurrentPage() {
		if !page.View.GoToPage(n) {
			return util.InvalidArgumentError(fmt.Sprint(n), fmt.Sprintf("page out of range (1-%d)", page.View.Page().TotalPages))
		}
	}

	rendered := page.View.Page()
	rows := make([]record.Record, len(rendered.Rows))
	for i, r := range rendered.Rows {
		rows[i] = r.Record
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	rawOut, _ := cmd.Flags().GetBool("raw")
	out := cmd.OutOrStdout()
	if err := table.DisplayRecords(out, page.Columns, rows, table.DisplayOptions{JSON: jsonOut, Raw: rawOut}); err != nil {
		return err
	}
	if !jsonOut && !rawOut && rendered.Info != "" {
		fmt.Fprintln(out, styles.Mute(rendered.Info))
	}
	return nil
}

// applyFilter parses one id=value flag and sets it on the page.
func applyFilter(page *invoice.Page, raw string) error {
	id, value, ok := strings.Cut(raw, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return util.InvalidArgumentError(raw, "expected filter as id=value")
	}
	def, ok := page.Filters.Definition(id)
	if !ok {
		return util.InvalidArgumentError(id, "unknown filter")
	}
	v, err := filter.Parse(def, value)
	if err != nil {
		return util.InvalidArgumentError(raw, err.Error())
	}
	return page.Filters.Set(id, v)
}
