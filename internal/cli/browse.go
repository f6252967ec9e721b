package cli

import (
	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/ui/table"
	"github.com/spf13/cobra"
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and edit invoice lines interactively",
		Long: `Open the invoice table in a full-screen browser.

Navigate with arrows or hjkl and select lines with space. Actions apply
to the selected lines, or to the line under the cursor: L assigns a
location, T a tax invoice, C records a commission sale and D deletes.
/ searches invoice numbers and f sets any filter as id=value.

Examples:
  invgrid browse
  invgrid browse --per-page 100
  invgrid browse --server-side`,
		Args: cobra.NoArgs,
		RunE: runBrowse,
	}

	cmd.Flags().Int("per-page", 0, "Rows per page (default from config)")
	cmd.Flags().Bool("server-side", false, "Fetch one page at a time from the server")
	cmd.Flags().Bool("hierarchical", false, "Group child lines under their parent")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	settings := s.settings()
	applyTableFlags(cmd, &settings)

	n := table.NewNotifications()
	page := invoice.NewPage(settings, s.client, n)
	return table.RunBrowser(cmd.Context(), page, n, table.BrowserOptions{
		RequestTimeout: s.cfg.Timeout(),
	})
}

// applyTableFlags lets --per-page, --server-side and --hierarchical override
// the config for one run.
func applyTableFlags(cmd *cobra.Command, s *invoice.Settings) {
	if n, _ := cmd.Flags().GetInt("per-page"); n > 0 {
		s.ItemsPerPage = n
	}
	if cmd.Flags().Changed("server-side") {
		s.ServerSide, _ = cmd.Flags().GetBool("server-side")
	}
	if cmd.Flags().Changed("hierarchical") {
		s.Hierarchical, _ = cmd.Flags().GetBool("hierarchical")
	}
}
