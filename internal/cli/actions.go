package cli

import (
	"strconv"
	"strings"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/util"
	"github.com/spf13/cobra"
)

func newAssignLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-location <location> <id>...",
		Short: "Set the delivered location of invoice lines",
		Long: `Set the delivered location of one or more invoice lines.

Examples:
  invgrid assign-location "Warehouse A" 12 13 14`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return runAction(cmd, "Assign location", func(c *action.Controller) *action.Operation {
				return c.PlanAssignLocation(ids, args[0])
			})
		},
	}
}

func newRemoveLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-location <id>...",
		Short: "Clear the delivered location of invoice lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runAction(cmd, "Remove location", func(c *action.Controller) *action.Operation {
				return c.PlanRemoveLocation(ids)
			})
		},
	}
}

func newAssignTaxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-tax <tax-invoice-number> <id>...",
		Short: "Assign a tax invoice number to an invoice",
		Long: `Assign a tax invoice number to the invoice the given lines belong to.

The number applies to every line of the base invoice (INV001-1 and
INV001-2 both belong to INV001), so the table is reloaded afterwards.

Examples:
  invgrid assign-tax TX-2024-001 12`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return runAction(cmd, "Assign tax invoice", func(c *action.Controller) *action.Operation {
				return c.PlanAssignTaxInvoice(ids, args[0])
			})
		},
	}
}

func newSellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell <id> <yards>",
		Short: "Record a commission sale on one invoice line",
		Long: `Record a commission sale of some of a line's pending yards.

The sale may not exceed the pending yards. Commission is 5% of
yards x unit price.

Examples:
  invgrid sell 12 30
  invgrid sell 12 30 --date 2024-03-21`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			yards, err := parseYards(args[1])
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			return runAction(cmd, "Commission sale", func(c *action.Controller) *action.Operation {
				return c.PlanCommissionSale(ids[0], yards, date)
			})
		},
	}
	cmd.Flags().String("date", "", "Sale date, YYYY-MM-DD (default today)")
	return cmd
}

func newSellBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell-bulk <id>=<yards>...",
		Short: "Record commission sales on several lines at once",
		Long: `Record commission sales on several lines in one request.

Every line is validated first; if any line fails, nothing is sent.

Examples:
  invgrid sell-bulk 12=30 13=5.5 14=10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := make([]action.SaleLine, 0, len(args))
			for _, a := range args {
				rawID, rawYards, ok := strings.Cut(a, "=")
				if !ok {
					return util.InvalidArgumentError(a, "expected <id>=<yards>")
				}
				ids, err := parseIDs([]string{rawID})
				if err != nil {
					return err
				}
				yards, err := parseYards(rawYards)
				if err != nil {
					return err
				}
				lines = append(lines, action.SaleLine{ID: ids[0], Yards: yards})
			}
			date, _ := cmd.Flags().GetString("date")
			return runAction(cmd, "Bulk commission sale", func(c *action.Controller) *action.Operation {
				return c.PlanBulkCommissionSale(lines, date)
			})
		},
	}
	cmd.Flags().String("date", "", "Sale date, YYYY-MM-DD (default today)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete invoice lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return util.NewError("Refusing to delete without --yes").
					WithMessage("Deleted lines cannot be restored.").
					WithSuggestion("invgrid delete --yes " + strings.Join(args, " "))
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runAction(cmd, "Delete", func(c *action.Controller) *action.Operation {
				return c.PlanDelete(ids)
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm the deletion")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <field>=<value>...",
		Short: "Edit fields of an invoice line",
		Long: `Edit fields of one invoice line. The changed fields are shown as a
diff before the request is sent.

Values that parse as JSON keep their type; anything else is a string.

Examples:
  invgrid update 12 color=navy unit_price=12.5`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			return runAction(cmd, "Update", func(c *action.Controller) *action.Operation {
				return c.PlanUpdate(ids[0], fields)
			})
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <field>=<value>...",
		Short: "Create an invoice line",
		Long: `Create an invoice line. invoice_date defaults to today.

Examples:
  invgrid add invoice_number=INV010-1 item_name=Cotton color=red yards_sent=120`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args)
			if err != nil {
				return err
			}
			return runAction(cmd, "Add line", func(c *action.Controller) *action.Operation {
				return c.PlanAdd(fields)
			})
		},
	}
}

func parseYards(s string) (float64, error) {
	yards, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, util.InvalidArgumentError(s, "yards must be a number")
	}
	return yards, nil
}

