package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imgajeed76/invgrid/internal/ui/styles"
	"github.com/imgajeed76/invgrid/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invgrid",
		Short: "Browse and edit fabric invoice lines",
		Long: `invgrid is a terminal client for the fabric invoice line server.

It shows invoice lines in a paginated, filterable, sortable grid and runs
the line operations the server offers: delivery locations, tax invoice
numbers, commission sales, edits and deletes. Changes show up immediately
and are rolled back if the server refuses them.

Settings live in config.toml; see 'invgrid config --help'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	// Global flags
	cmd.PersistentFlags().String("api-url", "", "Invoice server URL (overrides api.base_url)")
	cmd.PersistentFlags().String("config", "", "Config file path")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Version flag template to show more info
	cmd.SetVersionTemplate(fmt.Sprintf("invgrid version %s\n  commit: %s\n  built:  %s\n", Version, CommitSHA, BuildDate))

	// Set up pre-run to handle global flags
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		noColor, _ := cmd.Flags().GetBool("no-color")
		if noColor {
			styles.SetNoColor(true)
		}
	}

	cmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newDoctorCmd(),
		newBrowseCmd(),
		newListCmd(),
		newAssignLocationCmd(),
		newRemoveLocationCmd(),
		newAssignTaxCmd(),
		newSellCmd(),
		newSellBulkCmd(),
		newDeleteCmd(),
		newUpdateCmd(),
		newAddCmd(),
		newCompletionCmd(),
	)
	return cmd
}

// Execute runs the command line and prints any error it returns.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		return err
	}
	return nil
}

func printError(err error) {
	// Check if it's a structured InvgridError
	var ie *util.InvgridError
	if errors.As(err, &ie) {
		fmt.Fprintln(os.Stderr, styles.ErrorText(ie.Format()))
		return
	}
	// Simple error - still format nicely
	fmt.Fprintln(os.Stderr, styles.ErrorMsg(err.Error()))
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for invgrid.

To load completions:

Bash:
  $ source <(invgrid completion bash)

Zsh:
  $ invgrid completion zsh > "${fpath[1]}/_invgrid"

Fish:
  $ invgrid completion fish | source

PowerShell:
  PS> invgrid completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "invgrid version %s\n", Version)
			fmt.Fprintf(out, "  commit: %s\n", CommitSHA)
			fmt.Fprintf(out, "  built:  %s\n", BuildDate)
		},
	}
}
