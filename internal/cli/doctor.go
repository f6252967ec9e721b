package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/config"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and server connectivity",
		Long: `Run diagnostics to check if invgrid is properly configured.

This command checks:
  - Config file location and syntax
  - Unknown config keys
  - Log file settings
  - Invoice server connectivity`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Boldf("invgrid doctor"))
	fmt.Fprintln(out)

	allOK := true

	// Config file
	path := configPath(cmd)
	fmt.Fprint(out, "Checking config file... ")
	cfg, err := config.LoadFile(path)
	switch {
	case err != nil:
		fmt.Fprintln(out, styles.Errorf("FAILED"))
		fmt.Fprintf(out, "  Error: %v\n", err)
		cfg = config.DefaultConfig()
		allOK = false
	case fileExists(path):
		fmt.Fprintln(out, styles.Successf("OK")+fmt.Sprintf(" (%s)", path))
	default:
		fmt.Fprintln(out, styles.Mute("NOT CREATED")+fmt.Sprintf(" (%s)", path))
		fmt.Fprintln(out, "  Defaults are used until 'invgrid config <key> <value>' writes one")
	}
	cfg.ApplyEnv()
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		cfg.API.BaseURL = u
	}

	fmt.Fprint(out, "Checking config keys... ")
	if keys := cfg.Undecoded(); len(keys) > 0 {
		fmt.Fprintln(out, styles.Warningf("%d unknown", len(keys)))
		for _, k := range keys {
			fmt.Fprintf(out, "  - %s\n", k)
		}
	} else {
		fmt.Fprintln(out, styles.Successf("OK"))
	}

	fmt.Fprint(out, "Checking log file... ")
	if cfg.Log.File == "" {
		fmt.Fprintln(out, styles.Mute("DISABLED"))
	} else {
		fmt.Fprintln(out, styles.Successf("OK")+fmt.Sprintf(" (%s, level %s)", cfg.Log.File, cfg.Log.Level))
	}

	// Server
	fmt.Fprint(out, "Checking invoice server... ")
	client := api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.Timeout(),
		MaxRetries: 0,
	})
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	lines, err := client.FetchInvoices(ctx)
	if err != nil {
		fmt.Fprintln(out, styles.Errorf("FAILED"))
		fmt.Fprintf(out, "  %s: %s\n", client.BaseURL(), api.UserMessage(err, err.Error()))
		fmt.Fprintln(out, "  Set the server with 'invgrid config api.base_url <url>'")
		allOK = false
	} else {
		fmt.Fprintln(out, styles.Successf("OK")+fmt.Sprintf(" (%s, %d lines in %s)",
			client.BaseURL(), len(lines), time.Since(start).Round(time.Millisecond)))
	}

	fmt.Fprintln(out)
	if allOK {
		fmt.Fprintln(out, styles.Successf("All checks passed!"))
	} else {
		fmt.Fprintln(out, styles.Warningf("Some issues were found. See above for details."))
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
