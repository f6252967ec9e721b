package cli

import (
	"fmt"

	"github.com/imgajeed76/invgrid/internal/config"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
	"github.com/imgajeed76/invgrid/internal/util"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Get and set invgrid options",
		Long: `Get and set invgrid configuration options.

The config file lives at the platform config directory (see
'invgrid doctor'), INVGRID_CONFIG or --config.

Examples:
  invgrid config api.base_url                        # Get value
  invgrid config api.base_url http://invoices:5000   # Set value
  invgrid config table.items_per_page 100            # Set value
  invgrid config --list                              # List all config

Keys:
` + config.GenerateHelpText(),
		Args: cobra.MaximumNArgs(2),
		RunE: runConfig,
	}

	cmd.Flags().BoolP("list", "l", false, "List all configuration")

	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	listAll, _ := cmd.Flags().GetBool("list")
	out := cmd.OutOrStdout()

	path := configPath(cmd)
	cfg, err := config.LoadFile(path)
	if err != nil {
		return util.ConfigError(path, err)
	}
	for _, k := range cfg.Undecoded() {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.WarningMsg(fmt.Sprintf("Unknown config key %q in %s", k, path)))
	}

	if listAll {
		for _, key := range config.ListKeys() {
			value, _ := cfg.GetValue(key)
			fmt.Fprintf(out, "%s=%s\n", key, value)
		}
		return nil
	}

	if len(args) == 0 {
		return util.MissingArgumentError("key", "invgrid config <key> [value]")
	}

	key := args[0]
	if len(args) == 1 {
		value, ok := cfg.GetValue(key)
		if !ok {
			return util.InvalidArgumentError(key, "unknown config key")
		}
		fmt.Fprintln(out, value)
		return nil
	}

	if err := cfg.SetValue(key, args[1]); err != nil {
		return util.InvalidArgumentError(args[1], err.Error())
	}
	if err := cfg.SaveFile(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
