package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/imgajeed76/invgrid/internal/action"
	"github.com/imgajeed76/invgrid/internal/api"
	"github.com/imgajeed76/invgrid/internal/config"
	"github.com/imgajeed76/invgrid/internal/invoice"
	"github.com/imgajeed76/invgrid/internal/logger"
	"github.com/imgajeed76/invgrid/internal/notify"
	"github.com/imgajeed76/invgrid/internal/record"
	"github.com/imgajeed76/invgrid/internal/ui"
	"github.com/imgajeed76/invgrid/internal/ui/styles"
	"github.com/imgajeed76/invgrid/internal/util"
	"github.com/spf13/cobra"
)

// session is what every server-backed command needs: the effective config,
// the log sink and an API client.
// Caller must defer s.Close().
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	client *api.Client
}

// configPath returns the --config flag or the default location.
func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return config.Path()
}

// loadConfig reads the config file and applies environment and flag
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, util.ConfigError(path, err)
	}
	cfg.ApplyEnv()
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		cfg.API.BaseURL = u
	}
	return cfg, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{
		File:       cfg.Log.File,
		Level:      level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, util.ConfigError(configPath(cmd), err)
	}
	for _, k := range cfg.Undecoded() {
		log.Warn("unknown config key", "key", k)
	}

	client := api.New(api.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		MaxRetries:        cfg.API.MaxRetries,
		Logger:            log.With("component", "api"),
	})
	log.Debug("session opened", "command", cmd.Name(), "server", client.BaseURL())
	return &session{cfg: cfg, log: log, client: client}, nil
}

func (s *session) Close() {
	s.log.Sync()
}

// settings maps the config onto the invoice page.
func (s *session) settings() invoice.Settings {
	t := s.cfg.Table
	return invoice.Settings{
		ItemsPerPage:    t.ItemsPerPage,
		MaxVisiblePages: t.MaxVisiblePages,
		Hierarchical:    t.Hierarchical,
		ParentKey:       t.ParentKey,
		RowIdentifier:   t.RowIdentifier,
		PrependNewRows:  t.PrependNewRows,
		ServerSide:      t.ServerSide,
		Debounce:        s.cfg.Debounce(),
		Actions: action.Options{
			Optimistic:    s.cfg.Actions.Optimistic,
			DiscardStale:  s.cfg.Actions.DiscardStale,
			Notifications: s.cfg.Actions.Notifications,
		},
		Logger: s.log,
	}
}

// loadPage builds the invoice page and loads its data.
func (s *session) loadPage(ctx context.Context, n notify.Notifier) (*invoice.Page, error) {
	page := invoice.NewPage(s.settings(), s.client, n)
	if err := page.Load(ctx); err != nil {
		return nil, s.serverError("loading invoices", err)
	}
	return page, nil
}

// serverError turns an API error into a structured error.
func (s *session) serverError(what string, err error) error {
	var te *api.TransportError
	if errors.As(err, &te) {
		return util.ConnectionError(s.client.BaseURL(), err)
	}
	var se *api.ServerError
	if errors.As(err, &se) {
		return util.ServerRejectedError(what, se.Message, err)
	}
	return err
}

// runOperation runs one action with a spinner. Validation warnings and the
// outcome are printed by the spinner's notifier.
func runOperation(ctx context.Context, page *invoice.Page, sp *ui.Spinner, op *action.Operation, label string) error {
	ctrl := page.Actions
	if !ctrl.Begin(op) {
		return util.ActionFailedError(label)
	}
	sp.Start()
	res := ctrl.Execute(ctx, op)
	if !ctrl.Finish(op, res) {
		return util.ActionFailedError(label)
	}
	return nil
}

// runAction opens a session, loads the lines and runs the operation plan
// builds. Output goes to the command's stdout.
func runAction(cmd *cobra.Command, label string, plan func(c *action.Controller) *action.Operation) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	sp := ui.NewSpinnerTo(out, label)
	defer sp.Stop()

	page, err := s.loadPage(cmd.Context(), sp.Notifier())
	if err != nil {
		return err
	}
	op := plan(page.Actions)
	if preview := op.Preview(); len(preview) > 0 {
		printPreview(out, preview)
	}
	return runOperation(cmd.Context(), page, sp, op, label)
}

// printPreview shows the changed fields of an edit, colored like a diff.
func printPreview(w io.Writer, lines []record.DiffLine) {
	for _, l := range lines {
		switch l.Type {
		case record.DiffLineAdd:
			fmt.Fprintln(w, styles.Render(styles.DiffAddLine, "+ "+l.Content))
		case record.DiffLineDelete:
			fmt.Fprintln(w, styles.Render(styles.DiffRemoveLine, "- "+l.Content))
		}
	}
}

// parseIDs converts line id arguments.
func parseIDs(args []string) ([]record.ID, error) {
	ids := make([]record.ID, 0, len(args))
	for _, a := range args {
		id := record.NormalizeID(strings.TrimSpace(a))
		if id.IsZero() || strings.TrimSpace(a) == "" {
			return nil, util.InvalidArgumentError(a, "not a line id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseFields converts key=value arguments. Values that parse as JSON keep
// their JSON type ("12.5", "true", "null"); anything else is a string.
func parseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, util.InvalidArgumentError(a, "expected field=value")
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			fields[k] = decoded
		} else {
			fields[k] = v
		}
	}
	return fields, nil
}
