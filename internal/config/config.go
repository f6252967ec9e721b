package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override the config file.
const (
	EnvAPIURL = "INVGRID_API_URL"
	EnvConfig = "INVGRID_CONFIG"
)

// Config represents the invgrid config.toml file.
// Defaults come from the default tags; see DefaultConfig.
type Config struct {
	API     APIConfig     `toml:"api"`
	Table   TableConfig   `toml:"table"`
	Filter  FilterConfig  `toml:"filter"`
	Actions ActionsConfig `toml:"actions"`
	Log     LogConfig     `toml:"log"`

	undecoded []string
}

// APIConfig contains invoice server settings
type APIConfig struct {
	BaseURL           string  `toml:"base_url" config:"api.base_url" default:"http://localhost:5000" desc:"Invoice server URL"`
	TimeoutSeconds    int     `toml:"timeout_seconds" config:"api.timeout_seconds" default:"30" min:"1" max:"600" desc:"Request timeout in seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second" config:"api.requests_per_second" default:"10" min:"0" desc:"Request rate limit (0 = unlimited)"`
	Burst             int     `toml:"burst" config:"api.burst" default:"5" min:"1" max:"1000" desc:"Requests allowed in a burst"`
	MaxRetries        int     `toml:"max_retries" config:"api.max_retries" default:"2" min:"0" max:"10" desc:"Retries for failed reads"`
}

// TableConfig contains table layout settings
type TableConfig struct {
	ItemsPerPage    int    `toml:"items_per_page" config:"table.items_per_page" default:"50" min:"1" max:"10000" desc:"Rows per page"`
	MaxVisiblePages int    `toml:"max_visible_pages" config:"table.max_visible_pages" default:"5" min:"1" max:"50" desc:"Page numbers shown in the pager"`
	Hierarchical    bool   `toml:"hierarchical" config:"table.hierarchical" default:"false" desc:"Group child lines under their parent"`
	ParentKey       string `toml:"parent_key" config:"table.parent_key" default:"parent_id" desc:"Field linking a child to its parent"`
	RowIdentifier   string `toml:"row_identifier" config:"table.row_identifier" default:"id" desc:"Field holding the row id"`
	PrependNewRows  bool   `toml:"prepend_new_rows" config:"table.prepend_new_rows" default:"true" desc:"Show added rows first"`
	ServerSide      bool   `toml:"server_side" config:"table.server_side" default:"false" desc:"Fetch one page at a time from the server"`
}

// FilterConfig contains filter settings
type FilterConfig struct {
	DebounceMS int `toml:"debounce_ms" config:"filter.debounce_ms" default:"500" min:"1" max:"10000" desc:"Idle time before typed filters apply"`
}

// ActionsConfig contains settings for invoice operations
type ActionsConfig struct {
	Optimistic    bool `toml:"optimistic" config:"actions.optimistic" default:"true" desc:"Show changes before the server confirms them"`
	DiscardStale  bool `toml:"discard_stale" config:"actions.discard_stale" default:"true" desc:"Ignore refreshes superseded by newer operations"`
	Notifications bool `toml:"notifications" config:"actions.notifications" default:"true" desc:"Show operation notifications"`
}

// LogConfig contains log file settings
type LogConfig struct {
	File       string `toml:"file" config:"log.file" desc:"Log file (empty = no logging)"`
	Level      string `toml:"level" config:"log.level" default:"info" desc:"debug, info, warn or error"`
	MaxSizeMB  int    `toml:"max_size_mb" config:"log.max_size_mb" default:"10" min:"1" max:"1024" desc:"Rotate the log at this size"`
	MaxBackups int    `toml:"max_backups" config:"log.max_backups" default:"3" min:"0" max:"100" desc:"Rotated logs to keep"`
	Compress   bool   `toml:"compress" config:"log.compress" default:"false" desc:"Gzip rotated logs"`
}

// DefaultConfig returns a new config with every key at its default value
func DefaultConfig() *Config {
	cfg := &Config{}
	for _, f := range getConfigFields() {
		if f.Default != "" {
			// Defaults are validated by TestDefaultsAreValid.
			_ = setFieldValue(cfg, f.Key, f.Default)
		}
	}
	return cfg
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Debounce returns the filter debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Filter.DebounceMS) * time.Millisecond
}

// Undecoded returns keys present in the file that invgrid does not know.
func (c *Config) Undecoded() []string {
	return c.undecoded
}

// Path returns the path to the config file.
// INVGRID_CONFIG wins; otherwise follows the XDG base directory layout on Linux,
// platform conventions elsewhere.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}

	var configDir string
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, "Library", "Application Support", "invgrid")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "invgrid")
	default: // Linux and others - follow XDG
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "invgrid")
		} else {
			home, _ := os.UserHomeDir()
			configDir = filepath.Join(home, ".config", "invgrid")
		}
	}

	return filepath.Join(configDir, "config.toml")
}

// Load reads the config file, falling back to defaults if it doesn't exist,
// and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile(Path())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile reads one config file. Keys missing from the file keep their
// defaults, and numeric keys set out of range are reset to them.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, k := range md.Undecoded() {
		cfg.undecoded = append(cfg.undecoded, k.String())
	}
	sort.Strings(cfg.undecoded)

	cfg.clampToDefaults()
	return cfg, nil
}

// clampToDefaults resets int fields that violate their min/max.
func (c *Config) clampToDefaults() {
	for _, f := range getConfigFields() {
		if f.Type != "int" {
			continue
		}
		v, ok := fieldByKey(c, f.Key)
		if !ok {
			continue
		}
		if err := validateInt(f, int(v.Int())); err != nil && f.Default != "" {
			_ = setFieldValue(c, f.Key, f.Default)
		}
	}
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if u := os.Getenv(EnvAPIURL); u != "" {
		c.API.BaseURL = u
	}
}

// Save writes the config file
func (c *Config) Save() error {
	return c.SaveFile(Path())
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// GetValue returns a config value by key (uses reflection)
func (c *Config) GetValue(key string) (string, bool) {
	return getFieldValue(c, key)
}

// SetValue sets a config value by key (uses reflection with validation)
func (c *Config) SetValue(key, value string) error {
	return setFieldValue(c, key, value)
}
