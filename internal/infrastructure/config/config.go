// Package config loads budgetcast settings from a YAML file and BUDGETCAST_
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

// EnvPrefix prefixes every environment override, e.g. BUDGETCAST_LEDGER_DSN.
const EnvPrefix = "BUDGETCAST"

type LedgerConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type OverridesConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

type BookingsConfig struct {
	Path    string            `yaml:"path" mapstructure:"path"`
	Format  string            `yaml:"format,omitempty" mapstructure:"format"`
	Columns storage.ColumnMap `yaml:"columns" mapstructure:"columns"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Config is the full budgetcast configuration.
type Config struct {
	User      string          `yaml:"user" mapstructure:"user"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Overrides OverridesConfig `yaml:"overrides" mapstructure:"overrides"`
	Bookings  BookingsConfig  `yaml:"bookings" mapstructure:"bookings"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// Default returns the configuration written by init.
func Default() *Config {
	return &Config{
		User: defaultUser(),
		Ledger: LedgerConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(storage.WorkspaceDir, storage.LedgerFile),
		},
		Overrides: OverridesConfig{
			Backend: "file",
			Path:    filepath.Join(storage.WorkspaceDir, storage.OverridesFile),
		},
		Bookings: BookingsConfig{
			Columns: storage.DefaultColumns(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// SetDefaults registers every key on v so environment overrides apply even
// when the config file omits them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("user", d.User)
	v.SetDefault("ledger.driver", d.Ledger.Driver)
	v.SetDefault("ledger.dsn", d.Ledger.DSN)
	v.SetDefault("overrides.backend", d.Overrides.Backend)
	v.SetDefault("overrides.path", d.Overrides.Path)
	v.SetDefault("bookings.path", d.Bookings.Path)
	v.SetDefault("bookings.format", d.Bookings.Format)
	v.SetDefault("bookings.columns.date", d.Bookings.Columns.Date)
	v.SetDefault("bookings.columns.hours", d.Bookings.Columns.Hours)
	v.SetDefault("bookings.columns.activity", d.Bookings.Columns.Activity)
	v.SetDefault("bookings.columns.project", d.Bookings.Columns.Project)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// BindEnv enables BUDGETCAST_ environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown drivers, backends and formats.
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("invalid ledger.driver %q (want sqlite, postgres or memory)", c.Ledger.Driver)
	}
	if c.Ledger.Driver != "memory" && c.Ledger.DSN == "" {
		return fmt.Errorf("ledger.dsn is required for driver %s", c.Ledger.Driver)
	}
	switch c.Overrides.Backend {
	case "file", "sql", "memory":
	default:
		return fmt.Errorf("invalid overrides.backend %q (want file, sql or memory)", c.Overrides.Backend)
	}
	if c.Overrides.Backend == "sql" && c.Ledger.Driver == "memory" {
		return fmt.Errorf("overrides.backend sql needs a sqlite or postgres ledger")
	}
	switch c.Bookings.Format {
	case "", "json", "csv":
	default:
		return fmt.Errorf("invalid bookings.format %q (want json or csv)", c.Bookings.Format)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// Save writes cfg to the workspace config file.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	ws := storage.NewWorkspace(root)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return ws.WriteFile(storage.ConfigFile, data)
}

// Path returns the workspace config file path for root.
func Path(root string) string {
	return filepath.Join(root, storage.WorkspaceDir, storage.ConfigFile)
}
