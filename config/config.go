// Package config loads clientsdb settings from defaults, an optional YAML
// file, CLIENTSDB_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"clientsdb/report"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "CLIENTSDB_"

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMemory   = "memory"
)

// DefaultFiles are searched in the working directory when no file is given
var DefaultFiles = []string{"clientsdb.yaml", "clientsdb.yml"}

// Config holds the connection and output settings
type Config struct {
	Driver   string `koanf:"driver"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
	LogLevel string `koanf:"log_level"`
	Output   string `koanf:"output"`

	// File is the config file that was read, if any
	File string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"driver":    DriverPostgres,
		"host":      "localhost",
		"port":      5432,
		"database":  "clients_db",
		"user":      "postgres",
		"password":  "postgres",
		"sslmode":   "disable",
		"log_level": "info",
		"output":    report.FormatTuple,
	}
}

// findConfigFile returns the explicit path, or the first default file present
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds a Config. Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// CLIENTSDB_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only flags set on the command line override lower layers
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{DriverPostgres, DriverPgx, DriverMemory}, c.Driver) {
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if !slices.Contains(report.Formats, c.Output) {
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output))
	}
	if c.Driver != DriverMemory && c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}
	return errors.Join(errs...)
}
