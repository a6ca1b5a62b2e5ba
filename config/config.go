// Package config loads the circulation service settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "config/config.yaml"

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type HTTPConfig struct {
	Addr         string   `yaml:"addr"`
	Mode         string   `yaml:"mode"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type ReportsConfig struct {
	PopularLimit int `yaml:"popular_limit"`
}

type Config struct {
	Database string        `yaml:"database"`
	Outbox   string        `yaml:"outbox"`
	Snapshot string        `yaml:"snapshot"`
	Log      LogConfig     `yaml:"log"`
	HTTP     HTTPConfig    `yaml:"http"`
	Reports  ReportsConfig `yaml:"reports"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Database: "library.db",
		Outbox:   "outbox.db",
		Snapshot: "library_data.json",
		Log:      LogConfig{Level: "info"},
		HTTP:     HTTPConfig{Addr: ":8080", Mode: "release"},
		Reports:  ReportsConfig{PopularLimit: 10},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	buf, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if strings.TrimSpace(c.Outbox) == "" {
		errs = append(errs, errors.New("outbox path is empty"))
	}
	if strings.TrimSpace(c.Snapshot) == "" {
		errs = append(errs, errors.New("snapshot path is empty"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.HTTP.Mode != "dev" && c.HTTP.Mode != "release" {
		errs = append(errs, fmt.Errorf("http mode must be dev or release, got %q", c.HTTP.Mode))
	}
	if c.Reports.PopularLimit <= 0 {
		errs = append(errs, fmt.Errorf("reports.popular_limit must be positive, got %d", c.Reports.PopularLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
