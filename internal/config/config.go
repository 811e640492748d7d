// Package config loads harness settings with koanf.
//
// Priority: environment variables (RLGRADE_*) > config file > defaults.
//
//	ledger_path: grades.db
//	fixture_version: v1
//	fixtures_dir: ""
//	strict: false
//	log_level: info
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/rlgrade/internal/fixture"
	"github.com/roach88/rlgrade/harness"
)

// EnvPrefix prefixes every environment override, e.g. RLGRADE_STRICT=true.
const EnvPrefix = "RLGRADE_"

// Config holds harness settings.
type Config struct {
	// LedgerPath is the SQLite verdict ledger. Empty keeps it in memory.
	LedgerPath string `koanf:"ledger_path"`

	// FixtureVersion selects an embedded fixture set.
	FixtureVersion string `koanf:"fixture_version"`

	// FixturesDir loads fixtures from disk instead, overriding
	// FixtureVersion.
	FixturesDir string `koanf:"fixtures_dir"`

	// Strict makes soft warnings fail every suite regardless of its own
	// policy.
	Strict bool `koanf:"strict"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

func defaults() map[string]any {
	return map[string]any{
		"ledger_path":     "",
		"fixture_version": fixture.Current,
		"fixtures_dir":    "",
		"strict":          false,
		"log_level":       "info",
	}
}

// Load reads configuration. An empty path or a missing file falls back to
// defaults and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" && fileExists(path) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	if c.FixturesDir == "" && c.FixtureVersion == "" {
		return fmt.Errorf("fixture_version is required when fixtures_dir is empty")
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: want debug, info, warn, or error", c.LogLevel)
	}
	return lvl, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// Harness builds a harness.Config whose logger writes to w. Fixtures are
// loaded when the harness is created.
func (c *Config) Harness(w io.Writer) (harness.Config, error) {
	logger, err := c.Logger(w)
	if err != nil {
		return harness.Config{}, err
	}
	return harness.Config{
		FixtureVersion: c.FixtureVersion,
		FixturesDir:    c.FixturesDir,
		LedgerPath:     c.LedgerPath,
		Logger:         logger,
		Strict:         c.Strict,
	}, nil
}

// envTransform maps RLGRADE_LEDGER_PATH to ledger_path.
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
