// Package config handles global shed configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/aidanlsb/shed/internal/dispatch"
)

// Config represents the global shed configuration.
//
// Values come from, in increasing priority: built-in defaults, the TOML file,
// and SHED_* environment variables.
type Config struct {
	// Prototypes is the path to a prototype catalog. Empty uses the built-in one.
	Prototypes string `toml:"prototypes" env:"SHED_PROTOTYPES"`

	// LiftPolicy controls what a lifted sequence does after a failed element:
	// "continue" (default) or "abort".
	LiftPolicy string `toml:"lift_policy" env:"SHED_LIFT_POLICY"`

	Log LogConfig `toml:"log"`
	UI  UIConfig  `toml:"ui"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" env:"SHED_LOG_LEVEL"`
	// Format is "text" or "json".
	Format string `toml:"format" env:"SHED_LOG_FORMAT"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an ANSI color code ("0" to "255") or a hex color ("#RRGGBB").
	Accent string `toml:"accent" env:"SHED_UI_ACCENT"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LiftPolicy: string(dispatch.PolicyContinue),
		Log:        LogConfig{Level: "warn", Format: "text"},
	}
}

// Load loads the configuration from the default location.
// Returns defaults if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path on top of the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads the file (explicit path, or the default location), applies
// environment overrides and validates the result.
func Resolve(explicitPath string) (*Config, string, error) {
	path := ResolveConfigPath(explicitPath)

	var (
		cfg *Config
		err error
	)
	if strings.TrimSpace(explicitPath) != "" {
		cfg, err = LoadFrom(path)
	} else {
		cfg, err = Load()
	}
	if err != nil {
		return nil, path, err
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// ApplyEnv overrides cfg with any SHED_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := dispatch.ParseLiftPolicy(c.LiftPolicy); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed lift policy. Call Validate first.
func (c *Config) Policy() dispatch.LiftPolicy {
	p, _ := dispatch.ParseLiftPolicy(c.LiftPolicy)
	return p
}

// ResolveConfigPath returns the explicit path when set, otherwise DefaultPath.
func ResolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	return DefaultPath()
}

// DefaultPath returns the default config file path.
// Checks ~/.config/shed/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "shed", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "shed", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}
