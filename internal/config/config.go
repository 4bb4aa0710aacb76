// Package config loads the jarpatch command configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meigma/jarpatch/internal/archive"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = ".jarpatch.yaml"

// Environment variables that override file settings.
const (
	EnvLogLevel = "JARPATCH_LOG_LEVEL"
	EnvWorkDir  = "JARPATCH_WORKDIR"
)

// Config holds the command configuration.
type Config struct {
	Log          LogConfig    `yaml:"log"`
	WorkDir      string       `yaml:"workdir"`
	Output       OutputConfig `yaml:"output"`
	Verify       bool         `yaml:"verify"`
	MaxEntrySize int64        `yaml:"max_entry_size"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// OutputConfig configures the written archive.
type OutputConfig struct {
	Compression string `yaml:"compression"` // preserve, store, deflate
	Level       int    `yaml:"level"`       // flate level, -1 for default
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Compression: string(archive.CompressionPreserve),
			Level:       -1,
		},
		Verify:       true,
		MaxEntrySize: archive.DefaultMaxEntrySize,
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvWorkDir); v != "" {
		c.WorkDir = v
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if !archive.Compression(c.Output.Compression).Valid() {
		return fmt.Errorf("invalid output compression %q (want preserve, store, or deflate)", c.Output.Compression)
	}
	if c.Output.Level < -2 || c.Output.Level > 9 {
		return fmt.Errorf("invalid output level %d (want -2 to 9)", c.Output.Level)
	}
	return nil
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return level, nil
}

// JSONLogs reports whether logs are written as JSON.
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.Log.Format, "json")
}
