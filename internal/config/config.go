// Package config provides configuration loading for the profiler.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/profiler"
)

const (
	// DefaultDir is the configuration directory under the user's home.
	DefaultDir = ".exetrix"
	// ConfigFile is the configuration file name.
	ConfigFile = "config.yaml"
	// EnvConfigDir overrides the configuration directory.
	EnvConfigDir = "EXETRIX_CONFIG"
)

// Config is the profiler configuration.
type Config struct {
	// ReportDir is the default report output directory.
	ReportDir string `yaml:"report_dir,omitempty"`
	// LogLevel sets logger verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
	// Profiler configures classification and sampling.
	Profiler profiler.Config `yaml:"profiler,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReportDir: "exetrix-report",
		LogLevel:  "info",
		Profiler:  profiler.DefaultConfig(),
	}
}

// Path returns the config file location: $EXETRIX_CONFIG/config.yaml when
// the env var is set, otherwise ~/.exetrix/config.yaml.
func Path() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, ConfigFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Containerized environments without a home directory; Load
		// falls back to defaults since the file won't exist.
		home = "/tmp/exetrix-fallback"
	}
	return filepath.Join(home, DefaultDir, ConfigFile)
}

// Load reads the configuration, returning defaults when no file exists.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the configuration from an explicit path. Values absent
// from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is the operator's config file.
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
