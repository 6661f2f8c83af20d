// Package config handles the CLI configuration: where project directories
// live and how verbose logging should be.
//
// Config is stored at $XDG_CONFIG_HOME/dockhand/config.yaml (defaults to
// ~/.config/dockhand/config.yaml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user settings persisted between runs.
type Config struct {
	// Root is the directory holding one subdirectory per project.
	Root string `yaml:"root"`
	// LogLevel overrides the default log level (debug, info, warn, error).
	LogLevel string `yaml:"log-level,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/dockhand/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "dockhand", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "dockhand", "config.yaml")
}

// DefaultRoot is used when no root has been configured.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dockhand-projects"
	}
	return filepath.Join(home, "dockhand-projects")
}

// Load reads the config file. If the file does not exist, a Config with the
// default root is returned (not an error).
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{Root: DefaultRoot()}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Root == "" {
		cfg.Root = DefaultRoot()
	}
	return &cfg, nil
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
