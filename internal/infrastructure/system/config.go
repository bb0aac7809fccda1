// Package system provides infrastructure for system-level configuration:
// the global config file (~/.mortise/config.yaml) that tunes the store,
// lock and registry settings.
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the global configuration file (~/.mortise/config.yaml).
type Config struct {
	// StoreRoot is where plugins install. Supports a leading ~.
	StoreRoot string `yaml:"store_root"`

	// LockWaitMS bounds how long a store-lock acquire may block.
	LockWaitMS int `yaml:"lock_wait_ms"`

	// LockStaleMS is the age past which an existing lock file is presumed
	// abandoned and reclaimed.
	LockStaleMS int `yaml:"lock_stale_ms"`

	Registry RegistryConfig `yaml:"registry"`
	Entry    EntryConfig    `yaml:"entry"`

	// IgnoredDependencies are never installed. Entries are exact names or
	// regular expressions matched against the whole dependency name.
	IgnoredDependencies []string `yaml:"ignored_dependencies"`

	// StaticDependencies are supplied by the host out-of-band and never
	// installed.
	StaticDependencies []string `yaml:"static_dependencies"`
}

// RegistryConfig points at the remote package index.
type RegistryConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// EntryConfig names the default plugin entry file.
type EntryConfig struct {
	// File is used when a manifest declares no main file.
	File string `yaml:"file"`
	// Extension is appended to entry paths without one.
	Extension string `yaml:"extension"`
}

// LockWait returns the lock acquire timeout as a duration.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.LockWaitMS) * time.Millisecond
}

// LockStale returns the lock staleness threshold as a duration.
func (c *Config) LockStale() time.Duration {
	return time.Duration(c.LockStaleMS) * time.Millisecond
}

// DefaultConfig returns a Config with working defaults for all fields.
// Used when no system config file exists.
func DefaultConfig() *Config {
	return &Config{
		StoreRoot:   "~/.mortise/plugins",
		LockWaitMS:  30_000,
		LockStaleMS: 60_000,
		Registry: RegistryConfig{
			URL: "https://registry.mortise.dev",
		},
		Entry: EntryConfig{
			File:      "main.wasm",
			Extension: ".wasm",
		},
		IgnoredDependencies: []string{},
		StaticDependencies:  []string{},
	}
}

// ConfigLoader loads system configuration from disk.
type ConfigLoader struct{}

// NewConfigLoader creates a new system config loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

// Load loads the system configuration from path. A missing file yields
// DefaultConfig(), so mortise works out of the box; fields absent from the
// file keep their defaults.
func (l *ConfigLoader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	//nolint:gosec // G304: path is the user's own config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	return config, nil
}

// DefaultConfigPath returns ~/.mortise/config.yaml, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mortise", "config.yaml")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
