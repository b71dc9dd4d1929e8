// ABOUTME: Settings for the charm backend, kept in a small JSON file beside the replica
// ABOUTME: Records the server, the auto-sync switch and when the replica last synced

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the Charm KV database and the data directory.
	AppName = "dealdesk"

	ConfigFileName = "charm-config.json"

	// DefaultStaleThreshold is how long a replica may go unsynced before
	// opening the store pulls from the server again.
	DefaultStaleThreshold = time.Hour
)

// Config holds charm settings plus the last successful sync, so staleness
// survives restarts.
type Config struct {
	Host           string        `json:"host,omitempty"`
	AutoSync       bool          `json:"auto_sync"`
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`
	LastSync       time.Time     `json:"last_sync,omitempty"`

	// path is where the config was loaded from; empty means in-memory only.
	path string
}

// DefaultConfig returns an unsaved config pointing at the default server.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: DefaultStaleThreshold,
	}
}

// ConfigPath returns the default config location under XDG data home.
func ConfigPath() string {
	return filepath.Join(xdg.DataHome, AppName, ConfigFileName)
}

// LoadConfig loads the config from ConfigPath.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile reads path. A missing or corrupt file yields defaults that
// will be saved back to path.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read charm config: %w", err)
	}

	var stored Config
	if err := json.Unmarshal(data, &stored); err != nil {
		return cfg, nil //nolint:nilerr // a corrupt file falls back to defaults
	}
	if stored.Host != "" {
		cfg.Host = stored.Host
	}
	if stored.StaleThreshold > 0 {
		cfg.StaleThreshold = stored.StaleThreshold
	}
	cfg.AutoSync = stored.AutoSync
	cfg.LastSync = stored.LastSync
	return cfg, nil
}

// Save writes the config back to the file it came from. Configs built in
// memory are not persisted.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}
	return c.SaveFile(c.path)
}

// SaveFile writes the config to path and remembers path for later saves.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode charm config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write charm config: %w", err)
	}
	c.path = path
	return nil
}

// SetAutoSync flips auto-sync and saves.
func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}

// RecordSync stores t as the last successful sync and saves.
func (c *Config) RecordSync(t time.Time) error {
	c.LastSync = t
	return c.Save()
}
