// ABOUTME: Application configuration from YAML file, .env and environment
// ABOUTME: Resolves backend selection, storage paths, HTTP address and rate limits
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const AppName = "dealdesk"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCharm    = "charm"
)

// Config holds every runtime setting. Precedence: flags > env > file > defaults.
type Config struct {
	Backend     string  `yaml:"backend"`
	DBPath      string  `yaml:"db_path"`
	DatabaseURL string  `yaml:"database_url"`
	HTTPAddr    string  `yaml:"http_addr"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst   int     `yaml:"rate_burst"`
	CharmHost   string  `yaml:"charm_host"`
	Seed        bool    `yaml:"seed"`
	Verbose     bool    `yaml:"verbose"`
}

func Default() *Config {
	return &Config{
		Backend:   BackendSQLite,
		DBPath:    DefaultDBPath(),
		HTTPAddr:  "127.0.0.1:8080",
		RateLimit: 20,
		RateBurst: 40,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/dealdesk/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultDBPath is $XDG_DATA_HOME/dealdesk/dealdesk.db.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// Load reads .env (if present), the YAML file at path (DefaultPath when
// empty; a missing file is fine) and then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("DEALDESK_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := os.LookupEnv("DEALDESK_DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("DEALDESK_DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := os.LookupEnv("DEALDESK_HTTP_ADDR"); ok {
		c.HTTPAddr = v
	}
	if v, ok := os.LookupEnv("DEALDESK_RATE_LIMIT"); ok {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DEALDESK_RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = limit
	}
	if v, ok := os.LookupEnv("DEALDESK_CHARM_HOST"); ok {
		c.CharmHost = v
	}
	if v, ok := os.LookupEnv("DEALDESK_SEED"); ok {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEALDESK_SEED %q: %w", v, err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks the settings needed by the selected backend.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory, BackendCharm:
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("sqlite backend requires db_path")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres backend requires database_url")
		}
	default:
		return fmt.Errorf("unknown backend %q (valid: memory, sqlite, postgres, charm)", c.Backend)
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		c.RateBurst = int(c.RateLimit) + 1
	}
	return nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
