// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers defaults, YAML file, env overrides and the file watcher
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DEALDESK_BACKEND", "DEALDESK_DB_PATH", "DEALDESK_DATABASE_URL", "DEALDESK_HTTP_ADDR",
		"DEALDESK_RATE_LIMIT", "DEALDESK_CHARM_HOST", "DEALDESK_SEED",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: postgres\ndatabase_url: postgres://file\nhttp_addr: :9000\nrate_limit: 5\n"), 0600))

	t.Setenv("DEALDESK_DATABASE_URL", "postgres://env")
	t.Setenv("DEALDESK_SEED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL, "env overrides file")
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.True(t, cfg.Seed)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEALDESK_RATE_LIMIT", "fast")

	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "DEALDESK_RATE_LIMIT")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [oops"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(c *Config) { c.Backend = "Memory" }, ""},
		{"charm ok", func(c *Config) { c.Backend = BackendCharm }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "mongo" }, "unknown backend"},
		{"postgres needs url", func(c *Config) { c.Backend = BackendPostgres }, "database_url"},
		{"sqlite needs path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"negative limit", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestValidateFillsBurst(t *testing.T) {
	cfg := Default()
	cfg.RateLimit = 3.5
	cfg.RateBurst = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.RateBurst)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Backend = BackendMemory
	cfg.Seed = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, loaded.Backend)
	assert.True(t, loaded.Seed)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\nrate_limit: 1\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		}, func(error) {})
	}()

	// Give the watcher a moment to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\nrate_limit: 7\n"), 0600))

	select {
	case cfg := <-changes:
		assert.Equal(t, 7.0, cfg.RateLimit)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	cancel()
	assert.NoError(t, <-done)
}
