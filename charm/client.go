// ABOUTME: Charm KV client wrapper with automatic sync support
// ABOUTME: Persists the last sync time so staleness is judged across restarts

package charm

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

// KV is the subset of charm/kv the store needs.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

// Client wraps a KV with config and sync helpers.
type Client struct {
	kv       KV
	config   *Config
	mu       sync.RWMutex
	lastSync time.Time
	now      func() time.Time
	remote   bool
}

// Open connects to the charm server named by cfg and opens the local replica.
func Open(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// charm reads its host from the environment
	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := NewClient(db, cfg)
	c.remote = true
	return c, nil
}

// NewClient wraps an already open KV.
func NewClient(store KV, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		kv:       store,
		config:   cfg,
		lastSync: cfg.LastSync,
		now:      time.Now,
	}
}

// Close releases the KV if it holds resources of its own.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// charm/kv has no Close; badger is cleaned up on process exit
	if closer, ok := c.kv.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Config returns the client's config.
func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "", fmt.Errorf("not connected to a charm server")
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// Sync performs a manual sync with the charm server.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked()
}

func (c *Client) syncLocked() error {
	if err := c.kv.Sync(); err != nil {
		return err
	}
	c.lastSync = c.now()
	if err := c.config.RecordSync(c.lastSync); err != nil {
		return fmt.Errorf("synced but failed to record sync time: %w", err)
	}
	return nil
}

// LastSync reports when the last successful sync finished.
func (c *Client) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

// Stale reports whether local data has gone longer than the configured
// threshold without a sync.
func (c *Client) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastSync.IsZero() {
		return true
	}
	return c.now().Sub(c.lastSync) > c.config.StaleThreshold
}

// SyncIfStale syncs when auto-sync is on and Stale reports true. With
// auto-sync off only an explicit Sync talks to the server.
func (c *Client) SyncIfStale() error {
	if !c.Config().AutoSync || !c.Stale() {
		return nil
	}
	return c.Sync()
}

// Get retrieves a value by key.
func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get(key)
}

// Set stores a value and syncs if enabled.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(key, value); err != nil {
		return err
	}

	// Sync while still holding lock to avoid race condition
	if c.config.AutoSync {
		_ = c.syncLocked()
	}
	return nil
}

// Delete removes a key and syncs if enabled.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(key); err != nil {
		return err
	}

	if c.config.AutoSync {
		_ = c.syncLocked()
	}
	return nil
}

// Keys returns all keys.
func (c *Client) Keys() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Keys()
}

// KeysWithPrefix returns all keys starting with the given prefix.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes all data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}
