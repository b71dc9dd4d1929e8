// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Backs the client with a local BadgerDB so no server is needed

package charm

import (
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// badgerKV provides the charm/kv surface on a plain BadgerDB.
type badgerKV struct {
	db *badger.DB
}

// OpenBadgerKV opens a BadgerDB at dir for use as a local-only KV.
func OpenBadgerKV(dir string) (KV, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &badgerKV{db: db}, nil
}

func (b *badgerKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (b *badgerKV) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerKV) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Sync is a no-op; there is no server to talk to.
func (b *badgerKV) Sync() error {
	return nil
}

func (b *badgerKV) Reset() error {
	return b.db.DropAll()
}

func (b *badgerKV) Close() error {
	return b.db.Close()
}

// NewTestClient creates a client on a BadgerDB in a temp directory.
// The database is closed when the test finishes.
func NewTestClient(t *testing.T) *Client {
	t.Helper()

	store, err := OpenBadgerKV(filepath.Join(t.TempDir(), AppName))
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}

	c := NewClient(store, &Config{Host: "localhost", AutoSync: false})
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return c
}
