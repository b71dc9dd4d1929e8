// ABOUTME: Tests for the Charm KV entity store and client helpers
// ABOUTME: Uses a local BadgerDB client so no charm server is required

package charm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/harperreed/dealdesk/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewStore(NewTestClient(t))
	})
}

func TestStoreKeysByKind(t *testing.T) {
	ctx := context.Background()
	c := NewTestClient(t)
	s := NewStore(c)

	company, err := s.Companies().Create(ctx, &models.Company{Name: "Acme"})
	require.NoError(t, err)
	_, err = s.Deals().Create(ctx, &models.Deal{Title: "Renewal", Stage: models.StageLead})
	require.NoError(t, err)

	keys, err := c.KeysWithPrefix([]byte(companyPrefix))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "company:"+company.ID.String(), string(keys[0]))

	deals, err := c.KeysWithPrefix([]byte(dealPrefix))
	require.NoError(t, err)
	assert.Len(t, deals, 1)
}

func TestStoreCorruptRecordIsUnavailable(t *testing.T) {
	c := NewTestClient(t)
	s := NewStore(c)
	id := uuid.New()

	require.NoError(t, c.Set([]byte(contactPrefix+id.String()), []byte("{not json")))

	_, err := s.Contacts().GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

type failingKV struct {
	KV
	err error
}

func (f failingKV) Get([]byte) ([]byte, error) { return nil, f.err }
func (f failingKV) Keys() ([][]byte, error)    { return nil, f.err }

func TestStoreBackendFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewStore(NewClient(failingKV{err: boom}, &Config{}))

	_, err := s.Deals().GetAll(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, err, boom)

	_, err = s.Deals().GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

type countingKV struct {
	KV
	syncs int
}

func (c *countingKV) Sync() error {
	c.syncs++
	return nil
}

func TestClientAutoSyncAfterWrites(t *testing.T) {
	kv, err := OpenBadgerKV(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)
	counting := &countingKV{KV: kv}
	c := NewClient(counting, &Config{AutoSync: true, StaleThreshold: time.Hour})
	t.Cleanup(func() { _ = kv.(*badgerKV).Close() })

	require.NoError(t, c.Set([]byte("k"), []byte("v")))
	require.NoError(t, c.Delete([]byte("k")))
	assert.Equal(t, 2, counting.syncs)
	assert.False(t, c.LastSync().IsZero())
}

func TestClientStaleness(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewTestClient(t)
	c.config.AutoSync = true
	c.config.StaleThreshold = time.Minute
	c.now = func() time.Time { return now }

	assert.True(t, c.Stale(), "never synced")

	require.NoError(t, c.SyncIfStale())
	assert.False(t, c.Stale())
	assert.Equal(t, now, c.LastSync())

	now = now.Add(2 * time.Minute)
	assert.True(t, c.Stale())
}

func TestSyncIfStaleSkipsWhenAutoSyncOff(t *testing.T) {
	counting := &countingKV{KV: NewTestClient(t).kv}
	c := NewClient(counting, &Config{AutoSync: false, StaleThreshold: time.Minute})

	assert.True(t, c.Stale())
	require.NoError(t, c.SyncIfStale())
	assert.Zero(t, counting.syncs)

	require.NoError(t, c.Sync())
	assert.Equal(t, 1, counting.syncs, "an explicit sync still runs")
}

func TestLastSyncSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charm", ConfigFileName)
	synced := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	counting := &countingKV{KV: NewTestClient(t).kv}

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	cfg.StaleThreshold = time.Hour
	first := NewClient(counting, cfg)
	first.now = func() time.Time { return synced }
	require.NoError(t, first.Sync())

	reloaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.True(t, synced.Equal(reloaded.LastSync))
	assert.Equal(t, time.Hour, reloaded.StaleThreshold)

	now := synced.Add(30 * time.Minute)
	second := NewClient(counting, reloaded)
	second.now = func() time.Time { return now }
	assert.True(t, synced.Equal(second.LastSync()))
	assert.False(t, second.Stale())
	require.NoError(t, second.SyncIfStale())
	assert.Equal(t, 1, counting.syncs, "fresh replica must not sync on open")

	now = synced.Add(2 * time.Hour)
	assert.True(t, second.Stale())
	require.NoError(t, second.SyncIfStale())
	assert.Equal(t, 2, counting.syncs)
}

func TestClientIDWithoutServer(t *testing.T) {
	_, err := NewTestClient(t).ID()
	assert.Error(t, err)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charm", ConfigFileName)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.True(t, cfg.AutoSync)

	cfg.Host = "charm.internal"
	cfg.AutoSync = false
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "charm.internal", loaded.Host)
	assert.False(t, loaded.AutoSync)
	assert.Equal(t, DefaultStaleThreshold, loaded.StaleThreshold)
	assert.True(t, loaded.LastSync.IsZero())

	synced := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, loaded.RecordSync(synced))
	again, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.True(t, synced.Equal(again.LastSync))
	assert.False(t, again.AutoSync)
}
