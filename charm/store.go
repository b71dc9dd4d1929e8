// ABOUTME: Entity store on Charm KV, one JSON document per record
// ABOUTME: Keys are "<kind>:<uuid>"; each value carries a ULID that fixes creation order

package charm

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/oklog/ulid/v2"
)

const (
	companyPrefix = "company:"
	contactPrefix = "contact:"
	dealPrefix    = "deal:"
)

// Store implements store.Store on a charm client.
type Store struct {
	client *Client
	// mu serializes read-modify-write cycles across all three kinds
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	lastSeq ulid.ULID
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore wraps a client as an entity store.
func NewStore(client *Client, opts ...StoreOption) *Store {
	s := &Store{
		client:  client,
		now:     func() time.Time { return time.Now().UTC() },
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client for sync commands.
func (s *Store) Client() *Client {
	return s.client
}

func (s *Store) Companies() store.CompanyRepository {
	return &kvTable[models.Company, models.CompanyPatch]{
		s:      s,
		prefix: companyPrefix,
		meta:   func(c *models.Company) (*uuid.UUID, *time.Time, *time.Time) { return &c.ID, &c.CreatedAt, &c.UpdatedAt },
		apply:  func(p models.CompanyPatch, c *models.Company) { p.Apply(c) },
	}
}

func (s *Store) Contacts() store.ContactRepository {
	return &kvTable[models.Contact, models.ContactPatch]{
		s:      s,
		prefix: contactPrefix,
		meta:   func(c *models.Contact) (*uuid.UUID, *time.Time, *time.Time) { return &c.ID, &c.CreatedAt, &c.UpdatedAt },
		apply:  func(p models.ContactPatch, c *models.Contact) { p.Apply(c) },
	}
}

func (s *Store) Deals() store.DealRepository {
	return &kvTable[models.Deal, models.DealPatch]{
		s:      s,
		prefix: dealPrefix,
		meta:   func(d *models.Deal) (*uuid.UUID, *time.Time, *time.Time) { return &d.ID, &d.CreatedAt, &d.UpdatedAt },
		apply:  func(p models.DealPatch, d *models.Deal) { p.Apply(d) },
		fix: func(d *models.Deal) {
			if d.ContactIDs == nil {
				d.ContactIDs = []uuid.UUID{}
			}
		},
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// nextSeq returns a ULID greater than any this store has handed out,
// even if the wall clock steps back. Callers hold s.mu.
func (s *Store) nextSeq() (ulid.ULID, error) {
	ms := max(ulid.Timestamp(time.Now()), s.lastSeq.Time())
	seq, err := ulid.New(ms, s.entropy)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	if seq.Compare(s.lastSeq) <= 0 {
		// entropy overflowed within the millisecond; move to the next one
		if seq, err = ulid.New(s.lastSeq.Time()+1, s.entropy); err != nil {
			return ulid.ULID{}, fmt.Errorf("failed to allocate sequence: %w", err)
		}
	}
	s.lastSeq = seq
	return seq, nil
}

// entry is the stored form of a record.
type entry struct {
	Seq    ulid.ULID       `json:"seq"`
	Record json.RawMessage `json:"record"`
}

type kvTable[T any, P any] struct {
	s      *Store
	prefix string
	meta   func(*T) (id *uuid.UUID, createdAt, updatedAt *time.Time)
	apply  func(P, *T)
	fix    func(*T)
}

func (t *kvTable[T, P]) key(id uuid.UUID) []byte {
	return []byte(t.prefix + id.String())
}

func (t *kvTable[T, P]) decodeRecord(data []byte) (*T, error) {
	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, store.Unavailable(fmt.Errorf("failed to decode %s record: %w", t.prefix, err))
	}
	if t.fix != nil {
		t.fix(&row)
	}
	return &row, nil
}

func (t *kvTable[T, P]) decode(data []byte) (*T, ulid.ULID, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, ulid.ULID{}, store.Unavailable(fmt.Errorf("failed to decode %s entry: %w", t.prefix, err))
	}
	row, err := t.decodeRecord(e.Record)
	if err != nil {
		return nil, ulid.ULID{}, err
	}
	return row, e.Seq, nil
}

func (t *kvTable[T, P]) put(row *T, seq ulid.ULID) error {
	id, _, _ := t.meta(row)
	record, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	data, err := json.Marshal(entry{Seq: seq, Record: record})
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if err := t.s.client.Set(t.key(*id), data); err != nil {
		return store.Unavailable(err)
	}
	return nil
}

func (t *kvTable[T, P]) get(id uuid.UUID) (*T, ulid.ULID, error) {
	data, err := t.s.client.Get(t.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ulid.ULID{}, store.ErrNotFound
	}
	if err != nil {
		return nil, ulid.ULID{}, store.Unavailable(err)
	}
	return t.decode(data)
}

func (t *kvTable[T, P]) GetAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := t.s.client.KeysWithPrefix([]byte(t.prefix))
	if err != nil {
		return nil, store.Unavailable(err)
	}

	type sequenced struct {
		row T
		seq ulid.ULID
	}
	rows := make([]sequenced, 0, len(keys))
	for _, k := range keys {
		data, err := t.s.client.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			// deleted between listing and reading
			continue
		}
		if err != nil {
			return nil, store.Unavailable(err)
		}
		row, seq, err := t.decode(data)
		if err != nil {
			return nil, err
		}
		rows = append(rows, sequenced{row: *row, seq: seq})
	}

	slices.SortFunc(rows, func(a, b sequenced) int {
		return a.seq.Compare(b.seq)
	})
	out := make([]T, len(rows))
	for i := range rows {
		out[i] = rows[i].row
	}
	return out, nil
}

func (t *kvTable[T, P]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, _, err := t.get(id)
	return row, err
}

func (t *kvTable[T, P]) Create(ctx context.Context, record *T) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	// round-trip through JSON so the stored row shares nothing with record
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	row, err := t.decodeRecord(data)
	if err != nil {
		return nil, err
	}

	id, createdAt, updatedAt := t.meta(row)
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if createdAt.IsZero() {
		now := t.s.now()
		*createdAt = now
		*updatedAt = now
	}
	seq, err := t.s.nextSeq()
	if err != nil {
		return nil, err
	}
	if err := t.put(row, seq); err != nil {
		return nil, err
	}
	return row, nil
}

func (t *kvTable[T, P]) Update(ctx context.Context, id uuid.UUID, patch P) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	row, seq, err := t.get(id)
	if err != nil {
		return nil, err
	}
	t.apply(patch, row)
	_, _, updatedAt := t.meta(row)
	*updatedAt = t.s.now()

	if err := t.put(row, seq); err != nil {
		return nil, err
	}
	return row, nil
}

func (t *kvTable[T, P]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, _, err := t.get(id); err != nil {
		return err
	}
	if err := t.s.client.Delete(t.key(id)); err != nil {
		return store.Unavailable(err)
	}
	return nil
}
