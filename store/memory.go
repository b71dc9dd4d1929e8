// ABOUTME: In-memory entity store backed by mutex-guarded slices
// ABOUTME: Used for fixture-seeded demo runs and as the fake store in tests
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
)

// Memory keeps every record in process memory. Reads return copies, so
// callers never share slices with the store.
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time

	companies []models.Company
	contacts  []models.Contact
	deals     []models.Deal
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed replaces the store contents with the given records, keeping their
// IDs and timestamps.
func (m *Memory) Seed(companies []models.Company, contacts []models.Contact, deals []models.Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.companies = append([]models.Company(nil), companies...)
	m.contacts = make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		m.contacts = append(m.contacts, c.Clone())
	}
	m.deals = make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		m.deals = append(m.deals, d.Clone())
	}
}

func (m *Memory) Companies() CompanyRepository {
	return &memTable[models.Company, models.CompanyPatch]{
		m:     m,
		rows:  &m.companies,
		meta:  func(c *models.Company) (*uuid.UUID, *time.Time, *time.Time) { return &c.ID, &c.CreatedAt, &c.UpdatedAt },
		clone: func(c models.Company) models.Company { return c },
		apply: func(p models.CompanyPatch, c *models.Company) { p.Apply(c) },
	}
}

func (m *Memory) Contacts() ContactRepository {
	return &memTable[models.Contact, models.ContactPatch]{
		m:     m,
		rows:  &m.contacts,
		meta:  func(c *models.Contact) (*uuid.UUID, *time.Time, *time.Time) { return &c.ID, &c.CreatedAt, &c.UpdatedAt },
		clone: models.Contact.Clone,
		apply: func(p models.ContactPatch, c *models.Contact) { p.Apply(c) },
	}
}

func (m *Memory) Deals() DealRepository {
	return &memTable[models.Deal, models.DealPatch]{
		m:    m,
		rows: &m.deals,
		meta: func(d *models.Deal) (*uuid.UUID, *time.Time, *time.Time) { return &d.ID, &d.CreatedAt, &d.UpdatedAt },
		clone: func(d models.Deal) models.Deal {
			out := d.Clone()
			if out.ContactIDs == nil {
				out.ContactIDs = []uuid.UUID{}
			}
			return out
		},
		apply: func(p models.DealPatch, d *models.Deal) { p.Apply(d) },
	}
}

func (m *Memory) Close() error {
	return nil
}

// memTable implements the repository contract for one record kind.
type memTable[T any, P any] struct {
	m     *Memory
	rows  *[]T
	meta  func(*T) (id *uuid.UUID, createdAt, updatedAt *time.Time)
	clone func(T) T
	apply func(P, *T)
}

func (t *memTable[T, P]) GetAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()

	out := make([]T, 0, len(*t.rows))
	for _, row := range *t.rows {
		out = append(out, t.clone(row))
	}
	return out, nil
}

func (t *memTable[T, P]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()

	i := t.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	row := t.clone((*t.rows)[i])
	return &row, nil
}

func (t *memTable[T, P]) Create(ctx context.Context, record *T) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	row := t.clone(*record)
	id, createdAt, updatedAt := t.meta(&row)
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if createdAt.IsZero() {
		now := t.m.now()
		*createdAt = now
		*updatedAt = now
	}
	*t.rows = append(*t.rows, row)

	out := t.clone(row)
	return &out, nil
}

func (t *memTable[T, P]) Update(ctx context.Context, id uuid.UUID, patch P) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	row := t.clone((*t.rows)[i])
	t.apply(patch, &row)
	_, _, updatedAt := t.meta(&row)
	*updatedAt = t.m.now()
	(*t.rows)[i] = row

	out := t.clone(row)
	return &out, nil
}

func (t *memTable[T, P]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	*t.rows = append((*t.rows)[:i], (*t.rows)[i+1:]...)
	return nil
}

// indexOf must be called with the lock held.
func (t *memTable[T, P]) indexOf(id uuid.UUID) int {
	for i := range *t.rows {
		rowID, _, _ := t.meta(&(*t.rows)[i])
		if *rowID == id {
			return i
		}
	}
	return -1
}
