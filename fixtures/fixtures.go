// ABOUTME: Embedded demo data for companies, contacts and deals
// ABOUTME: Seeds the memory backend and the seed command for any store
package fixtures

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
)

//go:embed data/*.json
var data embed.FS

// Set is one consistent batch of seed records.
type Set struct {
	Companies []models.Company
	Contacts  []models.Contact
	Deals     []models.Deal
}

// Load decodes the embedded fixture files.
func Load() (*Set, error) {
	set := &Set{}
	if err := decode("data/companies.json", &set.Companies); err != nil {
		return nil, err
	}
	if err := decode("data/contacts.json", &set.Contacts); err != nil {
		return nil, err
	}
	if err := decode("data/deals.json", &set.Deals); err != nil {
		return nil, err
	}
	return set, nil
}

func decode(name string, v any) error {
	raw, err := data.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", name, err)
	}
	return nil
}

// SeedMemory replaces the contents of m with the fixture set.
func SeedMemory(m *store.Memory) error {
	set, err := Load()
	if err != nil {
		return err
	}
	m.Seed(set.Companies, set.Contacts, set.Deals)
	return nil
}

// Counts reports how many records Apply wrote.
type Counts struct {
	Companies int
	Contacts  int
	Deals     int
}

// Apply writes the fixture set into s, keeping fixture IDs so references
// between records stay intact. Records whose ID already exists are skipped.
func Apply(ctx context.Context, s store.Store) (Counts, error) {
	var counts Counts
	set, err := Load()
	if err != nil {
		return counts, err
	}

	for i := range set.Companies {
		c := set.Companies[i]
		found, err := exists(ctx, func() error { _, err := s.Companies().GetByID(ctx, c.ID); return err })
		if err != nil {
			return counts, fmt.Errorf("failed to check company %s: %w", c.ID, err)
		}
		if found {
			continue
		}
		if _, err := s.Companies().Create(ctx, &c); err != nil {
			return counts, fmt.Errorf("failed to seed company %s: %w", c.Name, err)
		}
		counts.Companies++
	}

	for i := range set.Contacts {
		c := set.Contacts[i]
		found, err := exists(ctx, func() error { _, err := s.Contacts().GetByID(ctx, c.ID); return err })
		if err != nil {
			return counts, fmt.Errorf("failed to check contact %s: %w", c.ID, err)
		}
		if found {
			continue
		}
		if _, err := s.Contacts().Create(ctx, &c); err != nil {
			return counts, fmt.Errorf("failed to seed contact %s: %w", c.FullName(), err)
		}
		counts.Contacts++
	}

	for i := range set.Deals {
		d := set.Deals[i]
		found, err := exists(ctx, func() error { _, err := s.Deals().GetByID(ctx, d.ID); return err })
		if err != nil {
			return counts, fmt.Errorf("failed to check deal %s: %w", d.ID, err)
		}
		if found {
			continue
		}
		if _, err := s.Deals().Create(ctx, &d); err != nil {
			return counts, fmt.Errorf("failed to seed deal %s: %w", d.Title, err)
		}
		counts.Deals++
	}

	return counts, nil
}

// exists reports whether get finds its record. Only store.ErrNotFound
// means absent; any other failure is returned.
func exists(ctx context.Context, get func() error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := get()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
