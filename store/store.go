// ABOUTME: Entity store contract shared by every persistence backend
// ABOUTME: Defines repository interfaces and the NotFound/Unavailable error taxonomy
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
)

var (
	// ErrNotFound is returned when the requested id is absent.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable wraps backend failures (I/O, network, sync).
	ErrUnavailable = errors.New("store unavailable")
)

// Store groups the three record kinds behind one backend.
type Store interface {
	Companies() CompanyRepository
	Contacts() ContactRepository
	Deals() DealRepository
	Close() error
}

// CompanyRepository is the CRUD contract for companies.
// GetAll returns records in creation order.
type CompanyRepository interface {
	GetAll(ctx context.Context) ([]models.Company, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) (*models.Company, error)
	Update(ctx context.Context, id uuid.UUID, patch models.CompanyPatch) (*models.Company, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ContactRepository interface {
	GetAll(ctx context.Context) ([]models.Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DealRepository interface {
	GetAll(ctx context.Context) ([]models.Deal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	Create(ctx context.Context, deal *models.Deal) (*models.Deal, error)
	Update(ctx context.Context, id uuid.UUID, patch models.DealPatch) (*models.Deal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Unavailable wraps a backend error so callers can match ErrUnavailable.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
