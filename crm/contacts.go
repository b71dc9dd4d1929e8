// ABOUTME: Contact operations on the CRM service
// ABOUTME: Create, list with company names, update and delete with deal pruning
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"go.uber.org/zap"
)

// ContactView is a contact with its company name resolved.
type ContactView struct {
	models.Contact
	CompanyName string `json:"company_name"`
}

func validateContact(c *models.Contact) error {
	if err := required("first_name", c.FirstName); err != nil {
		return err
	}
	return required("last_name", c.LastName)
}

func (s *Service) CreateContact(ctx context.Context, contact *models.Contact) (created *models.Contact, err error) {
	defer func() { s.record("contact", "create", err) }()

	contact.FirstName = strings.TrimSpace(contact.FirstName)
	contact.LastName = strings.TrimSpace(contact.LastName)
	contact.Email = strings.TrimSpace(contact.Email)
	if contact.CompanyID != nil && *contact.CompanyID == uuid.Nil {
		contact.CompanyID = nil
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	created, err = s.store.Contacts().Create(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.log.Info("contact created", zap.String("id", created.ID.String()), zap.String("name", created.FullName()))
	return created, nil
}

func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	contact, err := s.store.Contacts().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, err)
	}
	return contact, nil
}

// ListContacts returns contacts whose full name, email, role or company
// name contains query.
func (s *Service) ListContacts(ctx context.Context, query string) ([]ContactView, error) {
	contacts, err := s.store.Contacts().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return filterContacts(contacts, newDirectory(companies, nil), normalizeQuery(query)), nil
}

func filterContacts(contacts []models.Contact, dir *directory, q string) []ContactView {
	out := make([]ContactView, 0, len(contacts))
	for _, c := range contacts {
		company := dir.companyName(c.CompanyID)
		if matches(q, c.FullName(), c.Email, c.Role, company) {
			out = append(out, ContactView{Contact: c, CompanyName: company})
		}
	}
	return out
}

func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, patch models.ContactPatch) (updated *models.Contact, err error) {
	defer func() { s.record("contact", "update", err) }()

	if patch.FirstName != nil {
		v := strings.TrimSpace(*patch.FirstName)
		if err := required("first_name", v); err != nil {
			return nil, err
		}
		patch.FirstName = &v
	}
	if patch.LastName != nil {
		v := strings.TrimSpace(*patch.LastName)
		if err := required("last_name", v); err != nil {
			return nil, err
		}
		patch.LastName = &v
	}

	updated, err = s.store.Contacts().Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact %s: %w", id, err)
	}

	s.log.Info("contact updated", zap.String("id", id.String()))
	return updated, nil
}

// DeleteContact removes the contact and drops it from every deal that
// lists it.
func (s *Service) DeleteContact(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { s.record("contact", "delete", err) }()

	if _, err := s.store.Contacts().GetByID(ctx, id); err != nil {
		return fmt.Errorf("failed to get contact %s: %w", id, err)
	}

	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to check contact deals: %w", err)
	}
	for _, d := range deals {
		if !d.HasContact(id) {
			continue
		}
		remaining := make([]uuid.UUID, 0, len(d.ContactIDs))
		for _, cid := range d.ContactIDs {
			if cid != id {
				remaining = append(remaining, cid)
			}
		}
		if _, err := s.store.Deals().Update(ctx, d.ID, models.DealPatch{ContactIDs: &remaining}); err != nil {
			return fmt.Errorf("failed to unlink contact from deal %s: %w", d.ID, err)
		}
		s.log.Debug("contact unlinked from deal", zap.String("contact_id", id.String()), zap.String("deal_id", d.ID.String()))
	}

	if err := s.store.Contacts().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contact %s: %w", id, err)
	}

	s.log.Info("contact deleted", zap.String("id", id.String()))
	return nil
}
