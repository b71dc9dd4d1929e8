// ABOUTME: Company operations on the CRM service
// ABOUTME: Create, list, search, update and integrity-checked delete
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"go.uber.org/zap"
)

func validateCompany(c *models.Company) error {
	return required("name", c.Name)
}

func (s *Service) CreateCompany(ctx context.Context, company *models.Company) (created *models.Company, err error) {
	defer func() { s.record("company", "create", err) }()

	company.Name = strings.TrimSpace(company.Name)
	if err := validateCompany(company); err != nil {
		return nil, err
	}

	created, err = s.store.Companies().Create(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.log.Info("company created", zap.String("id", created.ID.String()), zap.String("name", created.Name))
	return created, nil
}

func (s *Service) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := s.store.Companies().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", id, err)
	}
	return company, nil
}

// ListCompanies returns companies whose name or industry contains query.
func (s *Service) ListCompanies(ctx context.Context, query string) ([]models.Company, error) {
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return filterCompanies(companies, normalizeQuery(query)), nil
}

func filterCompanies(companies []models.Company, q string) []models.Company {
	out := make([]models.Company, 0, len(companies))
	for _, c := range companies {
		if matches(q, c.Name, c.Industry) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) UpdateCompany(ctx context.Context, id uuid.UUID, patch models.CompanyPatch) (updated *models.Company, err error) {
	defer func() { s.record("company", "update", err) }()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := required("name", name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}

	updated, err = s.store.Companies().Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update company %s: %w", id, err)
	}

	s.log.Info("company updated", zap.String("id", id.String()))
	return updated, nil
}

// DeleteCompany refuses while deals still reference the company. Contacts
// that worked there are detached rather than deleted.
func (s *Service) DeleteCompany(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { s.record("company", "delete", err) }()

	if _, err := s.store.Companies().GetByID(ctx, id); err != nil {
		return fmt.Errorf("failed to get company %s: %w", id, err)
	}

	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to check company deals: %w", err)
	}
	var blocking int
	for _, d := range deals {
		if d.CompanyID != nil && *d.CompanyID == id {
			blocking++
		}
	}
	if blocking > 0 {
		return fmt.Errorf("cannot delete company with %d deal(s): %w", blocking, ErrInUse)
	}

	contacts, err := s.store.Contacts().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to check company contacts: %w", err)
	}
	detach := models.ContactPatch{CompanyID: models.Ref(uuid.Nil)}
	for _, c := range contacts {
		if c.CompanyID == nil || *c.CompanyID != id {
			continue
		}
		if _, err := s.store.Contacts().Update(ctx, c.ID, detach); err != nil {
			return fmt.Errorf("failed to detach contact %s: %w", c.ID, err)
		}
		s.log.Debug("contact detached from company", zap.String("contact_id", c.ID.String()), zap.String("company_id", id.String()))
	}

	if err := s.store.Companies().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete company %s: %w", id, err)
	}

	s.log.Info("company deleted", zap.String("id", id.String()))
	return nil
}
