// ABOUTME: Read-side views: detail pages, deal timeline, pipeline board and dashboard
// ABOUTME: The dashboard fans out its three list loads concurrently
package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/pipeline"
	"golang.org/x/sync/errgroup"
)

type CompanyDetail struct {
	Company  models.Company       `json:"company"`
	Contacts []models.Contact     `json:"contacts"`
	Deals    []models.Deal        `json:"deals"`
	Stats    pipeline.EntityStats `json:"stats"`
}

func (s *Service) CompanyDetail(ctx context.Context, id uuid.UUID) (*CompanyDetail, error) {
	company, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.Contacts().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	detail := &CompanyDetail{Company: *company, Contacts: []models.Contact{}, Deals: []models.Deal{}}
	for _, c := range contacts {
		if c.CompanyID != nil && *c.CompanyID == id {
			detail.Contacts = append(detail.Contacts, c)
		}
	}
	for _, d := range deals {
		if d.CompanyID != nil && *d.CompanyID == id {
			detail.Deals = append(detail.Deals, d)
		}
	}
	detail.Stats = pipeline.Summarize(detail.Deals)
	return detail, nil
}

type ContactDetail struct {
	Contact     models.Contact       `json:"contact"`
	CompanyName string               `json:"company_name"`
	Deals       []models.Deal        `json:"deals"`
	Stats       pipeline.EntityStats `json:"stats"`
}

func (s *Service) ContactDetail(ctx context.Context, id uuid.UUID) (*ContactDetail, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	detail := &ContactDetail{
		Contact:     *contact,
		CompanyName: newDirectory(companies, nil).companyName(contact.CompanyID),
		Deals:       []models.Deal{},
	}
	for _, d := range deals {
		if d.HasContact(id) {
			detail.Deals = append(detail.Deals, d)
		}
	}
	detail.Stats = pipeline.Summarize(detail.Deals)
	return detail, nil
}

// Activity kinds on a deal timeline.
const (
	ActivityCreated = "created"
	ActivityUpdated = "updated"
	ActivityWon     = "won"
	ActivityLost    = "lost"
	ActivityClosed  = "closed"
)

type Activity struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

type DealDetail struct {
	Deal        models.Deal      `json:"deal"`
	CompanyName string           `json:"company_name"`
	Contacts    []models.Contact `json:"contacts"`
	Timeline    []Activity       `json:"timeline"`
}

func (s *Service) DealDetail(ctx context.Context, id uuid.UUID) (*DealDetail, error) {
	deal, err := s.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	contacts, err := s.store.Contacts().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	dir := newDirectory(companies, contacts)
	return &DealDetail{
		Deal:        *deal,
		CompanyName: dir.companyName(deal.CompanyID),
		Contacts:    dir.resolveContacts(deal.ContactIDs),
		Timeline:    Timeline(*deal),
	}, nil
}

// Timeline lists what is known about a deal's history. A closed entry is
// labelled won or lost by the current stage, or closed if it was reopened.
func Timeline(d models.Deal) []Activity {
	events := []Activity{{Kind: ActivityCreated, At: d.CreatedAt}}
	if !d.UpdatedAt.IsZero() && !d.UpdatedAt.Equal(d.CreatedAt) {
		events = append(events, Activity{Kind: ActivityUpdated, At: d.UpdatedAt})
	}
	if d.ClosedAt != nil {
		kind := ActivityClosed
		switch d.Stage {
		case models.StageClosedWon:
			kind = ActivityWon
		case models.StageClosedLost:
			kind = ActivityLost
		}
		events = append(events, Activity{Kind: kind, At: *d.ClosedAt})
	}
	return events
}

// PipelineView is the board: aggregated stages plus company names for
// every deal shown.
type PipelineView struct {
	pipeline.Summary
	CompanyNames map[uuid.UUID]string `json:"company_names"`
}

func (s *Service) Pipeline(ctx context.Context) (*PipelineView, error) {
	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	dir := newDirectory(companies, nil)
	names := make(map[uuid.UUID]string, len(deals))
	for _, d := range deals {
		names[d.ID] = dir.companyName(d.CompanyID)
	}
	return &PipelineView{Summary: pipeline.Aggregate(deals), CompanyNames: names}, nil
}

type Dashboard struct {
	CompanyCount  int              `json:"company_count"`
	ContactCount  int              `json:"contact_count"`
	DealCount     int              `json:"deal_count"`
	ClosedRevenue int64            `json:"closed_revenue"`
	Pipeline      pipeline.Summary `json:"pipeline"`
}

// Dashboard loads all three lists concurrently and fails if any load fails.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		companies []models.Company
		contacts  []models.Contact
		deals     []models.Deal
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		companies, err = s.store.Companies().GetAll(egCtx)
		if err != nil {
			return fmt.Errorf("failed to list companies: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		contacts, err = s.store.Contacts().GetAll(egCtx)
		if err != nil {
			return fmt.Errorf("failed to list contacts: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		deals, err = s.store.Deals().GetAll(egCtx)
		if err != nil {
			return fmt.Errorf("failed to list deals: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		s.record("dashboard", "load", err)
		return nil, err
	}

	summary := pipeline.Aggregate(deals)
	return &Dashboard{
		CompanyCount:  len(companies),
		ContactCount:  len(contacts),
		DealCount:     len(deals),
		ClosedRevenue: summary.ClosedRevenue,
		Pipeline:      summary,
	}, nil
}

type SearchResults struct {
	Companies []models.Company `json:"companies"`
	Contacts  []ContactView    `json:"contacts"`
	Deals     []DealView       `json:"deals"`
}

// Search runs the list filters for all three kinds against one query.
func (s *Service) Search(ctx context.Context, query string) (*SearchResults, error) {
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	contacts, err := s.store.Contacts().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	q := normalizeQuery(query)
	dir := newDirectory(companies, contacts)
	return &SearchResults{
		Companies: filterCompanies(companies, q),
		Contacts:  filterContacts(contacts, dir, q),
		Deals:     filterDeals(deals, dir, q),
	}, nil
}
