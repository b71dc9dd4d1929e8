// ABOUTME: Deal operations on the CRM service
// ABOUTME: Create with closed-at stamping, stage-aware updates, moves, search and delete
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/pipeline"
	"go.uber.org/zap"
)

// DealView is a deal with its company and contact names resolved.
type DealView struct {
	models.Deal
	CompanyName  string   `json:"company_name"`
	ContactNames []string `json:"contact_names"`
}

func validateDealValue(v int64) error {
	if v < 0 {
		return &models.ValidationError{Field: "value", Message: "must not be negative"}
	}
	return nil
}

func validateStage(st models.Stage) error {
	if !st.Valid() {
		_, err := models.ParseStage(string(st))
		return err
	}
	return nil
}

// CreateDeal validates and stores a new deal. An empty stage means lead.
// Deals created already closed get ClosedAt stamped.
func (s *Service) CreateDeal(ctx context.Context, deal *models.Deal) (created *models.Deal, err error) {
	defer func() { s.record("deal", "create", err) }()

	deal.Title = strings.TrimSpace(deal.Title)
	if deal.Stage == "" {
		deal.Stage = models.StageLead
	}
	if deal.CompanyID != nil && *deal.CompanyID == uuid.Nil {
		deal.CompanyID = nil
	}
	if deal.ContactIDs == nil {
		deal.ContactIDs = []uuid.UUID{}
	}
	if err := required("title", deal.Title); err != nil {
		return nil, err
	}
	if err := validateDealValue(deal.Value); err != nil {
		return nil, err
	}
	if err := validateStage(deal.Stage); err != nil {
		return nil, err
	}

	if deal.Stage.IsTerminal() && deal.ClosedAt == nil {
		now := s.now()
		deal.ClosedAt = &now
	}

	created, err = s.store.Deals().Create(ctx, deal)
	if err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	s.log.Info("deal created",
		zap.String("id", created.ID.String()),
		zap.String("title", created.Title),
		zap.String("stage", string(created.Stage)))
	return created, nil
}

func (s *Service) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	deal, err := s.store.Deals().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal %s: %w", id, err)
	}
	return deal, nil
}

// ListDeals returns deals whose title, company name or contact names
// contain query.
func (s *Service) ListDeals(ctx context.Context, query string) ([]DealView, error) {
	deals, dir, err := s.loadDealsWithDirectory(ctx)
	if err != nil {
		return nil, err
	}
	return filterDeals(deals, dir, normalizeQuery(query)), nil
}

func filterDeals(deals []models.Deal, dir *directory, q string) []DealView {
	out := make([]DealView, 0, len(deals))
	for _, d := range deals {
		v := dealView(d, dir)
		if matches(q, d.Title, v.CompanyName, joinNames(v.ContactNames)) {
			out = append(out, v)
		}
	}
	return out
}

func dealView(d models.Deal, dir *directory) DealView {
	return DealView{
		Deal:         d,
		CompanyName:  dir.companyName(d.CompanyID),
		ContactNames: dir.contactNames(d.ContactIDs),
	}
}

func (s *Service) loadDealsWithDirectory(ctx context.Context) ([]models.Deal, *directory, error) {
	deals, err := s.store.Deals().GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list deals: %w", err)
	}
	companies, err := s.store.Companies().GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list companies: %w", err)
	}
	contacts, err := s.store.Contacts().GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return deals, newDirectory(companies, contacts), nil
}

// UpdateDeal applies patch. A stage change follows the same closed-at rule
// as MoveDeal; callers cannot clear ClosedAt.
func (s *Service) UpdateDeal(ctx context.Context, id uuid.UUID, patch models.DealPatch) (updated *models.Deal, err error) {
	defer func() { s.record("deal", "update", err) }()

	if patch.Title != nil {
		v := strings.TrimSpace(*patch.Title)
		if err := required("title", v); err != nil {
			return nil, err
		}
		patch.Title = &v
	}
	if patch.Value != nil {
		if err := validateDealValue(*patch.Value); err != nil {
			return nil, err
		}
	}

	var from models.Stage
	if patch.Stage != nil {
		if err := validateStage(*patch.Stage); err != nil {
			return nil, err
		}
		current, err := s.store.Deals().GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get deal %s: %w", id, err)
		}
		from = current.Stage
		next := pipeline.Transition(*current, *patch.Stage, s.now())
		if next.ClosedAt != nil && (current.ClosedAt == nil || !next.ClosedAt.Equal(*current.ClosedAt)) {
			patch.ClosedAt = next.ClosedAt
		} else {
			patch.ClosedAt = nil
		}
	} else {
		patch.ClosedAt = nil
	}

	updated, err = s.store.Deals().Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update deal %s: %w", id, err)
	}

	if patch.Stage != nil && from != updated.Stage {
		s.metrics.RecordStageTransition(string(from), string(updated.Stage))
	}
	s.log.Info("deal updated", zap.String("id", id.String()))
	return updated, nil
}

// MoveDeal changes only the stage of a deal.
func (s *Service) MoveDeal(ctx context.Context, id uuid.UUID, to models.Stage) (*models.Deal, error) {
	res, err := s.MoveDealStage(ctx, id, to)
	if err != nil {
		return nil, err
	}
	return res.Deal, nil
}

// MoveDealStage is MoveDeal that also reports the stage the deal left,
// as read inside the same transition.
func (s *Service) MoveDealStage(ctx context.Context, id uuid.UUID, to models.Stage) (res *pipeline.Result, err error) {
	defer func() { s.record("deal", "move", err) }()

	res, err = s.transitions.Apply(ctx, id, to)
	if err != nil {
		return nil, fmt.Errorf("failed to move deal %s: %w", id, err)
	}

	if res.From != res.Deal.Stage {
		s.metrics.RecordStageTransition(string(res.From), string(res.Deal.Stage))
	}
	s.log.Info("deal moved",
		zap.String("id", id.String()),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.Deal.Stage)))
	return res, nil
}

func (s *Service) DeleteDeal(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { s.record("deal", "delete", err) }()

	if err := s.store.Deals().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete deal %s: %w", id, err)
	}

	s.log.Info("deal deleted", zap.String("id", id.String()))
	return nil
}
