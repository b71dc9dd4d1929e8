// ABOUTME: Deal stage transitions and the closed-at stamping rule
// ABOUTME: Transition is pure; Handler loads, transitions and persists through a deal store
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
)

// Transition returns d moved to stage to at time now.
//
// ClosedAt is stamped only when a deal goes from an active stage to a
// terminal one. Moves between terminal stages and reopenings leave it as is.
// Moving to the current stage only refreshes UpdatedAt.
func Transition(d models.Deal, to models.Stage, now time.Time) models.Deal {
	out := d.Clone()
	if !d.Stage.IsTerminal() && to.IsTerminal() {
		stamp := now
		out.ClosedAt = &stamp
	}
	out.Stage = to
	out.UpdatedAt = now
	return out
}

// DealStore is the slice of the deal repository the handler needs.
type DealStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	Update(ctx context.Context, id uuid.UUID, patch models.DealPatch) (*models.Deal, error)
}

// Handler applies stage changes to stored deals.
type Handler struct {
	Deals DealStore
	Now   func() time.Time
}

// NewHandler builds a Handler using the wall clock.
func NewHandler(deals DealStore) *Handler {
	return &Handler{Deals: deals, Now: func() time.Time { return time.Now().UTC() }}
}

// Result carries the persisted deal and the stage it left.
type Result struct {
	Deal *models.Deal
	From models.Stage
}

// Apply moves deal id to stage to and persists the change. Store errors
// are returned as-is; nothing is retried.
func (h *Handler) Apply(ctx context.Context, id uuid.UUID, to models.Stage) (*Result, error) {
	if !to.Valid() {
		return nil, &models.ValidationError{Field: "stage", Message: fmt.Sprintf("invalid stage %q", to)}
	}

	current, err := h.Deals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := Transition(*current, to, h.now())

	patch := models.DealPatch{Stage: &next.Stage}
	if next.ClosedAt != nil && (current.ClosedAt == nil || !next.ClosedAt.Equal(*current.ClosedAt)) {
		patch.ClosedAt = next.ClosedAt
	}

	saved, err := h.Deals.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return &Result{Deal: saved, From: current.Stage}, nil
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}
