// ABOUTME: Tests for stage transitions and the transition handler
// ABOUTME: Covers closed-at stamping, stickiness and store error passthrough
package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func TestTransitionStampsClosedAt(t *testing.T) {
	d := deal("x", models.StageLead, 100)

	won := Transition(d, models.StageClosedWon, t0)
	assert.Equal(t, models.StageClosedWon, won.Stage)
	require.NotNil(t, won.ClosedAt)
	assert.Equal(t, t0, *won.ClosedAt)
	assert.Equal(t, t0, won.UpdatedAt)
	assert.Nil(t, d.ClosedAt, "input deal must not be mutated")
}

func TestTransitionBetweenTerminalStagesIsSticky(t *testing.T) {
	d := deal("x", models.StageLead, 100)
	won := Transition(d, models.StageClosedWon, t0)

	lost := Transition(won, models.StageClosedLost, t0.Add(time.Hour))
	assert.Equal(t, models.StageClosedLost, lost.Stage)
	require.NotNil(t, lost.ClosedAt)
	assert.Equal(t, t0, *lost.ClosedAt)
	assert.Equal(t, t0.Add(time.Hour), lost.UpdatedAt)
}

func TestTransitionReopenKeepsClosedAt(t *testing.T) {
	won := Transition(deal("x", models.StageNegotiation, 1), models.StageClosedWon, t0)

	reopened := Transition(won, models.StageLead, t0.Add(time.Hour))
	assert.Equal(t, models.StageLead, reopened.Stage)
	require.NotNil(t, reopened.ClosedAt)
	assert.Equal(t, t0, *reopened.ClosedAt)

	// Closing again from an active stage restamps
	reclosed := Transition(reopened, models.StageClosedLost, t0.Add(2*time.Hour))
	require.NotNil(t, reclosed.ClosedAt)
	assert.Equal(t, t0.Add(2*time.Hour), *reclosed.ClosedAt)
}

func TestTransitionSameStageIsIdempotent(t *testing.T) {
	won := Transition(deal("x", models.StageLead, 1), models.StageClosedWon, t0)

	once := Transition(won, models.StageClosedWon, t0.Add(time.Minute))
	twice := Transition(once, models.StageClosedWon, t0.Add(2*time.Minute))

	assert.Equal(t, won.Stage, twice.Stage)
	assert.Equal(t, *won.ClosedAt, *twice.ClosedAt)
	assert.Equal(t, t0.Add(2*time.Minute), twice.UpdatedAt)
}

func TestTransitionActiveMovesLeaveClosedAtNil(t *testing.T) {
	d := Transition(deal("x", models.StageLead, 1), models.StageNegotiation, t0)
	assert.Nil(t, d.ClosedAt)
}

func TestHandlerApply(t *testing.T) {
	ctx := context.Background()
	clock := t0
	mem := store.NewMemory(store.WithClock(func() time.Time { return clock }))

	created, err := mem.Deals().Create(ctx, &models.Deal{Title: "Renewal", Stage: models.StageLead, Value: 1000})
	require.NoError(t, err)

	h := &Handler{Deals: mem.Deals(), Now: func() time.Time { return clock }}

	clock = t0.Add(time.Hour)
	res, err := h.Apply(ctx, created.ID, models.StageClosedWon)
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, res.From)
	assert.Equal(t, models.StageClosedWon, res.Deal.Stage)
	require.NotNil(t, res.Deal.ClosedAt)
	assert.Equal(t, clock, *res.Deal.ClosedAt)

	clock = t0.Add(2 * time.Hour)
	res, err = h.Apply(ctx, created.ID, models.StageClosedLost)
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedWon, res.From)
	require.NotNil(t, res.Deal.ClosedAt)
	assert.Equal(t, t0.Add(time.Hour), *res.Deal.ClosedAt, "closed_at is sticky")

	stored, err := mem.Deals().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedLost, stored.Stage)
	assert.Equal(t, t0.Add(2*time.Hour), stored.UpdatedAt)
}

func TestHandlerRejectsInvalidStage(t *testing.T) {
	h := NewHandler(store.NewMemory().Deals())

	_, err := h.Apply(context.Background(), uuid.New(), "won")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stage", verr.Field)
}

func TestHandlerNotFound(t *testing.T) {
	h := NewHandler(store.NewMemory().Deals())

	_, err := h.Apply(context.Background(), uuid.New(), models.StageClosedWon)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type failingDeals struct {
	deal *models.Deal
	err  error
}

func (f *failingDeals) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return f.deal, nil
}

func (f *failingDeals) Update(ctx context.Context, id uuid.UUID, patch models.DealPatch) (*models.Deal, error) {
	return nil, f.err
}

func TestHandlerSurfacesStoreFailure(t *testing.T) {
	boom := store.Unavailable(errors.New("connection reset"))
	d := deal("x", models.StageLead, 1)
	h := NewHandler(&failingDeals{deal: &d, err: boom})

	_, err := h.Apply(context.Background(), d.ID, models.StageClosedWon)
	assert.Same(t, boom, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
