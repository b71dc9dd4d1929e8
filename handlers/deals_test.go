// ABOUTME: Tests for contact and deal MCP tool handlers
// ABOUTME: Covers company and contact lookup by name, stage moves and detail views
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContactWithExistingCompanyName(t *testing.T) {
	svc := setupService(t)
	h := NewContactHandlers(svc)

	_, out, err := h.AddContact(context.Background(), nil, AddContactInput{
		FirstName:   "Peter",
		LastName:    "Gibbons",
		CompanyName: "initech",
	})
	require.NoError(t, err)
	assert.Equal(t, initechID, out.CompanyID)
	assert.Equal(t, "Initech", out.CompanyName)

	companies, err := svc.ListCompanies(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, companies, 4)
}

func TestAddContactCreatesCompany(t *testing.T) {
	svc := setupService(t)
	h := NewContactHandlers(svc)

	_, out, err := h.AddContact(context.Background(), nil, AddContactInput{
		FirstName:   "Gavin",
		LastName:    "Belson",
		CompanyName: "Hooli",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.CompanyID)
	assert.Equal(t, "Hooli", out.CompanyName)

	companies, err := svc.ListCompanies(context.Background(), "hooli")
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}

func TestAddContactValidation(t *testing.T) {
	h := NewContactHandlers(setupService(t))

	_, _, err := h.AddContact(context.Background(), nil, AddContactInput{FirstName: "Solo"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "last_name", verr.Field)

	_, _, err = h.AddContact(context.Background(), nil, AddContactInput{FirstName: "A", LastName: "B", CompanyID: "bogus"})
	assert.ErrorContains(t, err, "invalid company_id")
}

func TestFindContactsAndDetail(t *testing.T) {
	h := NewContactHandlers(setupService(t))
	ctx := context.Background()

	_, found, err := h.FindContacts(ctx, nil, FindContactsInput{Query: "initech"})
	require.NoError(t, err)
	assert.Equal(t, 2, found.Count)

	_, detail, err := h.GetContact(ctx, nil, GetContactInput{ID: wileID})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", detail.Contact.CompanyName)
	require.Len(t, detail.Deals, 1)
	assert.Equal(t, 1, detail.Stats.WonCount)
}

func TestUpdateContactDetachesCompany(t *testing.T) {
	h := NewContactHandlers(setupService(t))

	_, out, err := h.UpdateContact(context.Background(), nil, UpdateContactInput{ID: wileID, CompanyID: "none"})
	require.NoError(t, err)
	assert.Empty(t, out.CompanyID)
}

func TestDeleteContactPrunesDeals(t *testing.T) {
	svc := setupService(t)
	contacts := NewContactHandlers(svc)
	deals := NewDealHandlers(svc)
	ctx := context.Background()

	_, _, err := contacts.DeleteContact(ctx, nil, DeleteInput{ID: wileID})
	require.NoError(t, err)

	_, detail, err := deals.GetDeal(ctx, nil, GetDealInput{ID: renewalID})
	require.NoError(t, err)
	assert.Empty(t, detail.Deal.ContactIDs)
}

func TestCreateDealWithNames(t *testing.T) {
	h := NewDealHandlers(setupService(t))

	_, out, err := h.CreateDeal(context.Background(), nil, CreateDealInput{
		Title:        "Initech Support Plan",
		Value:        250000,
		CompanyName:  "Initech",
		ContactNames: []string{"bill lumbergh"},
		ContactIDs:   []string{jordanID},
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.StageLead), out.Stage)
	assert.Equal(t, initechID, out.CompanyID)
	assert.Equal(t, []string{jordanID, "a3d5e7f9-1b2c-4d3e-8f40-5a6b7c8d0b03"}, out.ContactIDs)
	assert.Empty(t, out.ClosedAt)
}

func TestCreateDealErrors(t *testing.T) {
	h := NewDealHandlers(setupService(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateDealInput
		want  string
	}{
		{"missing title", CreateDealInput{Value: 10}, "title"},
		{"negative value", CreateDealInput{Title: "X", Value: -1}, "must not be negative"},
		{"bad stage", CreateDealInput{Title: "X", Stage: "won"}, "stage"},
		{"unknown contact name", CreateDealInput{Title: "X", ContactNames: []string{"Nobody Here"}}, "no contact named"},
		{"bad contact id", CreateDealInput{Title: "X", ContactIDs: []string{"nope"}}, "invalid contact_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.CreateDeal(ctx, nil, tt.input)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCreateClosedDealStampsClosedAt(t *testing.T) {
	h := NewDealHandlers(setupService(t))

	_, out, err := h.CreateDeal(context.Background(), nil, CreateDealInput{Title: "Done Deal", Stage: "Closed_Won"})
	require.NoError(t, err)
	assert.Equal(t, "closed-won", out.Stage)
	assert.NotEmpty(t, out.ClosedAt)
}

func TestFindDealsByStage(t *testing.T) {
	h := NewDealHandlers(setupService(t))
	ctx := context.Background()

	_, leads, err := h.FindDeals(ctx, nil, FindDealsInput{Stage: "lead"})
	require.NoError(t, err)
	assert.Equal(t, 2, leads.Count)

	_, globex, err := h.FindDeals(ctx, nil, FindDealsInput{Query: "globex", Stage: "negotiation"})
	require.NoError(t, err)
	require.Equal(t, 1, globex.Count)
	assert.Equal(t, pilotID, globex.Deals[0].ID)
	assert.Equal(t, []string{"Hank Scorpio"}, globex.Deals[0].ContactNames)

	_, _, err = h.FindDeals(ctx, nil, FindDealsInput{Stage: "someday"})
	assert.Error(t, err)
}

func TestGetDealTimeline(t *testing.T) {
	h := NewDealHandlers(setupService(t))

	_, out, err := h.GetDeal(context.Background(), nil, GetDealInput{ID: renewalID})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", out.Deal.CompanyName)
	require.Len(t, out.Contacts, 1)
	assert.Equal(t, "Wile", out.Contacts[0].FirstName)

	kinds := make([]string, len(out.Timeline))
	for i, a := range out.Timeline {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []string{"created", "updated", "won"}, kinds)
}

func TestUpdateDeal(t *testing.T) {
	h := NewDealHandlers(setupService(t))
	ctx := context.Background()

	_, out, err := h.UpdateDeal(ctx, nil, UpdateDealInput{
		ID:         tpsID,
		Value:      models.Ref(int64(3500000)),
		CompanyID:  "none",
		ContactIDs: &[]string{wileID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3500000), out.Value)
	assert.Empty(t, out.CompanyID)
	assert.Equal(t, []string{wileID}, out.ContactIDs)
	assert.Equal(t, "lead", out.Stage)

	_, won, err := h.UpdateDeal(ctx, nil, UpdateDealInput{ID: tpsID, Stage: "closed-won"})
	require.NoError(t, err)
	assert.NotEmpty(t, won.ClosedAt)
}

func TestMoveDealStage(t *testing.T) {
	h := NewDealHandlers(setupService(t))
	ctx := context.Background()

	_, out, err := h.MoveDealStage(ctx, nil, MoveDealStageInput{ID: pilotID, Stage: "closed-lost"})
	require.NoError(t, err)
	assert.Equal(t, "negotiation", out.From)
	assert.Equal(t, "closed-lost", out.Deal.Stage)
	assert.NotEmpty(t, out.Deal.ClosedAt)

	_, reopened, err := h.MoveDealStage(ctx, nil, MoveDealStageInput{ID: pilotID, Stage: "negotiation"})
	require.NoError(t, err)
	assert.Equal(t, "closed-lost", reopened.From)
	assert.Equal(t, out.Deal.ClosedAt, reopened.Deal.ClosedAt)

	_, _, err = h.MoveDealStage(ctx, nil, MoveDealStageInput{ID: pilotID, Stage: "archived"})
	assert.Error(t, err)

	_, _, err = h.MoveDealStage(ctx, nil, MoveDealStageInput{ID: "00000000-0000-0000-0000-000000000009", Stage: "lead"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteDeal(t *testing.T) {
	h := NewDealHandlers(setupService(t))
	ctx := context.Background()

	_, out, err := h.DeleteDeal(ctx, nil, DeleteInput{ID: tpsID})
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	_, _, err = h.DeleteDeal(ctx, nil, DeleteInput{ID: tpsID})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
