// ABOUTME: Reusable contract tests for store.Store implementations
// ABOUTME: Every backend (memory, sql, charm) runs this suite from its own tests
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Run exercises the full repository contract against the store built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CompanyCRUD", func(t *testing.T) { testCompanyCRUD(t, newStore(t)) })
	t.Run("CompanyNotFound", func(t *testing.T) { testCompanyNotFound(t, newStore(t)) })
	t.Run("ContactCRUD", func(t *testing.T) { testContactCRUD(t, newStore(t)) })
	t.Run("ContactClearCompany", func(t *testing.T) { testContactClearCompany(t, newStore(t)) })
	t.Run("DealCRUD", func(t *testing.T) { testDealCRUD(t, newStore(t)) })
	t.Run("DealContacts", func(t *testing.T) { testDealContacts(t, newStore(t)) })
	t.Run("DealClosedAt", func(t *testing.T) { testDealClosedAt(t, newStore(t)) })
	t.Run("DealNotFound", func(t *testing.T) { testDealNotFound(t, newStore(t)) })
	t.Run("CreationOrder", func(t *testing.T) { testCreationOrder(t, newStore(t)) })
	t.Run("CreationOrderSameTimestamp", func(t *testing.T) { testCreationOrderSameTimestamp(t, newStore(t)) })
	t.Run("KeepsProvidedIdentity", func(t *testing.T) { testKeepsProvidedIdentity(t, newStore(t)) })
}

func testCompanyCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Companies()

	created, err := repo.Create(ctx, &models.Company{
		Name:     "Acme Corp",
		Industry: "Manufacturing",
		Website:  "https://acme.example",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID, "store should assign an ID")
	assert.False(t, created.CreatedAt.IsZero(), "store should assign CreatedAt")
	assert.False(t, created.UpdatedAt.IsZero(), "store should assign UpdatedAt")

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "Manufacturing", got.Industry)
	assert.Equal(t, "https://acme.example", got.Website)

	updated, err := repo.Update(ctx, created.ID, models.CompanyPatch{Notes: models.Ref("Key account")})
	require.NoError(t, err)
	assert.Equal(t, "Key account", updated.Notes)
	assert.Equal(t, "Acme Corp", updated.Name, "unpatched fields must survive")
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Key account", all[0].Notes)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testCompanyNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Companies()
	missing := uuid.New()

	_, err := repo.GetByID(ctx, missing)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.Update(ctx, missing, models.CompanyPatch{Name: models.Ref("Ghost")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, missing), store.ErrNotFound)
}

func testContactCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()

	company, err := s.Companies().Create(ctx, &models.Company{Name: "Initech"})
	require.NoError(t, err)

	repo := s.Contacts()
	created, err := repo.Create(ctx, &models.Contact{
		FirstName: "Peter",
		LastName:  "Gibbons",
		Email:     "peter@initech.example",
		Role:      "Engineer",
		CompanyID: &company.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, created.CompanyID)
	assert.Equal(t, company.ID, *created.CompanyID)

	updated, err := repo.Update(ctx, created.ID, models.ContactPatch{
		Phone: models.Ref("555-0100"),
		Role:  models.Ref("Manager"),
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "Manager", updated.Role)
	assert.Equal(t, "Peter Gibbons", updated.FullName())
	require.NotNil(t, updated.CompanyID)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), store.ErrNotFound)
}

func testContactClearCompany(t *testing.T, s store.Store) {
	ctx := context.Background()

	company, err := s.Companies().Create(ctx, &models.Company{Name: "Hooli"})
	require.NoError(t, err)

	contact, err := s.Contacts().Create(ctx, &models.Contact{FirstName: "Gavin", LastName: "Belson", CompanyID: &company.ID})
	require.NoError(t, err)

	updated, err := s.Contacts().Update(ctx, contact.ID, models.ContactPatch{CompanyID: models.Ref(uuid.Nil)})
	require.NoError(t, err)
	assert.Nil(t, updated.CompanyID)

	got, err := s.Contacts().GetByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompanyID)
}

func testDealCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Deals()

	created, err := repo.Create(ctx, &models.Deal{
		Title: "Enterprise License",
		Value: 5_000_000,
		Stage: models.StageLead,
		Notes: "Inbound",
	})
	require.NoError(t, err)
	assert.Nil(t, created.ClosedAt)
	assert.NotNil(t, created.ContactIDs, "contact ids should never be nil")
	assert.Empty(t, created.ContactIDs)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Enterprise License", got.Title)
	assert.Equal(t, int64(5_000_000), got.Value)
	assert.Equal(t, models.StageLead, got.Stage)
	assert.Nil(t, got.CompanyID)

	updated, err := repo.Update(ctx, created.ID, models.DealPatch{
		Stage: models.Ref(models.StageNegotiation),
		Value: models.Ref(int64(4_500_000)),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageNegotiation, updated.Stage)
	assert.Equal(t, int64(4_500_000), updated.Value)
	assert.Equal(t, "Inbound", updated.Notes)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDealContacts(t *testing.T, s store.Store) {
	ctx := context.Background()

	a, err := s.Contacts().Create(ctx, &models.Contact{FirstName: "Ann", LastName: "A"})
	require.NoError(t, err)
	b, err := s.Contacts().Create(ctx, &models.Contact{FirstName: "Bob", LastName: "B"})
	require.NoError(t, err)
	dangling := uuid.New()

	deal, err := s.Deals().Create(ctx, &models.Deal{
		Title:      "Team Deal",
		Stage:      models.StageLead,
		ContactIDs: []uuid.UUID{a.ID, dangling},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, dangling}, deal.ContactIDs, "dangling ids are tolerated")

	updated, err := s.Deals().Update(ctx, deal.ID, models.DealPatch{ContactIDs: &[]uuid.UUID{b.ID, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, updated.ContactIDs)

	// A patch without ContactIDs keeps the existing list
	updated, err = s.Deals().Update(ctx, deal.ID, models.DealPatch{Title: models.Ref("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, updated.ContactIDs)

	got, err := s.Deals().GetByID(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, got.ContactIDs)
}

func testDealClosedAt(t *testing.T, s store.Store) {
	ctx := context.Background()

	deal, err := s.Deals().Create(ctx, &models.Deal{Title: "Closing", Stage: models.StageNegotiation})
	require.NoError(t, err)

	closedAt := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	updated, err := s.Deals().Update(ctx, deal.ID, models.DealPatch{
		Stage:    models.Ref(models.StageClosedWon),
		ClosedAt: &closedAt,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)
	assert.True(t, closedAt.Equal(*updated.ClosedAt))

	// Moving back to an active stage leaves ClosedAt alone
	reopened, err := s.Deals().Update(ctx, deal.ID, models.DealPatch{Stage: models.Ref(models.StageLead)})
	require.NoError(t, err)
	require.NotNil(t, reopened.ClosedAt)
	assert.True(t, closedAt.Equal(*reopened.ClosedAt))
}

func testDealNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	missing := uuid.New()

	_, err := s.Deals().GetByID(ctx, missing)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Deals().Update(ctx, missing, models.DealPatch{Stage: models.Ref(models.StageClosedLost)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.Deals().Delete(ctx, missing), store.ErrNotFound)
}

func testCreationOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	titles := []string{"first", "second", "third"}
	for i, title := range titles {
		stamp := base.Add(time.Duration(i) * time.Hour)
		_, err := s.Deals().Create(ctx, &models.Deal{
			Title:     title,
			Stage:     models.StageLead,
			CreatedAt: stamp,
			UpdatedAt: stamp,
		})
		require.NoError(t, err)
	}

	all, err := s.Deals().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, title := range titles {
		assert.Equal(t, title, all[i].Title)
	}
}

// Records sharing a CreatedAt must still come back in insertion order,
// for every kind.
func testCreationOrderSameTimestamp(t *testing.T, s store.Store) {
	ctx := context.Background()
	stamp := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	var want []string
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("c%d", i)
		want = append(want, name)

		_, err := s.Companies().Create(ctx, &models.Company{Name: name, CreatedAt: stamp, UpdatedAt: stamp})
		require.NoError(t, err)
		_, err = s.Contacts().Create(ctx, &models.Contact{FirstName: name, LastName: "Tied", CreatedAt: stamp, UpdatedAt: stamp})
		require.NoError(t, err)
		_, err = s.Deals().Create(ctx, &models.Deal{Title: name, Stage: models.StageLead, CreatedAt: stamp, UpdatedAt: stamp})
		require.NoError(t, err)
	}

	companies, err := s.Companies().GetAll(ctx)
	require.NoError(t, err)
	contacts, err := s.Contacts().GetAll(ctx)
	require.NoError(t, err)
	deals, err := s.Deals().GetAll(ctx)
	require.NoError(t, err)

	var gotCompanies, gotContacts, gotDeals []string
	for _, c := range companies {
		gotCompanies = append(gotCompanies, c.Name)
	}
	for _, c := range contacts {
		gotContacts = append(gotContacts, c.FirstName)
	}
	for _, d := range deals {
		gotDeals = append(gotDeals, d.Title)
	}
	assert.Equal(t, want, gotCompanies)
	assert.Equal(t, want, gotContacts)
	assert.Equal(t, want, gotDeals)

	// an update must not move a record
	_, err = s.Deals().Update(ctx, deals[0].ID, models.DealPatch{Notes: models.Ref("touched")})
	require.NoError(t, err)
	deals, err = s.Deals().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c0", deals[0].Title)
}

func testKeepsProvidedIdentity(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := uuid.New()
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	created, err := s.Companies().Create(ctx, &models.Company{
		ID:        id,
		Name:      "Seeded Co",
		CreatedAt: stamp,
		UpdatedAt: stamp,
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)

	got, err := s.Companies().GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(got.CreatedAt))
}
