// ABOUTME: Tests for the CRM service layer
// ABOUTME: Covers validation, stage stamping, integrity rules, search, views and the dashboard
package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/metrics"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	svc   *Service
	mem   *store.Memory
	clock *time.Time
}

func setupService(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{clock: &clock}
	now := func() time.Time { return *f.clock }
	f.mem = store.NewMemory(store.WithClock(now))
	f.svc = New(f.mem, append([]Option{WithClock(now)}, opts...)...)
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestCreateCompanyRequiresName(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.CreateCompany(context.Background(), &models.Company{Name: "   "})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.True(t, IsCallerError(err))
}

func TestCreateContactRequiresNames(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.CreateContact(ctx, &models.Contact{LastName: "Hopper"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "first_name", verr.Field)

	_, err = f.svc.CreateContact(ctx, &models.Contact{FirstName: "Grace"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "last_name", verr.Field)

	created, err := f.svc.CreateContact(ctx, &models.Contact{FirstName: " Grace ", LastName: "Hopper", CompanyID: models.Ref(uuid.Nil)})
	require.NoError(t, err)
	assert.Equal(t, "Grace", created.FirstName)
	assert.Nil(t, created.CompanyID)
}

func TestCreateDealValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		deal  models.Deal
		field string
	}{
		{"missing title", models.Deal{Value: 10}, "title"},
		{"negative value", models.Deal{Title: "x", Value: -1}, "value"},
		{"bad stage", models.Deal{Title: "x", Stage: "won"}, "stage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.deal
			_, err := f.svc.CreateDeal(ctx, &d)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCreateDealDefaults(t *testing.T) {
	f := setupService(t)

	created, err := f.svc.CreateDeal(context.Background(), &models.Deal{Title: "Fresh", Value: 0})
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, created.Stage)
	assert.Nil(t, created.ClosedAt)
	assert.NotNil(t, created.ContactIDs)
}

func TestCreateDealAlreadyClosed(t *testing.T) {
	f := setupService(t)

	created, err := f.svc.CreateDeal(context.Background(), &models.Deal{Title: "Done", Stage: models.StageClosedWon, Value: 100})
	require.NoError(t, err)
	require.NotNil(t, created.ClosedAt)
	assert.Equal(t, *f.clock, *created.ClosedAt)
}

func TestUpdateDealStageStampsClosedAt(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Upsell", Value: 500})
	require.NoError(t, err)

	f.advance(time.Hour)
	won, err := f.svc.UpdateDeal(ctx, deal.ID, models.DealPatch{Stage: models.Ref(models.StageClosedWon)})
	require.NoError(t, err)
	require.NotNil(t, won.ClosedAt)
	closedAt := *won.ClosedAt
	assert.Equal(t, *f.clock, closedAt)

	f.advance(time.Hour)
	lost, err := f.svc.UpdateDeal(ctx, deal.ID, models.DealPatch{Stage: models.Ref(models.StageClosedLost)})
	require.NoError(t, err)
	assert.Equal(t, closedAt, *lost.ClosedAt, "closed_at is sticky between terminal stages")
}

func TestUpdateDealIgnoresCallerClosedAt(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Sneaky"})
	require.NoError(t, err)

	forged := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err := f.svc.UpdateDeal(ctx, deal.ID, models.DealPatch{Notes: models.Ref("hi"), ClosedAt: &forged})
	require.NoError(t, err)
	assert.Nil(t, updated.ClosedAt)
}

func TestUpdateDealValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Valid"})
	require.NoError(t, err)

	_, err = f.svc.UpdateDeal(ctx, deal.ID, models.DealPatch{Value: models.Ref(int64(-5))})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.UpdateDeal(ctx, deal.ID, models.DealPatch{Title: models.Ref("")})
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.UpdateDeal(ctx, uuid.New(), models.DealPatch{Stage: models.Ref(models.StageLead)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMoveDealRecordsTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	f := setupService(t, WithMetrics(collector))
	ctx := context.Background()

	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Mover", Value: 10})
	require.NoError(t, err)

	moved, err := f.svc.MoveDeal(ctx, deal.ID, models.StageNegotiation)
	require.NoError(t, err)
	assert.Equal(t, models.StageNegotiation, moved.Stage)

	_, err = f.svc.MoveDeal(ctx, deal.ID, models.StageNegotiation)
	require.NoError(t, err)

	_, err = f.svc.MoveDeal(ctx, deal.ID, "bogus")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	// Only lead -> negotiation counts; the same-stage move is not a transition
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "dealdesk_stage_transitions_total"))
	// deal/create/ok, deal/move/ok, deal/move/error
	assert.Equal(t, 3, testutil.CollectAndCount(reg, "dealdesk_operations_total"))
}

func TestMoveDealStageReportsPreviousStage(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Mover", Stage: models.StageNegotiation})
	require.NoError(t, err)

	res, err := f.svc.MoveDealStage(ctx, deal.ID, models.StageClosedWon)
	require.NoError(t, err)
	assert.Equal(t, models.StageNegotiation, res.From)
	assert.Equal(t, models.StageClosedWon, res.Deal.Stage)
	require.NotNil(t, res.Deal.ClosedAt)

	_, err = f.svc.MoveDealStage(ctx, uuid.New(), models.StageLead)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCompanyBlockedByDeals(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	company, err := f.svc.CreateCompany(ctx, &models.Company{Name: "Busy Co"})
	require.NoError(t, err)
	_, err = f.svc.CreateDeal(ctx, &models.Deal{Title: "Linked", CompanyID: &company.ID})
	require.NoError(t, err)

	err = f.svc.DeleteCompany(ctx, company.ID)
	assert.ErrorIs(t, err, ErrInUse)

	_, err = f.svc.GetCompany(ctx, company.ID)
	assert.NoError(t, err, "company must survive a blocked delete")
}

func TestDeleteCompanyDetachesContacts(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	company, err := f.svc.CreateCompany(ctx, &models.Company{Name: "Quiet Co"})
	require.NoError(t, err)
	contact, err := f.svc.CreateContact(ctx, &models.Contact{FirstName: "Ann", LastName: "Lee", CompanyID: &company.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCompany(ctx, company.ID))

	got, err := f.svc.GetContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompanyID)

	assert.ErrorIs(t, f.svc.DeleteCompany(ctx, company.ID), store.ErrNotFound)
}

func TestDeleteContactPrunesDeals(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	keep, err := f.svc.CreateContact(ctx, &models.Contact{FirstName: "Keep", LastName: "Me"})
	require.NoError(t, err)
	drop, err := f.svc.CreateContact(ctx, &models.Contact{FirstName: "Drop", LastName: "Me"})
	require.NoError(t, err)
	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Shared", ContactIDs: []uuid.UUID{drop.ID, keep.ID}})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteContact(ctx, drop.ID))

	got, err := f.svc.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{keep.ID}, got.ContactIDs)
}

func TestDeleteDeal(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Gone"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteDeal(ctx, deal.ID))
	assert.ErrorIs(t, f.svc.DeleteDeal(ctx, deal.ID), store.ErrNotFound)
}

func seedSearchData(t *testing.T, f *fixture) (models.Company, models.Contact, models.Deal) {
	t.Helper()
	ctx := context.Background()

	company, err := f.svc.CreateCompany(ctx, &models.Company{Name: "Acme Corp", Industry: "Robotics"})
	require.NoError(t, err)
	contact, err := f.svc.CreateContact(ctx, &models.Contact{FirstName: "Wile", LastName: "Coyote", Email: "wile@acme.test", Role: "Buyer", CompanyID: &company.ID})
	require.NoError(t, err)
	_, err = f.svc.CreateContact(ctx, &models.Contact{FirstName: "Road", LastName: "Runner", Role: "Freelancer"})
	require.NoError(t, err)
	deal, err := f.svc.CreateDeal(ctx, &models.Deal{Title: "Anvil Supply", Value: 900, CompanyID: &company.ID, ContactIDs: []uuid.UUID{contact.ID, uuid.New()}})
	require.NoError(t, err)
	_, err = f.svc.CreateDeal(ctx, &models.Deal{Title: "Orphan Deal", Value: 100})
	require.NoError(t, err)
	return *company, *contact, *deal
}

func TestListCompaniesSearch(t *testing.T) {
	f := setupService(t)
	seedSearchData(t, f)
	ctx := context.Background()

	got, err := f.svc.ListCompanies(ctx, "ROBOT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Corp", got[0].Name)

	got, err = f.svc.ListCompanies(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListContactsSearch(t *testing.T) {
	f := setupService(t)
	seedSearchData(t, f)
	ctx := context.Background()

	all, err := f.svc.ListContacts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme Corp", all[0].CompanyName)
	assert.Equal(t, NoCompany, all[1].CompanyName)

	byCompany, err := f.svc.ListContacts(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "Wile", byCompany[0].FirstName)

	byFallback, err := f.svc.ListContacts(ctx, "no company")
	require.NoError(t, err)
	require.Len(t, byFallback, 1)
	assert.Equal(t, "Road", byFallback[0].FirstName)

	byFullName, err := f.svc.ListContacts(ctx, "wile coy")
	require.NoError(t, err)
	assert.Len(t, byFullName, 1)
}

func TestListDealsSearch(t *testing.T) {
	f := setupService(t)
	seedSearchData(t, f)
	ctx := context.Background()

	all, err := f.svc.ListDeals(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"Wile Coyote", UnknownContact}, all[0].ContactNames)
	assert.Equal(t, NoCompany, all[1].CompanyName)

	byContact, err := f.svc.ListDeals(ctx, "coyote")
	require.NoError(t, err)
	require.Len(t, byContact, 1)
	assert.Equal(t, "Anvil Supply", byContact[0].Title)

	byUnknown, err := f.svc.ListDeals(ctx, "unknown")
	require.NoError(t, err)
	assert.Len(t, byUnknown, 1)
}

func TestSearchAcrossKinds(t *testing.T) {
	f := setupService(t)
	seedSearchData(t, f)

	res, err := f.svc.Search(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, res.Companies, 1)
	assert.Len(t, res.Contacts, 1)
	assert.Len(t, res.Deals, 1)
}

func TestCompanyAndContactDetail(t *testing.T) {
	f := setupService(t)
	company, contact, deal := seedSearchData(t, f)
	ctx := context.Background()

	_, err := f.svc.MoveDeal(ctx, deal.ID, models.StageClosedWon)
	require.NoError(t, err)

	cd, err := f.svc.CompanyDetail(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, cd.Contacts, 1)
	assert.Len(t, cd.Deals, 1)
	assert.Equal(t, int64(900), cd.Stats.TotalValue)
	assert.Equal(t, 1, cd.Stats.WonCount)
	assert.Equal(t, 0, cd.Stats.ActiveCount)

	pd, err := f.svc.ContactDetail(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", pd.CompanyName)
	require.Len(t, pd.Deals, 1)
	assert.Equal(t, deal.ID, pd.Deals[0].ID)

	_, err = f.svc.CompanyDetail(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDealDetailTimeline(t *testing.T) {
	f := setupService(t)
	_, contact, deal := seedSearchData(t, f)
	ctx := context.Background()

	detail, err := f.svc.DealDetail(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", detail.CompanyName)
	require.Len(t, detail.Contacts, 1, "dangling contact ids are dropped")
	assert.Equal(t, contact.ID, detail.Contacts[0].ID)
	require.Len(t, detail.Timeline, 1)
	assert.Equal(t, ActivityCreated, detail.Timeline[0].Kind)

	f.advance(time.Hour)
	_, err = f.svc.MoveDeal(ctx, deal.ID, models.StageClosedLost)
	require.NoError(t, err)

	detail, err = f.svc.DealDetail(ctx, deal.ID)
	require.NoError(t, err)
	kinds := []string{}
	for _, a := range detail.Timeline {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []string{ActivityCreated, ActivityUpdated, ActivityLost}, kinds)
}

func TestTimelineReopenedDeal(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := created.Add(time.Hour)
	d := models.Deal{Stage: models.StageLead, CreatedAt: created, UpdatedAt: closed.Add(time.Hour), ClosedAt: &closed}

	events := Timeline(d)
	require.Len(t, events, 3)
	assert.Equal(t, ActivityClosed, events[2].Kind)
	assert.Equal(t, closed, events[2].At)
}

func TestPipelineView(t *testing.T) {
	f := setupService(t)
	_, _, deal := seedSearchData(t, f)

	view, err := f.svc.Pipeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, view.ActiveCount)
	assert.Equal(t, int64(1000), view.PipelineValue)
	assert.Equal(t, "Acme Corp", view.CompanyNames[deal.ID])
}

func TestDashboard(t *testing.T) {
	f := setupService(t)
	_, _, deal := seedSearchData(t, f)
	ctx := context.Background()

	_, err := f.svc.MoveDeal(ctx, deal.ID, models.StageClosedWon)
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.CompanyCount)
	assert.Equal(t, 2, dash.ContactCount)
	assert.Equal(t, 2, dash.DealCount)
	assert.Equal(t, int64(900), dash.ClosedRevenue)
	assert.Equal(t, 1, dash.Pipeline.ActiveCount)
}

type brokenStore struct {
	*store.Memory
	err error
}

func (b *brokenStore) Contacts() store.ContactRepository {
	return &brokenContacts{ContactRepository: b.Memory.Contacts(), err: b.err}
}

type brokenContacts struct {
	store.ContactRepository
	err error
}

func (b *brokenContacts) GetAll(ctx context.Context) ([]models.Contact, error) {
	return nil, b.err
}

func TestDashboardFailsWhenAnyLoadFails(t *testing.T) {
	boom := store.Unavailable(errors.New("disk on fire"))
	svc := New(&brokenStore{Memory: store.NewMemory(), err: boom})

	_, err := svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.False(t, IsCallerError(err))
}
