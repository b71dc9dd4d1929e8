// ABOUTME: Tests for the TUI model
// ABOUTME: Drives key presses through Update against a seeded memory store
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/fixtures"
	"github.com/harperreed/dealdesk/metrics"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	acmeID = uuid.MustParse("6f1c2a44-0b8e-4d1a-9a51-2f7e0c1d0a01")
	tpsID  = uuid.MustParse("c8e1f2a3-4b5c-4d6e-9f70-8a9b0c1d0c03")
)

var fixedNow = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func setupModel(t *testing.T, opts ...Option) (Model, *crm.Service) {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, fixtures.SeedMemory(mem))
	svc := crm.New(mem)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	m := NewModel(context.Background(), svc, opts...)
	require.NoError(t, m.err)
	return m, svc
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestNewModelShowsBoard(t *testing.T) {
	m, _ := setupModel(t)

	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, EntityPipeline, m.entityType)
	require.NotNil(t, m.board)
	assert.Equal(t, 2, m.board.Group(models.StageLead).Count)

	view := m.View()
	assert.Contains(t, view, "DEALDESK")
	assert.Contains(t, view, "Lead (2)")
	assert.Contains(t, view, "Initech TPS Automation")
}

func TestTabCyclesEntityTypes(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, keyTab)
	assert.Equal(t, EntityDeals, m.entityType)
	assert.Contains(t, m.View(), "Advisory Retainer")

	m = press(t, m, keyTab)
	assert.Equal(t, EntityCompanies, m.entityType)
	assert.Contains(t, m.View(), "Umbrella Health")

	m = press(t, m, keyTab)
	assert.Equal(t, EntityContacts, m.entityType)
	assert.Contains(t, m.View(), "Samir Nagheenanajar")

	m = press(t, m, keyTab)
	assert.Equal(t, EntityPipeline, m.entityType)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, EntityContacts, m.entityType)
}

func TestSearchFiltersLists(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, runes("/"))
	assert.True(t, m.searching)

	m = press(t, m, runes("globex"), keyEnter)
	assert.False(t, m.searching)
	assert.Equal(t, "globex", m.searchQuery)
	assert.Len(t, m.companies, 1)
	assert.Len(t, m.deals, 2)
	assert.Empty(t, m.column(0), "no lead deals match")
	assert.Contains(t, m.View(), "Filter: globex")

	m = press(t, m, keyEsc)
	assert.Empty(t, m.searchQuery)
	assert.Len(t, m.companies, 4)
}

func TestBoardMovesDealToNextStage(t *testing.T) {
	m, svc := setupModel(t)

	deal := m.boardDeal()
	require.NotNil(t, deal)
	assert.Equal(t, tpsID, deal.ID)

	m = press(t, m, runes("]"))
	require.NoError(t, m.err)

	stored, err := svc.GetDeal(context.Background(), tpsID)
	require.NoError(t, err)
	assert.Equal(t, models.StageNegotiation, stored.Stage)

	assert.Equal(t, 1, m.stageCol, "cursor follows the deal")
	require.NotNil(t, m.boardDeal())
	assert.Equal(t, tpsID, m.boardDeal().ID)
	assert.Contains(t, m.status, "moved to Negotiation")

	m = press(t, m, runes("]"))
	stored, err = svc.GetDeal(context.Background(), tpsID)
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedWon, stored.Stage)
	assert.NotNil(t, stored.ClosedAt)
}

func TestBoardCursorStaysInBounds(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, runes("h"), runes("k"))
	assert.Equal(t, 0, m.stageCol)
	assert.Equal(t, 0, m.stageRow)

	m = press(t, m, runes("l"), runes("l"), runes("l"), runes("l"), runes("l"))
	assert.Equal(t, 3, m.stageCol)

	m = press(t, m, runes("j"), runes("j"))
	assert.Equal(t, 0, m.stageRow, "closed lost has a single deal")

	m = press(t, m, runes("]"))
	assert.Equal(t, 3, m.stageCol, "last stage has nowhere to go")
}

func TestEnterOpensDealDetail(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, keyEnter)
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, tpsID, m.selectedID)

	view := m.View()
	assert.Contains(t, view, "Initech TPS Automation")
	assert.Contains(t, view, "Bill Lumbergh, Samir Nagheenanajar")
	assert.Contains(t, view, "TIMELINE")

	m = press(t, m, keyEsc)
	assert.Equal(t, ViewList, m.viewMode)
}

func TestCompanyDetail(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, keyTab, keyTab, keyEnter)
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, acmeID, m.selectedID)

	view := m.View()
	assert.Contains(t, view, "Acme Corporation")
	assert.Contains(t, view, "Wile Coyote")
	assert.Contains(t, view, "Acme Annual Renewal")
}

func TestCreateCompanyFromForm(t *testing.T) {
	m, svc := setupModel(t)

	m = press(t, m, keyTab, keyTab, runes("n"))
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Equal(t, EntityCompanies, m.selectedKind)
	assert.Contains(t, m.View(), "NEW COMPANY")

	m = press(t, m, runes("Hooli"), keyTab, runes("Software"), keyEnter)
	require.NoError(t, m.err)
	assert.Equal(t, ViewList, m.viewMode)
	assert.Contains(t, m.status, "Created Hooli")

	companies, err := svc.ListCompanies(context.Background(), "hooli")
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Software", companies[0].Industry)
}

func TestCreateDealFromBoard(t *testing.T) {
	m, svc := setupModel(t)

	m = press(t, m, runes("n"))
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Equal(t, EntityDeals, m.selectedKind)

	m = press(t, m,
		runes("Hooli Search"), keyTab,
		runes("12,500"), keyTab,
		keyTab,
		runes("Hooli"), keyTab,
		runes("Jordan Freelance"),
		keyEnter,
	)
	require.NoError(t, m.err)

	deals, err := svc.ListDeals(context.Background(), "hooli search")
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, int64(1250000), deals[0].Value)
	assert.Equal(t, models.StageLead, deals[0].Stage)
	assert.Equal(t, "Hooli", deals[0].CompanyName, "unknown company names are created")
	assert.Equal(t, []string{"Jordan Freelance"}, deals[0].ContactNames)
	assert.Equal(t, 3, m.board.Group(models.StageLead).Count)
}

func TestFormRejectsUnknownContact(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, runes("n"), runes("Ghost deal"), keyTab, keyTab, keyTab, keyTab, runes("Nobody Atall"), keyEnter)
	assert.Equal(t, ViewEdit, m.viewMode)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "no contact named")
}

func TestEditDealStageStampsClose(t *testing.T) {
	m, svc := setupModel(t)

	m = press(t, m, keyEnter, runes("e"))
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Equal(t, "Initech TPS Automation", m.formInputs[0].Value())
	assert.Equal(t, "32000.00", m.formInputs[1].Value())
	assert.Equal(t, "lead", m.formInputs[2].Value())

	m.formInputs[2].SetValue("closed-lost")
	m = press(t, m, keyEnter)
	require.NoError(t, m.err)
	assert.Equal(t, ViewDetail, m.viewMode)

	stored, err := svc.GetDeal(context.Background(), tpsID)
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedLost, stored.Stage)
	assert.NotNil(t, stored.ClosedAt)
	assert.Equal(t, int64(3200000), stored.Value)
	assert.Len(t, stored.ContactIDs, 2)
}

func TestEditDealSavesInOneUpdate(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, fixtures.SeedMemory(mem))
	reg := prometheus.NewRegistry()
	svc := crm.New(mem, crm.WithMetrics(metrics.NewCollector(reg)))
	m := NewModel(context.Background(), svc, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, m.err)

	m = press(t, m, keyEnter, runes("e"))
	require.Equal(t, ViewEdit, m.viewMode)
	m.formInputs[0].SetValue("TPS Automation v2")
	m.formInputs[2].SetValue("negotiation")
	m = press(t, m, keyEnter)
	require.NoError(t, m.err)

	// A single deal/update/ok series and no deal/move series.
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "dealdesk_operations_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "dealdesk_stage_transitions_total"))

	stored, err := svc.GetDeal(context.Background(), tpsID)
	require.NoError(t, err)
	assert.Equal(t, "TPS Automation v2", stored.Title)
	assert.Equal(t, models.StageNegotiation, stored.Stage)
	assert.Nil(t, stored.ClosedAt)
}

func TestDeleteCompanyInUse(t *testing.T) {
	m, svc := setupModel(t)

	m = press(t, m, keyTab, keyTab, keyEnter, runes("d"))
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "Acme Corporation")

	m = press(t, m, runes("y"))
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.True(t, errors.Is(m.err, crm.ErrInUse))

	_, err := svc.GetCompany(context.Background(), acmeID)
	assert.NoError(t, err)
}

func TestDeleteDeal(t *testing.T) {
	m, svc := setupModel(t)

	m = press(t, m, keyEnter, runes("d"), runes("n"))
	assert.Equal(t, ViewDetail, m.viewMode)

	m = press(t, m, runes("d"), runes("y"))
	require.NoError(t, m.err)
	assert.Equal(t, ViewList, m.viewMode)
	assert.Contains(t, m.status, "Deleted Initech TPS Automation")

	_, err := svc.GetDeal(context.Background(), tpsID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, m.board.Group(models.StageLead).Count)
}

func TestGraphView(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, keyTab, keyTab, keyEnter, runes("g"))
	require.NoError(t, m.err)
	assert.Equal(t, ViewGraph, m.viewMode)
	assert.Contains(t, m.graphDOT, "digraph")
	assert.Contains(t, m.graphDOT, "Wile Coyote")

	m = press(t, m, keyDown)
	assert.Equal(t, 1, m.graphOffset)

	m = press(t, m, keyEsc)
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Empty(t, m.graphDOT)
}

type fakeSyncer struct {
	calls int
	err   error
	last  time.Time
}

func (f *fakeSyncer) Sync() error {
	f.calls++
	if f.err == nil {
		f.last = fixedNow
	}
	return f.err
}

func (f *fakeSyncer) LastSync() time.Time { return f.last }

func TestSyncView(t *testing.T) {
	syncer := &fakeSyncer{}
	m, _ := setupModel(t, WithSyncer(syncer))

	m = press(t, m, runes("S"))
	require.Equal(t, ViewSync, m.viewMode)
	assert.Contains(t, m.View(), "Never synced")

	updated, cmd := m.Update(runes("s"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.syncing)
	assert.Contains(t, m.View(), "Syncing")

	updated, _ = m.Update(cmd())
	m = updated.(Model)
	assert.False(t, m.syncing)
	assert.Equal(t, 1, syncer.calls)
	assert.Contains(t, strings.Join(m.syncMessages, "\n"), "✓ Sync completed")
	assert.Contains(t, m.View(), "Last synced")
}

func TestSyncViewReportsFailure(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("connection refused")}
	m, _ := setupModel(t, WithSyncer(syncer))

	m = press(t, m, runes("S"))
	updated, cmd := m.Update(keyEnter)
	m = updated.(Model)
	updated, _ = m.Update(cmd())
	m = updated.(Model)

	assert.Contains(t, strings.Join(m.syncMessages, "\n"), "✗ Sync failed: connection refused")
}

func TestSyncViewWithoutSyncer(t *testing.T) {
	m, _ := setupModel(t)

	m = press(t, m, runes("S"))
	assert.Contains(t, m.View(), "only available with the charm backend")

	updated, cmd := m.Update(runes("s"))
	assert.Nil(t, cmd)
	m = press(t, updated.(Model), keyEsc)
	assert.Equal(t, ViewList, m.viewMode)
}

func TestQuit(t *testing.T) {
	m, _ := setupModel(t)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
