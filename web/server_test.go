// ABOUTME: HTTP API tests against a fixture-seeded in-memory store
// ABOUTME: Covers routing, error mapping, stage moves, rate limiting and metrics
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/fixtures"
	"github.com/harperreed/dealdesk/metrics"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	acmeID     = "6f1c2a44-0b8e-4d1a-9a51-2f7e0c1d0a01"
	wileID     = "a3d5e7f9-1b2c-4d3e-8f40-5a6b7c8d0b01"
	renewalID  = "c8e1f2a3-4b5c-4d6e-9f70-8a9b0c1d0c01"
	initechDID = "c8e1f2a3-4b5c-4d6e-9f70-8a9b0c1d0c03"
)

func setupServer(t *testing.T, opts Options) *Server {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, fixtures.SeedMemory(mem))
	var svcOpts []crm.Option
	if opts.Metrics != nil {
		svcOpts = append(svcOpts, crm.WithMetrics(opts.Metrics))
	}
	return NewServer(crm.New(mem, svcOpts...), opts)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s := setupServer(t, Options{})
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := setupServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get(requestIDHeader))
}

func TestListAndSearchDeals(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/deals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]crm.DealView](t, rec), 6)

	rec = do(t, s, http.MethodGet, "/api/deals?q=globex", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deals := decode[[]crm.DealView](t, rec)
	require.Len(t, deals, 2)
	for _, d := range deals {
		assert.Equal(t, "Globex Industries", d.CompanyName)
	}

	rec = do(t, s, http.MethodGet, "/api/deals?stage=lead", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]crm.DealView](t, rec), 2)

	rec = do(t, s, http.MethodGet, "/api/deals?stage=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompanyLifecycle(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/companies", map[string]string{"name": "Hooli", "industry": "Tech"})
	require.Equal(t, http.StatusCreated, rec.Code)
	company := decode[models.Company](t, rec)
	assert.NotEqual(t, uuid.Nil, company.ID)

	rec = do(t, s, http.MethodPatch, "/api/companies/"+company.ID.String(), map[string]string{"website": "https://hooli.example"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://hooli.example", decode[models.Company](t, rec).Website)

	rec = do(t, s, http.MethodGet, "/api/companies/"+company.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[crm.CompanyDetail](t, rec)
	assert.Equal(t, "Hooli", detail.Company.Name)
	assert.Empty(t, detail.Deals)

	rec = do(t, s, http.MethodDelete, "/api/companies/"+company.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/companies/"+company.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decode[APIError](t, rec).Code)
}

func TestDeleteCompanyInUse(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodDelete, "/api/companies/"+acmeID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeInUse, decode[APIError](t, rec).Code)
}

func TestValidationErrors(t *testing.T) {
	s := setupServer(t, Options{})

	tests := []struct {
		name string
		path string
		body any
		code string
	}{
		{"missing company name", "/api/companies", map[string]string{"industry": "x"}, codeValidation},
		{"missing contact names", "/api/contacts", map[string]string{"email": "a@b.c"}, codeValidation},
		{"negative deal value", "/api/deals", map[string]any{"title": "x", "value": -5}, codeValidation},
		{"unknown stage", "/api/deals", map[string]any{"title": "x", "stage": "won"}, codeValidation},
		{"malformed json", "/api/deals", "{", codeInvalidRequest},
		{"unknown field", "/api/companies", map[string]string{"name": "x", "colour": "red"}, codeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode[APIError](t, rec).Code)
		})
	}
}

func TestCompanyRefNoneClearsLink(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodPatch, "/api/contacts/"+wileID, map[string]any{"company_id": "none"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[models.Contact](t, rec).CompanyID)

	rec = do(t, s, http.MethodPatch, "/api/contacts/"+wileID, map[string]any{"company_id": acmeID})
	require.Equal(t, http.StatusOK, rec.Code)
	relinked := decode[models.Contact](t, rec)
	require.NotNil(t, relinked.CompanyID)
	assert.Equal(t, acmeID, relinked.CompanyID.String())

	rec = do(t, s, http.MethodPatch, "/api/deals/"+renewalID, map[string]any{"company_id": "none"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[models.Deal](t, rec).CompanyID)

	rec = do(t, s, http.MethodPost, "/api/contacts", map[string]any{
		"first_name": "Road", "last_name": "Runner", "company_id": "none",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, decode[models.Contact](t, rec).CompanyID)

	rec = do(t, s, http.MethodPatch, "/api/deals/"+renewalID, map[string]any{"company_id": "acme"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[APIError](t, rec).Code)
}

func TestInvalidID(t *testing.T) {
	s := setupServer(t, Options{})
	rec := do(t, s, http.MethodGet, "/api/deals/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDealAndMoveStage(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/deals", map[string]any{
		"title":       "Roadrunner Tracking",
		"value":       250000,
		"company_id":  acmeID,
		"contact_ids": []string{wileID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	deal := decode[models.Deal](t, rec)
	assert.Equal(t, models.StageLead, deal.Stage)
	assert.Nil(t, deal.ClosedAt)

	rec = do(t, s, http.MethodPost, "/api/deals/"+deal.ID.String()+"/stage", map[string]string{"stage": "Closed_Won"})
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[models.Deal](t, rec)
	assert.Equal(t, models.StageClosedWon, moved.Stage)
	require.NotNil(t, moved.ClosedAt)

	rec = do(t, s, http.MethodGet, "/api/deals/"+deal.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[crm.DealDetail](t, rec)
	assert.Equal(t, "Acme Corporation", detail.CompanyName)
	require.Len(t, detail.Contacts, 1)
	assert.Equal(t, "Wile", detail.Contacts[0].FirstName)
	assert.Equal(t, crm.ActivityWon, detail.Timeline[len(detail.Timeline)-1].Kind)
}

func TestMoveStageErrors(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/deals/"+initechDID+"/stage", map[string]string{"stage": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/deals/"+uuid.NewString()+"/stage", map[string]string{"stage": "negotiation"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDealRejectsClosedAt(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodPatch, "/api/deals/"+renewalID, map[string]any{"closed_at": "2020-01-01T00:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPatch, "/api/deals/"+renewalID, map[string]any{"notes": "Signed for three years"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Signed for three years", decode[models.Deal](t, rec).Notes)
}

func TestPipelineAndDashboard(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/pipeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[crm.PipelineView](t, rec)
	require.Len(t, view.Stages, 4)
	assert.Equal(t, 2, view.Group(models.StageLead).Count)
	assert.Equal(t, int64(4800000), view.ClosedRevenue)
	assert.Equal(t, int64(12550000), view.PipelineValue)

	rec = do(t, s, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[crm.Dashboard](t, rec)
	assert.Equal(t, 4, dash.CompanyCount)
	assert.Equal(t, 6, dash.ContactCount)
	assert.Equal(t, 6, dash.DealCount)
}

func TestSearch(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/search?q=acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[crm.SearchResults](t, rec)
	assert.Len(t, results.Companies, 1)
	assert.NotEmpty(t, results.Deals)
}

type downStore struct {
	*store.Memory
}

func (downStore) Deals() store.DealRepository { return downDeals{} }

type downDeals struct {
	store.DealRepository
}

func (downDeals) GetAll(context.Context) ([]models.Deal, error) {
	return nil, store.Unavailable(assert.AnError)
}

func TestUnavailableStoreIs503(t *testing.T) {
	s := NewServer(crm.New(downStore{store.NewMemory()}), Options{})

	rec := do(t, s, http.MethodGet, "/api/pipeline", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[APIError](t, rec)
	assert.Equal(t, codeUnavailable, body.Code)
	assert.NotContains(t, body.Message, assert.AnError.Error())
}

func TestRecoversFromPanic(t *testing.T) {
	s := NewServer(crm.New(store.NewMemory()), Options{})
	s.router.(interface {
		Get(string, http.HandlerFunc)
	}).Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rec := do(t, s, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, codeInternal, decode[APIError](t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	s := setupServer(t, Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/pipeline", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/pipeline", nil).Code)
	rec := do(t, s, http.MethodGet, "/api/pipeline", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// health checks are never limited
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)

	s.SetRateLimit(0, 0)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/pipeline", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := setupServer(t, Options{Metrics: metrics.NewCollector(reg), Gatherer: reg})

	do(t, s, http.MethodPost, "/api/deals/"+initechDID+"/stage", map[string]string{"stage": "negotiation"})

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `dealdesk_stage_transitions_total{from="lead",to="negotiation"} 1`), body)
	assert.Contains(t, body, "dealdesk_http_requests_total")
}
