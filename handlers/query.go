// ABOUTME: Read-only query tool handlers
// ABOUTME: Implements pipeline_summary, dashboard, search and the universal query_crm tool
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type QueryHandlers struct {
	svc *crm.Service
}

func NewQueryHandlers(svc *crm.Service) *QueryHandlers {
	return &QueryHandlers{svc: svc}
}

type PipelineSummaryInput struct {
	IncludeDeals bool `json:"include_deals,omitempty" jsonschema:"Include the deals in each stage"`
}

type PipelineStageOutput struct {
	Stage string       `json:"stage"`
	Label string       `json:"label"`
	Count int          `json:"count"`
	Value int64        `json:"value"`
	Deals []DealOutput `json:"deals,omitempty"`
}

type PipelineSummaryOutput struct {
	Stages        []PipelineStageOutput `json:"stages"`
	ActiveCount   int                   `json:"active_count"`
	PipelineValue int64                 `json:"pipeline_value"`
	ClosedRevenue int64                 `json:"closed_revenue"`
	WonCount      int                   `json:"won_count"`
	LostCount     int                   `json:"lost_count"`
	TotalCount    int                   `json:"total_count"`
}

func (h *QueryHandlers) PipelineSummary(ctx context.Context, _ *mcp.CallToolRequest, input PipelineSummaryInput) (*mcp.CallToolResult, PipelineSummaryOutput, error) {
	view, err := h.svc.Pipeline(ctx)
	if err != nil {
		return nil, PipelineSummaryOutput{}, err
	}

	out := PipelineSummaryOutput{
		Stages:        make([]PipelineStageOutput, len(view.Stages)),
		ActiveCount:   view.ActiveCount,
		PipelineValue: view.PipelineValue,
		ClosedRevenue: view.ClosedRevenue,
		WonCount:      view.WonCount,
		LostCount:     view.LostCount,
		TotalCount:    view.TotalCount,
	}
	for i, g := range view.Stages {
		out.Stages[i] = PipelineStageOutput{Stage: string(g.Stage), Label: g.Label, Count: g.Count, Value: g.Value}
		if !input.IncludeDeals {
			continue
		}
		for j := range view.Stages[i].Deals {
			d := dealToOutput(&view.Stages[i].Deals[j])
			d.CompanyName = view.CompanyNames[view.Stages[i].Deals[j].ID]
			out.Stages[i].Deals = append(out.Stages[i].Deals, d)
		}
	}
	return nil, out, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	CompanyCount  int           `json:"company_count"`
	ContactCount  int           `json:"contact_count"`
	DealCount     int           `json:"deal_count"`
	ClosedRevenue int64         `json:"closed_revenue"`
	PipelineValue int64         `json:"pipeline_value"`
	Stages        []StageOutput `json:"stages"`
}

func (h *QueryHandlers) Dashboard(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	dash, err := h.svc.Dashboard(ctx)
	if err != nil {
		return nil, DashboardOutput{}, err
	}
	return nil, DashboardOutput{
		CompanyCount:  dash.CompanyCount,
		ContactCount:  dash.ContactCount,
		DealCount:     dash.DealCount,
		ClosedRevenue: dash.ClosedRevenue,
		PipelineValue: dash.Pipeline.PipelineValue,
		Stages:        stagesToOutput(dash.Pipeline),
	}, nil
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"Text to look for across companies, contacts and deals (required)"`
}

type SearchOutput struct {
	Companies []CompanyOutput `json:"companies"`
	Contacts  []ContactOutput `json:"contacts"`
	Deals     []DealOutput    `json:"deals"`
	Count     int             `json:"count"`
}

func (h *QueryHandlers) Search(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}

	res, err := h.svc.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{
		Companies: make([]CompanyOutput, len(res.Companies)),
		Contacts:  make([]ContactOutput, len(res.Contacts)),
		Deals:     make([]DealOutput, len(res.Deals)),
	}
	for i := range res.Companies {
		out.Companies[i] = companyToOutput(&res.Companies[i])
	}
	for i := range res.Contacts {
		out.Contacts[i] = contactToOutput(&res.Contacts[i].Contact, res.Contacts[i].CompanyName)
	}
	for i, d := range res.Deals {
		out.Deals[i] = dealViewToOutput(d)
	}
	out.Count = len(out.Companies) + len(out.Contacts) + len(out.Deals)
	return nil, out, nil
}

type QueryCRMInput struct {
	EntityType string            `json:"entity_type" jsonschema:"Type of entity to query (company, contact, deal)"`
	Query      string            `json:"query,omitempty" jsonschema:"Search query"`
	Filters    map[string]string `json:"filters,omitempty" jsonschema:"Additional filters: company_id for contacts and deals, stage for deals"`
	Limit      int               `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type QueryCRMOutput struct {
	EntityType string `json:"entity_type"`
	Results    []any  `json:"results"`
	Count      int    `json:"count"`
}

func (h *QueryHandlers) QueryCRM(ctx context.Context, _ *mcp.CallToolRequest, input QueryCRMInput) (*mcp.CallToolResult, QueryCRMOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 10
	}

	companyID, err := filterID(input.Filters, "company_id")
	if err != nil {
		return nil, QueryCRMOutput{}, err
	}

	out := QueryCRMOutput{EntityType: input.EntityType, Results: []any{}}
	add := func(v any) bool {
		if len(out.Results) == input.Limit {
			return false
		}
		out.Results = append(out.Results, v)
		return true
	}

	switch input.EntityType {
	case "company":
		companies, err := h.svc.ListCompanies(ctx, input.Query)
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for i := range companies {
			if !add(companyToOutput(&companies[i])) {
				break
			}
		}

	case "contact":
		contacts, err := h.svc.ListContacts(ctx, input.Query)
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for i := range contacts {
			if !sameRef(contacts[i].CompanyID, companyID) {
				continue
			}
			if !add(contactToOutput(&contacts[i].Contact, contacts[i].CompanyName)) {
				break
			}
		}

	case "deal":
		var stage models.Stage
		if raw := input.Filters["stage"]; raw != "" {
			if stage, err = models.ParseStage(raw); err != nil {
				return nil, QueryCRMOutput{}, err
			}
		}
		deals, err := h.svc.ListDeals(ctx, input.Query)
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for _, d := range deals {
			if !sameRef(d.CompanyID, companyID) || (stage != "" && d.Stage != stage) {
				continue
			}
			if !add(dealViewToOutput(d)) {
				break
			}
		}

	default:
		return nil, QueryCRMOutput{}, fmt.Errorf("invalid entity_type: %s (valid: company, contact, deal)", input.EntityType)
	}

	out.Count = len(out.Results)
	return nil, out, nil
}

func filterID(filters map[string]string, key string) (*uuid.UUID, error) {
	raw, ok := filters[key]
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &id, nil
}

// sameRef is true when want is nil or ref points at the same ID.
func sameRef(ref, want *uuid.UUID) bool {
	if want == nil {
		return true
	}
	return ref != nil && *ref == *want
}
