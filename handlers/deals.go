// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, find_deals, get_deal, update_deal, move_deal_stage and delete_deal
package handlers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	svc *crm.Service
}

func NewDealHandlers(svc *crm.Service) *DealHandlers {
	return &DealHandlers{svc: svc}
}

type CreateDealInput struct {
	Title        string   `json:"title" jsonschema:"Deal title (required)"`
	Value        int64    `json:"value,omitempty" jsonschema:"Deal value in cents"`
	Stage        string   `json:"stage,omitempty" jsonschema:"Deal stage: lead, negotiation, closed-won, closed-lost (default lead)"`
	CompanyID    string   `json:"company_id,omitempty" jsonschema:"ID of the company"`
	CompanyName  string   `json:"company_name,omitempty" jsonschema:"Company name, created if not found (ignored when company_id is set)"`
	ContactIDs   []string `json:"contact_ids,omitempty" jsonschema:"IDs of contacts on the deal"`
	ContactNames []string `json:"contact_names,omitempty" jsonschema:"Full names of existing contacts on the deal"`
	Notes        string   `json:"notes,omitempty" jsonschema:"Free-form notes"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	deal := &models.Deal{
		Title: input.Title,
		Value: input.Value,
		Notes: input.Notes,
	}

	if strings.TrimSpace(input.Stage) != "" {
		stage, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, DealOutput{}, err
		}
		deal.Stage = stage
	}

	companyID, err := optionalRef("company_id", input.CompanyID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	if companyID == nil && strings.TrimSpace(input.CompanyName) != "" {
		company, err := findOrCreateCompany(ctx, h.svc, input.CompanyName)
		if err != nil {
			return nil, DealOutput{}, err
		}
		companyID = &company.ID
	}
	deal.CompanyID = companyID

	contactIDs, err := h.contactIDs(ctx, input.ContactIDs, input.ContactNames)
	if err != nil {
		return nil, DealOutput{}, err
	}
	deal.ContactIDs = contactIDs

	created, err := h.svc.CreateDeal(ctx, deal)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(created), nil
}

func (h *DealHandlers) contactIDs(ctx context.Context, raw []string, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw)+len(names))
	for _, r := range raw {
		id, err := parseID("contact_ids", r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	byName, err := resolveContactNames(ctx, h.svc, names)
	if err != nil {
		return nil, err
	}
	return append(ids, byName...), nil
}

type FindDealsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (matches title, company name and contact names)"`
	Stage string `json:"stage,omitempty" jsonschema:"Only deals in this stage"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
}

func (h *DealHandlers) FindDeals(ctx context.Context, _ *mcp.CallToolRequest, input FindDealsInput) (*mcp.CallToolResult, FindDealsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	var stage models.Stage
	if strings.TrimSpace(input.Stage) != "" {
		var err error
		if stage, err = models.ParseStage(input.Stage); err != nil {
			return nil, FindDealsOutput{}, err
		}
	}

	deals, err := h.svc.ListDeals(ctx, input.Query)
	if err != nil {
		return nil, FindDealsOutput{}, err
	}

	out := FindDealsOutput{Deals: []DealOutput{}}
	for _, d := range deals {
		if len(out.Deals) == limit {
			break
		}
		if stage != "" && d.Stage != stage {
			continue
		}
		out.Deals = append(out.Deals, dealViewToOutput(d))
	}
	out.Count = len(out.Deals)
	return nil, out, nil
}

type GetDealInput struct {
	ID string `json:"id" jsonschema:"Deal ID (required)"`
}

type ActivityOutput struct {
	Kind string `json:"kind"`
	At   string `json:"at"`
}

type DealDetailOutput struct {
	Deal     DealOutput       `json:"deal"`
	Contacts []ContactOutput  `json:"contacts"`
	Timeline []ActivityOutput `json:"timeline"`
}

func (h *DealHandlers) GetDeal(ctx context.Context, _ *mcp.CallToolRequest, input GetDealInput) (*mcp.CallToolResult, DealDetailOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DealDetailOutput{}, err
	}

	detail, err := h.svc.DealDetail(ctx, id)
	if err != nil {
		return nil, DealDetailOutput{}, err
	}

	out := DealDetailOutput{
		Deal:     dealToOutput(&detail.Deal),
		Contacts: make([]ContactOutput, len(detail.Contacts)),
		Timeline: make([]ActivityOutput, len(detail.Timeline)),
	}
	out.Deal.CompanyName = detail.CompanyName
	for i := range detail.Contacts {
		out.Contacts[i] = contactToOutput(&detail.Contacts[i], "")
	}
	for i, a := range detail.Timeline {
		out.Timeline[i] = ActivityOutput{Kind: a.Kind, At: formatTime(a.At)}
	}
	return nil, out, nil
}

type UpdateDealInput struct {
	ID         string    `json:"id" jsonschema:"Deal ID (required)"`
	Title      *string   `json:"title,omitempty" jsonschema:"New title"`
	Value      *int64    `json:"value,omitempty" jsonschema:"New value in cents"`
	Stage      string    `json:"stage,omitempty" jsonschema:"New stage"`
	CompanyID  string    `json:"company_id,omitempty" jsonschema:"New company ID, or none to detach"`
	ContactIDs *[]string `json:"contact_ids,omitempty" jsonschema:"Replacement list of contact IDs"`
	Notes      *string   `json:"notes,omitempty" jsonschema:"New notes"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	patch := models.DealPatch{
		Title: input.Title,
		Value: input.Value,
		Notes: input.Notes,
	}
	if strings.TrimSpace(input.Stage) != "" {
		stage, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, DealOutput{}, err
		}
		patch.Stage = &stage
	}
	if patch.CompanyID, err = optionalRef("company_id", input.CompanyID); err != nil {
		return nil, DealOutput{}, err
	}
	if input.ContactIDs != nil {
		ids, err := h.contactIDs(ctx, *input.ContactIDs, nil)
		if err != nil {
			return nil, DealOutput{}, err
		}
		patch.ContactIDs = &ids
	}

	deal, err := h.svc.UpdateDeal(ctx, id, patch)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal), nil
}

type MoveDealStageInput struct {
	ID    string `json:"id" jsonschema:"Deal ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage: lead, negotiation, closed-won, closed-lost"`
}

type MoveDealStageOutput struct {
	Deal DealOutput `json:"deal"`
	From string     `json:"from"`
}

func (h *DealHandlers) MoveDealStage(ctx context.Context, _ *mcp.CallToolRequest, input MoveDealStageInput) (*mcp.CallToolResult, MoveDealStageOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, MoveDealStageOutput{}, err
	}
	stage, err := models.ParseStage(input.Stage)
	if err != nil {
		return nil, MoveDealStageOutput{}, err
	}

	res, err := h.svc.MoveDealStage(ctx, id, stage)
	if err != nil {
		return nil, MoveDealStageOutput{}, err
	}
	return nil, MoveDealStageOutput{Deal: dealToOutput(res.Deal), From: string(res.From)}, nil
}

func (h *DealHandlers) DeleteDeal(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := h.svc.DeleteDeal(ctx, id); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{ID: id.String(), Deleted: true}, nil
}
