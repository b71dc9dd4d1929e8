// ABOUTME: Company MCP tool handlers
// ABOUTME: Implements add_company, find_companies, get_company, update_company and delete_company
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CompanyHandlers struct {
	svc *crm.Service
}

func NewCompanyHandlers(svc *crm.Service) *CompanyHandlers {
	return &CompanyHandlers{svc: svc}
}

type AddCompanyInput struct {
	Name     string `json:"name" jsonschema:"Company name (required)"`
	Industry string `json:"industry,omitempty" jsonschema:"Industry or sector"`
	Website  string `json:"website,omitempty" jsonschema:"Company website URL"`
	Notes    string `json:"notes,omitempty" jsonschema:"Additional notes about the company"`
}

func (h *CompanyHandlers) AddCompany(ctx context.Context, _ *mcp.CallToolRequest, input AddCompanyInput) (*mcp.CallToolResult, CompanyOutput, error) {
	company, err := h.svc.CreateCompany(ctx, &models.Company{
		Name:     input.Name,
		Industry: input.Industry,
		Website:  input.Website,
		Notes:    input.Notes,
	})
	if err != nil {
		return nil, CompanyOutput{}, err
	}
	return nil, companyToOutput(company), nil
}

type FindCompaniesInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (matches name and industry)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindCompaniesOutput struct {
	Companies []CompanyOutput `json:"companies"`
	Count     int             `json:"count"`
}

func (h *CompanyHandlers) FindCompanies(ctx context.Context, _ *mcp.CallToolRequest, input FindCompaniesInput) (*mcp.CallToolResult, FindCompaniesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	companies, err := h.svc.ListCompanies(ctx, input.Query)
	if err != nil {
		return nil, FindCompaniesOutput{}, err
	}

	out := FindCompaniesOutput{Companies: []CompanyOutput{}}
	for i := range companies {
		if len(out.Companies) == limit {
			break
		}
		out.Companies = append(out.Companies, companyToOutput(&companies[i]))
	}
	out.Count = len(out.Companies)
	return nil, out, nil
}

type GetCompanyInput struct {
	ID string `json:"id" jsonschema:"Company ID (required)"`
}

type CompanyDetailOutput struct {
	Company  CompanyOutput   `json:"company"`
	Contacts []ContactOutput `json:"contacts"`
	Deals    []DealOutput    `json:"deals"`
	Stats    StatsOutput     `json:"stats"`
}

func (h *CompanyHandlers) GetCompany(ctx context.Context, _ *mcp.CallToolRequest, input GetCompanyInput) (*mcp.CallToolResult, CompanyDetailOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, CompanyDetailOutput{}, err
	}

	detail, err := h.svc.CompanyDetail(ctx, id)
	if err != nil {
		return nil, CompanyDetailOutput{}, err
	}

	out := CompanyDetailOutput{
		Company:  companyToOutput(&detail.Company),
		Contacts: make([]ContactOutput, len(detail.Contacts)),
		Deals:    make([]DealOutput, len(detail.Deals)),
		Stats:    statsToOutput(detail.Stats),
	}
	for i := range detail.Contacts {
		out.Contacts[i] = contactToOutput(&detail.Contacts[i], detail.Company.Name)
	}
	for i := range detail.Deals {
		out.Deals[i] = dealToOutput(&detail.Deals[i])
		out.Deals[i].CompanyName = detail.Company.Name
	}
	return nil, out, nil
}

type UpdateCompanyInput struct {
	ID       string  `json:"id" jsonschema:"Company ID (required)"`
	Name     *string `json:"name,omitempty" jsonschema:"New company name"`
	Industry *string `json:"industry,omitempty" jsonschema:"New industry"`
	Website  *string `json:"website,omitempty" jsonschema:"New website"`
	Notes    *string `json:"notes,omitempty" jsonschema:"New notes"`
}

func (h *CompanyHandlers) UpdateCompany(ctx context.Context, _ *mcp.CallToolRequest, input UpdateCompanyInput) (*mcp.CallToolResult, CompanyOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, CompanyOutput{}, err
	}

	company, err := h.svc.UpdateCompany(ctx, id, models.CompanyPatch{
		Name:     input.Name,
		Industry: input.Industry,
		Website:  input.Website,
		Notes:    input.Notes,
	})
	if err != nil {
		return nil, CompanyOutput{}, err
	}
	return nil, companyToOutput(company), nil
}

type DeleteInput struct {
	ID string `json:"id" jsonschema:"ID of the record to delete (required)"`
}

type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *CompanyHandlers) DeleteCompany(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := h.svc.DeleteCompany(ctx, id); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("cannot delete company: %w", err)
	}
	return nil, DeleteOutput{ID: id.String(), Deleted: true}, nil
}
