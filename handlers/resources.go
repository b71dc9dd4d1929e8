// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Read-only JSON views of companies, contacts, deals, the pipeline and the dashboard
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "crm://"

type ResourceHandlers struct {
	svc *crm.Service
}

func NewResourceHandlers(svc *crm.Service) *ResourceHandlers {
	return &ResourceHandlers{svc: svc}
}

// ReadResource serves crm://{companies,contacts,deals}[/{id}], crm://pipeline
// and crm://dashboard.
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(uri, resourceScheme), "/"), "/")
	if len(parts) > 2 {
		return nil, fmt.Errorf("unknown resource: %s", uri)
	}

	var (
		v   any
		err error
	)
	switch parts[0] {
	case "companies":
		if len(parts) == 1 {
			v, err = h.svc.ListCompanies(ctx, "")
		} else {
			v, err = loadDetail(ctx, parts[1], h.svc.CompanyDetail)
		}
	case "contacts":
		if len(parts) == 1 {
			v, err = h.svc.ListContacts(ctx, "")
		} else {
			v, err = loadDetail(ctx, parts[1], h.svc.ContactDetail)
		}
	case "deals":
		if len(parts) == 1 {
			v, err = h.svc.ListDeals(ctx, "")
		} else {
			v, err = loadDetail(ctx, parts[1], h.svc.DealDetail)
		}
	case "pipeline":
		v, err = h.svc.Pipeline(ctx)
	case "dashboard":
		v, err = h.svc.Dashboard(ctx)
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func loadDetail[T any](ctx context.Context, raw string, load func(context.Context, uuid.UUID) (*T, error)) (any, error) {
	id, err := parseID("id", raw)
	if err != nil {
		return nil, err
	}
	return load(ctx, id)
}
