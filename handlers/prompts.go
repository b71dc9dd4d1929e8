// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Builds contact, company, deal and pipeline review prompts from live data
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	svc *crm.Service
	now func() time.Time
}

func NewPromptHandlers(svc *crm.Service) *PromptHandlers {
	return &PromptHandlers{svc: svc, now: time.Now}
}

// Prompts lists the templates GetPrompt can render.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "contact-summary",
			Description: "Summarize a contact and the deals they are on",
			Arguments:   []*mcp.PromptArgument{{Name: "contact_id", Description: "Contact ID", Required: true}},
		},
		{
			Name:        "company-overview",
			Description: "Overview of a company with its people and deals",
			Arguments:   []*mcp.PromptArgument{{Name: "company_id", Description: "Company ID", Required: true}},
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze one deal, or the whole pipeline when no deal_id is given",
			Arguments:   []*mcp.PromptArgument{{Name: "deal_id", Description: "Deal ID"}},
		},
		{
			Name:        "pipeline-review",
			Description: "Weekly pipeline review with open deals that have gone quiet",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "contact-summary":
		return h.contactSummary(ctx, args)
	case "company-overview":
		return h.companyOverview(ctx, args)
	case "deal-analysis":
		if args["deal_id"] != "" {
			return h.dealAnalysis(ctx, args["deal_id"])
		}
		return h.pipelineAnalysis(ctx)
	case "pipeline-review":
		return h.pipelineReview(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) contactSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("contact_id", args["contact_id"])
	if err != nil {
		return nil, err
	}
	detail, err := h.svc.ContactDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	c := detail.Contact

	var b strings.Builder
	b.WriteString("Please provide a comprehensive summary of this contact:\n\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", c.FullName()))
	if c.Role != "" {
		b.WriteString(fmt.Sprintf("Role: %s\n", c.Role))
	}
	if c.Email != "" {
		b.WriteString(fmt.Sprintf("Email: %s\n", c.Email))
	}
	if c.Phone != "" {
		b.WriteString(fmt.Sprintf("Phone: %s\n", c.Phone))
	}
	b.WriteString(fmt.Sprintf("Company: %s\n", detail.CompanyName))

	b.WriteString(fmt.Sprintf("\nDeals: %d (%d active, %d won, %s total)\n",
		len(detail.Deals), detail.Stats.ActiveCount, detail.Stats.WonCount, viz.Money(detail.Stats.TotalValue)))
	for _, d := range detail.Deals {
		b.WriteString(fmt.Sprintf("  - %s: %s (%s)\n", d.Title, viz.Money(d.Value), d.Stage.Label()))
	}

	b.WriteString("\nPlease analyze this contact and provide:")
	b.WriteString("\n1. A brief summary of their role in our deals")
	b.WriteString("\n2. Recommendations for next steps or follow-up actions")

	return userPrompt(fmt.Sprintf("Summary for contact: %s", c.FullName()), b.String()), nil
}

func (h *PromptHandlers) companyOverview(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("company_id", args["company_id"])
	if err != nil {
		return nil, err
	}
	detail, err := h.svc.CompanyDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	company := detail.Company

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Complete overview of: %s\n\n", company.Name))
	if company.Industry != "" {
		b.WriteString(fmt.Sprintf("Industry: %s\n", company.Industry))
	}
	if company.Website != "" {
		b.WriteString(fmt.Sprintf("Website: %s\n", company.Website))
	}

	b.WriteString(fmt.Sprintf("\nContacts: %d people\n", len(detail.Contacts)))
	for _, c := range detail.Contacts {
		b.WriteString(fmt.Sprintf("  - %s", c.FullName()))
		if c.Email != "" {
			b.WriteString(fmt.Sprintf(" <%s>", c.Email))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\nDeals: %d (%d active)\n", len(detail.Deals), detail.Stats.ActiveCount))
	for _, d := range detail.Deals {
		b.WriteString(fmt.Sprintf("  - %s: %s (%s)\n", d.Title, viz.Money(d.Value), d.Stage.Label()))
	}
	if len(detail.Deals) > 0 {
		b.WriteString(fmt.Sprintf("\nTotal Deal Value: %s\n", viz.Money(detail.Stats.TotalValue)))
	}
	if company.Notes != "" {
		b.WriteString(fmt.Sprintf("\nNotes: %s\n", company.Notes))
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. A summary of the relationship with this company")
	b.WriteString("\n2. Key opportunities or risks")
	b.WriteString("\n3. Recommended next actions")

	return userPrompt(fmt.Sprintf("Overview of %s", company.Name), b.String()), nil
}

func (h *PromptHandlers) dealAnalysis(ctx context.Context, raw string) (*mcp.GetPromptResult, error) {
	id, err := parseID("deal_id", raw)
	if err != nil {
		return nil, err
	}
	detail, err := h.svc.DealDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	d := detail.Deal

	var b strings.Builder
	b.WriteString("Please analyze this deal:\n\n")
	b.WriteString(fmt.Sprintf("Title: %s\n", d.Title))
	b.WriteString(fmt.Sprintf("Value: %s\n", viz.Money(d.Value)))
	b.WriteString(fmt.Sprintf("Stage: %s\n", d.Stage.Label()))
	b.WriteString(fmt.Sprintf("Company: %s\n", detail.CompanyName))
	if len(detail.Contacts) > 0 {
		names := make([]string, len(detail.Contacts))
		for i := range detail.Contacts {
			names[i] = detail.Contacts[i].FullName()
		}
		b.WriteString(fmt.Sprintf("Contacts: %s\n", strings.Join(names, ", ")))
	}
	b.WriteString("\nTimeline:\n")
	for _, a := range detail.Timeline {
		b.WriteString(fmt.Sprintf("  - %s %s\n", a.At.Format("2006-01-02"), a.Kind))
	}
	if d.Notes != "" {
		b.WriteString(fmt.Sprintf("\nNotes: %s\n", d.Notes))
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. An assessment of where this deal stands")
	b.WriteString("\n2. Risks that could stall or lose it")
	b.WriteString("\n3. The next concrete step to move it forward")

	return userPrompt(fmt.Sprintf("Analysis of deal: %s", d.Title), b.String()), nil
}

func (h *PromptHandlers) pipelineAnalysis(ctx context.Context) (*mcp.GetPromptResult, error) {
	view, err := h.svc.Pipeline(ctx)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Please analyze the current deal pipeline:\n\n")
	b.WriteString(fmt.Sprintf("Total Deals: %d\n", view.TotalCount))
	b.WriteString(fmt.Sprintf("Open Pipeline: %s across %d deals\n", viz.Money(view.PipelineValue), view.ActiveCount))
	b.WriteString(fmt.Sprintf("Closed Revenue: %s\n\n", viz.Money(view.ClosedRevenue)))
	b.WriteString("Pipeline by Stage:\n")
	for _, g := range view.Stages {
		b.WriteString(fmt.Sprintf("  - %s: %d deals, %s\n", g.Label, g.Count, viz.Money(g.Value)))
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Analysis of pipeline health and distribution")
	b.WriteString("\n2. Recommendations for deals that may need attention")
	b.WriteString("\n3. Suggestions for improving conversion rates")

	return userPrompt("Deal pipeline analysis", b.String()), nil
}

func (h *PromptHandlers) pipelineReview(ctx context.Context) (*mcp.GetPromptResult, error) {
	stats, err := viz.GenerateDashboardStats(ctx, h.svc, h.now())
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Weekly pipeline review.\n\n")
	b.WriteString(viz.RenderPipeline(stats.Pipeline))
	if len(stats.StaleDeals) == 0 {
		b.WriteString("\nEvery open deal has moved in the last two weeks.\n")
	} else {
		b.WriteString("\nOpen deals with no activity in 14+ days:\n")
		for _, d := range stats.StaleDeals {
			b.WriteString(fmt.Sprintf("  - %s (%s), %d days\n", d.Title, d.Company, d.DaysSince))
		}
	}

	b.WriteString("\nPlease:")
	b.WriteString("\n1. Prioritize which stalled deals to chase first")
	b.WriteString("\n2. Flag deals that should be closed out as lost")

	return userPrompt("Pipeline review", b.String()), nil
}
