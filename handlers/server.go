// ABOUTME: MCP server assembly
// ABOUTME: Registers every CRM tool, resource and prompt against one service
package handlers

import (
	"github.com/harperreed/dealdesk/crm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ServerName = "dealdesk"

// NewServer builds an MCP server exposing svc. The caller picks the transport.
func NewServer(svc *crm.Service, version string) *mcp.Server {
	companyHandlers := NewCompanyHandlers(svc)
	contactHandlers := NewContactHandlers(svc)
	dealHandlers := NewDealHandlers(svc)
	queryHandlers := NewQueryHandlers(svc)
	vizHandlers := NewVizHandlers(svc)
	resourceHandlers := NewResourceHandlers(svc)
	promptHandlers := NewPromptHandlers(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_company",
		Description: "Add a new company to the CRM",
	}, companyHandlers.AddCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_companies",
		Description: "Search for companies by name or industry",
	}, companyHandlers.FindCompanies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_company",
		Description: "Get a company with its contacts, deals and deal totals",
	}, companyHandlers.GetCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_company",
		Description: "Update an existing company's information",
	}, companyHandlers.UpdateCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_company",
		Description: "Delete a company. Fails while deals still reference it",
	}, companyHandlers.DeleteCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact to the CRM",
	}, contactHandlers.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search for contacts by name, email, role or company",
	}, contactHandlers.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_contact",
		Description: "Get a contact with the deals they are on",
	}, contactHandlers.GetContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update an existing contact's information",
	}, contactHandlers.UpdateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contact",
		Description: "Delete a contact and remove them from any deals",
	}, contactHandlers.DeleteContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal with an optional company and contacts",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_deals",
		Description: "Search deals by title, company or contact, optionally by stage",
	}, dealHandlers.FindDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_deal",
		Description: "Get a deal with its company, contacts and timeline",
	}, dealHandlers.GetDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update an existing deal's information including stage and value",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal_stage",
		Description: "Move a deal to another pipeline stage",
	}, dealHandlers.MoveDealStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal",
	}, dealHandlers.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_summary",
		Description: "Deal counts and values per pipeline stage with open pipeline and closed revenue totals",
	}, queryHandlers.PipelineSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Record counts, closed revenue and the pipeline by stage",
	}, queryHandlers.Dashboard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search companies, contacts and deals at once",
	}, queryHandlers.Search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_crm",
		Description: "Universal query tool for flexible filtering across all CRM entity types (company, contact, deal)",
	}, queryHandlers.QueryCRM)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz DOT graph of the CRM, the pipeline or one company",
	}, vizHandlers.GenerateGraph)

	for _, r := range []*mcp.Resource{
		{URI: "crm://companies", Name: "companies", Description: "All companies", MIMEType: "application/json"},
		{URI: "crm://contacts", Name: "contacts", Description: "All contacts with company names", MIMEType: "application/json"},
		{URI: "crm://deals", Name: "deals", Description: "All deals with company and contact names", MIMEType: "application/json"},
		{URI: "crm://pipeline", Name: "pipeline", Description: "Deals grouped by stage", MIMEType: "application/json"},
		{URI: "crm://dashboard", Name: "dashboard", Description: "Record counts and pipeline totals", MIMEType: "application/json"},
	} {
		server.AddResource(r, resourceHandlers.ReadResource)
	}

	for _, t := range []*mcp.ResourceTemplate{
		{URITemplate: "crm://companies/{id}", Name: "company", Description: "One company with contacts and deals", MIMEType: "application/json"},
		{URITemplate: "crm://contacts/{id}", Name: "contact", Description: "One contact with their deals", MIMEType: "application/json"},
		{URITemplate: "crm://deals/{id}", Name: "deal", Description: "One deal with contacts and timeline", MIMEType: "application/json"},
	} {
		server.AddResourceTemplate(t, resourceHandlers.ReadResource)
	}

	for _, p := range Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}
