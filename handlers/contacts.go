// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact, find_contacts, get_contact, update_contact and delete_contact
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

type ContactHandlers struct {
	svc *crm.Service
}

func NewContactHandlers(svc *crm.Service) *ContactHandlers {
	return &ContactHandlers{svc: svc}
}

type AddContactInput struct {
	FirstName   string `json:"first_name" jsonschema:"First name (required)"`
	LastName    string `json:"last_name" jsonschema:"Last name (required)"`
	Email       string `json:"email,omitempty" jsonschema:"Email address"`
	Phone       string `json:"phone,omitempty" jsonschema:"Phone number"`
	Role        string `json:"role,omitempty" jsonschema:"Job title or role"`
	CompanyID   string `json:"company_id,omitempty" jsonschema:"ID of the contact's company"`
	CompanyName string `json:"company_name,omitempty" jsonschema:"Company name, created if not found (ignored when company_id is set)"`
}

func (h *ContactHandlers) AddContact(ctx context.Context, _ *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	companyID, err := optionalRef("company_id", input.CompanyID)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	companyName := ""
	if companyID == nil && strings.TrimSpace(input.CompanyName) != "" {
		company, err := findOrCreateCompany(ctx, h.svc, input.CompanyName)
		if err != nil {
			return nil, ContactOutput{}, err
		}
		companyID = &company.ID
		companyName = company.Name
	}

	contact, err := h.svc.CreateContact(ctx, &models.Contact{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Role:      input.Role,
		CompanyID: companyID,
	})
	if err != nil {
		return nil, ContactOutput{}, err
	}
	return nil, contactToOutput(contact, companyName), nil
}

// findOrCreateCompany matches name case-insensitively against existing
// companies before creating a new one.
func findOrCreateCompany(ctx context.Context, svc *crm.Service, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	companies, err := svc.ListCompanies(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup company: %w", err)
	}
	for i := range companies {
		if strings.EqualFold(companies[i].Name, name) {
			return &companies[i], nil
		}
	}
	return svc.CreateCompany(ctx, &models.Company{Name: name})
}

type FindContactsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (matches name, email, role and company name)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
	Count    int             `json:"count"`
}

func (h *ContactHandlers) FindContacts(ctx context.Context, _ *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	contacts, err := h.svc.ListContacts(ctx, input.Query)
	if err != nil {
		return nil, FindContactsOutput{}, err
	}

	out := FindContactsOutput{Contacts: []ContactOutput{}}
	for i := range contacts {
		if len(out.Contacts) == limit {
			break
		}
		out.Contacts = append(out.Contacts, contactToOutput(&contacts[i].Contact, contacts[i].CompanyName))
	}
	out.Count = len(out.Contacts)
	return nil, out, nil
}

type GetContactInput struct {
	ID string `json:"id" jsonschema:"Contact ID (required)"`
}

type ContactDetailOutput struct {
	Contact ContactOutput `json:"contact"`
	Deals   []DealOutput  `json:"deals"`
	Stats   StatsOutput   `json:"stats"`
}

func (h *ContactHandlers) GetContact(ctx context.Context, _ *mcp.CallToolRequest, input GetContactInput) (*mcp.CallToolResult, ContactDetailOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, ContactDetailOutput{}, err
	}

	detail, err := h.svc.ContactDetail(ctx, id)
	if err != nil {
		return nil, ContactDetailOutput{}, err
	}

	out := ContactDetailOutput{
		Contact: contactToOutput(&detail.Contact, detail.CompanyName),
		Deals:   make([]DealOutput, len(detail.Deals)),
		Stats:   statsToOutput(detail.Stats),
	}
	for i := range detail.Deals {
		out.Deals[i] = dealToOutput(&detail.Deals[i])
	}
	return nil, out, nil
}

type UpdateContactInput struct {
	ID        string  `json:"id" jsonschema:"Contact ID (required)"`
	FirstName *string `json:"first_name,omitempty" jsonschema:"New first name"`
	LastName  *string `json:"last_name,omitempty" jsonschema:"New last name"`
	Email     *string `json:"email,omitempty" jsonschema:"New email"`
	Phone     *string `json:"phone,omitempty" jsonschema:"New phone"`
	Role      *string `json:"role,omitempty" jsonschema:"New role"`
	CompanyID string  `json:"company_id,omitempty" jsonschema:"New company ID, or none to detach"`
}

func (h *ContactHandlers) UpdateContact(ctx context.Context, _ *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, ContactOutput{}, err
	}
	companyID, err := optionalRef("company_id", input.CompanyID)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	contact, err := h.svc.UpdateContact(ctx, id, models.ContactPatch{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Role:      input.Role,
		CompanyID: companyID,
	})
	if err != nil {
		return nil, ContactOutput{}, err
	}
	return nil, contactToOutput(contact, ""), nil
}

func (h *ContactHandlers) DeleteContact(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := h.svc.DeleteContact(ctx, id); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{ID: id.String(), Deleted: true}, nil
}

// resolveContactNames maps each name to the first contact whose full name
// matches it exactly, ignoring case.
func resolveContactNames(ctx context.Context, svc *crm.Service, names []string) ([]uuid.UUID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	contacts, err := svc.ListContacts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to lookup contacts: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		found := false
		for _, c := range contacts {
			if strings.EqualFold(c.FullName(), strings.TrimSpace(name)) {
				ids = append(ids, c.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, &models.ValidationError{Field: "contact_names", Message: fmt.Sprintf("no contact named %q", name)}
		}
	}
	return ids, nil
}
