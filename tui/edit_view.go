package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/viz"
)

type formField struct {
	placeholder string
	limit       int
}

var (
	companyForm = []formField{
		{"Name", 100},
		{"Industry", 100},
		{"Website", 200},
		{"Notes", 500},
	}
	contactForm = []formField{
		{"First name", 100},
		{"Last name", 100},
		{"Email", 100},
		{"Phone", 30},
		{"Role", 100},
		{"Company name (blank for none)", 100},
	}
	dealForm = []formField{
		{"Title", 100},
		{"Value in dollars", 20},
		{"Stage (lead, negotiation, closed-won, closed-lost)", 20},
		{"Company name (blank for none)", 100},
		{"Contacts (full names, comma separated)", 300},
		{"Notes", 500},
	}
)

func (m Model) renderEditView() string {
	var s strings.Builder

	// Title
	if m.editingID == uuid.Nil {
		s.WriteString(titleStyle.Render("NEW " + m.entityTypeName()))
	} else {
		s.WriteString(titleStyle.Render("EDIT " + m.entityTypeName()))
	}
	s.WriteString("\n\n")

	// Form fields
	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if status := m.renderStatus(); status != "" {
		s.WriteString(status)
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) entityTypeName() string {
	switch m.selectedKind {
	case EntityContacts:
		return "CONTACT"
	case EntityCompanies:
		return "COMPANY"
	}
	return "DEAL"
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab/↓: Next field",
		"Shift+Tab/↑: Previous field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.err = nil
		if m.editingID == uuid.Nil {
			m.viewMode = ViewList
		} else {
			m.viewMode = ViewDetail
		}
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		name, err := m.saveEntity()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		if m.editingID == uuid.Nil {
			m.status = fmt.Sprintf("✓ Created %s", name)
			m.viewMode = ViewList
		} else {
			m.status = fmt.Sprintf("✓ Saved %s", name)
			m.viewMode = ViewDetail
		}
		m.reload()
		return m, nil
	}

	// Update current input
	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

// openForm switches to the edit view for the record id, or a blank form
// for the current tab when id is uuid.Nil.
func (m *Model) openForm(id uuid.UUID) {
	if id == uuid.Nil {
		m.selectedKind = m.entityType
		if m.selectedKind == EntityPipeline {
			m.selectedKind = EntityDeals
		}
	}
	m.editingID = id
	m.err = nil
	m.status = ""

	var (
		fields []formField
		values []string
		err    error
	)
	switch m.selectedKind {
	case EntityCompanies:
		fields = companyForm
		values, err = m.companyValues(id)
	case EntityContacts:
		fields = contactForm
		values, err = m.contactValues(id)
	default:
		fields = dealForm
		values, err = m.dealValues(id)
	}
	if err != nil {
		m.err = err
		return
	}

	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = f.limit
		if i < len(values) {
			inputs[i].SetValue(values[i])
		}
	}
	m.formInputs = inputs
	m.focusIndex = 0
	m.updateFormFocus()
	m.viewMode = ViewEdit
}

func (m Model) companyValues(id uuid.UUID) ([]string, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	c, err := m.svc.GetCompany(m.ctx, id)
	if err != nil {
		return nil, err
	}
	return []string{c.Name, c.Industry, c.Website, c.Notes}, nil
}

func (m Model) contactValues(id uuid.UUID) ([]string, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	detail, err := m.svc.ContactDetail(m.ctx, id)
	if err != nil {
		return nil, err
	}
	c := detail.Contact
	company := detail.CompanyName
	if c.CompanyID == nil {
		company = ""
	}
	return []string{c.FirstName, c.LastName, c.Email, c.Phone, c.Role, company}, nil
}

func (m Model) dealValues(id uuid.UUID) ([]string, error) {
	if id == uuid.Nil {
		return []string{"", "", string(models.StageLead)}, nil
	}
	detail, err := m.svc.DealDetail(m.ctx, id)
	if err != nil {
		return nil, err
	}
	d := detail.Deal
	company := detail.CompanyName
	if d.CompanyID == nil {
		company = ""
	}
	names := make([]string, len(detail.Contacts))
	for i := range detail.Contacts {
		names[i] = detail.Contacts[i].FullName()
	}
	value := strings.ReplaceAll(strings.TrimPrefix(viz.Money(d.Value), "$"), ",", "")
	return []string{d.Title, value, string(d.Stage), company, strings.Join(names, ", "), d.Notes}, nil
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.formInputs[i].Value())
}

// saveEntity creates or updates the record behind the form and returns its
// display name.
func (m Model) saveEntity() (string, error) {
	switch m.selectedKind {
	case EntityContacts:
		return m.saveContact()
	case EntityCompanies:
		return m.saveCompany()
	}
	return m.saveDeal()
}

func (m Model) saveCompany() (string, error) {
	name, industry, website, notes := m.value(0), m.value(1), m.value(2), m.value(3)

	if m.editingID == uuid.Nil {
		c, err := m.svc.CreateCompany(m.ctx, &models.Company{Name: name, Industry: industry, Website: website, Notes: notes})
		if err != nil {
			return "", err
		}
		return c.Name, nil
	}

	c, err := m.svc.UpdateCompany(m.ctx, m.editingID, models.CompanyPatch{
		Name: &name, Industry: &industry, Website: &website, Notes: &notes,
	})
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

func (m Model) saveContact() (string, error) {
	first, last, email, phone, role := m.value(0), m.value(1), m.value(2), m.value(3), m.value(4)
	companyID, err := companyRef(m.ctx, m.svc, m.value(5), m.editingID != uuid.Nil)
	if err != nil {
		return "", err
	}

	if m.editingID == uuid.Nil {
		c, err := m.svc.CreateContact(m.ctx, &models.Contact{
			FirstName: first, LastName: last, Email: email, Phone: phone, Role: role, CompanyID: companyID,
		})
		if err != nil {
			return "", err
		}
		return c.FullName(), nil
	}

	c, err := m.svc.UpdateContact(m.ctx, m.editingID, models.ContactPatch{
		FirstName: &first, LastName: &last, Email: &email, Phone: &phone, Role: &role, CompanyID: companyID,
	})
	if err != nil {
		return "", err
	}
	return c.FullName(), nil
}

func (m Model) saveDeal() (string, error) {
	title, notes := m.value(0), m.value(5)
	value, err := viz.ParseMoney(m.value(1))
	if err != nil {
		return "", err
	}
	stage := models.StageLead
	if raw := m.value(2); raw != "" {
		if stage, err = models.ParseStage(raw); err != nil {
			return "", err
		}
	}
	companyID, err := companyRef(m.ctx, m.svc, m.value(3), m.editingID != uuid.Nil)
	if err != nil {
		return "", err
	}
	contactIDs, err := contactRefs(m.ctx, m.svc, m.value(4))
	if err != nil {
		return "", err
	}

	if m.editingID == uuid.Nil {
		d, err := m.svc.CreateDeal(m.ctx, &models.Deal{
			Title: title, Value: value, Stage: stage, CompanyID: companyID, ContactIDs: contactIDs, Notes: notes,
		})
		if err != nil {
			return "", err
		}
		return d.Title, nil
	}

	d, err := m.svc.UpdateDeal(m.ctx, m.editingID, models.DealPatch{
		Title: &title, Value: &value, Stage: &stage, CompanyID: companyID, ContactIDs: &contactIDs, Notes: &notes,
	})
	if err != nil {
		return "", err
	}
	return d.Title, nil
}

// companyRef resolves a company name, creating the company if no name
// matches. A blank name means no company; on update that clears the link.
func companyRef(ctx context.Context, svc *crm.Service, name string, clearOnBlank bool) (*uuid.UUID, error) {
	if name == "" {
		if clearOnBlank {
			none := uuid.Nil
			return &none, nil
		}
		return nil, nil
	}

	companies, err := svc.ListCompanies(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range companies {
		if strings.EqualFold(companies[i].Name, name) {
			return &companies[i].ID, nil
		}
	}
	created, err := svc.CreateCompany(ctx, &models.Company{Name: name})
	if err != nil {
		return nil, err
	}
	return &created.ID, nil
}

// contactRefs resolves comma separated full names to contact IDs.
func contactRefs(ctx context.Context, svc *crm.Service, raw string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if raw == "" {
		return ids, nil
	}
	contacts, err := svc.ListContacts(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, c := range contacts {
			if strings.EqualFold(c.FullName(), name) {
				ids = append(ids, c.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no contact named %q", name)
		}
	}
	return ids, nil
}
