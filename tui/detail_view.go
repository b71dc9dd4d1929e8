package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/pipeline"
	"github.com/harperreed/dealdesk/viz"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(16)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	// Entity details
	switch m.selectedKind {
	case EntityContacts:
		s.WriteString(m.renderContactDetail())
	case EntityCompanies:
		s.WriteString(m.renderCompanyDetail())
	default:
		s.WriteString(m.renderDealDetail())
	}

	s.WriteString("\n")
	if status := m.renderStatus(); status != "" {
		s.WriteString(status)
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderContactDetail() string {
	detail, err := m.svc.ContactDetail(m.ctx, m.selectedID)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}

	var s strings.Builder
	c := detail.Contact
	s.WriteString(titleStyle.Render(c.FullName()))
	s.WriteString("\n")
	s.WriteString(m.renderField("Role", c.Role))
	s.WriteString(m.renderField("Company", detail.CompanyName))
	s.WriteString(m.renderField("Email", c.Email))
	s.WriteString(m.renderField("Phone", c.Phone))
	s.WriteString(m.renderField("Added", humanize.Time(c.CreatedAt)))
	s.WriteString(m.renderStats(detail.Stats))
	s.WriteString(m.renderDealList(detail.Deals))

	return s.String()
}

func (m Model) renderCompanyDetail() string {
	detail, err := m.svc.CompanyDetail(m.ctx, m.selectedID)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}

	var s strings.Builder
	c := detail.Company
	s.WriteString(titleStyle.Render(c.Name))
	s.WriteString("\n")
	s.WriteString(m.renderField("Industry", c.Industry))
	s.WriteString(m.renderField("Website", c.Website))
	s.WriteString(m.renderField("Notes", c.Notes))
	s.WriteString(m.renderStats(detail.Stats))

	// Contacts at company
	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("CONTACTS"))
	s.WriteString("\n")
	if len(detail.Contacts) == 0 {
		s.WriteString("  none\n")
	}
	for i := range detail.Contacts {
		contact := &detail.Contacts[i]
		s.WriteString(fmt.Sprintf("  • %s", contact.FullName()))
		if contact.Role != "" {
			s.WriteString(fmt.Sprintf(" (%s)", contact.Role))
		}
		s.WriteString("\n")
	}

	s.WriteString(m.renderDealList(detail.Deals))
	return s.String()
}

func (m Model) renderDealDetail() string {
	detail, err := m.svc.DealDetail(m.ctx, m.selectedID)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}

	var s strings.Builder
	d := detail.Deal
	s.WriteString(titleStyle.Render(d.Title))
	s.WriteString("\n")
	s.WriteString(m.renderField("Value", viz.Money(d.Value)))
	s.WriteString(m.renderField("Stage", d.Stage.Label()))
	s.WriteString(m.renderField("Company", detail.CompanyName))

	names := make([]string, len(detail.Contacts))
	for i := range detail.Contacts {
		names[i] = detail.Contacts[i].FullName()
	}
	s.WriteString(m.renderField("Contacts", strings.Join(names, ", ")))
	s.WriteString(m.renderField("Notes", d.Notes))

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("TIMELINE"))
	s.WriteString("\n")
	for _, ev := range detail.Timeline {
		s.WriteString(fmt.Sprintf("  • %-8s %s (%s)\n", ev.Kind, ev.At.Format("2006-01-02"), humanize.RelTime(ev.At, m.now(), "ago", "from now")))
	}

	return s.String()
}

func (m Model) renderStats(stats pipeline.EntityStats) string {
	return m.renderField("Deals", fmt.Sprintf("%s total • %d active • %d won",
		viz.Money(stats.TotalValue), stats.ActiveCount, stats.WonCount))
}

func (m Model) renderDealList(deals []models.Deal) string {
	var s strings.Builder
	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("DEALS"))
	s.WriteString("\n")
	if len(deals) == 0 {
		s.WriteString("  none\n")
	}
	for _, d := range deals {
		s.WriteString(fmt.Sprintf("  • %s [%s] %s\n", d.Title, d.Stage.Label(), viz.Money(d.Value)))
	}
	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"e: Edit",
		"d: Delete",
		"g: View graph",
	}
	if m.selectedKind == EntityDeals {
		help = append(help, "[ ]: Move stage")
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.status = ""
		m.reload()
	case "e":
		m.openForm(m.selectedID)
		return m, textinput.Blink
	case "d":
		m.err = nil
		m.viewMode = ViewConfirmDelete
	case "g":
		m.openGraph()
	case "]", "[":
		if m.selectedKind != EntityDeals {
			break
		}
		deal, err := m.svc.GetDeal(m.ctx, m.selectedID)
		if err != nil {
			m.err = err
			break
		}
		delta := 1
		if msg.String() == "[" {
			delta = -1
		}
		stages := models.Stages()
		if to := deal.Stage.Index() + delta; to >= 0 && to < len(stages) {
			m.moveDeal(deal.ID, stages[to])
		}
	}

	return m, nil
}
