// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Handles deletion of contacts, companies, and deals with confirmation dialog
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealdesk/crm"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) selectedName() (kind, name string, err error) {
	switch m.selectedKind {
	case EntityContacts:
		c, err := m.svc.GetContact(m.ctx, m.selectedID)
		if err != nil {
			return "", "", err
		}
		return "contact", c.FullName(), nil
	case EntityCompanies:
		c, err := m.svc.GetCompany(m.ctx, m.selectedID)
		if err != nil {
			return "", "", err
		}
		return "company", c.Name, nil
	}
	d, err := m.svc.GetDeal(m.ctx, m.selectedID)
	if err != nil {
		return "", "", err
	}
	return "deal", d.Title, nil
}

func (m Model) renderConfirmDeleteView() string {
	entityType, entityName, err := m.selectedName()
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading record: %v", err))
	}

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", entityType)
	entityInfo := fmt.Sprintf("\n%s: %s\n", strings.ToUpper(entityType), entityName)
	warning := "\nThis action cannot be undone!"
	switch m.selectedKind {
	case EntityContacts:
		warning += "\nThe contact is also removed from its deals."
	case EntityCompanies:
		warning += "\nCompanies with deals cannot be deleted."
	}

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	box := confirmBoxStyle.Render(content)

	// Center the box on screen
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		_, name, _ := m.selectedName()
		if err := m.performDelete(); err != nil {
			if errors.Is(err, crm.ErrInUse) {
				err = fmt.Errorf("%s still has deals, move or delete them first: %w", name, crm.ErrInUse)
			}
			m.err = err
			m.viewMode = ViewDetail
			return m, nil
		}
		m.viewMode = ViewList
		m.reload()
		m.status = fmt.Sprintf("✓ Deleted %s", name)
	case "n", "N", "esc":
		m.viewMode = ViewDetail
	}

	return m, nil
}

func (m Model) performDelete() error {
	switch m.selectedKind {
	case EntityContacts:
		return m.svc.DeleteContact(m.ctx, m.selectedID)
	case EntityCompanies:
		return m.svc.DeleteCompany(m.ctx, m.selectedID)
	}
	return m.svc.DeleteDeal(m.ctx, m.selectedID)
}
