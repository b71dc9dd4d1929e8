package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/harperreed/dealdesk/viz"
)

var searchStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("39"))

func (m Model) renderListView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("DEALDESK"))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.searching {
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	} else if m.searchQuery != "" {
		s.WriteString(searchStyle.Render("Filter: " + m.searchQuery + " (esc to clear)"))
		s.WriteString("\n\n")
	}

	if m.entityType == EntityPipeline {
		s.WriteString(m.renderBoard())
	} else {
		s.WriteString(m.table.View())
	}
	s.WriteString("\n")

	if status := m.renderStatus(); status != "" {
		s.WriteString(status)
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, tab := range tabNames {
		if EntityType(i) == m.entityType {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// refreshTable swaps columns and rows for the current tab. Rows are cleared
// first so the table never renders rows against mismatched columns.
func (m *Model) refreshTable() {
	var (
		columns []table.Column
		rows    []table.Row
	)

	switch m.entityType {
	case EntityDeals:
		columns = []table.Column{
			{Title: "Title", Width: 30},
			{Title: "Company", Width: 20},
			{Title: "Stage", Width: 12},
			{Title: "Value", Width: 14},
			{Title: "Updated", Width: 14},
		}
		for _, d := range m.deals {
			rows = append(rows, table.Row{d.Title, d.CompanyName, d.Stage.Label(), viz.Money(d.Value), humanize.Time(d.UpdatedAt)})
		}
	case EntityCompanies:
		columns = []table.Column{
			{Title: "Name", Width: 30},
			{Title: "Industry", Width: 20},
			{Title: "Website", Width: 30},
		}
		for _, c := range m.companies {
			rows = append(rows, table.Row{c.Name, c.Industry, c.Website})
		}
	case EntityContacts:
		columns = []table.Column{
			{Title: "Name", Width: 26},
			{Title: "Role", Width: 20},
			{Title: "Company", Width: 20},
			{Title: "Email", Width: 28},
		}
		for _, c := range m.contacts {
			rows = append(rows, table.Row{c.FullName(), c.Role, c.CompanyName, c.Email})
		}
	default:
		return
	}

	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(rows)
	m.table.SetHeight(m.tableHeight())
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m Model) renderListHelp() string {
	help := []string{
		"Tab: Switch tabs",
		"Enter: View details",
		"/: Search",
		"n: New",
		"r: Refresh",
		"S: Sync",
		"q: Quit",
	}
	if m.entityType == EntityPipeline {
		help = append([]string{"←/→ ↑/↓: Move cursor", "[ ]: Move deal between stages"}, help...)
	} else {
		help = append([]string{"↑/↓: Navigate"}, help...)
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.entityType = (m.entityType + 1) % EntityType(len(tabNames))
		m.refreshTable()
		return m, nil
	case "shift+tab":
		m.entityType = (m.entityType + EntityType(len(tabNames)) - 1) % EntityType(len(tabNames))
		m.refreshTable()
		return m, nil
	case "/":
		m.searching = true
		m.search.SetValue(m.searchQuery)
		return m, m.search.Focus()
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.reload()
		}
		return m, nil
	case "r":
		m.status = ""
		m.reload()
		return m, nil
	case "n":
		m.openForm(uuid.Nil)
		return m, textinput.Blink
	case "S":
		m.viewMode = ViewSync
		return m, nil
	case "enter":
		if id, kind := m.currentSelection(); id != uuid.Nil {
			m.selectedID = id
			m.selectedKind = kind
			m.status = ""
			m.viewMode = ViewDetail
		}
		return m, nil
	}

	if m.entityType == EntityPipeline {
		return m.handleBoardKeys(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// currentSelection is the record under the cursor and the tab it came from.
// Board selections are deals.
func (m Model) currentSelection() (uuid.UUID, EntityType) {
	row := m.table.Cursor()
	switch m.entityType {
	case EntityPipeline:
		if d := m.boardDeal(); d != nil {
			return d.ID, EntityDeals
		}
	case EntityDeals:
		if row >= 0 && row < len(m.deals) {
			return m.deals[row].ID, EntityDeals
		}
	case EntityCompanies:
		if row >= 0 && row < len(m.companies) {
			return m.companies[row].ID, EntityCompanies
		}
	case EntityContacts:
		if row >= 0 && row < len(m.contacts) {
			return m.contacts[row].ID, EntityContacts
		}
	}
	return uuid.Nil, m.entityType
}
