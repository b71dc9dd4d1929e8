package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"

	"github.com/harperreed/dealdesk/viz"
)

func (m Model) renderGraphView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("GRAPH VIEW"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(m.renderStatus())
		s.WriteString("\n")
	} else {
		lines := strings.Split(m.graphDOT, "\n")
		start := min(m.graphOffset, max(len(lines)-1, 0))
		end := min(start+m.graphHeight(), len(lines))
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(strings.Join(lines[start:end], "\n")))
		s.WriteString("\n")
		s.WriteString(cardMetaStyle.Render(fmt.Sprintf("lines %d-%d of %d", start+1, end, len(lines))))
	}

	s.WriteString("\n")

	// Help
	s.WriteString(m.renderGraphHelp())

	return s.String()
}

func (m Model) graphHeight() int {
	return max(m.height-8, 5)
}

func (m Model) renderGraphHelp() string {
	help := []string{
		"↑/↓: Scroll",
		"Esc: Back",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewDetail
		m.graphDOT = ""
		m.graphOffset = 0
		m.err = nil
	case "up", "k":
		m.graphOffset = max(m.graphOffset-1, 0)
	case "down", "j":
		if m.graphOffset < strings.Count(m.graphDOT, "\n") {
			m.graphOffset++
		}
	}

	return m, nil
}

// openGraph renders DOT for the selected record: a company graph for a
// company or for a contact's company, the pipeline otherwise.
func (m *Model) openGraph() {
	m.viewMode = ViewGraph
	m.graphOffset = 0
	m.graphDOT = ""

	kind, companyID := viz.GraphPipeline, uuid.Nil
	switch m.selectedKind {
	case EntityCompanies:
		kind, companyID = viz.GraphCompany, m.selectedID
	case EntityContacts:
		c, err := m.svc.GetContact(m.ctx, m.selectedID)
		if err != nil {
			m.err = err
			return
		}
		if c.CompanyID != nil {
			kind, companyID = viz.GraphCompany, *c.CompanyID
		} else {
			kind = viz.GraphComplete
		}
	}

	graph, err := viz.NewGraphGenerator(m.svc).Generate(m.ctx, kind, companyID, graphviz.XDOT)
	if err != nil {
		m.err = err
		return
	}
	m.graphDOT = string(graph.Source)
}
