// ABOUTME: Kanban-style pipeline board for the TUI
// ABOUTME: One column per stage; deals move left and right between stages with [ and ]
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/viz"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	columnActiveStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true)

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	cardSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("62")).
				Bold(true)

	cardMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	stageHeaderColors = map[models.Stage]lipgloss.Color{
		models.StageLead:        lipgloss.Color("39"),
		models.StageNegotiation: lipgloss.Color("214"),
		models.StageClosedWon:   lipgloss.Color("10"),
		models.StageClosedLost:  lipgloss.Color("9"),
	}
)

// column returns the deals shown in stage column i. An active search
// narrows the board to the deals that match it.
func (m Model) column(i int) []models.Deal {
	if m.board == nil || i < 0 || i >= len(m.board.Stages) {
		return nil
	}
	deals := m.board.Stages[i].Deals
	if m.searchQuery == "" {
		return deals
	}

	match := make(map[uuid.UUID]bool, len(m.deals))
	for _, d := range m.deals {
		match[d.ID] = true
	}
	var out []models.Deal
	for _, d := range deals {
		if match[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func (m Model) boardDeal() *models.Deal {
	deals := m.column(m.stageCol)
	if m.stageRow < 0 || m.stageRow >= len(deals) {
		return nil
	}
	return &deals[m.stageRow]
}

func (m *Model) clampBoardCursor() {
	if m.board == nil {
		return
	}
	m.stageCol = min(max(m.stageCol, 0), len(m.board.Stages)-1)
	m.stageRow = min(max(m.stageRow, 0), max(len(m.column(m.stageCol))-1, 0))
}

func (m Model) renderBoard() string {
	if m.board == nil {
		return ""
	}

	colWidth := (m.width - 4) / len(m.board.Stages)
	colWidth = max(colWidth-4, 18)

	cols := make([]string, len(m.board.Stages))
	for i, g := range m.board.Stages {
		deals := m.column(i)

		var total int64
		for _, d := range deals {
			total += d.Value
		}

		var s strings.Builder
		header := fmt.Sprintf("%s (%d)", g.Label, len(deals))
		s.WriteString(columnHeaderStyle.Foreground(stageHeaderColors[g.Stage]).Render(header))
		s.WriteString("\n")
		s.WriteString(cardMetaStyle.Render(viz.Money(total)))
		s.WriteString("\n\n")

		if len(deals) == 0 {
			s.WriteString(cardMetaStyle.Render("no deals"))
		}
		for j, d := range deals {
			style := cardStyle
			if i == m.stageCol && j == m.stageRow {
				style = cardSelectedStyle
			}
			s.WriteString(style.MaxWidth(colWidth).Render(d.Title))
			s.WriteString("\n")
			meta := viz.MoneyShort(d.Value)
			if name := m.board.CompanyNames[d.ID]; name != "" {
				meta += " · " + name
			}
			s.WriteString(cardMetaStyle.MaxWidth(colWidth).Render(meta))
			s.WriteString("\n")
		}

		style := columnStyle
		if i == m.stageCol {
			style = columnActiveStyle
		}
		cols[i] = style.Width(colWidth).Render(s.String())
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	summary := fmt.Sprintf("Open %s across %d deals • Won %s",
		viz.Money(m.board.PipelineValue), m.board.ActiveCount, viz.Money(m.board.ClosedRevenue))
	return board + "\n" + cardMetaStyle.Render(summary)
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.stageCol--
		m.clampBoardCursor()
	case "right", "l":
		m.stageCol++
		m.clampBoardCursor()
	case "up", "k":
		m.stageRow--
		m.clampBoardCursor()
	case "down", "j":
		m.stageRow++
		m.clampBoardCursor()
	case "]":
		m.shiftSelectedDeal(1)
	case "[":
		m.shiftSelectedDeal(-1)
	}
	return m, nil
}

// shiftSelectedDeal moves the deal under the cursor delta stages along the
// pipeline order and keeps the cursor on it.
func (m *Model) shiftSelectedDeal(delta int) {
	deal := m.boardDeal()
	if deal == nil {
		return
	}
	stages := models.Stages()
	to := deal.Stage.Index() + delta
	if to < 0 || to >= len(stages) {
		return
	}
	m.moveDeal(deal.ID, stages[to])
}

func (m *Model) moveDeal(id uuid.UUID, to models.Stage) {
	moved, err := m.svc.MoveDeal(m.ctx, id, to)
	if err != nil {
		m.err = err
		return
	}
	m.reload()
	m.status = fmt.Sprintf("✓ %s moved to %s", moved.Title, moved.Stage.Label())

	m.stageCol = moved.Stage.Index()
	for j, d := range m.column(m.stageCol) {
		if d.ID == moved.ID {
			m.stageRow = j
			break
		}
	}
}
