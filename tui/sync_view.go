// ABOUTME: TUI view for charm sync status and controls
// ABOUTME: Shows when the local replica last synced and triggers a sync in the background
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// SyncCompleteMsg is sent when a sync operation completes.
type SyncCompleteMsg struct {
	Error error
}

func (m Model) renderSyncView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("Charm Sync"))
	s.WriteString("\n\n")

	if m.syncer == nil {
		s.WriteString(syncMessageStyle.Render("Sync is only available with the charm backend (--backend charm)."))
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("Esc: Back"))
		return s.String()
	}

	s.WriteString(syncHeaderStyle.Render("Status"))
	s.WriteString("\n\n")
	switch {
	case m.syncing:
		s.WriteString(syncSyncingStyle.Render("  ⟳ Syncing..."))
	case m.syncer.LastSync().IsZero():
		s.WriteString(syncIdleStyle.Render("  ✓ Idle"))
		s.WriteString(syncMessageStyle.Render(" • Never synced"))
	default:
		s.WriteString(syncIdleStyle.Render("  ✓ Idle"))
		s.WriteString(syncMessageStyle.Render(" • Last synced " + humanize.RelTime(m.syncer.LastSync(), m.now(), "ago", "from now")))
	}
	s.WriteString("\n\n")

	// Recent messages
	if len(m.syncMessages) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		// Show last 5 messages
		start := max(len(m.syncMessages)-5, 0)
		for _, msg := range m.syncMessages[start:] {
			s.WriteString(syncMessageStyle.Render("  " + msg))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderSyncHelp())

	return s.String()
}

func (m Model) renderSyncHelp() string {
	help := []string{
		"s/Enter: Sync now",
		"Esc: Back",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "s", "enter":
		if m.syncer == nil || m.syncing {
			return m, nil
		}
		m.syncing = true
		m.addSyncMessage("Starting sync...")
		return m, m.syncNow()
	case "esc":
		m.viewMode = ViewList
		m.reload()
	}

	return m, nil
}

// syncNow runs the sync off the update loop.
func (m Model) syncNow() tea.Cmd {
	syncer := m.syncer
	return func() tea.Msg {
		return SyncCompleteMsg{Error: syncer.Sync()}
	}
}

func (m *Model) addSyncMessage(msg string) {
	timestamp := m.now().Format("15:04:05")
	m.syncMessages = append(m.syncMessages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

func (m Model) handleSyncComplete(msg SyncCompleteMsg) Model {
	m.syncing = false
	if msg.Error != nil {
		m.addSyncMessage(fmt.Sprintf("✗ Sync failed: %v", msg.Error))
		return m
	}
	m.addSyncMessage("✓ Sync completed")
	m.reload()
	return m
}
