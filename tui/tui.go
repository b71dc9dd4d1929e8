// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Pipeline board, searchable record tables, detail, edit, delete, graph and sync views
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
	ViewSync
)

// EntityType is the tab being shown.
type EntityType int

const (
	EntityPipeline EntityType = iota
	EntityDeals
	EntityCompanies
	EntityContacts
)

var tabNames = []string{"Pipeline", "Deals", "Companies", "Contacts"}

// Syncer is the part of the charm client the sync view drives.
type Syncer interface {
	Sync() error
	LastSync() time.Time
}

type Option func(*Model)

// WithSyncer enables the sync view.
func WithSyncer(s Syncer) Option {
	return func(m *Model) { m.syncer = s }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// Model is the main bubbletea model
type Model struct {
	ctx    context.Context
	svc    *crm.Service
	syncer Syncer
	now    func() time.Time

	viewMode   ViewMode
	entityType EntityType

	// List view state
	table       table.Model
	search      textinput.Model
	searching   bool
	searchQuery string

	companies []models.Company
	contacts  []crm.ContactView
	deals     []crm.DealView
	board     *crm.PipelineView

	// Pipeline board cursor
	stageCol int
	stageRow int

	// Detail view state
	selectedID   uuid.UUID
	selectedKind EntityType

	// Edit view state
	formInputs []textinput.Model
	focusIndex int
	editingID  uuid.UUID

	// Graph view state
	graphDOT    string
	graphOffset int

	// Sync view state
	syncMessages []string
	syncing      bool

	status string
	err    error
	width  int
	height int
}

// NewModel loads the first screen of data from svc.
func NewModel(ctx context.Context, svc *crm.Service, opts ...Option) Model {
	search := textinput.New()
	search.Placeholder = "Search"
	search.Prompt = "/ "
	search.CharLimit = 100

	m := Model{
		ctx:        ctx,
		svc:        svc,
		now:        time.Now,
		viewMode:   ViewList,
		entityType: EntityPipeline,
		search:     search,
		table:      table.New(table.WithFocused(true)),
		width:      100,
		height:     30,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.reload()
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, svc *crm.Service, opts ...Option) error {
	p := tea.NewProgram(NewModel(ctx, svc, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		return m, nil
	case SyncCompleteMsg:
		return m.handleSyncComplete(msg), nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	case ViewSync:
		return m.renderSyncView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	case ViewSync:
		return m.handleSyncKeys(msg)
	}

	return m, nil
}

// reload refetches every list for the current search and rebuilds the table.
func (m *Model) reload() {
	m.err = nil
	var err error
	if m.companies, err = m.svc.ListCompanies(m.ctx, m.searchQuery); err != nil {
		m.err = err
		return
	}
	if m.contacts, err = m.svc.ListContacts(m.ctx, m.searchQuery); err != nil {
		m.err = err
		return
	}
	if m.deals, err = m.svc.ListDeals(m.ctx, m.searchQuery); err != nil {
		m.err = err
		return
	}
	if m.board, err = m.svc.Pipeline(m.ctx); err != nil {
		m.err = err
		return
	}
	m.clampBoardCursor()
	m.refreshTable()
}

func (m Model) tableHeight() int {
	if h := m.height - 12; h > 3 {
		return h
	}
	return 3
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	return ""
}
