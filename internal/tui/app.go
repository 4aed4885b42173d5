package tui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/engine"
	"github.com/mmcdole/kinosync/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateFiltering
	StateHelp
	StateConfirmClear
	StateConfirmLogout
)

// ChromeHeight is the number of lines used by the header, filter line and footer.
const ChromeHeight = 6

// Model is the collection inspector.
type Model struct {
	State   ApplicationState
	Engine  *engine.Engine
	Changes <-chan CollectionChangedMsg

	Tab    int
	Rows   map[domain.Domain][]Row
	Cursor map[domain.Domain]int
	Query  map[domain.Domain]string

	Filter textinput.Model
	Help   help.Model

	Status  engine.CacheStatus
	Message string
	Err     error

	Width  int
	Height int
	Ready  bool
}

// NewModel creates the inspector for e. Change events are read from changes.
func NewModel(e *engine.Engine, changes <-chan CollectionChangedMsg) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.Placeholder = "filter"
	ti.CharLimit = 64

	return Model{
		State:   StateBrowsing,
		Engine:  e,
		Changes: changes,
		Rows:    make(map[domain.Domain][]Row),
		Cursor:  make(map[domain.Domain]int),
		Query:   make(map[domain.Domain]string),
		Filter:  ti,
		Help:    help.New(),
		Status:  e.Status(),
	}
}

// Init loads every collection and starts listening for changes
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{statusCmd(m.Engine)}
	for _, d := range domain.AllDomains {
		cmds = append(cmds, loadCollectionCmd(m.Engine, d, ""))
	}
	if m.Changes != nil {
		cmds = append(cmds, waitForChangeCmd(m.Changes))
	}
	return tea.Batch(cmds...)
}

// CurrentDomain returns the collection of the active tab.
func (m Model) CurrentDomain() domain.Domain {
	return domain.AllDomains[m.Tab]
}

// SelectedRow returns the row under the cursor, if any.
func (m Model) SelectedRow() (Row, bool) {
	d := m.CurrentDomain()
	rows := m.Rows[d]
	c := m.Cursor[d]
	if c < 0 || c >= len(rows) {
		return Row{}, false
	}
	return rows[c], true
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		m.Filter.Width = max(msg.Width-4, 10)
		m.Ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case CollectionLoadedMsg:
		// Drop results for a query the user has already typed past
		if msg.Query != m.Query[msg.Domain] {
			return m, nil
		}
		m.Rows[msg.Domain] = msg.Rows
		m.clampCursor(msg.Domain)
		return m, nil

	case CollectionChangedMsg:
		return m, tea.Batch(
			m.reload(msg.Domain),
			statusCmd(m.Engine),
			waitForChangeCmd(m.Changes),
		)

	case StatusMsg:
		m.Status = msg.Status
		return m, nil

	case ActionDoneMsg:
		m.Message = msg.Text
		m.Err = nil
		if msg.Domain == "" {
			return m, m.reloadAll()
		}
		return m, tea.Batch(m.reload(msg.Domain), statusCmd(m.Engine))

	case ErrMsg:
		m.Err = msg
		m.Message = ""
		// A failed write has already been reconciled; show the current state
		return m, m.reload(m.CurrentDomain())
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmClear:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = StateBrowsing
			return m, clearCollectionCmd(m.Engine, m.CurrentDomain())
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmLogout:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = StateBrowsing
			return m, logoutCmd(m.Engine, m.Status.Username)
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil

	case StateFiltering:
		return m.handleFilterKey(msg)
	}

	d := m.CurrentDomain()
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp

	case key.Matches(msg, Keys.NextTab):
		m.Tab = (m.Tab + 1) % len(domain.AllDomains)

	case key.Matches(msg, Keys.PrevTab):
		m.Tab = (m.Tab + len(domain.AllDomains) - 1) % len(domain.AllDomains)

	case key.Matches(msg, Keys.Up):
		m.Cursor[d]--
		m.clampCursor(d)

	case key.Matches(msg, Keys.Down):
		m.Cursor[d]++
		m.clampCursor(d)

	case key.Matches(msg, Keys.Home):
		m.Cursor[d] = 0

	case key.Matches(msg, Keys.End):
		m.Cursor[d] = len(m.Rows[d]) - 1
		m.clampCursor(d)

	case key.Matches(msg, Keys.Filter):
		m.State = StateFiltering
		m.Filter.SetValue(m.Query[d])
		m.Filter.CursorEnd()
		return m, m.Filter.Focus()

	case key.Matches(msg, Keys.Escape):
		if m.Query[d] != "" {
			m.Query[d] = ""
			return m, m.reload(d)
		}
		m.Err = nil
		m.Message = ""

	case key.Matches(msg, Keys.Refresh):
		return m, m.reloadAll()

	case key.Matches(msg, Keys.Preload):
		return m, preloadCmd(m.Engine)

	case key.Matches(msg, Keys.Delete):
		if row, ok := m.SelectedRow(); ok {
			return m, deleteRowCmd(m.Engine, d, row.Key)
		}

	case key.Matches(msg, Keys.Clear):
		if len(m.Rows[d]) > 0 {
			m.State = StateConfirmClear
		}

	case key.Matches(msg, Keys.Logout):
		if m.Status.HasUser {
			m.State = StateConfirmLogout
		}
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.CurrentDomain()
	switch msg.Type {
	case tea.KeyEsc:
		m.State = StateBrowsing
		m.Filter.Blur()
		m.Filter.Reset()
		if m.Query[d] == "" {
			return m, nil
		}
		m.Query[d] = ""
		return m, m.reload(d)
	case tea.KeyEnter:
		m.State = StateBrowsing
		m.Filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.Filter, cmd = m.Filter.Update(msg)
	if q := m.Filter.Value(); q != m.Query[d] {
		m.Query[d] = q
		m.Cursor[d] = 0
		return m, tea.Batch(cmd, m.reload(d))
	}
	return m, cmd
}

func (m Model) reload(d domain.Domain) tea.Cmd {
	return loadCollectionCmd(m.Engine, d, m.Query[d])
}

func (m Model) reloadAll() tea.Cmd {
	cmds := []tea.Cmd{statusCmd(m.Engine)}
	for _, d := range domain.AllDomains {
		cmds = append(cmds, m.reload(d))
	}
	return tea.Batch(cmds...)
}

func (m Model) clampCursor(d domain.Domain) {
	n := len(m.Rows[d])
	c := m.Cursor[d]
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	m.Cursor[d] = c
}

// Run starts the inspector on the terminal and blocks until it exits.
func Run(e *engine.Engine, logger *slog.Logger) error {
	changes := make(chan CollectionChangedMsg, 16)
	stop := NewChannelObserver(changes).Watch(e)
	defer stop()

	p := tea.NewProgram(
		NewModel(e, changes),
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI", "mode", e.Mode())

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
