// ABOUTME: Core Bubbletea model for the traffic inspector
// ABOUTME: Holds the connection and message tables and the raw-message viewport
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/tui/theme"
)

// Source is the part of the traffic log the inspector reads.
type Source interface {
	GetRecentConnections(limit int) ([]db.Connection, error)
	GetConnectionMessages(connectionID string) ([]db.Message, error)
}

// Pane identifies which component currently has focus
type Pane int

const (
	PaneConnections Pane = iota
	PaneMessages
	PaneDetail
)

const (
	connectionLimit = 200
	// DefaultRefresh is how often the inspector re-reads the database.
	DefaultRefresh = 2 * time.Second
)

type Options struct {
	Theme   string
	Refresh time.Duration
}

type Model struct {
	source  Source
	theme   theme.Theme
	refresh time.Duration
	width   int
	height  int

	connections table.Model
	messages    table.Model
	detail      viewport.Model

	connData   []db.Connection
	msgData    []db.Message
	selectedID string

	focus       Pane
	err         error
	lastRefresh time.Time
}

func NewModel(source Source, opts Options) Model {
	th := theme.GetTheme(opts.Theme)
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}

	// Default dimensions; resized on the first WindowSizeMsg
	connections := table.New(
		table.WithColumns(connectionColumns(40)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	connections.SetStyles(th.TableStyles())

	messages := table.New(
		table.WithColumns(messageColumns(80)),
		table.WithHeight(10),
	)
	messages.SetStyles(th.TableStyles())

	return Model{
		source:      source,
		theme:       th,
		refresh:     opts.Refresh,
		connections: connections,
		messages:    messages,
		detail:      viewport.New(80, 10),
		focus:       PaneConnections,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

func (m Model) Focus() Pane { return m.focus }

func (m Model) SelectedConnection() string { return m.selectedID }

func (m Model) Err() error { return m.err }
