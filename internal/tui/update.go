// ABOUTME: Update logic for the inspector (handles all messages and state transitions)
// ABOUTME: Implements the Elm architecture Update function
package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/logger"
)

type tickMsg time.Time

// dataMsg carries one database read.
type dataMsg struct {
	connections []db.Connection
	messages    []db.Message
	selected    string
	err         error
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// load reads connections and the messages of the selected connection. With
// nothing selected, the newest connection is used.
func (m Model) load() tea.Cmd {
	source := m.source
	selected := m.selectedID
	return func() tea.Msg {
		connections, err := source.GetRecentConnections(connectionLimit)
		if err != nil {
			return dataMsg{err: fmt.Errorf("read connections: %w", err)}
		}

		if !containsConnection(connections, selected) {
			selected = ""
			if len(connections) > 0 {
				selected = connections[0].ID
			}
		}

		var messages []db.Message
		if selected != "" {
			messages, err = source.GetConnectionMessages(selected)
			if err != nil {
				err = fmt.Errorf("read messages: %w", err)
			}
		}
		return dataMsg{connections: connections, messages: messages, selected: selected, err: err}
	}
}

func containsConnection(connections []db.Connection, id string) bool {
	for _, c := range connections {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateComponentSizes()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())

	case dataMsg:
		m.lastRefresh = time.Now()
		m.err = msg.err
		if msg.err != nil {
			logger.Debug("inspector refresh failed: %v", msg.err)
			return m, nil
		}
		m.applyData(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.cycleFocus()
			return m, nil
		case "r":
			return m, m.load()
		}
		return m.handleFocusedInput(msg)
	}

	return m, nil
}

func (m Model) handleFocusedInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.focus {
	case PaneConnections:
		m.connections, cmd = m.connections.Update(msg)
		if row := m.connections.Cursor(); row >= 0 && row < len(m.connData) && m.connData[row].ID != m.selectedID {
			m.selectedID = m.connData[row].ID
			m.msgData = nil
			m.messages.SetRows(nil)
			m.messages.SetCursor(0)
			m.updateDetail()
			return m, tea.Batch(cmd, m.load())
		}
	case PaneMessages:
		m.messages, cmd = m.messages.Update(msg)
		m.updateDetail()
	case PaneDetail:
		m.detail, cmd = m.detail.Update(msg)
	}

	return m, cmd
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % 3

	m.connections.Blur()
	m.messages.Blur()
	switch m.focus {
	case PaneConnections:
		m.connections.Focus()
	case PaneMessages:
		m.messages.Focus()
	}
}

func (m *Model) applyData(msg dataMsg) {
	m.connData = msg.connections
	rows := make([]table.Row, 0, len(msg.connections))
	cursor := 0
	for i, c := range msg.connections {
		rows = append(rows, connectionRow(c))
		if c.ID == msg.selected {
			cursor = i
		}
	}
	m.connections.SetRows(rows)
	m.connections.SetCursor(cursor)

	// Keep the message cursor where it was while the same connection
	// stays selected; new traffic is appended below it.
	sameConnection := msg.selected == m.selectedID
	m.selectedID = msg.selected
	m.msgData = msg.messages

	msgRows := make([]table.Row, 0, len(msg.messages))
	for _, message := range msg.messages {
		msgRows = append(msgRows, messageRow(message))
	}
	previous := m.messages.Cursor()
	m.messages.SetRows(msgRows)
	if sameConnection && previous < len(msgRows) {
		m.messages.SetCursor(previous)
	} else {
		m.messages.SetCursor(0)
	}

	m.updateDetail()
}

func (m *Model) updateDetail() {
	row := m.messages.Cursor()
	if row < 0 || row >= len(m.msgData) {
		m.detail.SetContent(m.theme.DimStyle().Render("no message selected"))
		return
	}

	m.detail.SetContent(formatRaw(m.msgData[row].RawMessage))
	m.detail.GotoTop()
}

// formatRaw indents JSON and leaves anything else as logged.
func formatRaw(raw string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return out.String()
}

func (m *Model) updateComponentSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// Two bordered panes on top, the detail viewport below, one status line.
	topHeight := (m.height - 1) / 2
	detailHeight := m.height - 1 - topHeight

	connWidth := m.width * 2 / 5
	msgWidth := m.width - connWidth

	m.connections.SetColumns(connectionColumns(connWidth - 4))
	m.connections.SetWidth(connWidth - 2)
	m.connections.SetHeight(max(topHeight-3, 1))

	m.messages.SetColumns(messageColumns(msgWidth - 4))
	m.messages.SetWidth(msgWidth - 2)
	m.messages.SetHeight(max(topHeight-3, 1))

	m.detail.Width = m.width - 2
	m.detail.Height = max(detailHeight-3, 1)
}
