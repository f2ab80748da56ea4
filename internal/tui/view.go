// ABOUTME: View rendering for the inspector TUI
// ABOUTME: Lays out the tables, the raw-message viewport, and the status bar
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/logger"
)

func connectionColumns(width int) []table.Column {
	fixed := 8 + 9 + 8 + 6 + 5
	remote := max(width-fixed, 6)
	return []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Transport", Width: 9},
		{Title: "Remote", Width: remote},
		{Title: "Opened", Width: 8},
		{Title: "State", Width: 6},
		{Title: "Msgs", Width: 5},
	}
}

func messageColumns(width int) []table.Column {
	fixed := 8 + 3 + 12 + 10 + 18
	method := max(width-fixed, 8)
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Dir", Width: 3},
		{Title: "Type", Width: 12},
		{Title: "Method", Width: method},
		{Title: "ID", Width: 10},
		{Title: "Error", Width: 18},
	}
}

func connectionRow(c db.Connection) table.Row {
	state := "open"
	if !c.IsOpen() {
		state = "closed"
	}
	return table.Row{
		logger.Short(c.ID),
		c.Transport,
		c.RemoteAddr,
		c.OpenedAt.Local().Format("15:04:05"),
		state,
		strconv.Itoa(c.MessageCount),
	}
}

func messageRow(m db.Message) table.Row {
	dir := "->"
	if m.Direction == db.DirectionOutbound {
		dir = "<-"
	}

	errText := ""
	if m.ErrorCode != nil {
		errText = fmt.Sprintf("%d %s", *m.ErrorCode, m.ErrorCategory)
	}

	return table.Row{
		m.Timestamp.Local().Format("15:04:05"),
		dir,
		m.MessageType,
		m.Method,
		m.JSONRPCID,
		errText,
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	connPane := m.theme.PaneStyle(m.focus == PaneConnections).Render(
		m.theme.TitleStyle().Render("Connections") + "\n" + m.connections.View())
	msgPane := m.theme.PaneStyle(m.focus == PaneMessages).Render(
		m.theme.TitleStyle().Render("Messages") + "\n" + m.messages.View())
	detailPane := m.theme.PaneStyle(m.focus == PaneDetail).Render(
		m.theme.TitleStyle().Render("Raw") + "\n" + m.detail.View())

	top := lipgloss.JoinHorizontal(lipgloss.Top, connPane, msgPane)
	return lipgloss.JoinVertical(lipgloss.Left, top, detailPane, m.statusLine())
}

func (m Model) statusLine() string {
	var left string
	if m.err != nil {
		left = m.theme.ErrorStyle().Render("error: " + m.err.Error())
	} else {
		left = fmt.Sprintf("%d connections", len(m.connData))
		if m.selectedID != "" {
			left += fmt.Sprintf(" | %s: %d messages", logger.Short(m.selectedID), len(m.msgData))
		}
	}

	shortcuts := "Tab: Pane, r: Refresh, q: Quit"
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(shortcuts) - 4
	if padding < 1 {
		padding = 1
	}

	return m.theme.StatusBarStyle().
		Width(m.width).
		Render(left + strings.Repeat(" ", padding) + shortcuts)
}
