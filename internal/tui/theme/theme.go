// ABOUTME: Theme system for the inspector TUI styled with lipgloss
// ABOUTME: Provides predefined themes and style constructors for panes and tables
package theme

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Primary    lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	PaneBg     lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Inbound    lipgloss.Color
	Outbound   lipgloss.Color
	Dim        lipgloss.Color
}

var DefaultTheme = Theme{
	Primary:    lipgloss.Color("#7C3AED"), // Purple
	Background: lipgloss.Color("#1E1E2E"), // Dark gray
	Foreground: lipgloss.Color("#CDD6F4"), // Light gray
	PaneBg:     lipgloss.Color("#181825"), // Darker gray
	Success:    lipgloss.Color("#A6E3A1"), // Green
	Warning:    lipgloss.Color("#F9E2AF"), // Yellow
	Error:      lipgloss.Color("#F38BA8"), // Red
	Inbound:    lipgloss.Color("#89B4FA"), // Blue
	Outbound:   lipgloss.Color("#94E2D5"), // Cyan
	Dim:        lipgloss.Color("#6C7086"), // Dim gray
}

var DarkTheme = Theme{
	Primary:    lipgloss.Color("#00FF00"), // Bright green
	Background: lipgloss.Color("#000000"), // Pure black
	Foreground: lipgloss.Color("#FFFFFF"), // Pure white
	PaneBg:     lipgloss.Color("#0A0A0A"), // Near black
	Success:    lipgloss.Color("#00FF00"), // Green
	Warning:    lipgloss.Color("#FFFF00"), // Yellow
	Error:      lipgloss.Color("#FF0000"), // Red
	Inbound:    lipgloss.Color("#00FFFF"), // Cyan
	Outbound:   lipgloss.Color("#FF00FF"), // Magenta
	Dim:        lipgloss.Color("#808080"), // Gray
}

var LightTheme = Theme{
	Primary:    lipgloss.Color("#268BD2"), // Blue
	Background: lipgloss.Color("#FDF6E3"), // Cream
	Foreground: lipgloss.Color("#657B83"), // Gray
	PaneBg:     lipgloss.Color("#EEE8D5"), // Light cream
	Success:    lipgloss.Color("#859900"), // Olive green
	Warning:    lipgloss.Color("#B58900"), // Yellow
	Error:      lipgloss.Color("#DC322F"), // Red
	Inbound:    lipgloss.Color("#268BD2"), // Blue
	Outbound:   lipgloss.Color("#2AA198"), // Cyan
	Dim:        lipgloss.Color("#93A1A1"), // Light gray
}

// GetTheme returns the named theme, falling back to the default one.
func GetTheme(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme
	case "light":
		return LightTheme
	default:
		return DefaultTheme
	}
}

// Style constructors

func (t Theme) PaneStyle(focused bool) lipgloss.Style {
	border := t.Dim
	if focused {
		border = t.Primary
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(t.Foreground)
}

func (t Theme) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		Padding(0, 1)
}

func (t Theme) TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Dim).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(t.Background).
		Background(t.Primary).
		Bold(false)
	return s
}

func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Primary).
		Foreground(t.Background).
		Padding(0, 1)
}

func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true)
}

func (t Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Success)
}

func (t Theme) DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Dim)
}

// DirectionStyle colours a message by which way it travelled.
func (t Theme) DirectionStyle(inbound bool) lipgloss.Style {
	if inbound {
		return lipgloss.NewStyle().Foreground(t.Inbound)
	}
	return lipgloss.NewStyle().Foreground(t.Outbound)
}
