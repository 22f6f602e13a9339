package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	cursorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	rowStyle         = lipgloss.NewStyle()
	sizeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	placeholderStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)
