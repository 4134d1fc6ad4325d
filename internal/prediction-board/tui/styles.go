package tui

import "github.com/charmbracelet/lipgloss"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	danger    = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F87"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	rateStyle  = lipgloss.NewStyle().Bold(true)
	flashStyle = lipgloss.NewStyle().Bold(true).Foreground(special)
	mutedStyle = lipgloss.NewStyle().Foreground(subtle)
	errorStyle = lipgloss.NewStyle().Foreground(danger)
	okStyle    = lipgloss.NewStyle().Foreground(special)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(highlight).
			Padding(0, 1)
)
