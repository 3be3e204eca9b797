package station

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	reviewPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	nameStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	newBadge     = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)
