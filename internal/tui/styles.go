package tui

import "github.com/charmbracelet/lipgloss"

// StatusPending is shown for plugins the sync has not reached yet.
const StatusPending = "pending"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"merged":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"unchanged": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"discovered": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"parsed":     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"stale":      lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"archived":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"published":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Dry run
		"would build": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		"failed": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		StatusPending: lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
