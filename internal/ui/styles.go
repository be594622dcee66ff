package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles of the workbench.
type Styles struct {
	App     lipgloss.Style
	Header  lipgloss.Style
	Step    lipgloss.Style
	Message lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
	Example lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		App:     lipgloss.NewStyle().Padding(1, 2),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Step:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1),
		Message: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Example: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
}
