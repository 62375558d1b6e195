package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	title     lipgloss.Style
	header    lipgloss.Style
	selected  lipgloss.Style
	normal    lipgloss.Style
	price     lipgloss.Style
	dim       lipgloss.Style
	statusBar lipgloss.Style
	errorText lipgloss.Style
	chip      lipgloss.Style
	chipOn    lipgloss.Style
	help      lipgloss.Style
}

func newTheme(dark bool) theme {
	fg, bg, accent, muted := lipgloss.Color("252"), lipgloss.Color("236"), lipgloss.Color("39"), lipgloss.Color("242")
	if !dark {
		fg, bg, accent, muted = lipgloss.Color("235"), lipgloss.Color("254"), lipgloss.Color("26"), lipgloss.Color("244")
	}

	return theme{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg).
			Background(bg),
		selected: lipgloss.NewStyle().
			Background(lipgloss.Color("25")).
			Foreground(lipgloss.Color("255")),
		normal: lipgloss.NewStyle().
			Foreground(fg),
		price: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		dim: lipgloss.NewStyle().
			Foreground(muted),
		statusBar: lipgloss.NewStyle().
			Background(bg).
			Foreground(fg).
			Padding(0, 1),
		errorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203")),
		chip: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		chipOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(accent).
			Padding(0, 1),
		help: lipgloss.NewStyle().
			Foreground(muted),
	}
}
