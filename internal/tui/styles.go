package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAdded   = lipgloss.Color("76")  // green
	colorRemoved = lipgloss.Color("196") // red
	colorHunk    = lipgloss.Color("39")  // blue
	colorMuted   = lipgloss.Color("242") // gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	metadataStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	fileStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	hunkStyle = lipgloss.NewStyle().
			Foreground(colorHunk)

	addedStyle = lipgloss.NewStyle().
			Foreground(colorAdded)

	removedStyle = lipgloss.NewStyle().
			Foreground(colorRemoved)

	contextStyle = lipgloss.NewStyle()

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
