// Package tui provides the terminal viewer for IIIF content.
// It uses the Charm Bubble Tea framework to drive the viewer session interactively.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Violet
	secondaryColor = lipgloss.Color("#10B981") // Emerald
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red

	fgColor     = lipgloss.Color("#CDD6F4")
	mutedColor  = lipgloss.Color("#6C7086")
	borderColor = lipgloss.Color("#45475A")
	highlightBg = lipgloss.Color("#45475A")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(fgColor).
	Background(primaryColor).
	Padding(0, 2).
	MarginBottom(1)

var subtitleStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	Italic(true)

var labelStyle = lipgloss.NewStyle().
	Foreground(secondaryColor).
	Bold(true)

var helpStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	MarginTop(1)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(borderColor).
	Padding(1, 2)

var errorStyle = lipgloss.NewStyle().
	Foreground(errorColor).
	Bold(true)

var progressStyle = lipgloss.NewStyle().
	Foreground(accentColor)

// matchStyle highlights the exact text of a search hit.
var matchStyle = lipgloss.NewStyle().
	Foreground(accentColor).
	Bold(true)

var statusBarStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	Background(highlightBg).
	Padding(0, 1)
