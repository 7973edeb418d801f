package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#7C3AED")
	colorFolder = lipgloss.Color("#3B82F6")
	colorMuted  = lipgloss.Color("#6B7280")
	colorError  = lipgloss.Color("#EF4444")
	colorOK     = lipgloss.Color("#10B981")
	colorBorder = lipgloss.Color("#374151")
)

var paneStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder).
	Padding(0, 1)

var activePaneStyle = paneStyle.BorderForeground(colorAccent)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	currentStyle = lipgloss.NewStyle().Bold(true)
	folderStyle  = lipgloss.NewStyle().Foreground(colorFolder)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	footerStyle  = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
)
