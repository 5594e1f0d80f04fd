// Package tui provides the terminal output for dxrender: the live render
// progress view, the info report and consistent styling.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette - consistent colors used throughout the output
var (
	PrimaryColor = lipgloss.Color("#00D7FF") // Cyan - active stage, headings
	SuccessColor = lipgloss.Color("#5AF78E") // Green - finished renders
	WarningColor = lipgloss.Color("#F3F99D") // Yellow - warnings
	ErrorColor   = lipgloss.Color("#FF5C57") // Red - failures
	MutedColor   = lipgloss.Color("#6C7086") // Gray - secondary text
	BorderColor  = lipgloss.Color("#45475A") // Dark gray - dividers

	TextColor = lipgloss.Color("#CDD6F4") // Light gray - primary text
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// SubtitleStyle is used for secondary lines such as file paths.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	DividerStyle = lipgloss.NewStyle().
			Foreground(BorderColor)
)

// Progress bar styles
var (
	progressBarFillStyle  = lipgloss.NewStyle().Foreground(SuccessColor)
	progressBarEmptyStyle = lipgloss.NewStyle().Foreground(MutedColor)

	ProgressPercentStyle = lipgloss.NewStyle().
				Foreground(MutedColor)
)

// Result line styles
var (
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(ErrorColor)
)

// Status icons
const (
	IconDone    = "✓"
	IconActive  = "●"
	IconPending = "○"
	IconFailed  = "✗"
)
