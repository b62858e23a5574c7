package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leonardomso/webcheck/internal/checker"
)

// Color palette.
var (
	PrimaryColor   = lipgloss.Color("205") // Pink
	SecondaryColor = lipgloss.Color("241") // Gray
	SuccessColor   = lipgloss.Color("82")  // Green
	ErrorColor     = lipgloss.Color("196") // Red
	WarningColor   = lipgloss.Color("214") // Orange (for 3xx redirects)
	MutedColor     = lipgloss.Color("245") // Dimmed text
)

// Text styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			MarginTop(1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Width(12)

	FocusedLabelStyle = LabelStyle.
				Foreground(PrimaryColor).
				Bold(true)

	DetailLabelStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Width(16)

	AlertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(ErrorColor).
			Padding(0, 1)
)

// SpinnerStyle returns the style for the spinner.
func SpinnerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(PrimaryColor)
}

// Badge styles for result statuses.
var (
	BadgeOK = lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(SuccessColor).
		Padding(0, 1)

	BadgeError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(ErrorColor).
			Padding(0, 1)

	Badge4xx = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(ErrorColor).
			Padding(0, 1)

	Badge5xx = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("161")). // Darker red
			Padding(0, 1)

	Badge3xx = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(WarningColor).
			Padding(0, 1)
)

// StatusBadge returns a styled badge for the given status.
func StatusBadge(s checker.LinkStatus) string {
	switch s {
	case checker.StatusAlive:
		return BadgeOK.Render(s.Label())
	case checker.StatusRedirect:
		return Badge3xx.Render(s.Label())
	case checker.StatusClientError:
		return Badge4xx.Render(s.Label())
	case checker.StatusServerError:
		return Badge5xx.Render(s.Label())
	default:
		return BadgeError.Render(s.Label())
	}
}

// statusStyle picks the text color used for a status in summaries.
func statusStyle(s checker.LinkStatus) lipgloss.Style {
	switch s {
	case checker.StatusAlive:
		return SuccessStyle
	case checker.StatusRedirect:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
