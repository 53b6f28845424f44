package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#4ECDC4")
	// SuccessColor marks completed actions and paid entries.
	SuccessColor = lipgloss.Color("#2ECC71")
	// WarningColor marks partial results.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor marks failures and payables.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor is used for secondary text.
	SubtleColor = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle frames the balance panel of the summary command.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)
)

func FormatTitle(s string) string {
	return TitleStyle.Render(s)
}

func FormatSuccess(s string) string {
	return SuccessStyle.Render("✓ " + s)
}

func FormatWarning(s string) string {
	return WarningStyle.Render("! " + s)
}

func FormatError(s string) string {
	return ErrorStyle.Render("✗ " + s)
}
