package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette for terminal output.
type Theme struct {
	// Primary is the heading colour.
	Primary lipgloss.Color

	// Muted is for provenance and hints.
	Muted lipgloss.Color

	// Warning highlights configuration problems.
	Warning lipgloss.Color

	// Border frames the answer.
	Border lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Border:  lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles for command output.
type Styles struct {
	// Title style for section headers.
	Title lipgloss.Style

	// Answer frames the completion text.
	Answer lipgloss.Style

	// Source style for provenance lines.
	Source lipgloss.Style

	// Warning style for validation messages.
	Warning lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Answer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Source: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),
	}
}

// styles is shared by every command.
var styles = NewStyles(nil)
