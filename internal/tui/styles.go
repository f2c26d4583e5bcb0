// Package tui renders pipeline progress and generated content in the
// terminal.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorError     = lipgloss.Color("#EF4444")
	ColorText      = lipgloss.Color("#E5E7EB")
	ColorTextMuted = lipgloss.Color("#9CA3AF")
	ColorBorder    = lipgloss.Color("#374151")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Width(16)

	PendingStyle   = lipgloss.NewStyle().Foreground(ColorTextMuted)
	RunningStyle   = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle   = lipgloss.NewStyle().Foreground(ColorWarning)
	FailedStyle    = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)

// StatusStyle picks the style for a stored status or derived phase label.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", "complete", "review_complete", "research_complete", "draft_complete":
		return CompletedStyle
	case "failed":
		return FailedStyle
	case "research_failed", "draft_failed", "review_failed":
		return WarningStyle
	case "created", "initialized", "in_progress":
		return PendingStyle
	default:
		return RunningStyle
	}
}

// KeyValue renders an aligned label and value pair.
func KeyValue(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}
