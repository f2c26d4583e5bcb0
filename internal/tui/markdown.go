package tui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders content for the terminal. Plain selects a
// colorless style for pipes and tests.
func RenderMarkdown(content string, width int, plain bool) (string, error) {
	if width <= 0 {
		width = 80
	}
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
