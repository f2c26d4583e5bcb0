package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// PlainProgress writes one line per stage message until ch closes. It is
// used when output is not a terminal.
func PlainProgress(w io.Writer, ch <-chan tea.Msg) {
	for msg := range ch {
		switch m := msg.(type) {
		case StageStartedMsg:
			fmt.Fprintf(w, "[%s] started\n", m.Stage)
		case StageDoneMsg:
			fmt.Fprintf(w, "[%s] %s\n", m.Stage, m.Status)
		case CheckpointMsg:
			fmt.Fprintf(w, "checkpoint %s saved\n", m.ID)
		}
	}
}
