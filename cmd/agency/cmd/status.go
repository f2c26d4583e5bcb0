package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show the progress of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := loadProject(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}
	phase, msg := core.DerivePhase(st)

	rows := [][2]string{
		{"project", st.ProjectID},
		{"topic", st.Topic},
		{"mode", string(st.Mode)},
		{"phase", tui.StatusStyle(string(phase)).Render(string(phase))},
		{"message", msg},
		{"status", tui.StatusStyle(string(st.Status)).Render(string(st.Status))},
		{"next action", string(st.NextAction)},
		{"research", fmt.Sprintf("%d notes, %d sources, %d attempts", len(st.ResearchNotes), len(st.Sources), st.ResearchAttempts)},
		{"word count", strconv.Itoa(st.WordCount)},
		{"quality score", fmt.Sprintf("%.0f/100", st.QualityScore)},
		{"checkpoints", strconv.Itoa(len(st.CheckpointHistory))},
		{"created", st.CreatedAt.Format(time.RFC3339)},
		{"updated", st.UpdatedAt.Format(time.RFC3339)},
	}
	if st.CompletedAt != nil {
		rows = append(rows, [2]string{"completed", st.CompletedAt.Format(time.RFC3339)})
	}
	if st.Error != "" {
		rows = append(rows, [2]string{"error", tui.FailedStyle.Render(st.Error)})
	}

	out := cmd.OutOrStdout()
	for _, r := range rows {
		fmt.Fprintln(out, tui.KeyValue(r[0], r[1]))
	}
	return nil
}
