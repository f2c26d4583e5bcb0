package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <project-id> <text>",
	Short: "Record human feedback on a project",
	Example: `  agency feedback 3f2a... "Tighten the intro" --action revise
  agency feedback 3f2a... "Ship it" --action approve --approve`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFeedback,
}

var (
	feedbackAction  string
	feedbackApprove bool
)

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringVar(&feedbackAction, "action", string(core.FeedbackComment),
		"approve, reject, revise or comment")
	feedbackCmd.Flags().BoolVar(&feedbackApprove, "approve", false, "mark the content as approved")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	text := strings.Join(args[1:], " ")
	fid, err := store.SaveHumanFeedback(cmd.Context(), args[0], text, core.FeedbackAction(feedbackAction), feedbackApprove)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), fid)
	return nil
}
