package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/clip"
	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/tui"
)

var contentCmd = &cobra.Command{
	Use:   "content <project-id>",
	Short: "Print the final content of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runContent,
}

var (
	contentCopy bool
	contentRaw  bool
)

func init() {
	rootCmd.AddCommand(contentCmd)

	contentCmd.Flags().BoolVar(&contentCopy, "copy", false, "copy the content to the clipboard")
	contentCmd.Flags().BoolVar(&contentRaw, "raw", false, "print markdown without rendering")
}

func runContent(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := loadProject(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}
	if st.FinalContent == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (status: %s)\n", core.ContentProgressMessage(st), st.Status)
		return nil
	}

	if contentCopy {
		res, err := clip.New().Copy(st.FinalContent)
		if err != nil {
			return err
		}
		switch res.Method {
		case clip.MethodFile:
			fmt.Fprintf(cmd.ErrOrStderr(), "clipboard unavailable; content written to %s\n", res.FilePath)
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "content copied (%s)\n", res.Method)
		}
		return nil
	}
	return printContent(cmd, st, contentRaw)
}

// printContent writes the final content with a one-line summary. Output
// that is not a terminal gets plain markdown.
func printContent(cmd *cobra.Command, st *core.ContentState, raw bool) error {
	out := cmd.OutOrStdout()
	if st == nil || st.FinalContent == "" {
		fmt.Fprintln(out, "No content was produced.")
		return nil
	}

	body := st.FinalContent
	if !raw {
		rendered, err := tui.RenderMarkdown(st.FinalContent, 100, !isTerminal())
		if err == nil {
			body = rendered
		}
	}
	fmt.Fprintln(out, body)
	if !raw {
		summary := fmt.Sprintf("%d words · score %.0f/100", st.WordCount, st.QualityScore)
		if st.QualityScore < cfg.Workflow.QualityThreshold {
			summary = tui.WarningStyle.Render(summary + " · below quality threshold")
		}
		fmt.Fprintln(cmd.ErrOrStderr(), tui.FooterStyle.Render(summary))
	}
	return nil
}
