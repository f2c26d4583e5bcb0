package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Generate a blog post in the foreground",
	Long: `Plan, research, write and review a post for topic, showing progress as
each stage runs, then print the result.

Examples:
  agency run "AI in healthcare"
  agency run --mode quick "Remote work trends" --raw > post.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var (
	runMode  string
	runNoTUI bool
	runRaw   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runMode, "mode", "m", string(core.ModeStandard),
		"workflow mode (standard, quick)")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false,
		"print plain progress lines instead of the interactive view")
	runCmd.Flags().BoolVar(&runRaw, "raw", false,
		"print the final markdown without rendering")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.close(closeCtx)
	}()

	topic := strings.Join(args, " ")
	st, err := a.engine.Create(ctx, topic, core.Mode(runMode))
	if err != nil {
		return err
	}

	runCtx := ctx
	if cfg.Workflow.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Workflow.Timeout)
		defer cancel()
	}

	var final *core.ContentState
	if !runNoTUI && isTerminal() {
		final, err = runInteractive(runCtx, a, st)
	} else {
		final, err = runPlain(runCtx, cmd, a, st)
	}
	if err != nil {
		return err
	}
	return printContent(cmd, final, runRaw)
}

func runInteractive(ctx context.Context, a *app, st *core.ContentState) (*core.ContentState, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter := tui.NewEventBusAdapter(a.bus, st.ProjectID)
	defer adapter.Close()

	p := tea.NewProgram(tui.NewRunModel(st, adapter.MsgChannel(), cancel))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		final, err := a.runner.Execute(ctx, st)
		p.Send(tui.RunFinishedMsg{State: final, Err: err})
	}()

	m, err := p.Run()
	cancel()
	<-finished
	if err != nil {
		return nil, fmt.Errorf("running progress view: %w", err)
	}
	model := m.(tui.RunModel)
	res, ok := model.Result()
	if !ok {
		return nil, fmt.Errorf("run canceled; inspect it with 'agency status %s'", st.ProjectID)
	}
	return res.State, res.Err
}

func runPlain(ctx context.Context, cmd *cobra.Command, a *app, st *core.ContentState) (*core.ContentState, error) {
	adapter := tui.NewEventBusAdapter(a.bus, st.ProjectID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tui.PlainProgress(cmd.ErrOrStderr(), adapter.MsgChannel())
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "project %s: %s (%s)\n", st.ProjectID, st.Topic, st.Mode)
	final, err := a.runner.Execute(ctx, st)
	adapter.Close()
	<-done
	return final, err
}
