package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/service/workflow"
)

var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	Aliases: []string{"cp"},
	Short:   "Save, list and restore project checkpoints",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the newest checkpoints of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointList,
}

var checkpointSaveCmd = &cobra.Command{
	Use:   "save <project-id> [name]",
	Short: "Snapshot the current state of a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCheckpointSave,
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <project-id> <checkpoint-id>",
	Short: "Overwrite a project with a checkpoint",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheckpointRestore,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointListCmd, checkpointSaveCmd, checkpointRestoreCmd)
}

func checkpointManager() (*workflow.CheckpointManager, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return workflow.NewCheckpointManager(store, nil, nil, logger), func() { _ = store.Close() }, nil
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	mgr, done, err := checkpointManager()
	if err != nil {
		return err
	}
	defer done()

	infos, err := mgr.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No checkpoints.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Name, info.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runCheckpointSave(cmd *cobra.Command, args []string) error {
	mgr, done, err := checkpointManager()
	if err != nil {
		return err
	}
	defer done()

	name := ""
	if len(args) == 2 {
		name = args[1]
	}
	cid, err := mgr.Save(cmd.Context(), args[0], name)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cid)
	return nil
}

func runCheckpointRestore(cmd *cobra.Command, args []string) error {
	mgr, done, err := checkpointManager()
	if err != nil {
		return err
	}
	defer done()

	st, err := mgr.Restore(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s to %s (status %s, next %s)\n",
		st.ProjectID, args[1], st.Status, st.NextAction)
	return nil
}
