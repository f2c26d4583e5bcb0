package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/tui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Example: `  agency list --status completed
  agency list --search "helthcare"`,
	RunE: runList,
}

var (
	listStatus string
	listMode   string
	listSearch string
	listLimit  int
	listActive bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listStatus, "status", "", "only projects with this status")
	listCmd.Flags().StringVar(&listMode, "mode", "", "only projects in this mode (standard, quick)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "fuzzy match on topic, best match first")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of projects")
	listCmd.Flags().BoolVar(&listActive, "active", false, "only projects that are not completed or failed")
}

// topics adapts a project slice to fuzzy.Source.
type topics []*core.ContentState

func (t topics) String(i int) string { return t[i].Topic }
func (t topics) Len() int            { return len(t) }

func runList(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var states []*core.ContentState
	if listActive {
		states, err = store.ActiveProjects(cmd.Context())
	} else {
		filter := core.ProjectFilter{Status: core.Status(listStatus), Mode: core.Mode(listMode)}
		if listSearch == "" {
			filter.Limit = listLimit
		}
		states, err = store.ListProjects(cmd.Context(), filter)
	}
	if err != nil {
		return err
	}
	states = searchTopics(states, listSearch, listLimit)

	out := cmd.OutOrStdout()
	if len(states) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMODE\tSCORE\tWORDS\tUPDATED\tTOPIC")
	for _, st := range states {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%d\t%s\t%s\n",
			st.ProjectID,
			tui.StatusStyle(string(st.Status)).Render(string(st.Status)),
			st.Mode,
			st.QualityScore,
			st.WordCount,
			st.UpdatedAt.Format("2006-01-02 15:04"),
			st.Topic,
		)
	}
	return w.Flush()
}

// searchTopics keeps projects whose topic fuzzy-matches query, best match
// first. An empty query only applies the limit.
func searchTopics(states []*core.ContentState, query string, limit int) []*core.ContentState {
	if query != "" {
		matches := fuzzy.FindFrom(query, topics(states))
		ranked := make([]*core.ContentState, 0, len(matches))
		for _, m := range matches {
			ranked = append(ranked, states[m.Index])
		}
		states = ranked
	}
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}
	return states
}
