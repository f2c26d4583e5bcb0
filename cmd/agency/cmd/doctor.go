package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/content-agency/internal/config"
	"github.com/hugo-lorenzo-mato/content-agency/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/content-agency/internal/tui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, storage and host resources",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	failed := false

	fmt.Fprintln(out, "Checking configuration...")
	if err := config.ValidateConfig(cfg); err != nil {
		failed = true
		for _, line := range strings.Split(err.Error(), "; ") {
			check(out, false, line)
		}
	} else {
		check(out, true, "configuration is valid")
	}
	missing := make(map[string]bool)
	for _, key := range cfg.MissingCredentials() {
		missing[key] = true
	}
	for _, key := range []string{"llm.api_key", "search.api_key"} {
		if missing[key] {
			fmt.Fprintf(out, "  %s %s not set (stage will fail open)\n", tui.WarningStyle.Render("○"), key)
		} else {
			check(out, true, key+" set")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Checking state store...")
	store, err := openStore(cfg)
	if err != nil {
		failed = true
		check(out, false, err.Error())
	} else {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		pingErr := store.Ping(ctx)
		cancel()
		_ = store.Close()
		if pingErr != nil {
			failed = true
			check(out, false, "ping: "+pingErr.Error())
		} else {
			check(out, true, fmt.Sprintf("%s store at %s", cfg.State.Backend, cfg.State.Path))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Host resources...")
	snap := diagnostics.NewCollector(storeDir(cfg)).Collect()
	fmt.Fprintln(out, "  "+tui.KeyValue("platform", fmt.Sprintf("%s/%s %s", snap.OS, snap.Arch, snap.GoVersion)))
	cpu := fmt.Sprintf("%d threads", snap.CPUThreads)
	if snap.CPUModel != "" {
		cpu = snap.CPUModel + ", " + cpu
	}
	fmt.Fprintln(out, "  "+tui.KeyValue("cpu", cpu))
	fmt.Fprintln(out, "  "+tui.KeyValue("memory", fmt.Sprintf("%.0f/%.0f MB (%.0f%%)", snap.MemUsedMB, snap.MemTotalMB, snap.MemPercent)))
	fmt.Fprintln(out, "  "+tui.KeyValue("disk", fmt.Sprintf("%.1f GB free (%.0f%% used)", snap.DiskFreeGB, snap.DiskPercent)))
	if len(snap.GPUs) > 0 {
		fmt.Fprintln(out, "  "+tui.KeyValue("gpu", strings.Join(snap.GPUs, ", ")))
	}
	for _, w := range snap.Warnings() {
		fmt.Fprintf(out, "  %s %s\n", tui.WarningStyle.Render("⚠"), w)
	}

	fmt.Fprintln(out)
	if failed {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Fprintln(out, tui.CompletedStyle.Render("All checks passed."))
	return nil
}

func check(out io.Writer, ok bool, msg string) {
	icon := tui.CompletedStyle.Render("✓")
	if !ok {
		icon = tui.FailedStyle.Render("✗")
	}
	fmt.Fprintf(out, "  %s %s\n", icon, msg)
}

// storeDir is the directory whose filesystem holds state.
func storeDir(c *config.Config) string {
	if c.State.Backend == "memory" || c.State.Path == "" {
		return "."
	}
	return filepath.Dir(c.State.Path)
}
