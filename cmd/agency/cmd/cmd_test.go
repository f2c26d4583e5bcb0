package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/content-agency/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/testutil"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return buf.String(), err
}

// useJSONStore points the CLI at a fresh JSON state file and seeds it.
func useJSONStore(t *testing.T, seed ...*core.ContentState) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	t.Setenv("AGENCY_STATE_BACKEND", "json")
	t.Setenv("AGENCY_STATE_PATH", path)

	store, err := state.NewJSONStore(path)
	require.NoError(t, err)
	for _, st := range seed {
		require.NoError(t, store.CreateProject(context.Background(), st))
	}
	require.NoError(t, store.Close())
	return path
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2025-06-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agency 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	t.Setenv("AGENCY_STATE_BACKEND", "memory")
	t.Setenv("GEMINI_API_KEY", "AIzaSyFakeKeyForTesting1234")

	out, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: gemini")
	assert.Contains(t, out, "port: 8000")
	assert.NotContains(t, out, "AIzaSyFakeKeyForTesting1234")
}

func TestStatusCommand(t *testing.T) {
	useJSONStore(t, testutil.NewTestState(func(s *core.ContentState) {
		s.Draft = "draft body"
	}))

	out, err := executeCommand(t, "status", "proj-test")
	require.NoError(t, err)
	assert.Contains(t, out, "Ai In Healthcare")
	assert.Contains(t, out, "reviewing")
	assert.Contains(t, out, "Content is being reviewed")

	_, err = executeCommand(t, "status", "missing")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestContentCommand(t *testing.T) {
	useJSONStore(t,
		testutil.NewTestState(),
		testutil.NewTestState(func(s *core.ContentState) {
			s.ProjectID = "proj-done"
			s.FinalContent = "# Smarter Care\n\nBody text."
			s.Status = core.StatusCompleted
		}),
	)

	out, err := executeCommand(t, "content", "proj-test")
	require.NoError(t, err)
	assert.Contains(t, out, "Content generation in progress")

	out, err = executeCommand(t, "content", "proj-done", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# Smarter Care")
}

func TestListCommand(t *testing.T) {
	useJSONStore(t,
		testutil.NewTestState(func(s *core.ContentState) { s.ProjectID = "p-health" }),
		testutil.NewTestState(func(s *core.ContentState) {
			s.ProjectID = "p-remote"
			s.Topic = "Remote Work Trends"
			s.Mode = core.ModeQuick
		}),
	)

	out, err := executeCommand(t, "list", "--search", "", "--mode", "")
	require.NoError(t, err)
	assert.Contains(t, out, "p-health")
	assert.Contains(t, out, "p-remote")

	out, err = executeCommand(t, "list", "--search", "remte")
	require.NoError(t, err)
	assert.Contains(t, out, "p-remote")
	assert.NotContains(t, out, "p-health")

	out, err = executeCommand(t, "list", "--search", "", "--mode", "quick")
	require.NoError(t, err)
	assert.NotContains(t, out, "p-health")
	assert.Contains(t, out, "p-remote")
}

func TestSearchTopics(t *testing.T) {
	states := []*core.ContentState{
		{ProjectID: "a", Topic: "Ai In Healthcare"},
		{ProjectID: "b", Topic: "Remote Work Trends"},
		{ProjectID: "c", Topic: "Healthy Cooking"},
	}

	got := searchTopics(states, "helth", 0)
	require.NotEmpty(t, got)
	for _, st := range got {
		assert.NotEqual(t, "b", st.ProjectID)
	}

	assert.Len(t, searchTopics(states, "", 2), 2)
	assert.Empty(t, searchTopics(states, "zzz", 0))
}

func TestCheckpointAndFeedbackCommands(t *testing.T) {
	path := useJSONStore(t, testutil.NewTestState())

	out, err := executeCommand(t, "checkpoint", "save", "proj-test", "first")
	require.NoError(t, err)
	cid := strings.TrimSpace(out)
	require.NotEmpty(t, cid)

	out, err = executeCommand(t, "checkpoint", "list", "proj-test")
	require.NoError(t, err)
	assert.Contains(t, out, cid)
	assert.Contains(t, out, "first")

	out, err = executeCommand(t, "checkpoint", "restore", "proj-test", cid)
	require.NoError(t, err)
	assert.Contains(t, out, "restored proj-test")

	_, err = executeCommand(t, "feedback", "proj-test", "Tighten", "the", "intro", "--action", "revise")
	require.NoError(t, err)

	store, err := state.NewJSONStore(path)
	require.NoError(t, err)
	defer store.Close()
	st, err := store.GetState(context.Background(), "proj-test")
	require.NoError(t, err)
	assert.Equal(t, "Tighten the intro", st.HumanFeedback)
}

func TestDoctorCommand(t *testing.T) {
	t.Setenv("AGENCY_STATE_BACKEND", "memory")
	out, err := executeCommand(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")
	assert.Contains(t, out, "memory store")
	assert.Contains(t, out, "platform")
}

func TestRunCommand_RejectsShortTopic(t *testing.T) {
	t.Setenv("AGENCY_STATE_BACKEND", "memory")
	_, err := executeCommand(t, "run", "--no-tui", "AI")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}
