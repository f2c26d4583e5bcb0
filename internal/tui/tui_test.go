package tui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
	"github.com/hugo-lorenzo-mato/content-agency/internal/testutil"
)

func TestEventBusAdapter_FiltersByProject(t *testing.T) {
	bus := events.New(10)
	defer bus.Close()
	a := NewEventBusAdapter(bus, "p1")
	defer a.Close()

	bus.Publish(events.NewStageStartedEvent("other", "research"))
	bus.Publish(events.NewStageStartedEvent("p1", "research"))
	bus.Publish(events.NewStageCompletedEvent("p1", "research", "research_complete", time.Second))
	bus.Publish(events.NewCheckpointSavedEvent("p1", "cp-1", ""))

	want := []tea.Msg{
		StageStartedMsg{Stage: "research"},
		StageDoneMsg{Stage: "research", Status: "research_complete"},
		CheckpointMsg{ID: "cp-1"},
	}
	for _, w := range want {
		select {
		case got := <-a.MsgChannel():
			assert.Equal(t, w, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %T", w)
		}
	}
}

func TestEventBusAdapter_CloseIsIdempotent(t *testing.T) {
	bus := events.New(10)
	defer bus.Close()
	a := NewEventBusAdapter(bus, "p1")
	a.Close()
	a.Close()

	_, ok := <-a.MsgChannel()
	assert.False(t, ok)
}

func TestRunModel_Stages(t *testing.T) {
	standard := NewRunModel(testutil.NewTestState(), nil, nil)
	assert.Len(t, standard.stages, 3)

	quick := NewRunModel(testutil.NewTestState(func(s *core.ContentState) {
		s.EnableResearch = false
	}), nil, nil)
	require.Len(t, quick.stages, 2)
	assert.Equal(t, "write", quick.stages[0].name)
}

func TestRunModel_Update(t *testing.T) {
	clock := testutil.FixedTime
	m := NewRunModel(testutil.NewTestState(), nil, nil)
	m.now = func() time.Time { return clock }

	next, _ := m.Update(StageStartedMsg{Stage: "research"})
	m = next.(RunModel)
	assert.Equal(t, stageRunning, m.stages[0].state)

	clock = clock.Add(1500 * time.Millisecond)
	next, _ = m.Update(StageDoneMsg{Stage: "research", Status: "research_failed"})
	m = next.(RunModel)
	assert.Equal(t, stageDegraded, m.stages[0].state)
	assert.Equal(t, 1500*time.Millisecond, m.stages[0].took)

	next, _ = m.Update(StageDoneMsg{Stage: "write", Status: "draft_complete"})
	m = next.(RunModel)
	assert.Equal(t, 2, m.finished())
	assert.Contains(t, m.View(), "research_failed")

	final := testutil.NewTestState()
	next, cmd := m.Update(RunFinishedMsg{State: final})
	m = next.(RunModel)
	require.NotNil(t, cmd)
	res, ok := m.Result()
	require.True(t, ok)
	assert.Same(t, final, res.State)
	assert.False(t, m.Quitting())
	assert.Contains(t, m.View(), "done")
}

func TestRunModel_QuitCancels(t *testing.T) {
	canceled := false
	m := NewRunModel(testutil.NewTestState(), nil, func() { canceled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(RunModel)
	assert.True(t, canceled)
	assert.True(t, m.Quitting())
	require.NotNil(t, cmd)
}

func TestRunModel_ViewShowsFailure(t *testing.T) {
	m := NewRunModel(testutil.NewTestState(), nil, nil)
	next, _ := m.Update(RunFinishedMsg{Err: errors.New("pipeline exceeded 8 steps")})
	assert.Contains(t, next.(RunModel).View(), "pipeline exceeded 8 steps")
}

func TestPlainProgress(t *testing.T) {
	ch := make(chan tea.Msg, 3)
	ch <- StageStartedMsg{Stage: "write"}
	ch <- StageDoneMsg{Stage: "write", Status: "draft_complete"}
	ch <- CheckpointMsg{ID: "cp-9"}
	close(ch)

	var buf bytes.Buffer
	PlainProgress(&buf, ch)
	assert.Equal(t, "[write] started\n[write] draft_complete\ncheckpoint cp-9 saved\n", buf.String())
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Title\n\nSome **bold** text.", 60, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, FailedStyle.Render("x"), StatusStyle("failed").Render("x"))
	assert.Equal(t, CompletedStyle.Render("x"), StatusStyle("completed").Render("x"))
	assert.Equal(t, WarningStyle.Render("x"), StatusStyle("draft_failed").Render("x"))
}
