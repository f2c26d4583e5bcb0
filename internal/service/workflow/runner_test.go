package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/content-agency/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
	"github.com/hugo-lorenzo-mato/content-agency/internal/testutil"
)

// blockingStage holds the run until release is closed or ctx ends.
type blockingStage struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingStage() *blockingStage {
	return &blockingStage{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingStage) Name() string { return "block" }
func (b *blockingStage) Process(ctx context.Context, s *core.ContentState) (*core.ContentState, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	out := s.Clone()
	out.Draft = "held draft"
	out.FinalContent = "held draft"
	out.NextAction = core.ActionComplete
	return out, nil
}

func TestRunner_ExecuteMarksCompleted(t *testing.T) {
	f := newFixture(t)
	ch := f.bus.Subscribe(events.TypeJobCompleted)
	r := NewRunner(f.engine, time.Minute)

	s, err := f.engine.Create(context.Background(), "AI in healthcare", core.ModeQuick)
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, out.Status)
	assert.NotNil(t, out.CompletedAt)

	stored, err := f.store.GetState(context.Background(), s.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	phase, _ := core.DerivePhase(stored)
	assert.Equal(t, core.PhaseComplete, phase)

	ev := (<-ch).(events.JobCompletedEvent)
	assert.Equal(t, s.ProjectID, ev.ProjectID())
	assert.Equal(t, string(core.StatusCompleted), ev.Status)
	assert.Equal(t, 81.0, ev.QualityScore)
}

func TestRunner_ExecuteRecordsFailure(t *testing.T) {
	store := state.NewMemoryStore()
	bus := events.New(10)
	t.Cleanup(bus.Close)
	ch := bus.Subscribe(events.TypeJobFailed)

	e := NewEngine(store, loopStage{}, loopStage{}, loopStage{}, WithMaxSteps(2), WithEventBus(bus))
	r := NewRunner(e, 0)
	s := testutil.NewTestState()
	require.NoError(t, store.CreateProject(context.Background(), s))

	out, err := r.Execute(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, core.StatusFailed, out.Status)
	assert.Contains(t, out.Error, core.CodeStepLimit)

	stored, err := store.GetState(context.Background(), s.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, stored.Status)
	phase, msg := core.DerivePhase(stored)
	assert.Equal(t, core.PhaseFailed, phase)
	assert.Equal(t, stored.Error, msg)

	ev := (<-ch).(events.JobFailedEvent)
	assert.Equal(t, s.ProjectID, ev.ProjectID())
}

func TestRunner_ExecuteFailsWithoutContent(t *testing.T) {
	f := newFixture(t)
	f.llm.WithFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "<content_to_review>") {
			return goodReport, nil
		}
		return "", errors.New("writer unavailable")
	})
	r := NewRunner(f.engine, time.Minute)

	s, err := f.engine.Create(context.Background(), "AI in healthcare", core.ModeQuick)
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, core.StatusFailed, out.Status)
	assert.Contains(t, out.Error, "no content was generated")
	assert.True(t, out.Status.IsTerminal())

	phase, _ := core.DerivePhase(out)
	assert.Equal(t, core.PhaseFailed, phase)

	active, err := f.store.ActiveProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRunner_SubmitRunsInBackground(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(f.engine, time.Minute)

	s, err := r.Submit(context.Background(), "AI in healthcare", core.ModeStandard)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInitialized, s.Status)

	r.Wait()
	assert.False(t, r.IsRunning(s.ProjectID))

	stored, err := f.store.GetState(context.Background(), s.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.Equal(t, stored.Draft, stored.FinalContent)
}

func TestRunner_SubmitValidationIsSynchronous(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(f.engine, time.Minute)

	_, err := r.Submit(context.Background(), "AI", core.ModeStandard)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.Empty(t, r.Running())

	all, err := f.store.ListProjects(context.Background(), core.ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunner_LaunchRejectsDuplicate(t *testing.T) {
	store := state.NewMemoryStore()
	block := newBlockingStage()
	e := NewEngine(store, block, block, block)
	r := NewRunner(e, time.Minute)

	s := testutil.NewTestState()
	require.NoError(t, store.CreateProject(context.Background(), s))
	require.NoError(t, r.Launch(s))
	<-block.entered

	assert.True(t, r.IsRunning(s.ProjectID))
	assert.Equal(t, []string{s.ProjectID}, r.Running())

	err := r.Launch(s)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConflict))

	close(block.release)
	r.Wait()
	assert.False(t, r.IsRunning(s.ProjectID))
}

func TestRunner_ShutdownCancelsRuns(t *testing.T) {
	store := state.NewMemoryStore()
	block := newBlockingStage()
	e := NewEngine(store, block, block, block)
	r := NewRunner(e, 0)

	s := testutil.NewTestState()
	require.NoError(t, store.CreateProject(context.Background(), s))
	require.NoError(t, r.Launch(s))
	<-block.entered

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	err := r.Launch(s)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatState))
}

func TestRunner_LaunchRacesShutdown(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(f.engine, time.Minute)

	const n = 20
	states := make([]*core.ContentState, n)
	for i := range states {
		s, err := f.engine.Create(context.Background(), "AI in healthcare", core.ModeQuick)
		require.NoError(t, err)
		states[i] = s
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, s := range states {
		wg.Add(1)
		go func(s *core.ContentState) {
			defer wg.Done()
			errs <- r.Launch(s)
		}(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			assert.True(t, core.IsCategory(err, core.ErrCatState), "unexpected error: %v", err)
		}
	}
	assert.Empty(t, r.Running())
}
