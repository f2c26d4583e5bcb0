package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
)

var errNoContent = core.ErrState("NO_CONTENT", "no content was generated")

// Runner executes pipeline runs in the background and finalizes the
// record once a run ends. At most one run per project is in flight.
type Runner struct {
	engine  *Engine
	timeout time.Duration

	running sync.Map // project id -> context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex // guards stopped and wg.Add against Shutdown
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner creates a runner whose runs are bounded by timeout. A zero
// timeout means runs end only when the runner shuts down.
func NewRunner(engine *Engine, timeout time.Duration) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{engine: engine, timeout: timeout, ctx: ctx, cancel: cancel}
}

// Submit validates and stores a new project, then runs it in the
// background. Validation and persistence errors are returned synchronously.
func (r *Runner) Submit(ctx context.Context, topic string, mode core.Mode) (*core.ContentState, error) {
	state, err := r.engine.Create(ctx, topic, mode)
	if err != nil {
		return nil, err
	}
	if err := r.Launch(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Launch runs an existing record in the background.
func (r *Runner) Launch(state *core.ContentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return core.ErrState("RUNNER_STOPPED", "runner is shutting down")
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(r.ctx, r.timeout)
	} else {
		runCtx, cancel = context.WithCancel(r.ctx)
	}
	if _, loaded := r.running.LoadOrStore(state.ProjectID, cancel); loaded {
		cancel()
		return core.ErrConflict(core.CodeProjectRunning, "project is already running").
			WithDetail("project_id", state.ProjectID)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Delete(state.ProjectID)
		defer cancel()
		_, _ = r.Execute(runCtx, state)
	}()
	return nil
}

// Execute runs state to the end of the graph in the calling goroutine.
// Every run ends terminal: a record with final content is marked
// completed, anything else is marked failed with the error message.
func (r *Runner) Execute(ctx context.Context, state *core.ContentState) (*core.ContentState, error) {
	e := r.engine
	id := state.ProjectID
	log := e.logger.WithProject(id)
	begin := time.Now()

	e.metrics.JobStarted(string(state.Mode))
	e.publish(events.NewJobStartedEvent(id, state.Topic, string(state.Mode)))
	log.Info("job started", "topic", state.Topic, "mode", state.Mode)

	final, runErr := e.Run(ctx, state)
	if runErr == nil && final.FinalContent == "" {
		runErr = errNoContent
	}

	// Finalization must land even when the run context is done.
	persistCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		msg := runErr.Error()
		updated, err := e.store.UpdateState(persistCtx, id, core.StateUpdate{
			Status: core.Ptr(core.StatusFailed),
			Error:  &msg,
		})
		if err != nil {
			log.Error("recording job failure", "error", err, "run_error", runErr)
		} else {
			final = updated
		}
		e.metrics.JobFinished(string(core.StatusFailed), time.Since(begin))
		e.publish(events.NewJobFailedEvent(id, runErr))
		log.Error("job failed", "error", runErr, "duration", time.Since(begin))
		return final, runErr
	}

	updated, err := e.store.UpdateState(persistCtx, id, core.StateUpdate{
		Status: core.Ptr(core.StatusCompleted),
	})
	if err != nil {
		e.metrics.JobFinished(string(core.StatusFailed), time.Since(begin))
		e.publish(events.NewJobFailedEvent(id, err))
		return final, fmt.Errorf("marking project completed: %w", err)
	}
	final = updated

	elapsed := time.Since(begin)
	e.metrics.JobFinished(string(final.Status), elapsed)
	e.publish(events.NewJobCompletedEvent(id, string(final.Status), final.QualityScore, elapsed))
	log.Info("job finished",
		"status", final.Status,
		"quality_score", final.QualityScore,
		"word_count", final.WordCount,
		"duration", elapsed)
	return final, nil
}

// IsRunning reports whether a background run for projectID is in flight.
func (r *Runner) IsRunning(projectID string) bool {
	_, ok := r.running.Load(projectID)
	return ok
}

// Running returns the ids of in-flight runs.
func (r *Runner) Running() []string {
	var ids []string
	r.running.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	return ids
}

// Wait blocks until every background run has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels in-flight runs and waits for them to record their
// outcome, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}
