package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
	"github.com/hugo-lorenzo-mato/content-agency/internal/metrics"
	"github.com/hugo-lorenzo-mato/content-agency/internal/service/stages"
)

// DefaultMaxSteps bounds one run. The linear graph needs at most three.
const DefaultMaxSteps = 8

// Option configures an Engine.
type Option func(*Engine)

// WithPlanner sets the planner used by Create and Start.
func WithPlanner(p *stages.Planner) Option {
	return func(e *Engine) { e.planner = p }
}

// WithEventBus publishes stage events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics records stage metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAutoCheckpoint saves a checkpoint after every persisted stage.
func WithAutoCheckpoint(enabled bool) Option {
	return func(e *Engine) { e.autoCheckpoint = enabled }
}

// WithMaxSteps overrides the step guard.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// Engine executes the stage graph against one record at a time. It keeps
// no per-run state, so one Engine serves every project.
type Engine struct {
	graph          *Graph
	store          core.StateStore
	planner        *stages.Planner
	bus            *events.EventBus
	metrics        *metrics.Metrics
	logger         *logging.Logger
	autoCheckpoint bool
	maxSteps       int
}

// NewEngine wires the research, write and review stages into the graph.
func NewEngine(store core.StateStore, researcher, writer, reviewer core.Stage, opts ...Option) *Engine {
	e := &Engine{
		graph: NewGraph().
			AddNode(core.ActionResearch, researcher).
			AddNode(core.ActionWrite, writer).
			AddNode(core.ActionReview, reviewer),
		store:    store,
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.planner == nil {
		e.planner = stages.NewPlanner(stages.WithLogger(e.logger))
	}
	return e
}

// Create validates the topic, plans the record and stores it. Validation
// errors are returned before anything is written.
func (e *Engine) Create(ctx context.Context, topic string, mode core.Mode) (*core.ContentState, error) {
	state, err := e.planner.Plan(topic, mode)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateProject(ctx, state); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return state, nil
}

// Start creates the project and runs it to completion synchronously.
func (e *Engine) Start(ctx context.Context, topic string, mode core.Mode) (*core.ContentState, error) {
	state, err := e.Create(ctx, topic, mode)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, state)
}

// Run routes state through the graph until next_action is complete. The
// full record is replaced in the store after every stage. On error the
// last successfully produced record is returned with it.
func (e *Engine) Run(ctx context.Context, state *core.ContentState) (*core.ContentState, error) {
	log := e.logger.WithProject(state.ProjectID)
	current := state

	for step := 0; ; step++ {
		stage, done, err := e.graph.Route(current)
		if err != nil {
			return current, err
		}
		if done {
			log.Info("pipeline finished", "status", current.Status, "steps", step)
			return current, nil
		}
		if step >= e.maxSteps {
			return current, core.ErrState(core.CodeStepLimit,
				fmt.Sprintf("pipeline exceeded %d steps", e.maxSteps)).
				WithDetail("next_action", string(current.NextAction))
		}
		if err := ctx.Err(); err != nil {
			return current, fmt.Errorf("pipeline interrupted before %s: %w", stage.Name(), err)
		}

		next, err := e.runStage(ctx, stage, current)
		if err != nil {
			return current, err
		}
		current = next
	}
}

func (e *Engine) runStage(ctx context.Context, stage core.Stage, current *core.ContentState) (*core.ContentState, error) {
	id := current.ProjectID
	log := e.logger.WithProject(id).WithStage(stage.Name())
	e.publish(events.NewStageStartedEvent(id, stage.Name()))
	log.Debug("stage started")

	begin := time.Now()
	next, err := stage.Process(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
	}
	if err := e.store.Replace(ctx, next); err != nil {
		return nil, fmt.Errorf("persisting %s result: %w", stage.Name(), err)
	}
	elapsed := time.Since(begin)

	e.metrics.RecordStage(stage.Name(), string(next.Status), elapsed)
	if next.NextAction == core.ActionComplete && next.Status == core.StatusReviewComplete {
		e.metrics.ObserveQuality(next.QualityScore)
	}
	e.publish(events.NewStageCompletedEvent(id, stage.Name(), string(next.Status), elapsed))
	log.Info("stage completed", "status", next.Status, "duration", elapsed)

	if !e.autoCheckpoint {
		return next, nil
	}
	cid, err := e.store.SaveCheckpoint(ctx, id, "")
	if err != nil {
		log.Warn("automatic checkpoint failed", "error", err)
		return next, nil
	}
	e.metrics.RecordCheckpoint("save")
	e.publish(events.NewCheckpointSavedEvent(id, cid, ""))

	// The store appended the checkpoint to the live record.
	reloaded, err := e.store.GetState(ctx, id)
	if err != nil || reloaded == nil {
		log.Warn("reloading after checkpoint failed", "error", err)
		next.PushCheckpoint(cid)
		return next, nil
	}
	return reloaded, nil
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
