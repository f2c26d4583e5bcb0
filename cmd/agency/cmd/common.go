package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugo-lorenzo-mato/content-agency/internal/adapters/llm"
	"github.com/hugo-lorenzo-mato/content-agency/internal/adapters/search"
	"github.com/hugo-lorenzo-mato/content-agency/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/content-agency/internal/config"
	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
	"github.com/hugo-lorenzo-mato/content-agency/internal/metrics"
	"github.com/hugo-lorenzo-mato/content-agency/internal/service"
	"github.com/hugo-lorenzo-mato/content-agency/internal/service/stages"
	"github.com/hugo-lorenzo-mato/content-agency/internal/service/workflow"
)

// app holds the wired pipeline shared by serve, run and the inspection
// commands.
type app struct {
	cfg         *config.Config
	logger      *logging.Logger
	store       core.StateStore
	bus         *events.EventBus
	metrics     *metrics.Metrics
	engine      *workflow.Engine
	runner      *workflow.Runner
	checkpoints *workflow.CheckpointManager
}

// openStore opens only the configured state store, for commands that do
// not run the pipeline.
func openStore(c *config.Config) (core.StateStore, error) {
	store, err := state.NewStateStore(c.State.Backend, c.State.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s state store: %w", c.State.Backend, err)
	}
	return store, nil
}

func newApp(c *config.Config, log *logging.Logger) (*app, error) {
	if err := config.ValidateConfig(c); err != nil {
		return nil, err
	}
	if missing := c.MissingCredentials(); len(missing) > 0 {
		log.Warn("provider credentials missing; affected stages will fail open", "missing", missing)
	}

	store, err := openStore(c)
	if err != nil {
		return nil, err
	}

	limiter := service.NewRateLimiter(service.RateLimiterConfig{
		MaxTokens:  float64(c.Search.RateLimitBurst),
		RefillRate: c.Search.RateLimitPerSecond,
	})
	searcher := search.NewBraveClient(c.Search.APIKey,
		search.WithBaseURL(c.Search.BaseURL),
		search.WithTimeout(c.Search.Timeout),
		search.WithLimiter(limiter),
		search.WithLogger(log),
	)
	generator, err := llm.New(c.LLM.Provider, llm.Settings{
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}, c.LLM.Timeout, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	stageOpts := []stages.Option{stages.WithLogger(log)}
	researchCfg := stages.ResearchConfig{
		ResultsPerQuery: c.Research.ResultsPerQuery,
		MaxAttempts:     c.Workflow.MaxRetries,
		Stagger:         c.Research.Stagger,
	}
	var researcher core.Stage = stages.NewResearcher(searcher, researchCfg, stageOpts...)
	if c.Research.Parallel {
		researcher = stages.NewParallelResearcher(searcher, researchCfg, stageOpts...)
	}

	bus := events.New(100)
	m := metrics.New(c.Metrics.Enabled, c.Metrics.Namespace)
	engine := workflow.NewEngine(store,
		researcher,
		stages.NewWriter(generator, stageOpts...),
		stages.NewReviewer(generator, stageOpts...),
		workflow.WithPlanner(stages.NewPlanner(stageOpts...)),
		workflow.WithEventBus(bus),
		workflow.WithMetrics(m),
		workflow.WithLogger(log),
		workflow.WithAutoCheckpoint(c.Workflow.AutoCheckpoint),
		workflow.WithMaxSteps(c.Workflow.MaxSteps),
	)

	return &app{
		cfg:         c,
		logger:      log,
		store:       store,
		bus:         bus,
		metrics:     m,
		engine:      engine,
		runner:      workflow.NewRunner(engine, c.Workflow.Timeout),
		checkpoints: workflow.NewCheckpointManager(store, bus, m, log),
	}, nil
}

// close stops background runs within ctx and releases the store.
func (a *app) close(ctx context.Context) error {
	errShutdown := a.runner.Shutdown(ctx)
	if n := a.bus.DroppedCount(); n > 0 {
		a.logger.Debug("event bus dropped events", "count", n)
	}
	a.bus.Close()
	return errors.Join(errShutdown, state.CloseStateStore(a.store))
}

// loadProject returns the record or a not found error.
func loadProject(ctx context.Context, store core.StateStore, id string) (*core.ContentState, error) {
	st, err := store.GetState(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, core.ErrNotFound("project", id)
	}
	return st, nil
}
