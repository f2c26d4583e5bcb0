package stages

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// ResearchConfig bounds the research stages.
type ResearchConfig struct {
	// ResultsPerQuery is the limit passed to the search provider.
	ResultsPerQuery int
	// MaxAttempts caps research_attempts.
	MaxAttempts int
	// Stagger delays the i-th parallel query by i*Stagger.
	Stagger time.Duration
}

// DefaultResearchConfig mirrors the config defaults.
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{ResultsPerQuery: 5, MaxAttempts: 2, Stagger: time.Second}
}

func (c ResearchConfig) withDefaults() ResearchConfig {
	d := DefaultResearchConfig()
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = d.ResultsPerQuery
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Stagger < 0 {
		c.Stagger = 0
	}
	return c
}

// nextAttempt is the bookkeeping value for research_attempts: one more than
// before, never above the cap.
func (c ResearchConfig) nextAttempt(prev int) int {
	return max(prev, min(prev+1, c.MaxAttempts))
}

// researchScratch carries data between the search, extract and summarize
// sub-steps. It lives only for one Process call.
type researchScratch struct {
	results      []core.SearchResult
	searchOK     bool
	descriptions []string
	urls         []string
}

// Researcher runs a single search for the topic.
type Researcher struct {
	search core.SearchProvider
	cfg    ResearchConfig
	opts   options
}

// NewResearcher creates the sequential researcher.
func NewResearcher(search core.SearchProvider, cfg ResearchConfig, opts ...Option) *Researcher {
	return &Researcher{search: search, cfg: cfg.withDefaults(), opts: buildOptions(opts)}
}

// Name implements core.Stage.
func (r *Researcher) Name() string { return NameResearch }

// Process implements core.Stage.
func (r *Researcher) Process(ctx context.Context, state *core.ContentState) (*core.ContentState, error) {
	var scratch researchScratch
	r.searchStep(ctx, state, &scratch)
	r.extractStep(&scratch)
	return r.summarizeStep(state, &scratch), nil
}

func (r *Researcher) searchStep(ctx context.Context, state *core.ContentState, scratch *researchScratch) {
	log := r.opts.logger.WithProject(state.ProjectID).WithStage(NameResearch)
	results, err := r.search.Search(ctx, state.Topic, r.cfg.ResultsPerQuery)
	if err != nil {
		log.Warn("search failed", "query", state.Topic, "error", err)
		return
	}
	scratch.results = results
	scratch.searchOK = true
	log.Debug("search completed", "results", len(results))
}

func (r *Researcher) extractStep(scratch *researchScratch) {
	scratch.descriptions = make([]string, 0, r.cfg.ResultsPerQuery)
	scratch.urls = make([]string, 0, r.cfg.ResultsPerQuery)
	for i, res := range scratch.results {
		if i == r.cfg.ResultsPerQuery {
			break
		}
		if res.Description != "" {
			scratch.descriptions = append(scratch.descriptions, res.Description)
		}
		if res.URL != "" {
			scratch.urls = append(scratch.urls, res.URL)
		}
	}
}

func (r *Researcher) summarizeStep(state *core.ContentState, scratch *researchScratch) *core.ContentState {
	status := core.StatusResearchFailed
	if scratch.searchOK {
		status = core.StatusResearchComplete
	}
	out := advance(state, status, core.ActionWrite, core.AgentWriter, r.opts.now())
	out.ResearchNotes = scratch.descriptions
	out.Sources = scratch.urls
	out.ResearchAttempts = r.cfg.nextAttempt(state.ResearchAttempts)

	r.opts.logger.WithProject(state.ProjectID).WithStage(NameResearch).Info("research finished",
		"status", status,
		"notes", len(out.ResearchNotes),
		"sources", len(out.Sources))
	return out
}
