package stages

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Merge limits for the parallel researcher.
const (
	MaxParallelNotes   = 10
	MaxParallelSources = 10
)

// researchAngle is one differently-angled query of the parallel fan-out.
type researchAngle struct {
	tag    string
	suffix string
	cap    int
}

var researchAngles = []researchAngle{
	{tag: "OVERVIEW", suffix: "overview explanation", cap: 3},
	{tag: "NEWS", suffix: "latest news 2024 2025", cap: 3},
	{tag: "STATS", suffix: "statistics data facts", cap: 4},
}

// angleResult is the outcome of one angled query.
type angleResult struct {
	query   string
	results []core.SearchResult
	err     error
}

// taggedNote remembers which angle a description came from.
type taggedNote struct {
	tag  string
	text string
}

// parallelScratch carries the fan-out results through extract and
// summarize. It lives only for one Process call.
type parallelScratch struct {
	angles []angleResult
	notes  []taggedNote
	urls   []string
}

// ParallelResearcher fans out three angled queries concurrently and merges
// them into a bounded, deduplicated set of notes and sources.
type ParallelResearcher struct {
	search core.SearchProvider
	cfg    ResearchConfig
	opts   options
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewParallelResearcher creates the fan-out researcher.
func NewParallelResearcher(search core.SearchProvider, cfg ResearchConfig, opts ...Option) *ParallelResearcher {
	return &ParallelResearcher{
		search: search,
		cfg:    cfg.withDefaults(),
		opts:   buildOptions(opts),
		sleep:  sleepContext,
	}
}

// Name implements core.Stage.
func (r *ParallelResearcher) Name() string { return NameResearch }

// Queries returns the angled queries issued for topic, in angle order.
func Queries(topic string) []string {
	out := make([]string, len(researchAngles))
	for i, a := range researchAngles {
		out[i] = topic + " " + a.suffix
	}
	return out
}

// Process implements core.Stage.
func (r *ParallelResearcher) Process(ctx context.Context, state *core.ContentState) (*core.ContentState, error) {
	var scratch parallelScratch
	r.searchStep(ctx, state, &scratch)
	r.extractStep(&scratch)
	return r.summarizeStep(state, &scratch), nil
}

// searchStep runs every angle concurrently. Each goroutine swallows its own
// error so one failing angle never cancels the others.
func (r *ParallelResearcher) searchStep(ctx context.Context, state *core.ContentState, scratch *parallelScratch) {
	log := r.opts.logger.WithProject(state.ProjectID).WithStage(NameResearch)
	queries := Queries(state.Topic)
	scratch.angles = make([]angleResult, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			res := angleResult{query: q}
			if err := r.sleep(ctx, time.Duration(i)*r.cfg.Stagger); err != nil {
				res.err = err
			} else {
				res.results, res.err = r.search.Search(ctx, q, r.cfg.ResultsPerQuery)
			}
			scratch.angles[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for i, a := range scratch.angles {
		if a.err != nil {
			log.Warn("angled search failed", "angle", researchAngles[i].tag, "query", a.query, "error", a.err)
			continue
		}
		log.Debug("angled search completed", "angle", researchAngles[i].tag, "results", len(a.results))
	}
}

// extractStep flattens the angles in order, tagging every description.
// Each angle contributes at most ResultsPerQuery results.
func (r *ParallelResearcher) extractStep(scratch *parallelScratch) {
	for i, a := range scratch.angles {
		if a.err != nil {
			continue
		}
		for j, res := range a.results {
			if j == r.cfg.ResultsPerQuery {
				break
			}
			if res.Description != "" {
				scratch.notes = append(scratch.notes, taggedNote{tag: researchAngles[i].tag, text: res.Description})
			}
			if res.URL != "" {
				scratch.urls = append(scratch.urls, res.URL)
			}
		}
	}
}

// summarizeStep applies the per-angle caps, keeps angle grouping and
// deduplicates sources by first occurrence.
func (r *ParallelResearcher) summarizeStep(state *core.ContentState, scratch *parallelScratch) *core.ContentState {
	notes := make([]string, 0, MaxParallelNotes)
	for _, angle := range researchAngles {
		taken := 0
		for _, n := range scratch.notes {
			if n.tag != angle.tag || taken == angle.cap {
				continue
			}
			notes = append(notes, n.text)
			taken++
		}
	}
	if len(notes) > MaxParallelNotes {
		notes = notes[:MaxParallelNotes]
	}

	sources := make([]string, 0, MaxParallelSources)
	seen := make(map[string]struct{}, len(scratch.urls))
	for _, u := range scratch.urls {
		if len(sources) == MaxParallelSources {
			break
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		sources = append(sources, u)
	}

	status := core.StatusResearchFailed
	if len(notes) > 0 {
		status = core.StatusResearchComplete
	}
	out := advance(state, status, core.ActionWrite, core.AgentWriter, r.opts.now())
	out.ResearchNotes = notes
	out.Sources = sources
	out.ResearchAttempts = r.cfg.nextAttempt(state.ResearchAttempts)

	r.opts.logger.WithProject(state.ProjectID).WithStage(NameResearch).Info("parallel research finished",
		"status", status,
		"notes", len(notes),
		"sources", len(sources))
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
