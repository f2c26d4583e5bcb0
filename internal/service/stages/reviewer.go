package stages

import (
	"context"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Reviewer scores the draft. It never edits content: final_content is the
// draft verbatim on every path.
type Reviewer struct {
	llm     core.TextGenerator
	prompts *PromptRenderer
	opts    options
}

// NewReviewer creates the reviewer stage.
func NewReviewer(llm core.TextGenerator, opts ...Option) *Reviewer {
	return &Reviewer{llm: llm, prompts: mustPromptRenderer(), opts: buildOptions(opts)}
}

// Name implements core.Stage.
func (r *Reviewer) Name() string { return NameReview }

// Process implements core.Stage.
func (r *Reviewer) Process(ctx context.Context, state *core.ContentState) (*core.ContentState, error) {
	log := r.opts.logger.WithProject(state.ProjectID).WithStage(NameReview)

	status := core.StatusReviewComplete
	var (
		score    float64
		comments [core.ReviewCommentCount]string
	)

	report, err := r.evaluate(ctx, state)
	if err != nil {
		log.Warn("review generation failed", "error", err)
		status, comments = core.StatusReviewFailed, ReviewFailedComments
	} else if score, comments, err = ParseReview(report); err != nil {
		log.Warn("review report unparseable", "error", err)
		status, score = core.StatusReviewFailed, 0
	}

	out := advance(state, status, core.ActionComplete, core.AgentNone, r.opts.now())
	out.QualityScore = core.ClampScore(score)
	out.ReviewComments = comments[:]
	out.FinalContent = state.Draft
	out.MarkCompleted(out.UpdatedAt)

	log.Info("review finished", "status", status, "score", out.QualityScore)
	return out, nil
}

func (r *Reviewer) evaluate(ctx context.Context, state *core.ContentState) (string, error) {
	prompt, err := r.prompts.RenderReviewer(ReviewerParams{
		Topic:     state.Topic,
		Draft:     state.Draft,
		WordCount: state.WordCount,
	})
	if err != nil {
		return "", err
	}
	return r.llm.Generate(ctx, prompt)
}
