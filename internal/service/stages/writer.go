package stages

import (
	"context"
	"strings"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Writer drafts the post from the topic and research notes.
type Writer struct {
	llm     core.TextGenerator
	prompts *PromptRenderer
	opts    options
}

// NewWriter creates the writer stage.
func NewWriter(llm core.TextGenerator, opts ...Option) *Writer {
	return &Writer{llm: llm, prompts: mustPromptRenderer(), opts: buildOptions(opts)}
}

// Name implements core.Stage.
func (w *Writer) Name() string { return NameWrite }

// Process implements core.Stage.
func (w *Writer) Process(ctx context.Context, state *core.ContentState) (*core.ContentState, error) {
	log := w.opts.logger.WithProject(state.ProjectID).WithStage(NameWrite)

	draft, err := w.generate(ctx, state)
	if err != nil {
		log.Warn("draft generation failed", "error", err)
		out := advance(state, core.StatusDraftFailed, core.ActionReview, core.AgentReview, w.opts.now())
		out.Draft = ""
		out.WordCount = 0
		return out, nil
	}

	out := advance(state, core.StatusDraftComplete, core.ActionReview, core.AgentReview, w.opts.now())
	out.Draft = draft
	out.WordCount = WordCount(draft)
	log.Info("draft generated", "words", out.WordCount, "notes", len(state.ResearchNotes))
	return out, nil
}

func (w *Writer) generate(ctx context.Context, state *core.ContentState) (string, error) {
	prompt, err := w.prompts.RenderWriter(WriterParams{Topic: state.Topic, Notes: state.ResearchNotes})
	if err != nil {
		return "", err
	}
	return w.llm.Generate(ctx, prompt)
}

// WordCount is the number of whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
