// Package stages implements the pipeline steps that turn a topic into a
// reviewed blog post: Planner, Researcher, ParallelResearcher, Writer and
// Reviewer.
//
// Every stage except the Planner implements core.Stage. Stages never
// propagate provider failures; they log them and encode a *_failed status
// on the returned record so the pipeline always reaches the reviewer.
package stages

import (
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
)

// Stage names, also used as workflow node names.
const (
	NameResearch = "research"
	NameWrite    = "write"
	NameReview   = "review"
)

// Option configures a stage.
type Option func(*options)

type options struct {
	logger *logging.Logger
	now    func() time.Time
	newID  func() string
}

func defaultOptions() options {
	return options{
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the stage logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides project id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// advance returns a copy of s routed to the next stage.
func advance(s *core.ContentState, status core.Status, next core.Action, agent core.Agent, now time.Time) *core.ContentState {
	out := s.Clone()
	out.Status = status
	out.NextAction = next
	out.AssignedAgent = agent
	out.Touch(now)
	return out
}
