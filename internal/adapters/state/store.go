// Package state implements the persistence port. Three backends share the
// same checkpoint and feedback semantics: an in-process map, a single JSON
// document written atomically, and SQLite.
package state

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Option configures any of the store backends.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator overrides checkpoint and feedback id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// newCheckpoint snapshots live and records the checkpoint on it.
func newCheckpoint(live *core.ContentState, id, name string, now time.Time) core.Checkpoint {
	if strings.TrimSpace(name) == "" {
		name = core.DefaultCheckpointName(live.Status, now)
	}
	cp := core.Checkpoint{
		ID:        id,
		ProjectID: live.ProjectID,
		ThreadID:  live.ThreadID,
		Name:      name,
		Snapshot:  *live.Clone(),
		CreatedAt: now,
	}
	live.PushCheckpoint(id)
	live.Touch(now)
	return cp
}

// restoredState builds the record that replaces live on restore.
func restoredState(live *core.ContentState, cp core.Checkpoint, now time.Time) *core.ContentState {
	restored := cp.Snapshot.Clone()
	restored.ProjectID = live.ProjectID
	restored.ThreadID = live.ThreadID
	restored.CurrentCheckpoint = cp.ID
	restored.UpdatedAt = now
	return restored
}

// replaceState overwrites live with next, keeping identity and creation time.
func replaceState(live, next *core.ContentState, now time.Time) *core.ContentState {
	out := next.Clone()
	out.ProjectID = live.ProjectID
	out.ThreadID = live.ThreadID
	out.CreatedAt = live.CreatedAt
	if live.CompletedAt != nil && out.CompletedAt == nil && out.FinalContent != "" {
		t := *live.CompletedAt
		out.CompletedAt = &t
	}
	out.Touch(now)
	return out
}

func normalizeAction(action core.FeedbackAction) (core.FeedbackAction, error) {
	switch action {
	case "":
		return core.FeedbackComment, nil
	case core.FeedbackApprove, core.FeedbackReject, core.FeedbackRevise, core.FeedbackComment:
		return action, nil
	default:
		return "", core.ErrValidation(core.CodeInvalidRequest, "unknown feedback action: "+string(action))
	}
}

func matchesFilter(s *core.ContentState, f core.ProjectFilter) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Mode != "" && s.Mode != f.Mode {
		return false
	}
	return true
}
