package testutil

import (
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// FixedTime is the clock reading used by test records.
var FixedTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// NewTestState creates a ContentState with sensible defaults for tests.
// Use functional options to override specific fields.
func NewTestState(opts ...func(*core.ContentState)) *core.ContentState {
	s := core.NewContentState("proj-test", "Ai In Healthcare", core.ModeStandard, FixedTime)
	s.Status = core.StatusInitialized
	s.NextAction = core.ActionResearch
	s.AssignedAgent = core.AgentResearch
	s.EnableResearch = true
	s.EnableRevision = true
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results builds n numbered search results under host.
func Results(host string, n int) []core.SearchResult {
	out := make([]core.SearchResult, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = core.SearchResult{
			Title:       host + " " + id,
			URL:         "https://" + host + "/" + id,
			Description: host + " note " + id,
		}
	}
	return out
}
