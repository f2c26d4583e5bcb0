package core

import (
	"context"
	"time"
)

// =============================================================================
// Provider Ports
// =============================================================================

// SearchResult is one hit returned by a search provider.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchProvider runs web searches.
type SearchProvider interface {
	// Search returns at most limit results for query.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// TextGenerator produces text from a prompt. The writer and the reviewer
// share one generator with different prompts.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// =============================================================================
// Stage Port
// =============================================================================

// Stage is one pipeline step. Process returns a new record and leaves the
// input untouched. Provider failures are encoded on the returned record;
// a non-nil error means the stage could not run at all.
type Stage interface {
	Name() string
	Process(ctx context.Context, state *ContentState) (*ContentState, error)
}

// =============================================================================
// Persistence Port
// =============================================================================

// Checkpoint is an immutable snapshot of a State Record.
type Checkpoint struct {
	ID        string       `json:"checkpoint_id"`
	ProjectID string       `json:"project_id"`
	ThreadID  string       `json:"thread_id"`
	Name      string       `json:"checkpoint_name"`
	Snapshot  ContentState `json:"state_snapshot"`
	CreatedAt time.Time    `json:"created_at"`
}

// CheckpointInfo is the listing view of a checkpoint.
type CheckpointInfo struct {
	ID        string    `json:"checkpoint_id"`
	Name      string    `json:"checkpoint_name"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackAction is what a reviewer asked for alongside free-form feedback.
type FeedbackAction string

const (
	FeedbackApprove FeedbackAction = "approve"
	FeedbackReject  FeedbackAction = "reject"
	FeedbackRevise  FeedbackAction = "revise"
	FeedbackComment FeedbackAction = "comment"
)

// HumanFeedback is one entry of the append-only feedback log.
type HumanFeedback struct {
	ID        string         `json:"feedback_id"`
	ProjectID string         `json:"project_id"`
	Feedback  string         `json:"feedback"`
	Action    FeedbackAction `json:"action"`
	Approved  bool           `json:"approved"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProjectFilter narrows ListProjects. Zero values match everything.
type ProjectFilter struct {
	Status Status
	Mode   Mode
	Limit  int
}

// StateStore persists State Records, checkpoints and feedback.
//
// GetState returns (nil, nil) when the project does not exist; the other
// per-project operations return a not_found DomainError.
type StateStore interface {
	// CreateProject stores a new record. The id must not exist yet.
	CreateProject(ctx context.Context, state *ContentState) error

	// GetState loads the live record.
	GetState(ctx context.Context, projectID string) (*ContentState, error)

	// UpdateState shallow-merges update into the record, refreshes
	// updated_at and returns the stored result.
	UpdateState(ctx context.Context, projectID string, update StateUpdate) (*ContentState, error)

	// Replace overwrites the whole record except its identity and
	// created_at, refreshing updated_at.
	Replace(ctx context.Context, state *ContentState) error

	// DeleteProject removes the record with its checkpoints and feedback.
	DeleteProject(ctx context.Context, projectID string) error

	// ListProjects returns records newest first.
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*ContentState, error)

	// ActiveProjects returns records whose status is not terminal.
	ActiveProjects(ctx context.Context) ([]*ContentState, error)

	// SaveCheckpoint snapshots the live record. An empty name gets the
	// default checkpoint_{status}_{timestamp} name.
	SaveCheckpoint(ctx context.Context, projectID, name string) (string, error)

	// RestoreCheckpoint overwrites the live record with a snapshot.
	RestoreCheckpoint(ctx context.Context, projectID, checkpointID string) (*ContentState, error)

	// ListCheckpoints returns the most recent checkpoints, newest first.
	ListCheckpoints(ctx context.Context, projectID string) ([]CheckpointInfo, error)

	// SaveHumanFeedback appends feedback and mirrors it on the record.
	SaveHumanFeedback(ctx context.Context, projectID, feedback string, action FeedbackAction, approved bool) (string, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// DefaultCheckpointName builds the name used when a caller gives none.
func DefaultCheckpointName(status Status, now time.Time) string {
	return "checkpoint_" + string(status) + "_" + now.UTC().Format("20060102_150405")
}
