package core

import (
	"encoding/json"
	"time"
)

// Mode selects how much of the pipeline runs for a project.
type Mode string

const (
	// ModeStandard runs research, draft and review.
	ModeStandard Mode = "standard"
	// ModeQuick skips research and goes straight to the writer.
	ModeQuick Mode = "quick"
)

// ValidMode reports whether m is a known mode.
func ValidMode(m Mode) bool {
	return m == ModeStandard || m == ModeQuick
}

// Status is the phase label stored on a State Record.
type Status string

const (
	StatusCreated          Status = "created"
	StatusInitialized      Status = "initialized"
	StatusResearchComplete Status = "research_complete"
	StatusResearchFailed   Status = "research_failed"
	StatusDraftComplete    Status = "draft_complete"
	StatusDraftFailed      Status = "draft_failed"
	StatusReviewComplete   Status = "review_complete"
	StatusReviewFailed     Status = "review_failed"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// IsTerminal reports whether no further pipeline work happens in s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Action names the next pipeline step.
type Action string

const (
	ActionResearch Action = "research"
	ActionWrite    Action = "write"
	ActionReview   Action = "review"
	ActionComplete Action = "complete"
)

// Agent names the stage responsible for the next step.
type Agent string

const (
	AgentNone     Agent = ""
	AgentResearch Agent = "research"
	AgentWriter   Agent = "writer"
	AgentReview   Agent = "review"
)

// MaxCheckpointHistory bounds ContentState.CheckpointHistory.
const MaxCheckpointHistory = 10

// ReviewCommentCount is the number of review comments once a review ran.
const ReviewCommentCount = 3

// NoFeedbackSentinel pads review comments when the reviewer produced fewer than three.
const NoFeedbackSentinel = "No additional feedback"

// ContentState is the per-project record threaded through every stage.
type ContentState struct {
	ProjectID string `json:"project_id"`
	ThreadID  string `json:"thread_id"`

	Topic string `json:"topic"`
	Mode  Mode   `json:"mode"`

	Status         Status `json:"status"`
	NextAction     Action `json:"next_action"`
	AssignedAgent  Agent  `json:"assigned_agent"`
	EnableResearch bool   `json:"enable_research"`
	EnableRevision bool   `json:"enable_revision"`

	ResearchNotes    []string `json:"research_notes"`
	Sources          []string `json:"sources"`
	ResearchAttempts int      `json:"research_attempts"`

	Draft        string `json:"draft"`
	FinalContent string `json:"final_content"`
	WordCount    int    `json:"word_count"`

	QualityScore   float64  `json:"quality_score"`
	RevisionCount  int      `json:"revision_count"`
	ReviewComments []string `json:"review_comments"`

	HumanFeedback string `json:"human_feedback"`
	HumanApproved bool   `json:"human_approved"`

	CheckpointHistory []string `json:"checkpoint_history"`
	CurrentCheckpoint string   `json:"current_checkpoint"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewContentState returns a record in the created state with empty payloads.
func NewContentState(projectID, topic string, mode Mode, now time.Time) *ContentState {
	return &ContentState{
		ProjectID:         projectID,
		ThreadID:          projectID,
		Topic:             topic,
		Mode:              mode,
		Status:            StatusCreated,
		ResearchNotes:     []string{},
		Sources:           []string{},
		ReviewComments:    []string{},
		CheckpointHistory: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Clone returns a deep copy of s.
func (s *ContentState) Clone() *ContentState {
	if s == nil {
		return nil
	}
	c := *s
	c.ResearchNotes = cloneStrings(s.ResearchNotes)
	c.Sources = cloneStrings(s.Sources)
	c.ReviewComments = cloneStrings(s.ReviewComments)
	c.CheckpointHistory = cloneStrings(s.CheckpointHistory)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// MarkCompleted sets CompletedAt the first time FinalContent is non-empty.
func (s *ContentState) MarkCompleted(now time.Time) {
	if s.CompletedAt == nil && s.FinalContent != "" {
		t := now
		s.CompletedAt = &t
	}
}

// Touch refreshes UpdatedAt and applies the completion rule.
func (s *ContentState) Touch(now time.Time) {
	s.UpdatedAt = now
	s.MarkCompleted(now)
}

// PushCheckpoint appends id to the history, evicting the oldest entries
// beyond MaxCheckpointHistory, and makes it current.
func (s *ContentState) PushCheckpoint(id string) {
	s.CheckpointHistory = append(s.CheckpointHistory, id)
	if over := len(s.CheckpointHistory) - MaxCheckpointHistory; over > 0 {
		s.CheckpointHistory = append([]string(nil), s.CheckpointHistory[over:]...)
	}
	s.CurrentCheckpoint = id
}

// MarshalJSON keeps list fields as [] rather than null.
func (s ContentState) MarshalJSON() ([]byte, error) {
	type alias ContentState
	a := alias(s)
	a.ResearchNotes = nonNil(a.ResearchNotes)
	a.Sources = nonNil(a.Sources)
	a.ReviewComments = nonNil(a.ReviewComments)
	a.CheckpointHistory = nonNil(a.CheckpointHistory)
	return json.Marshal(a)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
