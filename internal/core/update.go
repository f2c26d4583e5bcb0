package core

import "time"

// StateUpdate is a shallow partial update. Nil fields are left unchanged.
// Identity fields are deliberately absent.
type StateUpdate struct {
	Topic          *string
	Mode           *Mode
	Status         *Status
	NextAction     *Action
	AssignedAgent  *Agent
	EnableResearch *bool
	EnableRevision *bool

	ResearchNotes    []string
	Sources          []string
	ResearchAttempts *int

	Draft        *string
	FinalContent *string
	WordCount    *int

	QualityScore   *float64
	RevisionCount  *int
	ReviewComments []string

	HumanFeedback *string
	HumanApproved *bool

	CheckpointHistory []string
	CurrentCheckpoint *string

	Error *string
}

// Apply merges u into s and refreshes the timestamps.
func (u StateUpdate) Apply(s *ContentState, now time.Time) {
	setIf(&s.Topic, u.Topic)
	setIf(&s.Mode, u.Mode)
	setIf(&s.Status, u.Status)
	setIf(&s.NextAction, u.NextAction)
	setIf(&s.AssignedAgent, u.AssignedAgent)
	setIf(&s.EnableResearch, u.EnableResearch)
	setIf(&s.EnableRevision, u.EnableRevision)
	if u.ResearchNotes != nil {
		s.ResearchNotes = cloneStrings(u.ResearchNotes)
	}
	if u.Sources != nil {
		s.Sources = cloneStrings(u.Sources)
	}
	if u.ResearchAttempts != nil && *u.ResearchAttempts > s.ResearchAttempts {
		s.ResearchAttempts = *u.ResearchAttempts
	}
	setIf(&s.Draft, u.Draft)
	setIf(&s.FinalContent, u.FinalContent)
	setIf(&s.WordCount, u.WordCount)
	if u.QualityScore != nil {
		s.QualityScore = ClampScore(*u.QualityScore)
	}
	setIf(&s.RevisionCount, u.RevisionCount)
	if u.ReviewComments != nil {
		s.ReviewComments = cloneStrings(u.ReviewComments)
	}
	setIf(&s.HumanFeedback, u.HumanFeedback)
	setIf(&s.HumanApproved, u.HumanApproved)
	if u.CheckpointHistory != nil {
		h := u.CheckpointHistory
		if len(h) > MaxCheckpointHistory {
			h = h[len(h)-MaxCheckpointHistory:]
		}
		s.CheckpointHistory = cloneStrings(h)
	}
	setIf(&s.CurrentCheckpoint, u.CurrentCheckpoint)
	setIf(&s.Error, u.Error)
	s.Touch(now)
}

// ClampScore bounds a quality score to [0, 100].
func ClampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Ptr returns a pointer to v. Handy when building a StateUpdate.
func Ptr[T any](v T) *T {
	return &v
}
