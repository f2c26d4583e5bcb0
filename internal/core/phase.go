package core

// JobPhase is the coarse progress label reported to API clients. It is
// derived from which State Record fields are populated.
type JobPhase string

const (
	PhaseFailed      JobPhase = "failed"
	PhaseComplete    JobPhase = "complete"
	PhaseReviewing   JobPhase = "reviewing"
	PhaseWriting     JobPhase = "writing"
	PhaseResearching JobPhase = "researching"
	PhaseInProgress  JobPhase = "in_progress"
)

// DerivePhase maps a record to its client-facing phase and message.
// Checks run in precedence order; the first match wins.
func DerivePhase(s *ContentState) (JobPhase, string) {
	switch {
	case s.Status == StatusFailed:
		msg := s.Error
		if msg == "" {
			msg = "Unknown error occurred"
		}
		return PhaseFailed, msg
	case s.Status == StatusCompleted || s.FinalContent != "":
		return PhaseComplete, "Content generation complete"
	case s.Status == StatusReviewComplete:
		return PhaseComplete, "Review complete, content ready"
	case s.Draft != "":
		return PhaseReviewing, "Content is being reviewed"
	case len(s.ResearchNotes) > 0:
		return PhaseWriting, "Generating content based on research"
	case s.Status == StatusInitialized || s.Status == StatusResearchComplete:
		return PhaseResearching, "Researching topic"
	default:
		return PhaseInProgress, "Processing your request"
	}
}

// ContentProgressMessage describes a record whose content is not ready yet.
func ContentProgressMessage(s *ContentState) string {
	switch {
	case s.Status == StatusFailed:
		msg := s.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return "Generation failed: " + msg
	case s.Draft != "":
		return "Content is being reviewed"
	case len(s.ResearchNotes) > 0:
		return "Content is being written"
	default:
		return "Content generation in progress"
	}
}
