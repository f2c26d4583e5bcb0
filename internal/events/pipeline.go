package events

import "time"

// Event types published by the workflow engine and the job runner.
const (
	TypeStageStarted       = "stage.started"
	TypeStageCompleted     = "stage.completed"
	TypeJobStarted         = "job.started"
	TypeJobCompleted       = "job.completed"
	TypeJobFailed          = "job.failed"
	TypeCheckpointSaved    = "checkpoint.saved"
	TypeCheckpointRestored = "checkpoint.restored"
)

// StageStartedEvent is emitted before a stage runs.
type StageStartedEvent struct {
	BaseEvent
	Stage string `json:"stage"`
}

// NewStageStartedEvent creates a stage started event.
func NewStageStartedEvent(projectID, stage string) StageStartedEvent {
	return StageStartedEvent{BaseEvent: NewBaseEvent(TypeStageStarted, projectID), Stage: stage}
}

// StageCompletedEvent is emitted after a stage's record was persisted.
type StageCompletedEvent struct {
	BaseEvent
	Stage    string        `json:"stage"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

// NewStageCompletedEvent creates a stage completed event.
func NewStageCompletedEvent(projectID, stage, status string, d time.Duration) StageCompletedEvent {
	return StageCompletedEvent{
		BaseEvent: NewBaseEvent(TypeStageCompleted, projectID),
		Stage:     stage,
		Status:    status,
		Duration:  d,
	}
}

// JobStartedEvent is emitted when a pipeline run is scheduled.
type JobStartedEvent struct {
	BaseEvent
	Topic string `json:"topic"`
	Mode  string `json:"mode"`
}

// NewJobStartedEvent creates a job started event.
func NewJobStartedEvent(projectID, topic, mode string) JobStartedEvent {
	return JobStartedEvent{BaseEvent: NewBaseEvent(TypeJobStarted, projectID), Topic: topic, Mode: mode}
}

// JobCompletedEvent is emitted once a run reaches the end of the graph.
type JobCompletedEvent struct {
	BaseEvent
	Status       string        `json:"status"`
	QualityScore float64       `json:"quality_score"`
	Duration     time.Duration `json:"duration"`
}

// NewJobCompletedEvent creates a job completed event.
func NewJobCompletedEvent(projectID, status string, score float64, d time.Duration) JobCompletedEvent {
	return JobCompletedEvent{
		BaseEvent:    NewBaseEvent(TypeJobCompleted, projectID),
		Status:       status,
		QualityScore: score,
		Duration:     d,
	}
}

// JobFailedEvent is emitted when a run aborts.
type JobFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewJobFailedEvent creates a job failed event.
func NewJobFailedEvent(projectID string, err error) JobFailedEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return JobFailedEvent{BaseEvent: NewBaseEvent(TypeJobFailed, projectID), Error: msg}
}

// CheckpointEvent is emitted for checkpoint saves and restores.
type CheckpointEvent struct {
	BaseEvent
	CheckpointID string `json:"checkpoint_id"`
	Name         string `json:"name,omitempty"`
}

// NewCheckpointSavedEvent creates a checkpoint saved event.
func NewCheckpointSavedEvent(projectID, checkpointID, name string) CheckpointEvent {
	return CheckpointEvent{BaseEvent: NewBaseEvent(TypeCheckpointSaved, projectID), CheckpointID: checkpointID, Name: name}
}

// NewCheckpointRestoredEvent creates a checkpoint restored event.
func NewCheckpointRestoredEvent(projectID, checkpointID string) CheckpointEvent {
	return CheckpointEvent{BaseEvent: NewBaseEvent(TypeCheckpointRestored, projectID), CheckpointID: checkpointID}
}
