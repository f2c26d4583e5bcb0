package workflow

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
	"github.com/hugo-lorenzo-mato/content-agency/internal/metrics"
)

// CheckpointManager saves, lists and restores project snapshots.
type CheckpointManager struct {
	store   core.StateStore
	bus     *events.EventBus
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewCheckpointManager creates a new checkpoint manager. bus and m may be nil.
func NewCheckpointManager(store core.StateStore, bus *events.EventBus, m *metrics.Metrics, logger *logging.Logger) *CheckpointManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CheckpointManager{store: store, bus: bus, metrics: m, logger: logger}
}

// Save snapshots the live record. An empty name gets the default
// checkpoint_{status}_{timestamp} name.
func (m *CheckpointManager) Save(ctx context.Context, projectID, name string) (string, error) {
	cid, err := m.store.SaveCheckpoint(ctx, projectID, name)
	if err != nil {
		return "", fmt.Errorf("saving checkpoint: %w", err)
	}
	m.metrics.RecordCheckpoint("save")
	if m.bus != nil {
		m.bus.Publish(events.NewCheckpointSavedEvent(projectID, cid, name))
	}
	m.logger.WithProject(projectID).Info("checkpoint created", "checkpoint_id", cid, "name", name)
	return cid, nil
}

// Restore overwrites the live record with a snapshot.
func (m *CheckpointManager) Restore(ctx context.Context, projectID, checkpointID string) (*core.ContentState, error) {
	state, err := m.store.RestoreCheckpoint(ctx, projectID, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("restoring checkpoint: %w", err)
	}
	m.metrics.RecordCheckpoint("restore")
	if m.bus != nil {
		m.bus.Publish(events.NewCheckpointRestoredEvent(projectID, checkpointID))
	}
	m.logger.WithProject(projectID).Info("checkpoint restored",
		"checkpoint_id", checkpointID,
		"status", state.Status)
	return state, nil
}

// List returns the newest checkpoints first, at most core.MaxCheckpointHistory.
func (m *CheckpointManager) List(ctx context.Context, projectID string) ([]core.CheckpointInfo, error) {
	infos, err := m.store.ListCheckpoints(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	return infos, nil
}
