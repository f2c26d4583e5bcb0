package state

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// MemoryStore keeps everything in process memory. It backs tests and the
// "memory" backend, and is the working set of JSONStore.
type MemoryStore struct {
	mu          sync.RWMutex
	opts        options
	projects    map[string]*core.ContentState
	checkpoints map[string][]core.Checkpoint
	feedback    map[string][]core.HumanFeedback

	// persist runs after every successful mutation while mu is held.
	persist func() error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:        applyOptions(opts),
		projects:    make(map[string]*core.ContentState),
		checkpoints: make(map[string][]core.Checkpoint),
		feedback:    make(map[string][]core.HumanFeedback),
	}
}

// mutate applies fn under the write lock. When a persist hook is set and
// fails, the working set is rolled back to its state before fn.
func (m *MemoryStore) mutate(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persist == nil {
		return fn()
	}

	saved := m.snapshot()
	if err := fn(); err != nil {
		m.rollback(saved)
		return err
	}
	if err := m.persist(); err != nil {
		m.rollback(saved)
		return core.ErrPersistence("write", err)
	}
	return nil
}

type memorySnapshot struct {
	projects    map[string]*core.ContentState
	checkpoints map[string][]core.Checkpoint
	feedback    map[string][]core.HumanFeedback
}

// snapshot copies the working set. Records are cloned because updates
// modify them in place; history slices are only ever appended to, so
// their headers are enough.
func (m *MemoryStore) snapshot() memorySnapshot {
	projects := make(map[string]*core.ContentState, len(m.projects))
	for id, s := range m.projects {
		projects[id] = s.Clone()
	}
	return memorySnapshot{
		projects:    projects,
		checkpoints: maps.Clone(m.checkpoints),
		feedback:    maps.Clone(m.feedback),
	}
}

func (m *MemoryStore) rollback(saved memorySnapshot) {
	m.projects = saved.projects
	m.checkpoints = saved.checkpoints
	m.feedback = saved.feedback
}

func (m *MemoryStore) live(projectID string) (*core.ContentState, error) {
	s, ok := m.projects[projectID]
	if !ok {
		return nil, core.ErrNotFound("project", projectID)
	}
	return s, nil
}

// CreateProject stores a new record.
func (m *MemoryStore) CreateProject(_ context.Context, state *core.ContentState) error {
	return m.mutate(func() error {
		if _, exists := m.projects[state.ProjectID]; exists {
			return core.ErrConflict("PROJECT_EXISTS", "project already exists: "+state.ProjectID)
		}
		m.projects[state.ProjectID] = state.Clone()
		return nil
	})
}

// GetState returns a copy of the record, or nil when absent.
func (m *MemoryStore) GetState(_ context.Context, projectID string) (*core.ContentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.projects[projectID].Clone(), nil
}

// UpdateState merges update into the record.
func (m *MemoryStore) UpdateState(_ context.Context, projectID string, update core.StateUpdate) (*core.ContentState, error) {
	var out *core.ContentState
	err := m.mutate(func() error {
		s, err := m.live(projectID)
		if err != nil {
			return err
		}
		update.Apply(s, m.opts.now())
		out = s.Clone()
		return nil
	})
	return out, err
}

// Replace overwrites the record.
func (m *MemoryStore) Replace(_ context.Context, state *core.ContentState) error {
	return m.mutate(func() error {
		s, err := m.live(state.ProjectID)
		if err != nil {
			return err
		}
		m.projects[state.ProjectID] = replaceState(s, state, m.opts.now())
		return nil
	})
}

// DeleteProject removes the record and its history.
func (m *MemoryStore) DeleteProject(_ context.Context, projectID string) error {
	return m.mutate(func() error {
		if _, err := m.live(projectID); err != nil {
			return err
		}
		delete(m.projects, projectID)
		delete(m.checkpoints, projectID)
		delete(m.feedback, projectID)
		return nil
	})
}

// ListProjects returns matching records newest first.
func (m *MemoryStore) ListProjects(_ context.Context, filter core.ProjectFilter) ([]*core.ContentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*core.ContentState, 0, len(m.projects))
	for _, s := range m.projects {
		if matchesFilter(s, filter) {
			out = append(out, s.Clone())
		}
	}
	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ActiveProjects returns records that have not reached a terminal status.
func (m *MemoryStore) ActiveProjects(ctx context.Context) ([]*core.ContentState, error) {
	all, err := m.ListProjects(ctx, core.ProjectFilter{})
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, s := range all {
		if !s.Status.IsTerminal() {
			active = append(active, s)
		}
	}
	return active, nil
}

// SaveCheckpoint snapshots the record.
func (m *MemoryStore) SaveCheckpoint(_ context.Context, projectID, name string) (string, error) {
	var id string
	err := m.mutate(func() error {
		s, err := m.live(projectID)
		if err != nil {
			return err
		}
		id = m.opts.newID()
		cp := newCheckpoint(s, id, name, m.opts.now())
		m.checkpoints[projectID] = append(m.checkpoints[projectID], cp)
		return nil
	})
	return id, err
}

// RestoreCheckpoint overwrites the record with a snapshot.
func (m *MemoryStore) RestoreCheckpoint(_ context.Context, projectID, checkpointID string) (*core.ContentState, error) {
	var out *core.ContentState
	err := m.mutate(func() error {
		s, err := m.live(projectID)
		if err != nil {
			return err
		}
		for _, cp := range m.checkpoints[projectID] {
			if cp.ID == checkpointID {
				restored := restoredState(s, cp, m.opts.now())
				m.projects[projectID] = restored
				out = restored.Clone()
				return nil
			}
		}
		return core.ErrNotFound("checkpoint", checkpointID)
	})
	return out, err
}

// ListCheckpoints returns up to ten checkpoints, newest first.
func (m *MemoryStore) ListCheckpoints(_ context.Context, projectID string) ([]core.CheckpointInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.live(projectID); err != nil {
		return nil, err
	}
	cps := m.checkpoints[projectID]
	out := make([]core.CheckpointInfo, 0, core.MaxCheckpointHistory)
	for i := len(cps) - 1; i >= 0 && len(out) < core.MaxCheckpointHistory; i-- {
		out = append(out, core.CheckpointInfo{ID: cps[i].ID, Name: cps[i].Name, CreatedAt: cps[i].CreatedAt})
	}
	return out, nil
}

// SaveHumanFeedback appends feedback and mirrors it on the record.
func (m *MemoryStore) SaveHumanFeedback(_ context.Context, projectID, feedback string, action core.FeedbackAction, approved bool) (string, error) {
	action, err := normalizeAction(action)
	if err != nil {
		return "", err
	}
	var id string
	err = m.mutate(func() error {
		s, err := m.live(projectID)
		if err != nil {
			return err
		}
		now := m.opts.now()
		id = m.opts.newID()
		m.feedback[projectID] = append(m.feedback[projectID], core.HumanFeedback{
			ID:        id,
			ProjectID: projectID,
			Feedback:  feedback,
			Action:    action,
			Approved:  approved,
			CreatedAt: now,
		})
		s.HumanFeedback = feedback
		s.HumanApproved = approved
		s.Touch(now)
		return nil
	})
	return id, err
}

// Feedback returns the feedback log of a project, oldest first.
func (m *MemoryStore) Feedback(projectID string) []core.HumanFeedback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.HumanFeedback(nil), m.feedback[projectID]...)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(states []*core.ContentState) {
	sort.SliceStable(states, func(i, j int) bool {
		if states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].ProjectID > states[j].ProjectID
		}
		return states[i].CreatedAt.After(states[j].CreatedAt)
	})
}
