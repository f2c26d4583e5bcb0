package state

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// tickClock advances one second per call so every write gets a distinct time.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickClock() *tickClock {
	return &tickClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type backend struct {
	name string
	open func(t *testing.T, opts ...Option) core.StateStore
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T, opts ...Option) core.StateStore {
			return NewMemoryStore(opts...)
		}},
		{"json", func(t *testing.T, opts ...Option) core.StateStore {
			s, err := NewJSONStore(filepath.Join(t.TempDir(), "state.json"), opts...)
			if err != nil {
				t.Fatalf("NewJSONStore() error = %v", err)
			}
			return s
		}},
		{"sqlite", func(t *testing.T, opts ...Option) core.StateStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"), opts...)
			if err != nil {
				t.Fatalf("NewSQLiteStore() error = %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s core.StateStore, clock *tickClock)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clock := newTickClock()
			fn(t, b.open(t, WithClock(clock.Now)), clock)
		})
	}
}

func seed(t *testing.T, s core.StateStore, id string, clock *tickClock) *core.ContentState {
	t.Helper()
	st := core.NewContentState(id, "Ai In Healthcare", core.ModeStandard, clock.Now())
	st.Status = core.StatusInitialized
	st.NextAction = core.ActionResearch
	st.AssignedAgent = core.AgentResearch
	if err := s.CreateProject(context.Background(), st); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return st
}

func TestStore_CreateAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		want := seed(t, s, "p1", clock)

		got, err := s.GetState(ctx, "p1")
		if err != nil {
			t.Fatalf("GetState() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetState() = %+v, want %+v", got, want)
		}

		missing, err := s.GetState(ctx, "nope")
		if err != nil || missing != nil {
			t.Errorf("GetState(missing) = %v, %v; want nil, nil", missing, err)
		}

		if err := s.CreateProject(ctx, want); !core.IsCategory(err, core.ErrCatConflict) {
			t.Errorf("duplicate CreateProject() error = %v, want conflict", err)
		}
	})
}

func TestStore_UpdateStateMerges(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		before := seed(t, s, "p1", clock)

		got, err := s.UpdateState(ctx, "p1", core.StateUpdate{
			Status:        core.Ptr(core.StatusResearchComplete),
			ResearchNotes: []string{"note"},
		})
		if err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}
		if got.Status != core.StatusResearchComplete || len(got.ResearchNotes) != 1 {
			t.Errorf("update not applied: %+v", got)
		}
		if got.Topic != before.Topic || got.NextAction != before.NextAction {
			t.Error("untouched fields changed")
		}
		if !got.UpdatedAt.After(before.UpdatedAt) {
			t.Errorf("UpdatedAt %v not after %v", got.UpdatedAt, before.UpdatedAt)
		}

		stored, _ := s.GetState(ctx, "p1")
		if !reflect.DeepEqual(stored, got) {
			t.Errorf("stored = %+v, returned = %+v", stored, got)
		}

		if _, err := s.UpdateState(ctx, "nope", core.StateUpdate{}); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("UpdateState(missing) error = %v, want not_found", err)
		}
	})
}

func TestStore_CompletedAtSetOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)

		first, err := s.UpdateState(ctx, "p1", core.StateUpdate{FinalContent: core.Ptr("post")})
		if err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}
		if first.CompletedAt == nil {
			t.Fatal("CompletedAt not set")
		}
		second, err := s.UpdateState(ctx, "p1", core.StateUpdate{Status: core.Ptr(core.StatusCompleted)})
		if err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}
		if !second.CompletedAt.Equal(*first.CompletedAt) {
			t.Errorf("CompletedAt changed from %v to %v", first.CompletedAt, second.CompletedAt)
		}
	})
}

func TestStore_ReplaceKeepsIdentity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		orig := seed(t, s, "p1", clock)

		next := orig.Clone()
		next.ThreadID = "other"
		next.CreatedAt = orig.CreatedAt.Add(time.Hour)
		next.Draft = "draft text"
		if err := s.Replace(ctx, next); err != nil {
			t.Fatalf("Replace() error = %v", err)
		}

		got, _ := s.GetState(ctx, "p1")
		if got.Draft != "draft text" {
			t.Errorf("Draft = %q", got.Draft)
		}
		if got.ThreadID != "p1" || !got.CreatedAt.Equal(orig.CreatedAt) {
			t.Errorf("identity changed: thread=%q created=%v", got.ThreadID, got.CreatedAt)
		}

		ghost := orig.Clone()
		ghost.ProjectID = "ghost"
		if err := s.Replace(ctx, ghost); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("Replace(missing) error = %v, want not_found", err)
		}
	})
}

func TestStore_CheckpointRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)
		if _, err := s.UpdateState(ctx, "p1", core.StateUpdate{
			Status:        core.Ptr(core.StatusResearchComplete),
			ResearchNotes: []string{"a", "b"},
			Sources:       []string{"https://a.example"},
		}); err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}
		atSave, _ := s.GetState(ctx, "p1")

		cpID, err := s.SaveCheckpoint(ctx, "p1", "")
		if err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}

		afterSave, _ := s.GetState(ctx, "p1")
		if afterSave.CurrentCheckpoint != cpID || len(afterSave.CheckpointHistory) != 1 {
			t.Errorf("checkpoint not recorded on live record: %+v", afterSave)
		}

		if _, err := s.UpdateState(ctx, "p1", core.StateUpdate{
			Draft:  core.Ptr("a draft"),
			Status: core.Ptr(core.StatusDraftComplete),
		}); err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}

		restored, err := s.RestoreCheckpoint(ctx, "p1", cpID)
		if err != nil {
			t.Fatalf("RestoreCheckpoint() error = %v", err)
		}
		if restored.CurrentCheckpoint != cpID {
			t.Errorf("CurrentCheckpoint = %q, want %q", restored.CurrentCheckpoint, cpID)
		}
		if !restored.UpdatedAt.After(atSave.UpdatedAt) {
			t.Error("UpdatedAt not advanced by restore")
		}

		want := atSave.Clone()
		got := restored.Clone()
		want.UpdatedAt, got.UpdatedAt = time.Time{}, time.Time{}
		want.CurrentCheckpoint, got.CurrentCheckpoint = "", ""
		if !reflect.DeepEqual(got, want) {
			t.Errorf("restored = %+v\nwant     %+v", got, want)
		}

		live, _ := s.GetState(ctx, "p1")
		if live.Draft != "" || live.Status != core.StatusResearchComplete {
			t.Errorf("live record not overwritten: %+v", live)
		}
	})
}

func TestStore_DefaultCheckpointName(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)

		if _, err := s.SaveCheckpoint(ctx, "p1", ""); err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}
		if _, err := s.SaveCheckpoint(ctx, "p1", "before-review"); err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}

		list, err := s.ListCheckpoints(ctx, "p1")
		if err != nil {
			t.Fatalf("ListCheckpoints() error = %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("len(list) = %d, want 2", len(list))
		}
		if list[0].Name != "before-review" {
			t.Errorf("newest name = %q", list[0].Name)
		}
		if want := "checkpoint_initialized_20250601_100002"; list[1].Name != want {
			t.Errorf("default name = %q, want %q", list[1].Name, want)
		}
	})
}

func TestStore_CheckpointHistoryBounded(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)

		var ids []string
		for i := 0; i < 11; i++ {
			id, err := s.SaveCheckpoint(ctx, "p1", fmt.Sprintf("cp-%d", i))
			if err != nil {
				t.Fatalf("SaveCheckpoint() error = %v", err)
			}
			ids = append(ids, id)
		}

		st, _ := s.GetState(ctx, "p1")
		if len(st.CheckpointHistory) != core.MaxCheckpointHistory {
			t.Fatalf("len(history) = %d", len(st.CheckpointHistory))
		}
		if st.CheckpointHistory[0] != ids[1] {
			t.Errorf("oldest entry = %q, want %q (first evicted)", st.CheckpointHistory[0], ids[1])
		}

		list, _ := s.ListCheckpoints(ctx, "p1")
		if len(list) != core.MaxCheckpointHistory {
			t.Fatalf("ListCheckpoints() len = %d", len(list))
		}
		if list[0].ID != ids[10] || list[9].ID != ids[1] {
			t.Errorf("list order wrong: first=%s last=%s", list[0].ID, list[9].ID)
		}

		// Evicted checkpoints are still restorable; storage is append-only.
		if _, err := s.RestoreCheckpoint(ctx, "p1", ids[0]); err != nil {
			t.Errorf("RestoreCheckpoint(evicted) error = %v", err)
		}
	})
}

func TestStore_RestoreUnknownCheckpoint(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)
		seed(t, s, "p2", clock)
		other, err := s.SaveCheckpoint(ctx, "p2", "")
		if err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}

		if _, err := s.RestoreCheckpoint(ctx, "p1", "missing"); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("error = %v, want not_found", err)
		}
		if _, err := s.RestoreCheckpoint(ctx, "p1", other); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("restoring another project's checkpoint: error = %v, want not_found", err)
		}
		if _, err := s.ListCheckpoints(ctx, "missing"); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("ListCheckpoints(missing) error = %v, want not_found", err)
		}
	})
}

func TestStore_HumanFeedback(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)

		id, err := s.SaveHumanFeedback(ctx, "p1", "looks good", core.FeedbackApprove, true)
		if err != nil {
			t.Fatalf("SaveHumanFeedback() error = %v", err)
		}
		if id == "" {
			t.Error("empty feedback id")
		}

		st, _ := s.GetState(ctx, "p1")
		if st.HumanFeedback != "looks good" || !st.HumanApproved {
			t.Errorf("feedback not mirrored: %+v", st)
		}

		if _, err := s.SaveHumanFeedback(ctx, "p1", "x", "shrug", false); !core.IsCategory(err, core.ErrCatValidation) {
			t.Errorf("unknown action error = %v, want validation", err)
		}
		if _, err := s.SaveHumanFeedback(ctx, "nope", "x", "", false); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("missing project error = %v, want not_found", err)
		}
	})
}

func TestStore_ListAndActive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)
		seed(t, s, "p2", clock)
		quick := core.NewContentState("p3", "Quick One", core.ModeQuick, clock.Now())
		quick.Status = core.StatusCompleted
		if err := s.CreateProject(ctx, quick); err != nil {
			t.Fatalf("CreateProject() error = %v", err)
		}

		all, err := s.ListProjects(ctx, core.ProjectFilter{})
		if err != nil {
			t.Fatalf("ListProjects() error = %v", err)
		}
		if len(all) != 3 || all[0].ProjectID != "p3" || all[2].ProjectID != "p1" {
			t.Errorf("ListProjects() order = %v", ids(all))
		}

		byMode, _ := s.ListProjects(ctx, core.ProjectFilter{Mode: core.ModeQuick})
		if len(byMode) != 1 || byMode[0].ProjectID != "p3" {
			t.Errorf("mode filter = %v", ids(byMode))
		}
		byStatus, _ := s.ListProjects(ctx, core.ProjectFilter{Status: core.StatusInitialized, Limit: 1})
		if len(byStatus) != 1 || byStatus[0].ProjectID != "p2" {
			t.Errorf("status filter with limit = %v", ids(byStatus))
		}

		active, err := s.ActiveProjects(ctx)
		if err != nil {
			t.Fatalf("ActiveProjects() error = %v", err)
		}
		if len(active) != 2 {
			t.Errorf("ActiveProjects() = %v", ids(active))
		}
	})
}

func TestStore_Delete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s core.StateStore, clock *tickClock) {
		ctx := context.Background()
		seed(t, s, "p1", clock)
		if _, err := s.SaveCheckpoint(ctx, "p1", ""); err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}

		if err := s.DeleteProject(ctx, "p1"); err != nil {
			t.Fatalf("DeleteProject() error = %v", err)
		}
		if st, _ := s.GetState(ctx, "p1"); st != nil {
			t.Error("record still present after delete")
		}
		if err := s.DeleteProject(ctx, "p1"); !core.IsCategory(err, core.ErrCatNotFound) {
			t.Errorf("second delete error = %v, want not_found", err)
		}
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

func ids(states []*core.ContentState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.ProjectID
	}
	return out
}
