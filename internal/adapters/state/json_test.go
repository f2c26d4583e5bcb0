package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

func TestJSONStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	clock := newTickClock()

	s, err := NewJSONStore(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	seed(t, s, "p1", clock)
	cpID, err := s.SaveCheckpoint(ctx, "p1", "first")
	if err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}
	if _, err := s.SaveHumanFeedback(ctx, "p1", "ok", core.FeedbackComment, false); err != nil {
		t.Fatalf("SaveHumanFeedback() error = %v", err)
	}

	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	st, err := reopened.GetState(ctx, "p1")
	if err != nil || st == nil {
		t.Fatalf("GetState() = %v, %v", st, err)
	}
	if st.CurrentCheckpoint != cpID || st.HumanFeedback != "ok" {
		t.Errorf("reloaded state = %+v", st)
	}
	if got := reopened.Feedback("p1"); len(got) != 1 || got[0].Action != core.FeedbackComment {
		t.Errorf("Feedback() = %+v", got)
	}
	if _, err := reopened.RestoreCheckpoint(ctx, "p1", cpID); err != nil {
		t.Errorf("RestoreCheckpoint() after reopen error = %v", err)
	}
}

func TestJSONStore_ChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clock := newTickClock()
	s, err := NewJSONStore(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	seed(t, s, "p1", clock)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	tampered := strings.Replace(string(raw), "Ai In Healthcare", "Ai In Hackers!!", 1)
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := NewJSONStore(path); !core.IsCategory(err, core.ErrCatState) {
		t.Errorf("NewJSONStore(tampered) error = %v, want state error", err)
	}
}

func TestJSONStore_GarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := NewJSONStore(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestJSONStore_FailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	clock := newTickClock()
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewJSONStore(filepath.Join(dir, "state.json"), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	seed(t, s, "p1", clock)
	if _, err := s.SaveCheckpoint(ctx, "p1", "first"); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	// Turn the directory into a file so every later write fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = s.UpdateState(ctx, "p1", core.StateUpdate{Status: core.Ptr(core.StatusFailed)})
	if !core.IsCategory(err, core.ErrCatPersistence) {
		t.Fatalf("UpdateState() error = %v, want persistence", err)
	}
	if _, err := s.SaveCheckpoint(ctx, "p1", "second"); !core.IsCategory(err, core.ErrCatPersistence) {
		t.Fatalf("SaveCheckpoint() error = %v, want persistence", err)
	}
	if _, err := s.SaveHumanFeedback(ctx, "p1", "nice", core.FeedbackApprove, true); !core.IsCategory(err, core.ErrCatPersistence) {
		t.Fatalf("SaveHumanFeedback() error = %v, want persistence", err)
	}
	if err := s.DeleteProject(ctx, "p1"); !core.IsCategory(err, core.ErrCatPersistence) {
		t.Fatalf("DeleteProject() error = %v, want persistence", err)
	}

	st, err := s.GetState(ctx, "p1")
	if err != nil || st == nil {
		t.Fatalf("GetState() = %v, %v; want the record to survive", st, err)
	}
	if st.Status != core.StatusInitialized {
		t.Errorf("status = %q, want %q", st.Status, core.StatusInitialized)
	}
	if st.HumanFeedback != "" || st.HumanApproved {
		t.Errorf("feedback leaked into record: %+v", st)
	}
	cps, err := s.ListCheckpoints(ctx, "p1")
	if err != nil {
		t.Fatalf("ListCheckpoints() error = %v", err)
	}
	if len(cps) != 1 || cps[0].Name != "first" {
		t.Errorf("checkpoints = %+v, want only %q", cps, "first")
	}
	if fb := s.Feedback("p1"); len(fb) != 0 {
		t.Errorf("feedback log = %+v, want empty", fb)
	}
}
