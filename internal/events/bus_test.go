package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestEventBus_Subscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(NewStageStartedEvent("p-1", "research"))

	e := receive(t, ch)
	if e.EventType() != TypeStageStarted {
		t.Errorf("expected %s, got %s", TypeStageStarted, e.EventType())
	}
	if e.ProjectID() != "p-1" {
		t.Errorf("expected p-1, got %s", e.ProjectID())
	}
	if e.(StageStartedEvent).Stage != "research" {
		t.Errorf("unexpected payload %+v", e)
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	jobCh := bus.Subscribe(TypeJobCompleted, TypeJobFailed)
	allCh := bus.Subscribe()

	bus.Publish(NewStageStartedEvent("p-1", "write"))
	bus.Publish(NewJobFailedEvent("p-1", errors.New("boom")))

	receive(t, allCh)
	receive(t, allCh)

	e := receive(t, jobCh)
	if e.EventType() != TypeJobFailed {
		t.Errorf("expected job.failed, got %s", e.EventType())
	}
	if e.(JobFailedEvent).Error != "boom" {
		t.Errorf("error = %q", e.(JobFailedEvent).Error)
	}
	select {
	case extra := <-jobCh:
		t.Errorf("unexpected event %s", extra.EventType())
	default:
	}
}

func TestEventBus_RingBufferDropsOldest(t *testing.T) {
	bus := New(2)
	defer bus.Close()

	ch := bus.Subscribe()
	for _, stage := range []string{"a", "b", "c"} {
		bus.Publish(NewStageStartedEvent("p-1", stage))
	}

	if bus.DroppedCount() != 1 {
		t.Errorf("DroppedCount() = %d, want 1", bus.DroppedCount())
	}
	if got := receive(t, ch).(StageStartedEvent).Stage; got != "b" {
		t.Errorf("first remaining = %s, want b", got)
	}
	if got := receive(t, ch).(StageStartedEvent).Stage; got != "c" {
		t.Errorf("second remaining = %s, want c", got)
	}
}

func TestEventBus_UnsubscribeAndClose(t *testing.T) {
	bus := New(4)
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	other := bus.Subscribe()
	bus.Close()
	bus.Close()
	if _, ok := <-other; ok {
		t.Error("channel should be closed after Close")
	}
	bus.Publish(NewStageStartedEvent("p-1", "x"))
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	bus := New(1000)
	defer bus.Close()
	ch := bus.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(NewCheckpointSavedEvent("p-1", "cp", ""))
			}
		}()
	}
	wg.Wait()
	if len(ch) != 500 {
		t.Errorf("buffered = %d, want 500", len(ch))
	}
}
