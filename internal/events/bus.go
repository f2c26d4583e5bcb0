// Package events provides the in-process event bus for pipeline runs.
// Subscribers get ring-buffer semantics: a slow reader loses the oldest
// events, never blocks the publisher.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	Timestamp() time.Time
	ProjectID() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"timestamp"`
	Project string    `json:"project_id"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) ProjectID() string    { return e.Project }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType, projectID string) BaseEvent {
	return BaseEvent{Type: eventType, Time: time.Now(), Project: projectID}
}

type subscription struct {
	ch    chan Event
	types map[string]bool // empty means all types
}

func newSubscription(size int, types []string) *subscription {
	sub := &subscription{ch: make(chan Event, size), types: make(map[string]bool, len(types))}
	for _, t := range types {
		sub.types[t] = true
	}
	return sub
}

func (s *subscription) matches(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// EventBus provides pub/sub with backpressure control.
type EventBus struct {
	mu         sync.RWMutex
	regular    []*subscription
	bufferSize int
	dropped    atomic.Int64
	closed     bool
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. Slow readers lose the oldest events.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	sub := newSubscription(eb.bufferSize, types)
	eb.regular = append(eb.regular, sub)
	return sub.ch
}

// Unsubscribe removes and closes a subscription.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.regular = remove(eb.regular, ch)
}

func remove(subs []*subscription, ch <-chan Event) []*subscription {
	kept := subs[:0]
	for _, sub := range subs {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	return kept
}

// Publish delivers event to regular subscribers.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}
	eb.publish(event)
}

func (eb *EventBus) publish(event Event) {
	for _, sub := range eb.regular {
		if !sub.matches(event.EventType()) {
			continue
		}
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Full: drop the oldest and retry once.
		select {
		case <-sub.ch:
			eb.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (eb *EventBus) DroppedCount() int64 {
	return eb.dropped.Load()
}

// Close closes the bus and every subscriber channel.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for _, sub := range eb.regular {
		close(sub.ch)
	}
	eb.regular = nil
}
