package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/content-agency/internal/events"
)

// StageStartedMsg reports that a stage began.
type StageStartedMsg struct{ Stage string }

// StageDoneMsg reports a finished stage and the status it produced.
type StageDoneMsg struct {
	Stage  string
	Status string
}

// CheckpointMsg reports an automatic or manual checkpoint.
type CheckpointMsg struct{ ID string }

// EventBusAdapter bridges one project's bus events to Bubbletea messages.
type EventBusAdapter struct {
	bus       *events.EventBus
	eventCh   <-chan events.Event
	msgCh     chan tea.Msg
	closeCh   chan struct{}
	projectID string

	mu     sync.Mutex
	closed bool
}

// NewEventBusAdapter listens for stage and checkpoint events of projectID.
func NewEventBusAdapter(bus *events.EventBus, projectID string) *EventBusAdapter {
	a := &EventBusAdapter{
		bus: bus,
		eventCh: bus.Subscribe(
			events.TypeStageStarted,
			events.TypeStageCompleted,
			events.TypeCheckpointSaved,
		),
		msgCh:     make(chan tea.Msg, 32),
		closeCh:   make(chan struct{}),
		projectID: projectID,
	}
	go a.run()
	return a
}

// MsgChannel returns the channel for Bubbletea to read from.
func (a *EventBusAdapter) MsgChannel() <-chan tea.Msg {
	return a.msgCh
}

// Close stops forwarding and releases the subscription.
func (a *EventBusAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.closeCh)
	a.bus.Unsubscribe(a.eventCh)
}

func (a *EventBusAdapter) run() {
	defer close(a.msgCh)
	for {
		select {
		case <-a.closeCh:
			return
		case ev, ok := <-a.eventCh:
			if !ok {
				return
			}
			msg := a.translate(ev)
			if msg == nil {
				continue
			}
			select {
			case a.msgCh <- msg:
			case <-a.closeCh:
				return
			}
		}
	}
}

func (a *EventBusAdapter) translate(ev events.Event) tea.Msg {
	if ev.ProjectID() != a.projectID {
		return nil
	}
	switch e := ev.(type) {
	case events.StageStartedEvent:
		return StageStartedMsg{Stage: e.Stage}
	case events.StageCompletedEvent:
		return StageDoneMsg{Stage: e.Stage, Status: e.Status}
	case events.CheckpointEvent:
		return CheckpointMsg{ID: e.CheckpointID}
	}
	return nil
}

// Listen returns a command that delivers the next adapter message.
func Listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
