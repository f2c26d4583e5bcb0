package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// RunFinishedMsg ends the progress view with the run's outcome.
type RunFinishedMsg struct {
	State *core.ContentState
	Err   error
}

type stageState int

const (
	stagePending stageState = iota
	stageRunning
	stageDone
	stageDegraded
)

type stageView struct {
	name    string
	label   string
	state   stageState
	status  string
	started time.Time
	took    time.Duration
}

// RunModel shows the stages of one pipeline run while it executes.
type RunModel struct {
	topic       string
	projectID   string
	stages      []stageView
	checkpoints int

	spinner  spinner.Model
	progress progress.Model
	events   <-chan tea.Msg
	cancel   func()
	now      func() time.Time

	result   *RunFinishedMsg
	quitting bool
}

// NewRunModel builds the view for state. cancel is called when the user
// quits early; events is usually an EventBusAdapter channel.
func NewRunModel(state *core.ContentState, events <-chan tea.Msg, cancel func()) RunModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = RunningStyle

	var stages []stageView
	if state.EnableResearch {
		stages = append(stages, stageView{name: "research", label: "Researching"})
	}
	stages = append(stages,
		stageView{name: "write", label: "Writing draft"},
		stageView{name: "review", label: "Reviewing"},
	)

	return RunModel{
		topic:     state.Topic,
		projectID: state.ProjectID,
		stages:    stages,
		spinner:   sp,
		progress:  progress.New(progress.WithScaledGradient("#7c3aed", "#3b82f6"), progress.WithWidth(40)),
		events:    events,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Init starts the spinner and the event listener.
func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, Listen(m.events))
}

// Update handles stage events, the final result and quit keys.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case StageStartedMsg:
		if i := m.indexOf(msg.Stage); i >= 0 {
			m.stages[i].state = stageRunning
			m.stages[i].started = m.now()
		}
		return m, Listen(m.events)

	case StageDoneMsg:
		if i := m.indexOf(msg.Stage); i >= 0 {
			s := &m.stages[i]
			s.status = msg.Status
			s.state = stageDone
			if strings.HasSuffix(msg.Status, "_failed") {
				s.state = stageDegraded
			}
			if !s.started.IsZero() {
				s.took = m.now().Sub(s.started)
			}
		}
		return m, Listen(m.events)

	case CheckpointMsg:
		m.checkpoints++
		return m, Listen(m.events)

	case RunFinishedMsg:
		m.result = &msg
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m RunModel) indexOf(stage string) int {
	for i, s := range m.stages {
		if s.name == stage {
			return i
		}
	}
	return -1
}

// Result returns the run outcome once the model received it.
func (m RunModel) Result() (*RunFinishedMsg, bool) {
	return m.result, m.result != nil
}

// Quitting reports whether the user left before the run finished.
func (m RunModel) Quitting() bool {
	return m.quitting && m.result == nil
}

func (m RunModel) finished() int {
	n := 0
	for _, s := range m.stages {
		if s.state == stageDone || s.state == stageDegraded {
			n++
		}
	}
	return n
}

// View renders the stage list with a progress bar.
func (m RunModel) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("content-agency · " + m.topic))
	b.WriteString("\n")

	for _, s := range m.stages {
		var icon, line string
		switch s.state {
		case stageRunning:
			icon = m.spinner.View()
			line = RunningStyle.Render(s.label)
		case stageDone:
			icon = CompletedStyle.Render("✓")
			line = s.label + " " + PendingStyle.Render(formatDuration(s.took))
		case stageDegraded:
			icon = WarningStyle.Render("!")
			line = s.label + " " + WarningStyle.Render(s.status)
		default:
			icon = PendingStyle.Render("○")
			line = PendingStyle.Render(s.label)
		}
		fmt.Fprintf(&b, " %s %s\n", icon, line)
	}

	pct := 0.0
	if len(m.stages) > 0 {
		pct = float64(m.finished()) / float64(len(m.stages))
	}
	b.WriteString("\n " + m.progress.ViewAs(pct) + "\n")

	footer := fmt.Sprintf("project %s", m.projectID)
	if m.checkpoints > 0 {
		footer += fmt.Sprintf(" · %d checkpoints", m.checkpoints)
	}
	switch {
	case m.result != nil && m.result.Err != nil:
		footer = FailedStyle.Render("run failed: " + m.result.Err.Error())
	case m.result != nil:
		footer += " · done"
	default:
		footer += " · q to quit"
	}
	b.WriteString(FooterStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
