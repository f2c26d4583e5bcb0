// Package workflow runs the content pipeline: a small graph of stages
// routed by the record's next_action, persisted after every stage.
package workflow

import (
	"fmt"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// Graph maps next actions to the stage that handles them. ActionComplete
// is the terminal edge and never has a node.
type Graph struct {
	nodes map[core.Action]core.Stage
	order []core.Action
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[core.Action]core.Stage)}
}

// AddNode registers stage for action, replacing any previous node.
func (g *Graph) AddNode(action core.Action, stage core.Stage) *Graph {
	if _, ok := g.nodes[action]; !ok {
		g.order = append(g.order, action)
	}
	g.nodes[action] = stage
	return g
}

// Nodes returns the registered actions in insertion order.
func (g *Graph) Nodes() []core.Action {
	out := make([]core.Action, len(g.order))
	copy(out, g.order)
	return out
}

// Route returns the stage for the record's next action. done is true when
// the record asks for completion.
func (g *Graph) Route(s *core.ContentState) (stage core.Stage, done bool, err error) {
	if s.NextAction == core.ActionComplete {
		return nil, true, nil
	}
	stage, ok := g.nodes[s.NextAction]
	if !ok {
		return nil, false, core.ErrState(core.CodeUnknownAction,
			fmt.Sprintf("no stage for next action %q", s.NextAction)).
			WithDetail("next_action", string(s.NextAction))
	}
	return stage, false, nil
}
