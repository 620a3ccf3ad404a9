// Package engine implements the typed state-graph executor that drives
// every governance workflow: nodes as pure functions over WorkflowState,
// name-based edge resolution (no direct function pointers between nodes),
// conditional routers, an iteration bound, and a checkpoint write after
// every step. Grounded on the single-writer Run-loop shape retrieved from
// the pack's reference material (a brutalist event-loop engine processing
// one step at a time with log-and-continue error discipline), applied to
// typed node functions instead of generic events.
package engine

import (
	"context"
	"fmt"

	"github.com/aldermoor/governor/internal/checkpoint"
	"github.com/aldermoor/governor/internal/state"
)

// NodeFunc is a pure function from WorkflowState to a Patch describing what
// changed. Nodes never mutate the state they receive.
type NodeFunc func(ctx context.Context, st state.WorkflowState) (*state.Patch, error)

// Router picks the next node name given the current state, after a node's
// patch has been applied. Returning "" ends the run.
type Router func(st state.WorkflowState) string

// Graph is a named collection of nodes wired by a start node and, per node,
// either a fixed next-node name or a Router.
type Graph struct {
	Name      string
	StartNode string
	Nodes     map[string]NodeFunc
	Edges     map[string]string  // node -> fixed next node
	Routers   map[string]Router  // node -> conditional router (overrides Edges if present)
	MaxIters  int
}

// Declaration is the shape a concrete workflow (issue, lld, testing) assembles
// and hands to NewGraph.
type Declaration struct {
	Name      string
	StartNode string
	Nodes     map[string]NodeFunc
	Edges     map[string]string
	Routers   map[string]Router
	MaxIters  int
}

// NewGraph builds a Graph from a Declaration.
func NewGraph(d Declaration) (*Graph, error) {
	if _, ok := d.Nodes[d.StartNode]; !ok {
		return nil, fmt.Errorf("engine: start node %q not registered in graph %q", d.StartNode, d.Name)
	}
	return &Graph{
		Name:      d.Name,
		StartNode: d.StartNode,
		Nodes:     d.Nodes,
		Edges:     d.Edges,
		Routers:   d.Routers,
		MaxIters:  d.MaxIters,
	}, nil
}

// App runs a Graph, checkpointing state after every step.
type App struct {
	Graph      *Graph
	Checkpoint *checkpoint.Store
}

// NewApp builds an App wiring graph to a checkpoint store.
func NewApp(graph *Graph, store *checkpoint.Store) *App {
	return &App{Graph: graph, Checkpoint: store}
}

// ErrMaxIterations is returned when a run exceeds the graph's MaxIters
// bound without reaching a terminal node.
var ErrMaxIterations = fmt.Errorf("engine: exceeded max iterations")

// Run executes the graph starting from st (or a resumed checkpoint, if the
// caller loaded one into st.Node/st.Iteration before calling), stepping one
// node at a time until a node has no next node, Done is set, or MaxIters is
// exceeded.
func (a *App) Run(ctx context.Context, threadID string, st state.WorkflowState) (state.WorkflowState, error) {
	current := st.Node
	if current == "" {
		current = a.Graph.StartNode
	}

	maxIters := a.Graph.MaxIters
	if maxIters <= 0 {
		maxIters = 50
	}

	for {
		if st.Done {
			if a.Checkpoint != nil {
				_ = a.Checkpoint.Save(ctx, threadID, current, checkpoint.PhaseCompleted, st)
			}
			return st, nil
		}
		if st.Iteration >= maxIters {
			if a.Checkpoint != nil {
				_ = a.Checkpoint.Save(ctx, threadID, current, checkpoint.PhaseFailed, st)
			}
			return st, ErrMaxIterations
		}

		node, ok := a.Graph.Nodes[current]
		if !ok {
			return st, fmt.Errorf("engine: unknown node %q in graph %q", current, a.Graph.Name)
		}

		patch, err := node(ctx, st)
		if err != nil {
			st = state.Apply(st, state.NewPatch().AppendError(err.Error()))
			if a.Checkpoint != nil {
				_ = a.Checkpoint.Save(ctx, threadID, current, checkpoint.PhaseFailed, st)
			}
			return st, fmt.Errorf("engine: node %q failed: %w", current, err)
		}

		st = state.Apply(st, patch)
		st.Iteration++

		next := a.nextNode(current, st)
		if next != "" {
			st.Node = next
		}

		phase := checkpoint.PhaseRunning
		if next == "" {
			st.Done = true
			phase = checkpoint.PhaseCompleted
		}
		if a.Checkpoint != nil {
			if err := a.Checkpoint.Save(ctx, threadID, current, phase, st); err != nil {
				return st, fmt.Errorf("engine: checkpointing after %q: %w", current, err)
			}
		}

		if next == "" {
			return st, nil
		}
		current = next
	}
}

func (a *App) nextNode(current string, st state.WorkflowState) string {
	if router, ok := a.Graph.Routers[current]; ok {
		return router(st)
	}
	return a.Graph.Edges[current]
}
