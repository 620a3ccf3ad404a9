package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldermoor/governor/internal/checkpoint"
	"github.com/aldermoor/governor/internal/state"
)

func openTestStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewGraphRejectsUnregisteredStartNode(t *testing.T) {
	_, err := NewGraph(Declaration{
		Name:      "bad",
		StartNode: "missing",
		Nodes:     map[string]NodeFunc{},
	})
	assert.Error(t, err)
}

func TestRunFollowsFixedEdgesToCompletion(t *testing.T) {
	graph, err := NewGraph(Declaration{
		Name:      "linear",
		StartNode: "a",
		MaxIters:  10,
		Nodes: map[string]NodeFunc{
			"a": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().SetExtra("visited_a", true), nil
			},
			"b": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().Set("Done", true), nil
			},
		},
		Edges: map[string]string{"a": "b"},
	})
	require.NoError(t, err)

	app := NewApp(graph, openTestStore(t))
	final, err := app.Run(context.Background(), "thread-1", state.WorkflowState{Extra: map[string]interface{}{}})
	require.NoError(t, err)
	assert.True(t, final.Done)
	assert.True(t, final.Extra["visited_a"].(bool))
}

func TestRunUsesRouterOverFixedEdge(t *testing.T) {
	graph, err := NewGraph(Declaration{
		Name:      "routed",
		StartNode: "gate",
		MaxIters:  10,
		Nodes: map[string]NodeFunc{
			"gate": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().Set("Approved", true), nil
			},
			"fallback": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().Set("Done", true), nil
			},
			"accepted": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().Set("Done", true), nil
			},
		},
		Edges: map[string]string{"gate": "fallback"},
		Routers: map[string]Router{
			"gate": func(st state.WorkflowState) string {
				if st.Approved {
					return "accepted"
				}
				return "fallback"
			},
		},
	})
	require.NoError(t, err)

	app := NewApp(graph, openTestStore(t))
	final, err := app.Run(context.Background(), "thread-2", state.WorkflowState{})
	require.NoError(t, err)
	assert.Equal(t, "accepted", final.Node)
}

func TestRunReturnsErrMaxIterations(t *testing.T) {
	graph, err := NewGraph(Declaration{
		Name:      "loop",
		StartNode: "spin",
		MaxIters:  3,
		Nodes: map[string]NodeFunc{
			"spin": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch(), nil
			},
		},
		Edges: map[string]string{"spin": "spin"},
	})
	require.NoError(t, err)

	app := NewApp(graph, openTestStore(t))
	_, err = app.Run(context.Background(), "thread-3", state.WorkflowState{})
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestRunPropagatesNodeError(t *testing.T) {
	graph, err := NewGraph(Declaration{
		Name:      "failing",
		StartNode: "boom",
		MaxIters:  5,
		Nodes: map[string]NodeFunc{
			"boom": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return nil, assertErr{}
			},
		},
	})
	require.NoError(t, err)

	app := NewApp(graph, openTestStore(t))
	final, err := app.Run(context.Background(), "thread-4", state.WorkflowState{})
	require.Error(t, err)
	assert.Len(t, final.Errors, 1)
}

func TestRunResumesFromMidGraphNode(t *testing.T) {
	graph, err := NewGraph(Declaration{
		Name:      "resume",
		StartNode: "a",
		MaxIters:  10,
		Nodes: map[string]NodeFunc{
			"a": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().SetExtra("ran_a", true), nil
			},
			"b": func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
				return state.NewPatch().Set("Done", true), nil
			},
		},
		Edges: map[string]string{"a": "b"},
	})
	require.NoError(t, err)

	app := NewApp(graph, openTestStore(t))
	resumed := state.WorkflowState{Node: "b", Extra: map[string]interface{}{}}
	final, err := app.Run(context.Background(), "thread-5", resumed)
	require.NoError(t, err)
	assert.True(t, final.Done)
	assert.Nil(t, final.Extra["ran_a"], "node a must not have run when resuming at b")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
