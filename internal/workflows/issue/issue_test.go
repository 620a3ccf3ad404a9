package issue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldermoor/governor/internal/audit"
	"github.com/aldermoor/governor/internal/checkpoint"
	"github.com/aldermoor/governor/internal/engine"
	"github.com/aldermoor/governor/internal/llm/mockadapter"
	"github.com/aldermoor/governor/internal/nodes"
	"github.com/aldermoor/governor/internal/state"
)

func TestIssueWorkflowApprovesOnFirstPass(t *testing.T) {
	briefPath := filepath.Join(t.TempDir(), "brief.md")
	require.NoError(t, os.WriteFile(briefPath, []byte("## 3. Requirements\nREQ-1: rotate credentials"), 0o644))

	dirs := audit.Dirs{Root: t.TempDir()}
	require.NoError(t, dirs.EnsureDirectories())

	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	defer store.Close()

	approvedDraft := "## 1. Overview\nRotate credentials on quota exhaustion.\n\n" +
		"## 2. File Changes\n| internal/credential/rotator.go | add |\n\n" +
		"## 3. Requirements\nCovers REQ-1 end to end.\n\n" +
		"## 4. Interfaces\ntype Rotator struct { Set *Set }\n\n" +
		"## 5. Testing Strategy\nUnit tests cover rotation and backoff paths.\n" +
		"## 10. Requirement Coverage\nREQ-1 addressed."
	generator := mockadapter.New("cli-provider", "provider:model-a", approvedDraft)
	reviewer := mockadapter.New("cli-provider", "provider:model-b", "Looks good. APPROVED")

	graph, err := New(Deps{
		Generator: generator,
		Reviewer:  reviewer,
		Resolve: func(ctx context.Context, st state.WorkflowState) (nodes.HumanGateDecision, error) {
			return nodes.HumanGateDecision{Approved: true}, nil
		},
		Dirs:     dirs,
		RepoRoot: t.TempDir(),
		Slug:     "rotate-credentials",
	})
	require.NoError(t, err)

	app := engine.NewApp(graph, store)
	final, err := app.Run(context.Background(), "thread-issue-1", state.WorkflowState{
		Extra: map[string]interface{}{"input_path": briefPath},
	})
	require.NoError(t, err)
	assert.True(t, final.Done)

	meta := final.Extra["filed"]
	require.NotNil(t, meta)
}

func TestIssueWorkflowLoopsOnRejectionThenApproves(t *testing.T) {
	briefPath := filepath.Join(t.TempDir(), "brief.md")
	require.NoError(t, os.WriteFile(briefPath, []byte("## 3. Requirements\nREQ-1: rotate credentials"), 0o644))

	dirs := audit.Dirs{Root: t.TempDir()}
	require.NoError(t, dirs.EnsureDirectories())

	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	defer store.Close()

	draftBody := func(label string) string {
		return "## 1. Overview\n" + label + ": rotate credentials on quota exhaustion.\n\n" +
			"## 2. File Changes\n| internal/credential/rotator.go | add |\n\n" +
			"## 3. Requirements\nCovers REQ-1 end to end.\n\n" +
			"## 4. Interfaces\ntype Rotator struct { Set *Set }\n\n" +
			"## 5. Testing Strategy\nUnit tests cover rotation and backoff paths.\n" +
			"## 10. Requirement Coverage\nREQ-1 addressed."
	}
	generator := mockadapter.New("cli-provider", "provider:model-a", draftBody("first draft"), draftBody("revised draft"))
	reviewer := mockadapter.New("cli-provider", "provider:model-b", "needs work, not ready", "APPROVED")

	graph, err := New(Deps{
		Generator: generator,
		Reviewer:  reviewer,
		Resolve: func(ctx context.Context, st state.WorkflowState) (nodes.HumanGateDecision, error) {
			return nodes.HumanGateDecision{Approved: true}, nil
		},
		Dirs:     dirs,
		RepoRoot: t.TempDir(),
		Slug:     "rotate-credentials",
	})
	require.NoError(t, err)

	app := engine.NewApp(graph, store)
	final, err := app.Run(context.Background(), "thread-issue-2", state.WorkflowState{
		Extra: map[string]interface{}{"input_path": briefPath},
	})
	require.NoError(t, err)
	assert.True(t, final.Done)
	assert.Contains(t, final.Draft, "revised draft")
	assert.Equal(t, 2, generator.Calls())
}
