// Package testing wires the implementation-spec → tests workflow graph:
// generate a test plan, validate it mechanically with escalation after
// MaxValidationAttempts, then run the completeness gate over the resulting
// implementation before filing. Capped at 3 iterations by default, tighter
// than issue/lld, since this graph runs late in the pipeline against an
// already-reviewed design.
package testing

import (
	"github.com/aldermoor/governor/internal/audit"
	"github.com/aldermoor/governor/internal/engine"
	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/nodes"
	"github.com/aldermoor/governor/internal/state"
	"github.com/aldermoor/governor/internal/validate"
)

// Deps bundles everything the testing graph needs.
type Deps struct {
	Generator    llm.Adapter
	LoadSources  nodes.SourceLoader
	Resolve      nodes.HumanGateResolver
	Dirs         audit.Dirs
	RepoRoot     string
	Slug         string
	MaxIters     int
}

const draftSystemPrompt = "You draft test plans from an implementation spec. Produce a complete, mechanically checkable test plan."

func buildDraftPrompt(st state.WorkflowState) (string, string) {
	brief, _ := st.Extra["brief"].(string)
	if st.ReviewNote != "" {
		return draftSystemPrompt, brief + "\n\nRevise the previous test plan per this feedback:\n" + st.ReviewNote + "\n\nPrevious draft:\n" + st.Draft
	}
	return draftSystemPrompt, brief
}

// fixedSteps is the number of non-revision node executions budgeted for one
// pass through the testing graph: load_input, generate_draft,
// validate_test_plan, completeness_gate, human_gate (reached only when the
// completeness gate escalates) and finalize.
const fixedSteps = 6

// New assembles the testing Declaration. MaxIters bounds the number of
// generate/validate revision cycles (see issue.New for why the engine's
// step budget differs from this cap).
func New(d Deps) (*engine.Graph, error) {
	revisionCap := d.MaxIters
	if revisionCap <= 0 {
		revisionCap = 3
	}
	maxIters := fixedSteps + revisionCap*4

	decl := engine.Declaration{
		Name:      "testing",
		StartNode: "load_input",
		MaxIters:  maxIters,
		Nodes: map[string]engine.NodeFunc{
			"load_input":         nodes.LoadInput,
			"generate_draft":     nodes.GenerateDraft(d.Generator, buildDraftPrompt),
			"validate_test_plan": nodes.ValidateTestPlan,
			"completeness_gate":  nodes.CompletenessGate(d.LoadSources),
			"human_gate":         nodes.HumanGate(d.Resolve),
			"finalize":           nodes.Finalize(d.Dirs, d.RepoRoot, d.Slug, "test-plan.md"),
		},
		Edges: map[string]string{
			"load_input": "generate_draft",
		},
		Routers: map[string]engine.Router{
			"generate_draft": func(st state.WorkflowState) string { return "validate_test_plan" },
			"validate_test_plan": func(st state.WorkflowState) string {
				if result, ok := st.Extra["test_plan_result"].(validate.TestPlanResult); ok && result.Escalate {
					return "human_gate"
				}
				if st.Approved {
					return "completeness_gate"
				}
				return "generate_draft"
			},
			"completeness_gate": func(st state.WorkflowState) string {
				if st.Approved {
					return "finalize"
				}
				return "human_gate"
			},
			"human_gate": func(st state.WorkflowState) string {
				if st.Approved {
					return "finalize"
				}
				return "generate_draft"
			},
		},
	}

	return engine.NewGraph(decl)
}
