// Package issue wires the brief → issue workflow graph: generate a draft
// issue, have a second model review it, run mechanical coverage checks,
// then pause for human sign-off before filing. Grounded on the routing
// structure documented in the original requirements workflow's graph.py.
package issue

import (
	"github.com/aldermoor/governor/internal/audit"
	"github.com/aldermoor/governor/internal/engine"
	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/nodes"
	"github.com/aldermoor/governor/internal/state"
)

// Deps bundles everything the issue graph needs to run: the generator and
// reviewer adapters, a human-gate resolver, and a filing destination.
type Deps struct {
	Generator llm.Adapter
	Reviewer  llm.Adapter
	Resolve   nodes.HumanGateResolver
	Dirs      audit.Dirs
	RepoRoot  string
	Slug      string
	MaxIters  int
}

const draftSystemPrompt = "You draft governance issues from an engineering brief. Produce a complete, well-structured issue."

func buildDraftPrompt(st state.WorkflowState) (string, string) {
	brief, _ := st.Extra["brief"].(string)
	if st.ReviewNote != "" {
		return draftSystemPrompt, brief + "\n\nRevise the previous draft per this feedback:\n" + st.ReviewNote + "\n\nPrevious draft:\n" + st.Draft
	}
	return draftSystemPrompt, brief
}

const reviewSystemPrompt = "Review this draft issue for completeness and clarity. Reply with APPROVED if it's ready, otherwise explain what's missing."

func buildReviewPrompt(st state.WorkflowState) (string, string) {
	return reviewSystemPrompt, st.Draft
}

// fixedSteps is the number of node executions a single clean pass through
// the issue graph takes with no revisions: load_input, generate_draft,
// review, validate_mechanical, human_gate, finalize.
const fixedSteps = 6

// New assembles the issue Declaration. MaxIters bounds the number of
// generate/review/validate/human-gate revision cycles, mirroring the
// original's max_issue_iterations; the engine's own iteration counter
// tracks total node executions, so the configured cap is converted to a
// step budget that also covers the graph's fixed, non-looping steps.
func New(d Deps) (*engine.Graph, error) {
	revisionCap := d.MaxIters
	if revisionCap <= 0 {
		revisionCap = 5
	}
	maxIters := fixedSteps + revisionCap*4

	decl := engine.Declaration{
		Name:      "issue",
		StartNode: "load_input",
		MaxIters:  maxIters,
		Nodes: map[string]engine.NodeFunc{
			"load_input":           nodes.LoadInput,
			"generate_draft":       nodes.GenerateDraft(d.Generator, buildDraftPrompt),
			"review":               nodes.Review(d.Reviewer, buildReviewPrompt),
			"validate_mechanical":  nodes.ValidateMechanical,
			"human_gate":           nodes.HumanGate(d.Resolve),
			"finalize":             nodes.Finalize(d.Dirs, d.RepoRoot, d.Slug, "issue.md"),
		},
		Edges: map[string]string{
			"load_input": "generate_draft",
		},
		Routers: map[string]engine.Router{
			"generate_draft": func(st state.WorkflowState) string { return "review" },
			"review": func(st state.WorkflowState) string {
				if st.Approved {
					return "validate_mechanical"
				}
				return "generate_draft"
			},
			"validate_mechanical": func(st state.WorkflowState) string {
				if st.Approved {
					return "human_gate"
				}
				return "generate_draft"
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
