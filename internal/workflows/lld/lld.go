// Package lld wires the issue → low-level-design workflow graph: analyze
// the target codebase, generate an LLD draft, review it, validate its
// structure and requirement coverage, then pause for human sign-off before
// filing. This graph allows more iterations than issue/testing (default
// 20) since LLD revision cycles tend to run longer.
package lld

import (
	"github.com/aldermoor/governor/internal/audit"
	"github.com/aldermoor/governor/internal/engine"
	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/nodes"
	"github.com/aldermoor/governor/internal/state"
)

// Deps bundles everything the lld graph needs.
type Deps struct {
	Generator llm.Adapter
	Reviewer  llm.Adapter
	Analyzer  nodes.CodebaseAnalyzer
	Resolve   nodes.HumanGateResolver
	Dirs      audit.Dirs
	RepoRoot  string
	Slug      string
	MaxIters  int
}

const draftSystemPrompt = "You draft low-level designs from an approved issue and a codebase summary. Produce a complete, internally consistent design."

func buildDraftPrompt(st state.WorkflowState) (string, string) {
	brief, _ := st.Extra["brief"].(string)
	summary, _ := st.Extra["codebase_summary"].(string)
	content := brief + "\n\nCodebase summary:\n" + summary
	if st.ReviewNote != "" {
		content += "\n\nRevise the previous draft per this feedback:\n" + st.ReviewNote + "\n\nPrevious draft:\n" + st.Draft
	}
	return draftSystemPrompt, content
}

const reviewSystemPrompt = "Review this low-level design for internal consistency. Reply with APPROVED if it's ready, otherwise explain what's missing."

func buildReviewPrompt(st state.WorkflowState) (string, string) {
	return reviewSystemPrompt, st.Draft
}

// fixedSteps is the number of node executions a single clean pass through
// the lld graph takes with no revisions: load_input, analyze_codebase,
// generate_draft, review, validate_mechanical, human_gate, finalize.
const fixedSteps = 7

// New assembles the lld Declaration. MaxIters bounds the number of
// generate/review/validate/human-gate revision cycles (see issue.New for
// why the engine's step budget differs from this cap).
func New(d Deps) (*engine.Graph, error) {
	revisionCap := d.MaxIters
	if revisionCap <= 0 {
		revisionCap = 20
	}
	maxIters := fixedSteps + revisionCap*4

	decl := engine.Declaration{
		Name:      "lld",
		StartNode: "load_input",
		MaxIters:  maxIters,
		Nodes: map[string]engine.NodeFunc{
			"load_input":          nodes.LoadInput,
			"analyze_codebase":    nodes.AnalyzeCodebase(d.Analyzer),
			"generate_draft":      nodes.GenerateDraft(d.Generator, buildDraftPrompt),
			"review":              nodes.Review(d.Reviewer, buildReviewPrompt),
			"validate_mechanical": nodes.ValidateMechanical,
			"human_gate":          nodes.HumanGate(d.Resolve),
			"finalize":            nodes.Finalize(d.Dirs, d.RepoRoot, d.Slug, "lld.md"),
		},
		Edges: map[string]string{
			"load_input":       "analyze_codebase",
			"analyze_codebase": "generate_draft",
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
