// Package nodes implements the reusable node library shared across the
// issue, lld and testing workflow graphs: loading input, analyzing the
// target codebase, generating and reviewing drafts with an LLM adapter,
// pausing for human approval, running the mechanical validators, and
// filing the finished artifact. Grounded node-by-node on the corresponding
// workflow node files in the original implementation this spec was
// distilled from (load_lld.py, analyze_codebase.py, generate_spec.py,
// human_gate.py, validate_test_plan.py, completeness_gate.py), expressed
// in the engine's pure-function node shape.
package nodes

import (
	"context"
	"fmt"
	"os"

	"github.com/aldermoor/governor/internal/audit"
	"github.com/aldermoor/governor/internal/completeness"
	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/state"
	"github.com/aldermoor/governor/internal/validate"
)

// LoadInput reads the brief from a file path carried in st.Extra["input_path"]
// into st.Extra["brief"].
func LoadInput(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	path, _ := st.Extra["input_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("nodes: LoadInput: no input_path in state")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nodes: LoadInput: reading %s: %w", path, err)
	}

	patch := state.NewPatch()
	patch.SetExtra("brief", string(raw))
	patch.Set("Node", "load_input")
	return patch, nil
}

// CodebaseAnalyzer summarizes a target directory for inclusion in a
// generation prompt. Implementations may shell out to a file-gathering
// tool; tests can use a canned summary.
type CodebaseAnalyzer func(ctx context.Context, path string) (string, error)

// AnalyzeCodebase builds a codebase summary using analyzer and stores it in
// st.Extra["codebase_summary"].
func AnalyzeCodebase(analyzer CodebaseAnalyzer) func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	return func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
		path, _ := st.Extra["codebase_path"].(string)
		summary, err := analyzer(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("nodes: AnalyzeCodebase: %w", err)
		}
		patch := state.NewPatch()
		patch.SetExtra("codebase_summary", summary)
		patch.Set("Node", "analyze_codebase")
		return patch, nil
	}
}

// PromptBuilder renders the draft-generation system prompt and user content
// from the current state. The two are kept distinct end to end: adapters
// deliver them over separate channels (stdin vs CLI flags, a messages API's
// content array vs its system field).
type PromptBuilder func(st state.WorkflowState) (systemPrompt, content string)

// GenerateDraft calls adapter with a built prompt and stores the response in
// st.Draft.
func GenerateDraft(adapter llm.Adapter, buildPrompt PromptBuilder) func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	return func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
		systemPrompt, content := buildPrompt(st)
		result, err := adapter.Invoke(ctx, systemPrompt, content)
		if err != nil {
			return nil, fmt.Errorf("nodes: GenerateDraft: %w", err)
		}
		patch := state.NewPatch()
		patch.Set("Draft", result.Content)
		patch.SetExtra("last_call", result)
		patch.Set("Node", "generate_draft")
		return patch, nil
	}
}

// ReviewPromptBuilder renders a review system prompt and user content asking
// a second model to critique st.Draft.
type ReviewPromptBuilder func(st state.WorkflowState) (systemPrompt, content string)

// Review calls adapter to critique the current draft, storing the verdict
// in st.ReviewNote and setting st.Approved based on whether the verdict
// contains an explicit approval marker.
func Review(adapter llm.Adapter, buildPrompt ReviewPromptBuilder) func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	return func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
		systemPrompt, content := buildPrompt(st)
		result, err := adapter.Invoke(ctx, systemPrompt, content)
		if err != nil {
			return nil, fmt.Errorf("nodes: Review: %w", err)
		}
		patch := state.NewPatch()
		patch.Set("ReviewNote", result.Content)
		patch.Set("Approved", containsApproval(result.Content))
		patch.Set("Node", "review")
		return patch, nil
	}
}

func containsApproval(text string) bool {
	const marker = "APPROVED"
	for i := 0; i+len(marker) <= len(text); i++ {
		if text[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

// HumanGateDecision is supplied by the caller (CLI prompt, webhook, etc.)
// once a human has reviewed the paused draft.
type HumanGateDecision struct {
	Approved bool
	Feedback string
}

// HumanGateResolver blocks until a human renders a decision on the draft in
// st. A CLI implementation might prompt on stdin; a server implementation
// might poll a queue.
type HumanGateResolver func(ctx context.Context, st state.WorkflowState) (HumanGateDecision, error)

// HumanGate pauses the graph for a human decision, mirroring the original's
// human_gate.py. On rejection, it clears Approved and replaces ReviewNote
// with the human's feedback so the next GenerateDraft call sees it.
func HumanGate(resolve HumanGateResolver) func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	return func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
		decision, err := resolve(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("nodes: HumanGate: %w", err)
		}
		patch := state.NewPatch()
		patch.Set("Approved", decision.Approved)
		if !decision.Approved && decision.Feedback != "" {
			patch.Set("ReviewNote", decision.Feedback)
		}
		patch.Set("Node", "human_gate")
		return patch, nil
	}
}

// ValidateMechanical runs the requirement-coverage and LLD structural
// validators against the current draft, stashing violations in
// st.Extra["violations"] for the router to inspect.
func ValidateMechanical(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	brief, _ := st.Extra["brief"].(string)

	coverage := validate.CheckCoverage(brief, st.Draft)
	structural := validate.CheckLLDStructure(st.Draft)

	violations := append(append([]validate.Violation{}, coverage.Violations...), structural...)

	patch := state.NewPatch()
	patch.SetExtra("violations", violations)
	patch.SetExtra("coverage", coverage)
	patch.Set("Approved", len(violations) == 0)
	patch.Set("Node", "validate_mechanical")
	return patch, nil
}

// ValidateTestPlan runs the test-plan validator, tracking attempt count in
// st.Extra["validation_attempt"] to drive escalation.
func ValidateTestPlan(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	brief, _ := st.Extra["brief"].(string)
	attempt, _ := st.Extra["validation_attempt"].(int)
	attempt++

	result := validate.CheckTestPlan(brief, st.Draft, attempt)

	patch := state.NewPatch()
	patch.SetExtra("validation_attempt", attempt)
	patch.SetExtra("test_plan_result", result)
	patch.Set("ReviewNote", validate.BuildFeedback(result))
	patch.Set("Approved", len(result.Violations) == 0)
	patch.Set("Node", "validate_test_plan")
	return patch, nil
}

// SourceLoader resolves the set of implementation files a completeness gate
// should analyze.
type SourceLoader func(ctx context.Context, st state.WorkflowState) (map[string]string, error)

// CompletenessGate runs the five-detector completeness analysis over the
// files returned by load, storing the report in st.Extra["completeness"].
func CompletenessGate(load SourceLoader) func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	return func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
		files, err := load(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("nodes: CompletenessGate: loading sources: %w", err)
		}

		report, err := completeness.Analyze(ctx, files, completeness.DefaultDetectors, 4)
		if err != nil {
			return nil, fmt.Errorf("nodes: CompletenessGate: %w", err)
		}

		patch := state.NewPatch()
		patch.SetExtra("completeness", report)
		patch.Set("Approved", report.Overall != completeness.SeverityBlock)
		patch.Set("Node", "completeness_gate")
		return patch, nil
	}
}

// Finalize files the approved draft into dirs' active directory and marks
// the workflow done.
func Finalize(dirs audit.Dirs, repoRoot, slug, suffix string) func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
	return func(ctx context.Context, st state.WorkflowState) (*state.Patch, error) {
		meta, err := dirs.SaveAuditFile(repoRoot, slug, suffix, []byte(st.Draft))
		if err != nil {
			return nil, fmt.Errorf("nodes: Finalize: %w", err)
		}
		patch := state.NewPatch()
		patch.SetExtra("filed", meta)
		patch.Set("Done", true)
		patch.Set("Node", "finalize")
		return patch, nil
	}
}
