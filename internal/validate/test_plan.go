package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxValidationAttempts bounds how many times a test plan can be sent back
// for revision before the workflow escalates to a human, mirroring the
// original's MAX_VALIDATION_ATTEMPTS.
const MaxValidationAttempts = 3

// vagueAssertionPatterns flag assertions that don't actually assert
// anything concrete (pattern matched against test-plan prose, not code).
var vagueAssertionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)verify (it|this) works`),
	regexp.MustCompile(`(?i)check (that )?(things? are|everything is) (correct|fine|good)`),
	regexp.MustCompile(`(?i)assert(s)? (no errors?|success)\b`),
	regexp.MustCompile(`(?i)should work( correctly)?$`),
}

// humanDelegationPatterns flag a test plan trying to push verification onto
// a human reviewer instead of specifying an automated check.
var humanDelegationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)manually (verify|check|confirm)`),
	regexp.MustCompile(`(?i)(QA|reviewer) (will|should) (verify|confirm)`),
	regexp.MustCompile(`(?i)ask (a|the) human`),
}

// TestPlanResult is the outcome of validating a draft test plan, layering
// requirement coverage on top of prose-quality heuristics.
type TestPlanResult struct {
	Coverage   CoverageResult
	Violations []Violation
	Attempt    int
	Escalate   bool
}

// CheckTestPlan validates a test-plan draft against brief, tracking attempt
// (1-indexed) to decide whether to escalate once MaxValidationAttempts is
// reached.
func CheckTestPlan(brief, draft string, attempt int) TestPlanResult {
	coverage := CheckCoverage(brief, draft)

	var violations []Violation
	violations = append(violations, coverage.Violations...)

	for _, pattern := range vagueAssertionPatterns {
		if pattern.MatchString(draft) {
			violations = append(violations, Violation{
				Severity:  "warning",
				CheckType: "vague_assertion",
				Message:   fmt.Sprintf("test plan contains a vague assertion matching %q", pattern.String()),
			})
		}
	}

	for _, pattern := range humanDelegationPatterns {
		if pattern.MatchString(draft) {
			violations = append(violations, Violation{
				Severity:  "error",
				CheckType: "human_delegation",
				Message:   "test plan delegates verification to a human instead of specifying an automated check",
			})
		}
	}

	return TestPlanResult{
		Coverage:   coverage,
		Violations: violations,
		Attempt:    attempt,
		Escalate:   attempt >= MaxValidationAttempts && hasError(violations),
	}
}

func hasError(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == "error" {
			return true
		}
	}
	return false
}

// BuildFeedback renders violations into prose suitable for feeding back to
// an LLM as revision instructions, grounded on the original's
// _build_validation_feedback.
func BuildFeedback(result TestPlanResult) string {
	if len(result.Violations) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Test plan validation attempt %d/%d found %d issue(s):\n",
		result.Attempt, MaxValidationAttempts, len(result.Violations))
	for _, v := range result.Violations {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", v.Severity, v.CheckType, v.Message)
	}
	fmt.Fprintf(&b, "\nRequirement coverage: %.1f%% (%d/%d requirements mapped).\n",
		result.Coverage.CoveragePercentage, result.Coverage.MappedCount, result.Coverage.RequirementsCount)
	if result.Escalate {
		b.WriteString("\nEscalating to human review: automated revision attempts exhausted.\n")
	}
	return b.String()
}
