// Package validate implements the mechanical validators that gate draft
// artifacts before they're handed back to an LLM for revision or filed as
// done: requirement-coverage cross-referencing, LLD structural checks, and
// test-plan quality heuristics. Grounded on validate_test_plan.py in the
// original implementation this spec was distilled from.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// reqIDPattern matches REQ-N and REQ-N.M style requirement identifiers.
var reqIDPattern = regexp.MustCompile(`REQ-\d+(?:\.\d+)?`)

// Violation is one coverage or structural defect found in a draft.
type Violation struct {
	Severity  string `json:"severity"` // "error" or "warning"
	CheckType string `json:"check_type"`
	Message   string `json:"message"`
}

// CoverageResult is the outcome of cross-referencing requirement ids found
// in a brief's Section 3 against the ones addressed in a draft's Section 10.
type CoverageResult struct {
	CoveragePercentage float64     `json:"coverage_percentage"`
	MappedCount        int         `json:"mapped_count"`
	RequirementsCount  int         `json:"requirements_count"`
	Violations         []Violation `json:"violations"`
}

// ExtractRequirementIDs returns the unique, ordered set of REQ-N / REQ-N.M
// identifiers found in text.
func ExtractRequirementIDs(text string) []string {
	matches := reqIDPattern.FindAllString(text, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// section extracts the body of a markdown section named by header (e.g.
// "## 3." ) up to the next "## " header or end of text.
func section(text, header string) string {
	idx := strings.Index(text, header)
	if idx == -1 {
		return ""
	}
	rest := text[idx+len(header):]
	if next := strings.Index(rest, "\n## "); next != -1 {
		rest = rest[:next]
	}
	return rest
}

// CheckCoverage cross-references requirement ids declared in the brief's
// Section 3 ("Requirements") against the ones the draft's Section 10
// ("Requirement Coverage") claims to address.
func CheckCoverage(brief, draft string) CoverageResult {
	required := ExtractRequirementIDs(section(brief, "## 3."))
	if len(required) == 0 {
		required = ExtractRequirementIDs(brief)
	}
	addressedSection := section(draft, "## 10.")
	if addressedSection == "" {
		addressedSection = draft
	}
	addressed := map[string]bool{}
	for _, id := range ExtractRequirementIDs(addressedSection) {
		addressed[id] = true
	}

	var violations []Violation
	mapped := 0
	for _, id := range required {
		if addressed[id] {
			mapped++
			continue
		}
		violations = append(violations, Violation{
			Severity:  "error",
			CheckType: "requirement_coverage",
			Message:   fmt.Sprintf("%s is not addressed in Section 10", id),
		})
	}

	pct := 100.0
	if len(required) > 0 {
		pct = float64(mapped) / float64(len(required)) * 100.0
	}

	return CoverageResult{
		CoveragePercentage: pct,
		MappedCount:        mapped,
		RequirementsCount:  len(required),
		Violations:         violations,
	}
}
