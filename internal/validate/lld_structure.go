package validate

import (
	"regexp"
	"strings"
)

// requiredLLDSections are the markdown section headers a low-level design
// document must contain, in any order, each with non-trivial content.
var requiredLLDSections = []string{
	"## 1. Overview",
	"## 2. File Changes",
	"## 3. Requirements",
	"## 4. Interfaces",
	"## 5. Testing Strategy",
}

// minSectionBodyLen is the shortest a section body can be before it's
// flagged as a stub rather than real content.
const minSectionBodyLen = 20

var fileChangeRow = regexp.MustCompile(`^\|\s*[^|]+\s*\|\s*(add|modify|delete)\s*\|`)

// disallowedPathPrefixes are path roots a file-change table must never
// reference, mirroring the original's LLD path-enforcement policy.
var disallowedPathPrefixes = []string{"/etc/", "/usr/", "../"}

// CheckLLDStructure validates that draft has every required section with
// real content, a well-formed file-change table, and no disallowed paths.
func CheckLLDStructure(draft string) []Violation {
	var violations []Violation

	for _, header := range requiredLLDSections {
		body := section(draft, strings.TrimSuffix(header, " "))
		trimmed := strings.TrimSpace(body)
		if trimmed == "" {
			violations = append(violations, Violation{
				Severity:  "error",
				CheckType: "lld_structure",
				Message:   header + " is missing",
			})
			continue
		}
		if len(trimmed) < minSectionBodyLen {
			violations = append(violations, Violation{
				Severity:  "warning",
				CheckType: "lld_structure",
				Message:   header + " has suspiciously little content",
			})
		}
	}

	violations = append(violations, checkFileChangeTable(draft)...)
	violations = append(violations, checkPathPolicy(draft)...)

	return violations
}

func checkFileChangeTable(draft string) []Violation {
	body := section(draft, "## 2. File Changes")
	lines := strings.Split(body, "\n")

	rows := 0
	for _, line := range lines {
		if fileChangeRow.MatchString(strings.TrimSpace(line)) {
			rows++
		}
	}
	if rows == 0 {
		return []Violation{{
			Severity:  "error",
			CheckType: "file_change_table",
			Message:   "File Changes section has no rows matching `| path | add|modify|delete |`",
		}}
	}
	return nil
}

func checkPathPolicy(draft string) []Violation {
	var violations []Violation
	lower := strings.ToLower(draft)
	for _, prefix := range disallowedPathPrefixes {
		if strings.Contains(lower, prefix) {
			violations = append(violations, Violation{
				Severity:  "error",
				CheckType: "path_policy",
				Message:   "draft references a disallowed path root: " + prefix,
			})
		}
	}
	return violations
}
