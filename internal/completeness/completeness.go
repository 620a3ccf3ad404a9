// Package completeness implements the five-detector completeness gate run
// over a set of implementation source files before a testing workflow can
// finalize: dead CLI flags, empty branches, docstring-only functions,
// trivial assertions, and unused imports. Grounded on the original's
// pattern_scanner.py / completeness_gate.py (regex/AST-walk structure).
package completeness

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Severity is the aggregation outcome of a detector finding.
type Severity string

const (
	SeverityBlock Severity = "BLOCK"
	SeverityWarn  Severity = "WARN"
	SeverityPass  Severity = "PASS"
)

// Finding is one detector hit in one file.
type Finding struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Detector string   `json:"detector"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Detector inspects one file's source text and returns its findings.
type Detector func(file, source string) []Finding

// DefaultDetectors is the full five-detector set the completeness gate runs.
var DefaultDetectors = []Detector{
	DetectDeadCLIFlag,
	DetectEmptyBranch,
	DetectDocstringOnlyFunction,
	DetectTrivialAssertion,
	DetectUnusedImport,
}

// Report aggregates findings across every analyzed file.
type Report struct {
	Findings []Finding
	Overall  Severity
}

// Analyze runs detectors over files concurrently (bounded by maxConcurrency)
// and aggregates results: any BLOCK finding makes the overall result BLOCK,
// otherwise any WARN makes it WARN, otherwise PASS. Detectors return no
// errors; Analyze fails only when ctx is cancelled.
func Analyze(ctx context.Context, files map[string]string, detectors []Detector, maxConcurrency int) (Report, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	type fileResult struct {
		findings []Finding
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	results := make([]fileResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var findings []Finding
			for _, detect := range detectors {
				findings = append(findings, detect(name, files[name])...)
			}
			results[i] = fileResult{findings: findings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("completeness: analyzing files: %w", err)
	}

	var all []Finding
	overall := SeverityPass
	for _, r := range results {
		all = append(all, r.findings...)
		for _, f := range r.findings {
			if f.Severity == SeverityBlock {
				overall = SeverityBlock
			} else if f.Severity == SeverityWarn && overall != SeverityBlock {
				overall = SeverityWarn
			}
		}
	}

	return Report{Findings: all, Overall: overall}, nil
}

var (
	flagDefRe  = regexp.MustCompile(`add_argument\(["']--([\w-]+)["']`)
	flagUseRe  = regexp.MustCompile(`args\.(\w+)`)
	emptyBranchRe = regexp.MustCompile(`(?m)^\s*(if|else|elif).*:\s*\n\s*pass\s*$`)
	docstringOnlyRe = regexp.MustCompile(`(?ms)^def (\w+)\([^)]*\):\s*\n\s*"""[^"]*"""\s*\n(\s*pass\s*)?$`)
	trivialAssertRe = regexp.MustCompile(`(?m)^\s*assert True\s*$`)
	importRe   = regexp.MustCompile(`(?m)^import (\w+)$|^from [\w.]+ import (\w+)$`)
)

// DetectDeadCLIFlag flags argparse flags that are defined but never read
// from the parsed args namespace.
func DetectDeadCLIFlag(file, source string) []Finding {
	defs := flagDefRe.FindAllStringSubmatch(source, -1)
	if len(defs) == 0 {
		return nil
	}
	used := map[string]bool{}
	for _, m := range flagUseRe.FindAllStringSubmatch(source, -1) {
		used[m[1]] = true
	}

	var findings []Finding
	for _, m := range defs {
		flagName := strings.ReplaceAll(m[1], "-", "_")
		if !used[flagName] {
			findings = append(findings, Finding{
				File: file, Detector: "dead_cli_flag", Severity: SeverityWarn,
				Message: fmt.Sprintf("flag --%s is defined but never read from args", m[1]),
			})
		}
	}
	return findings
}

// DetectEmptyBranch flags if/elif/else branches whose entire body is `pass`.
func DetectEmptyBranch(file, source string) []Finding {
	matches := emptyBranchRe.FindAllStringIndex(source, -1)
	var findings []Finding
	for _, m := range matches {
		line := 1 + strings.Count(source[:m[0]], "\n")
		findings = append(findings, Finding{
			File: file, Line: line, Detector: "empty_branch", Severity: SeverityBlock,
			Message: "branch body is only `pass`",
		})
	}
	return findings
}

// DetectDocstringOnlyFunction flags a function whose body is nothing but a
// docstring (optionally followed by a bare `pass`) — a stub masquerading as
// an implementation.
func DetectDocstringOnlyFunction(file, source string) []Finding {
	matches := docstringOnlyRe.FindAllStringSubmatchIndex(source, -1)
	var findings []Finding
	for _, m := range matches {
		line := 1 + strings.Count(source[:m[0]], "\n")
		name := source[m[2]:m[3]]
		findings = append(findings, Finding{
			File: file, Line: line, Detector: "docstring_only_function", Severity: SeverityBlock,
			Message: fmt.Sprintf("function %q has no implementation beyond its docstring", name),
		})
	}
	return findings
}

// DetectTrivialAssertion flags `assert True` style assertions that can
// never fail.
func DetectTrivialAssertion(file, source string) []Finding {
	matches := trivialAssertRe.FindAllStringIndex(source, -1)
	var findings []Finding
	for _, m := range matches {
		line := 1 + strings.Count(source[:m[0]], "\n")
		findings = append(findings, Finding{
			File: file, Line: line, Detector: "trivial_assertion", Severity: SeverityBlock,
			Message: "assert True can never fail",
		})
	}
	return findings
}

// DetectUnusedImport flags a top-level import whose bound name never
// appears again in the file body.
func DetectUnusedImport(file, source string) []Finding {
	var findings []Finding
	for _, m := range importRe.FindAllStringSubmatchIndex(source, -1) {
		name := ""
		if m[2] != -1 {
			name = source[m[2]:m[3]]
		} else if m[4] != -1 {
			name = source[m[4]:m[5]]
		}
		if name == "" {
			continue
		}
		rest := source[m[1]:]
		if !regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(rest) {
			line := 1 + strings.Count(source[:m[0]], "\n")
			findings = append(findings, Finding{
				File: file, Line: line, Detector: "unused_import", Severity: SeverityWarn,
				Message: fmt.Sprintf("import %q is never used", name),
			})
		}
	}
	return findings
}
