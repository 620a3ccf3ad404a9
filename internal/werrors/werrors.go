// Package werrors provides a common error taxonomy shared across provider
// adapters, the credential rotator and the workflow engine.
package werrors

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// Kind represents the taxonomy of failures a provider call or workflow
// step can produce.
type Kind int

const (
	// KindUnknown is an uncategorized failure.
	KindUnknown Kind = iota
	// KindQuota is a credential-level quota exhaustion (rotate to next credential).
	KindQuota
	// KindCapacity is a transient provider overload (retry with backoff, same credential).
	KindCapacity
	// KindAuth is an authentication/authorization failure (credential invalid).
	KindAuth
	// KindParse is a malformed or unparsable provider response.
	KindParse
	// KindModelMismatch is a response that does not match the requested model.
	KindModelMismatch
	// KindTimeout is a call that exceeded its deadline.
	KindTimeout
	// KindCancelled is a caller-cancelled context.
	KindCancelled
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindCapacity:
		return "capacity"
	case KindAuth:
		return "auth"
	case KindParse:
		return "parse"
	case KindModelMismatch:
		return "model_mismatch"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CategorizedError extends error with a Kind, mirroring the teacher's
// CategorizedError/ErrorCategory pattern.
type CategorizedError interface {
	error
	Kind() Kind
}

// WorkflowError is the concrete CategorizedError implementation returned by
// provider adapters and the rotator.
type WorkflowError struct {
	kind    Kind
	msg     string
	wrapped error
}

// New builds a WorkflowError of the given Kind.
func New(kind Kind, msg string) *WorkflowError {
	return &WorkflowError{kind: kind, msg: msg}
}

// Wrap builds a WorkflowError of the given Kind that wraps an underlying error.
func Wrap(kind Kind, msg string, err error) *WorkflowError {
	return &WorkflowError{kind: kind, msg: msg, wrapped: err}
}

func (e *WorkflowError) Error() string {
	if e.wrapped != nil {
		return e.msg + ": " + e.wrapped.Error()
	}
	return e.msg
}

// Kind implements CategorizedError.
func (e *WorkflowError) Kind() Kind { return e.kind }

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *WorkflowError) Unwrap() error { return e.wrapped }

// AsCategorized reports whether err (or something it wraps) implements
// CategorizedError, mirroring the teacher's IsCategorizedError helper.
func AsCategorized(err error) (CategorizedError, bool) {
	if err == nil {
		return nil, false
	}
	var catErr CategorizedError
	if errors.As(err, &catErr) {
		return catErr, true
	}
	return nil, false
}

// classifyRule is one ordered pattern match in the classifier, mirroring
// the teacher's MapGeminiErrorToCategory ordered status/code checks.
type classifyRule struct {
	pattern *regexp.Regexp
	kind    Kind
}

var classifyRules = []classifyRule{
	{regexp.MustCompile(`(?i)quota|rate.?limit|429|resource_exhausted|too many requests`), KindQuota},
	{regexp.MustCompile(`(?i)overloaded|503|capacity|server.?busy|service unavailable`), KindCapacity},
	{regexp.MustCompile(`(?i)unauthorized|401|403|invalid.?api.?key|authentication|forbidden`), KindAuth},
	{regexp.MustCompile(`(?i)context deadline exceeded|timed? out|timeout`), KindTimeout},
	{regexp.MustCompile(`(?i)context canceled|operation was canceled`), KindCancelled},
	{regexp.MustCompile(`(?i)unexpected model|model mismatch|wrong model`), KindModelMismatch},
	{regexp.MustCompile(`(?i)invalid json|unmarshal|malformed|unexpected end of (json input|response)|parse error`), KindParse},
}

// defaultQuotaReset is the reset window assumed for a KindQuota error whose
// text carries no parseable "reset after" duration.
const defaultQuotaReset = 24 * time.Hour

// resetPattern matches a "reset after Nh Nm Ns" style duration, with any of
// the three components optional, as providers report remaining quota
// windows.
var resetPattern = regexp.MustCompile(`(?i)reset after\s+(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?\s*(?:(\d+)\s*s)?`)

// parseResetDuration extracts a quota-reset duration from text of the form
// "reset after Nh Nm Ns", reporting ok=false if no such pattern is present.
func parseResetDuration(text string) (time.Duration, bool) {
	m := resetPattern.FindStringSubmatch(text)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, false
	}
	var d time.Duration
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		d += time.Duration(h) * time.Hour
	}
	if m[2] != "" {
		mm, _ := strconv.Atoi(m[2])
		d += time.Duration(mm) * time.Minute
	}
	if m[3] != "" {
		s, _ := strconv.Atoi(m[3])
		d += time.Duration(s) * time.Second
	}
	return d, true
}

// backoffFor returns the suggested base backoff associated with a Kind. Only
// KindCapacity carries a retry backoff; KindQuota's second return value from
// Classify/ClassifyErr instead carries the credential's reset window, not a
// retry pace, and other kinds signal rotation or immediate failure.
func backoffFor(kind Kind) time.Duration {
	switch kind {
	case KindCapacity:
		return 2 * time.Second
	default:
		return 0
	}
}

// Classify inspects free-form provider error text (a CLI stderr blob, an
// HTTP error body, a Go error string) and returns the matching Kind plus a
// suggested duration, walking the rules in priority order and stopping at
// the first match. For KindQuota the duration is the reset window parsed
// from a "reset after Nh Mm Ss" pattern in text, or defaultQuotaReset if no
// such pattern is present; for other kinds it is the retry backoff.
func Classify(text string) (Kind, time.Duration) {
	for _, rule := range classifyRules {
		if !rule.pattern.MatchString(text) {
			continue
		}
		if rule.kind == KindQuota {
			if reset, ok := parseResetDuration(text); ok {
				return KindQuota, reset
			}
			return KindQuota, defaultQuotaReset
		}
		return rule.kind, backoffFor(rule.kind)
	}
	return KindUnknown, 0
}

// ClassifyErr classifies an error's message, first checking whether it is
// already a CategorizedError before falling back to text classification.
// For a categorized KindQuota error, the reset window is still parsed from
// the error's own text (Error() includes any wrapped cause).
func ClassifyErr(err error) (Kind, time.Duration) {
	if err == nil {
		return KindUnknown, 0
	}
	if catErr, ok := AsCategorized(err); ok {
		kind := catErr.Kind()
		if kind == KindQuota {
			if reset, ok := parseResetDuration(err.Error()); ok {
				return KindQuota, reset
			}
			return KindQuota, defaultQuotaReset
		}
		return kind, backoffFor(kind)
	}
	return Classify(err.Error())
}
