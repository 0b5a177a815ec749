package models

import "fmt"

// IssueSeverity ranks a validation issue.
type IssueSeverity string

const (
	// SeverityWarning is advisory and does not block the pipeline.
	SeverityWarning IssueSeverity = "Warning"
	// SeverityError blocks acceptance of the artifact set.
	SeverityError IssueSeverity = "Error"
)

// ValidationIssue is one finding emitted by a rule validator.
type ValidationIssue struct {
	// Path is the artifact path, empty for validator-level issues.
	Path string `json:"path"`
	// Line is 1-based, or 0 when the issue is not tied to a line.
	Line int `json:"line"`
	// Rule is the rule identifier (e.g. "NoDelayMs").
	Rule string `json:"rule"`
	// Message is free text for the operator.
	Message string `json:"message"`
	// Severity is Warning or Error.
	Severity IssueSeverity `json:"severity"`
}

// String formats the issue as path:line [severity] rule: message.
func (i ValidationIssue) String() string {
	loc := i.Path
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", i.Path, i.Line)
	}
	if loc == "" {
		loc = "-"
	}
	return fmt.Sprintf("%s [%s] %s: %s", loc, i.Severity, i.Rule, i.Message)
}

// ValidationOutcome is the result of one validator over one artifact set.
type ValidationOutcome struct {
	// Validator is the validator name.
	Validator string `json:"validator"`
	// Passed is false when any Error issue was produced.
	Passed bool `json:"passed"`
	// Issues in emission order.
	Issues []ValidationIssue `json:"issues"`
}

// NewOutcome creates a passing outcome for the named validator.
func NewOutcome(validator string) *ValidationOutcome {
	return &ValidationOutcome{Validator: validator, Passed: true}
}

// Add appends an issue; an Error issue fails the outcome.
func (o *ValidationOutcome) Add(issue ValidationIssue) {
	o.Issues = append(o.Issues, issue)
	if issue.Severity == SeverityError {
		o.Passed = false
	}
}

// Count returns the number of issues with the given severity.
func (o *ValidationOutcome) Count(sev IssueSeverity) int {
	n := 0
	for _, i := range o.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// HasRule reports whether any issue carries the rule identifier.
func (o *ValidationOutcome) HasRule(rule string) bool {
	for _, i := range o.Issues {
		if i.Rule == rule {
			return true
		}
	}
	return false
}
