package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// Rule identifiers reported by NonBlocking.
const (
	RuleNoDelayMs              = "NoDelayMs"
	RuleNoInfiniteLoop         = "NoInfiniteLoop"
	RulePotentialBlockingWhile = "PotentialBlockingWhile"
)

// whileLookahead is how many lines after a while header are searched for an exit.
const whileLookahead = 5

var (
	delayPattern    = regexp.MustCompile(`\b(?:__delay_ms|__delay_us|delay_ms|Delay_ms)\s*\(`)
	infinitePattern = regexp.MustCompile(`\bwhile\s*\(\s*(?:1|true|TRUE)\s*\)|\bfor\s*\(\s*;\s*;\s*\)`)
	whilePattern    = regexp.MustCompile(`\bwhile\s*\(`)

	// doWhileTail matches the condition that closes a do { } while (...) loop,
	// including one-line and continued macro bodies.
	doWhileTail = regexp.MustCompile(`}\s*while\s*\([^{}]*\)\s*;?\s*\\?\s*$`)
	exitPattern = regexp.MustCompile(`(?i)\b(?:break|return)\b|timeout|getSystemMilis`)
)

// NonBlocking checks that firmware stays cooperative. Only the designated entry
// function may loop forever; delays are never allowed.
type NonBlocking struct {
	entry string
}

// NewNonBlocking creates the validator for the given entry function name.
func NewNonBlocking(entry string) *NonBlocking {
	if entry == "" {
		entry = "main"
	}
	return &NonBlocking{entry: entry}
}

// Name returns "NonBlocking".
func (v *NonBlocking) Name() string { return "NonBlocking" }

// Validate implements Validator.
func (v *NonBlocking) Validate(ctx context.Context, artifacts *models.ArtifactSet) (*models.ValidationOutcome, error) {
	outcome := models.NewOutcome(v.Name())
	for _, a := range artifacts.ByCategory(models.CategoryImplementation) {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		v.check(a.Path, scanLines(a.Content), outcome)
	}
	return outcome, nil
}

func (v *NonBlocking) check(path string, lines []codeLine, outcome *models.ValidationOutcome) {
	funcs := findFunctions(lines)
	for i, l := range lines {
		inEntry := false
		if f, ok := functionAt(funcs, l.Num); ok {
			inEntry = strings.EqualFold(f.Name, v.entry)
		}

		if delayPattern.MatchString(l.Code) {
			outcome.Add(models.ValidationIssue{
				Path:     path,
				Line:     l.Num,
				Rule:     RuleNoDelayMs,
				Message:  "blocking delay call; use getSystemMilis() with a state machine",
				Severity: models.SeverityError,
			})
		}

		if inEntry {
			continue
		}

		switch {
		case infinitePattern.MatchString(l.Code):
			outcome.Add(models.ValidationIssue{
				Path:     path,
				Line:     l.Num,
				Rule:     RuleNoInfiniteLoop,
				Message:  fmt.Sprintf("infinite loop outside %s()", v.entry),
				Severity: models.SeverityError,
			})
		case whilePattern.MatchString(l.Code) && !doWhileTail.MatchString(l.Code):
			if !hasExit(lines, i) {
				outcome.Add(models.ValidationIssue{
					Path:     path,
					Line:     l.Num,
					Rule:     RulePotentialBlockingWhile,
					Message:  fmt.Sprintf("while loop without break, return or timeout within %d lines", whileLookahead),
					Severity: models.SeverityWarning,
				})
			}
		}
	}
}

// hasExit reports whether the while header at index i or one of the following
// lines mentions an exit path.
func hasExit(lines []codeLine, i int) bool {
	end := i + whileLookahead
	if end >= len(lines) {
		end = len(lines) - 1
	}
	for j := i; j <= end; j++ {
		if exitPattern.MatchString(lines[j].Code) {
			return true
		}
	}
	return false
}
