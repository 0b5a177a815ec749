package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// Rule identifiers reported by StateMachine.
const (
	RuleConsiderStateMachine = "ConsiderStateMachine"
	RuleStaticStateVariable  = "StaticStateVariable"
)

var (
	timingPattern = regexp.MustCompile(`getSystemMilis|__delay|\bTMR\d+\b|HAL_Timer`)
	switchPattern = regexp.MustCompile(`\bswitch\s*\(\s*([^)]*?)\s*\)`)
	identPattern  = regexp.MustCompile(`[A-Za-z_]\w*`)
)

// StateMachine checks that long timing-driven functions dispatch on a state
// variable and that such state variables persist between calls.
type StateMachine struct {
	entry     string
	threshold int
}

// NewStateMachine creates the validator. Functions longer than threshold lines
// that use timing primitives are expected to contain a switch.
func NewStateMachine(entry string, threshold int) *StateMachine {
	if entry == "" {
		entry = "main"
	}
	if threshold <= 0 {
		threshold = 20
	}
	return &StateMachine{entry: entry, threshold: threshold}
}

// Name returns "StateMachine".
func (v *StateMachine) Name() string { return "StateMachine" }

// Validate implements Validator.
func (v *StateMachine) Validate(ctx context.Context, artifacts *models.ArtifactSet) (*models.ValidationOutcome, error) {
	outcome := models.NewOutcome(v.Name())
	for _, a := range artifacts.ByCategory(models.CategoryImplementation) {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		lines := scanLines(a.Content)
		for _, f := range findFunctions(lines) {
			if isInitFunction(f.Name, v.entry) {
				continue
			}
			v.checkFunction(a.Path, lines, f, outcome)
		}
	}
	return outcome, nil
}

func (v *StateMachine) checkFunction(path string, lines []codeLine, f function, outcome *models.ValidationOutcome) {
	body := lines[f.Start-1 : f.End]

	var timing, dispatch bool
	for _, l := range body {
		if timingPattern.MatchString(l.Code) {
			timing = true
		}
		m := switchPattern.FindStringSubmatch(l.Code)
		if m == nil {
			continue
		}
		dispatch = true
		if !strings.Contains(strings.ToLower(m[1]), "state") {
			continue
		}
		name := stateIdentifier(m[1])
		if name != "" && !declaredStatic(lines, name) {
			outcome.Add(models.ValidationIssue{
				Path:     path,
				Line:     l.Num,
				Rule:     RuleStaticStateVariable,
				Message:  fmt.Sprintf("state variable '%s' in %s() is not static; its value is lost between calls", name, f.Name),
				Severity: models.SeverityWarning,
			})
		}
	}

	if f.Len() > v.threshold && timing && !dispatch {
		outcome.Add(models.ValidationIssue{
			Path:     path,
			Line:     f.Start,
			Rule:     RuleConsiderStateMachine,
			Message:  fmt.Sprintf("%s() spans %d lines and uses timing primitives without a switch(state); consider a state machine", f.Name, f.Len()),
			Severity: models.SeverityWarning,
		})
	}
}

// stateIdentifier returns the base variable of a switch discriminant such as
// "state", "ctx->state" or "states[i]": the first identifier in the expression.
func stateIdentifier(expr string) string {
	return identPattern.FindString(expr)
}

// declaredStatic reports whether name is declared with the static qualifier
// anywhere in the artifact.
func declaredStatic(lines []codeLine, name string) bool {
	decl := regexp.MustCompile(`\bstatic\b[^;=(]*\b` + regexp.QuoteMeta(name) + `\b`)
	for _, l := range lines {
		if decl.MatchString(l.Code) {
			return true
		}
	}
	return false
}
