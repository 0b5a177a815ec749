package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// Rule identifiers reported by BackwardsCompatibility.
const (
	RuleOptionalDefineWithoutGuard   = "OptionalDefineWithoutGuard"
	RuleUnguardedFunctionDeclaration = "UnguardedFunctionDeclaration"
	RuleUnguardedFunctionDefinition  = "UnguardedFunctionDefinition"
)

var (
	emicDefinePattern = regexp.MustCompile(`EMIC:define\(\s*([^,)]+)`)
	emicIfdefPattern  = regexp.MustCompile(`EMIC:ifn?def\(\s*([^)]+?)\s*\)`)
	emicEndifPattern  = regexp.MustCompile(`EMIC:endif\b`)
	cIfPattern        = regexp.MustCompile(`^#\s*(ifdef|ifndef|if)\b`)
	cEndifPattern     = regexp.MustCompile(`^#\s*endif\b`)

	// compatFunctionPattern matches a non-static function signature at the start of a line.
	compatFunctionPattern = regexp.MustCompile(`^(?:void|uint\d+_t|int\d*_t|char|int|float|double)\s+(\w+)\s*\(`)
)

// coreCategories are registration categories every component must provide.
var coreCategories = []string{"inits.", "c_modules.", "main_includes."}

// optionalCategories are registrations that must be opt-in.
var optionalCategories = []string{"events.", "polls."}

// BackwardsCompatibility checks that optional capabilities are guarded so that
// consumers predating them keep building.
type BackwardsCompatibility struct{}

// NewBackwardsCompatibility creates the validator.
func NewBackwardsCompatibility() *BackwardsCompatibility {
	return &BackwardsCompatibility{}
}

// Name returns "BackwardsCompatibility".
func (v *BackwardsCompatibility) Name() string { return "BackwardsCompatibility" }

// Validate implements Validator.
func (v *BackwardsCompatibility) Validate(ctx context.Context, artifacts *models.ArtifactSet) (*models.ValidationOutcome, error) {
	outcome := models.NewOutcome(v.Name())
	for _, a := range artifacts.All() {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		switch a.Category {
		case models.CategoryScript:
			checkScriptGuards(a, outcome)
		case models.CategoryHeader:
			checkSourceGuards(a, RuleUnguardedFunctionDeclaration, "declared", outcome)
		case models.CategoryImplementation:
			checkSourceGuards(a, RuleUnguardedFunctionDefinition, "defined", outcome)
		}
	}
	return outcome, nil
}

type define struct {
	name string
	line int
}

// checkScriptGuards flags event and poll registrations with no EMIC:ifdef naming
// the same component anywhere in the script.
func checkScriptGuards(a models.GeneratedArtifact, outcome *models.ValidationOutcome) {
	var (
		defines []define
		guards  []string
	)
	for i, line := range a.Lines() {
		if m := emicIfdefPattern.FindStringSubmatch(line); m != nil {
			guards = append(guards, strings.ToLower(m[1]))
		}
		if m := emicDefinePattern.FindStringSubmatch(line); m != nil {
			defines = append(defines, define{name: strings.TrimSpace(m[1]), line: i + 1})
		}
	}

	for _, d := range defines {
		lower := strings.ToLower(d.name)
		if hasAnyPrefix(lower, coreCategories) || !hasAnyPrefix(lower, optionalCategories) {
			continue
		}
		parts := strings.Split(lower, ".")
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		if guardedBy(guards, parts[1]) {
			continue
		}
		outcome.Add(models.ValidationIssue{
			Path:     a.Path,
			Line:     d.line,
			Rule:     RuleOptionalDefineWithoutGuard,
			Message:  fmt.Sprintf("EMIC:define(%s) should be wrapped in EMIC:ifdef for backwards compatibility", d.name),
			Severity: models.SeverityWarning,
		})
	}
}

func guardedBy(guards []string, component string) bool {
	for _, g := range guards {
		if strings.Contains(g, component) {
			return true
		}
	}
	return false
}

// checkSourceGuards flags non-core functions outside any conditional block.
// EMIC:ifdef and #ifdef/#if open a guard; #ifndef is treated as an include
// guard and does not.
func checkSourceGuards(a models.GeneratedArtifact, rule, verb string, outcome *models.ValidationOutcome) {
	var (
		emicDepth int
		cStack    []bool
	)
	guarded := func() bool {
		if emicDepth > 0 {
			return true
		}
		for _, g := range cStack {
			if g {
				return true
			}
		}
		return false
	}

	for _, l := range scanLines(a.Content) {
		raw := strings.TrimSpace(l.Raw)
		switch {
		case emicIfdefPattern.MatchString(raw):
			emicDepth++
			continue
		case emicEndifPattern.MatchString(raw):
			if emicDepth > 0 {
				emicDepth--
			}
			continue
		}

		code := strings.TrimSpace(l.Code)
		if m := cIfPattern.FindStringSubmatch(code); m != nil {
			cStack = append(cStack, m[1] != "ifndef")
			continue
		}
		if cEndifPattern.MatchString(code) {
			if len(cStack) > 0 {
				cStack = cStack[:len(cStack)-1]
			}
			continue
		}

		if guarded() {
			continue
		}
		m := compatFunctionPattern.FindStringSubmatch(code)
		if m == nil || isCoreFunction(m[1]) {
			continue
		}
		outcome.Add(models.ValidationIssue{
			Path:     a.Path,
			Line:     l.Num,
			Rule:     rule,
			Message:  fmt.Sprintf("function '%s' %s outside an EMIC:ifdef/#ifdef guard; optional functions should be conditional", m[1], verb),
			Severity: models.SeverityWarning,
		})
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
