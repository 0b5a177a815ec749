package validation

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/graph"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/inventory"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// Rule identifiers reported by Dependency.
const (
	RuleDependencyMissing    = "DependencyMissing"
	RuleDependencyUnverified = "DependencyUnverified"
	RuleDependencyCycle      = "DependencyCycle"
)

// referencePattern matches a script reference directive.
var referencePattern = regexp.MustCompile(`EMIC:setInput\(\s*([^)]+?)\s*\)`)

// externalPrefixes are references that always resolve outside the generated set.
var externalPrefixes = []string{
	"DEV:_hal/",
	"DEV:/_hal/",
	"DEV:_main/",
	"DEV:/_main/",
	"SYS:",
	"TARGET:",
}

// Dependency checks that every script reference resolves and that generated
// scripts do not reference each other circularly.
type Dependency struct {
	inv    *inventory.Snapshot
	logger *zap.SugaredLogger
}

// NewDependency creates the validator. inv may be nil, in which case
// unresolved references are reported as unverified warnings.
func NewDependency(inv *inventory.Snapshot, logger *zap.SugaredLogger) *Dependency {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dependency{inv: inv, logger: logger}
}

// Name returns "Dependency".
func (v *Dependency) Name() string { return "Dependency" }

// Validate implements Validator.
func (v *Dependency) Validate(ctx context.Context, artifacts *models.ArtifactSet) (*models.ValidationOutcome, error) {
	outcome := models.NewOutcome(v.Name())
	g, err := v.buildGraph(ctx, artifacts, outcome)
	if err != nil {
		return nil, err
	}

	if cycle, found := g.FindCycle(); found {
		outcome.Add(models.ValidationIssue{
			Path:     cycle[0],
			Rule:     RuleDependencyCycle,
			Message:  "circular reference: " + graph.FormatCycle(cycle),
			Severity: models.SeverityError,
		})
		return outcome, nil
	}

	if order, err := g.TopologicalSort(); err == nil {
		v.logger.Debugw("script reference order", "order", order)
	}
	return outcome, nil
}

// buildGraph extracts references from every script, adding an edge per
// directive and an issue per unresolvable reference.
func (v *Dependency) buildGraph(ctx context.Context, artifacts *models.ArtifactSet, outcome *models.ValidationOutcome) (*graph.ReferenceGraph, error) {
	g := graph.New()
	g.SetDebugLog(v.logger.Debugf)

	scripts := artifacts.ByCategory(models.CategoryScript)
	for _, s := range scripts {
		g.AddNode(s.Path)
	}

	for _, s := range scripts {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		for i, line := range s.Lines() {
			for _, m := range referencePattern.FindAllStringSubmatch(line, -1) {
				ref := m[1]
				target, ok := v.resolve(artifacts, s.Path, ref)
				g.AddEdge(s.Path, graph.Edge{Target: target, Raw: ref, Line: i + 1})
				if !ok {
					outcome.Add(v.unresolved(s.Path, i+1, ref))
				}
			}
		}
	}
	return g, nil
}

// resolve returns the edge target for a reference and whether it is valid.
// Generated artifacts win over external prefixes and the inventory.
func (v *Dependency) resolve(artifacts *models.ArtifactSet, from, ref string) (string, bool) {
	norm := inventory.Normalize(ref)
	candidates := []string{norm}
	if dir := path.Dir(from); dir != "." && !isAbsoluteRef(ref) {
		candidates = append(candidates, path.Join(dir, norm))
	}

	for _, c := range candidates {
		if p, ok := artifacts.Get(c); ok {
			return p.Path, true
		}
	}
	for _, c := range candidates {
		for _, p := range artifacts.Paths() {
			if models.MatchPath(p, c) {
				return p, true
			}
		}
	}

	if hasExternalPrefix(ref) || v.inv.Contains(ref) {
		return norm, true
	}
	return norm, false
}

func (v *Dependency) unresolved(from string, line int, ref string) models.ValidationIssue {
	if v.inv != nil {
		return models.ValidationIssue{
			Path:     from,
			Line:     line,
			Rule:     RuleDependencyMissing,
			Message:  fmt.Sprintf("reference %q not found among generated artifacts or SDK inventory", ref),
			Severity: models.SeverityError,
		}
	}
	return models.ValidationIssue{
		Path:     from,
		Line:     line,
		Rule:     RuleDependencyUnverified,
		Message:  fmt.Sprintf("reference %q not found among generated artifacts; cannot verify without inventory", ref),
		Severity: models.SeverityWarning,
	}
}

func hasExternalPrefix(ref string) bool {
	ref = strings.TrimSpace(ref)
	for _, p := range externalPrefixes {
		if strings.HasPrefix(ref, p) {
			return true
		}
	}
	return false
}

// isAbsoluteRef reports whether a reference names a drive or starts at the root.
func isAbsoluteRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "\\") || strings.Contains(ref, ":")
}
