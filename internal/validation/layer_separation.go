package validation

import (
	"context"
	"regexp"
	"strings"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// RuleLayerSeparation flags direct hardware register access from the API layer.
const RuleLayerSeparation = "LayerSeparation"

var (
	// halCallPattern matches a call through the hardware abstraction layer.
	halCallPattern = regexp.MustCompile(`\bHAL_\w+\s*\(`)

	// registerPattern matches dsPIC/PIC24 special function register names.
	registerPattern = regexp.MustCompile(
		`\b(?:TRIS|LAT|PORT|ODC|ANS)[A-H](?:bits)?\b` +
			`|\bT\d+CON(?:bits)?\b` +
			`|\bTMR\d+\b` +
			`|\bPR\d+\b` +
			`|\b(?:IFS|IEC|IPC)\d+(?:bits)?\b` +
			`|\b(?:U\d+(?:MODE|STA|BRG|TXREG|RXREG)|SPI\d+(?:CON\d*|STAT|BUF)|I2C\d+(?:CON|STAT|BRG|TRN|RCV)|AD\d*CON\d*|OC\d+CON\d*|IC\d+CON\d*)(?:bits)?\b`)
)

// LayerSeparation checks that API-layer artifacts reach hardware only through
// HAL_* calls and never touch registers directly.
type LayerSeparation struct{}

// NewLayerSeparation creates the validator.
func NewLayerSeparation() *LayerSeparation {
	return &LayerSeparation{}
}

// Name returns "LayerSeparation".
func (v *LayerSeparation) Name() string { return "LayerSeparation" }

// Validate implements Validator.
func (v *LayerSeparation) Validate(ctx context.Context, artifacts *models.ArtifactSet) (*models.ValidationOutcome, error) {
	outcome := models.NewOutcome(v.Name())
	for _, a := range artifacts.All() {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if a.Category == models.CategoryData || !isAPIPath(a.Path) {
			continue
		}
		for _, l := range scanLines(a.Content) {
			if strings.TrimSpace(l.Code) == "" || halCallPattern.MatchString(l.Code) {
				continue
			}
			reg := registerPattern.FindString(l.Code)
			if reg == "" {
				continue
			}
			outcome.Add(models.ValidationIssue{
				Path:     a.Path,
				Line:     l.Num,
				Rule:     RuleLayerSeparation,
				Message:  "direct register access " + reg + " in API layer; use the HAL_* functions instead",
				Severity: models.SeverityError,
			})
		}
	}
	return outcome, nil
}

// isAPIPath reports whether a path lies in the API layer and outside the HAL
// and driver trees.
func isAPIPath(p string) bool {
	segs := strings.Split(strings.ToLower(models.NormalizePath(p)), "/")
	api := false
	for _, s := range segs {
		switch {
		case strings.HasPrefix(s, "_hal"), strings.HasPrefix(s, "_drivers"):
			return false
		case strings.HasPrefix(s, "_api"):
			api = true
		}
	}
	return api
}
