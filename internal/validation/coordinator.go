package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// RuleValidatorException marks a validator that faulted instead of reporting.
const RuleValidatorException = "ValidatorException"

// Observer receives per-issue and per-fault notifications, typically for metrics.
type Observer interface {
	ObserveIssue(validator string, severity models.IssueSeverity)
	ObserveValidatorFault(validator string)
}

// Coordinator runs a fixed, ordered list of validators over a snapshot.
// A validator that returns an error or panics is isolated: its outcome carries
// a single ValidatorException issue and the remaining validators still run.
type Coordinator struct {
	validators []Validator
	logger     *zap.SugaredLogger
	observer   Observer
}

// NewCoordinator creates a coordinator. observer may be nil.
func NewCoordinator(logger *zap.SugaredLogger, observer Observer, validators ...Validator) *Coordinator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Coordinator{
		validators: validators,
		logger:     logger,
		observer:   observer,
	}
}

// Names returns the registered validator names in run order.
func (c *Coordinator) Names() []string {
	names := make([]string, len(c.validators))
	for i, v := range c.validators {
		names[i] = v.Name()
	}
	return names
}

// Report aggregates the outcomes of one coordinator run.
type Report struct {
	// Outcomes holds one entry per registered validator, in run order.
	Outcomes []*models.ValidationOutcome
	// Errors is the total number of Error issues.
	Errors int
	// Warnings is the total number of Warning issues.
	Warnings int
	// Passed is true when no outcome failed.
	Passed bool
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Issues returns every issue across outcomes, in run order.
func (r *Report) Issues() []models.ValidationIssue {
	var out []models.ValidationIssue
	for _, o := range r.Outcomes {
		out = append(out, o.Issues...)
	}
	return out
}

// Run executes every validator in order. Cancellation is checked before each
// validator; on cancellation the partial report is returned with ErrCancelled.
func (c *Coordinator) Run(ctx context.Context, artifacts *models.ArtifactSet) (*Report, error) {
	start := time.Now()
	report := &Report{Passed: true}

	for _, v := range c.validators {
		if err := checkCancelled(ctx); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		outcome, err := c.runOne(ctx, v, artifacts)
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		report.Outcomes = append(report.Outcomes, outcome)
		for _, issue := range outcome.Issues {
			switch issue.Severity {
			case models.SeverityError:
				report.Errors++
			case models.SeverityWarning:
				report.Warnings++
			}
			if c.observer != nil {
				c.observer.ObserveIssue(outcome.Validator, issue.Severity)
			}
		}
		if !outcome.Passed {
			report.Passed = false
		}

		c.logger.Debugw("validator finished",
			"validator", outcome.Validator,
			"passed", outcome.Passed,
			"issues", len(outcome.Issues),
		)
	}

	report.Duration = time.Since(start)
	c.logger.Infow("validation complete",
		"validators", len(report.Outcomes),
		"errors", report.Errors,
		"warnings", report.Warnings,
		"passed", report.Passed,
	)
	return report, nil
}

// runOne executes a single validator, converting faults into an outcome.
// Only cancellation is returned as an error.
func (c *Coordinator) runOne(ctx context.Context, v Validator, artifacts *models.ArtifactSet) (outcome *models.ValidationOutcome, err error) {
	name := v.Name()
	defer func() {
		if r := recover(); r != nil {
			outcome, err = c.fault(name, errors.Newf("panic: %v", r)), nil
		}
	}()

	out, verr := v.Validate(ctx, artifacts)
	switch {
	case verr != nil && (errors.Is(verr, ErrCancelled) || errors.Is(verr, context.Canceled) || errors.Is(verr, context.DeadlineExceeded)):
		return nil, cancelled(verr)
	case verr != nil:
		return c.fault(name, verr), nil
	case out == nil:
		return c.fault(name, errors.New("validator returned no outcome")), nil
	}
	out.Validator = name
	return out, nil
}

func (c *Coordinator) fault(name string, cause error) *models.ValidationOutcome {
	c.logger.Warnw("validator fault", "validator", name, "error", cause)
	if c.observer != nil {
		c.observer.ObserveValidatorFault(name)
	}
	outcome := models.NewOutcome(name)
	outcome.Add(models.ValidationIssue{
		Rule:     RuleValidatorException,
		Message:  fmt.Sprintf("validator %s failed: %v", name, cause),
		Severity: models.SeverityError,
	})
	return outcome
}

// Summary renders a human-readable report.
func (r *Report) Summary() string {
	var sb strings.Builder

	sb.WriteString("Rule validation results:\n")
	for _, o := range r.Outcomes {
		status := "✗ FAIL"
		if o.Passed {
			status = "✓ PASS"
		}
		sb.WriteString(fmt.Sprintf("\n%s: %s (%d errors, %d warnings)\n",
			o.Validator, status, o.Count(models.SeverityError), o.Count(models.SeverityWarning)))
		for _, issue := range o.Issues {
			sb.WriteString("  " + issue.String() + "\n")
		}
	}

	if r.Passed {
		sb.WriteString(fmt.Sprintf("\n✓ All validators passed (%d warnings)\n", r.Warnings))
	} else {
		sb.WriteString(fmt.Sprintf("\n✗ Validation failed: %d errors, %d warnings\n", r.Errors, r.Warnings))
	}
	sb.WriteString(fmt.Sprintf("\nTotal Duration: %v\n", r.Duration))
	return sb.String()
}
