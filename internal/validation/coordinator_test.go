package validation

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// faultyValidator misbehaves in a configurable way.
type faultyValidator struct {
	name      string
	panicWith interface{}
	err       error
	nilResult bool
	onRun     func()
}

func (f *faultyValidator) Name() string { return f.name }

func (f *faultyValidator) Validate(ctx context.Context, _ *models.ArtifactSet) (*models.ValidationOutcome, error) {
	if f.onRun != nil {
		f.onRun()
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.nilResult {
		return nil, nil
	}
	return models.NewOutcome(f.name), nil
}

// recordingObserver counts observations.
type recordingObserver struct {
	mu     sync.Mutex
	issues map[string]int
	faults []string
}

func (r *recordingObserver) ObserveIssue(validator string, severity models.IssueSeverity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.issues == nil {
		r.issues = make(map[string]int)
	}
	r.issues[validator+"/"+string(severity)]++
}

func (r *recordingObserver) ObserveValidatorFault(validator string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, validator)
}

func sampleSet() *models.ArtifactSet {
	return models.NewArtifactSet(
		artifact("_api/LEDs/led.c",
			"void LEDs_blink(void) {",
			"    __delay_ms(100);",
			"}",
		),
		artifact("_api/LEDs/led.emic", "EMIC:setInput(DEV:_api/Unknown/x.emic)"),
	)
}

func TestDefaultValidatorsOrder(t *testing.T) {
	coord := NewCoordinator(nil, nil, DefaultValidators(Options{})...)
	assert.Equal(t, []string{
		"LayerSeparation",
		"NonBlocking",
		"StateMachine",
		"Dependency",
		"BackwardsCompatibility",
	}, coord.Names())
}

func TestDefaultValidatorsDisabled(t *testing.T) {
	validators := DefaultValidators(Options{Disabled: []string{"statemachine", " Dependency "}})
	names := NewCoordinator(nil, nil, validators...).Names()
	assert.Equal(t, []string{"LayerSeparation", "NonBlocking", "BackwardsCompatibility"}, names)
}

func TestCoordinatorRun(t *testing.T) {
	obs := &recordingObserver{}
	coord := NewCoordinator(nil, obs, DefaultValidators(Options{})...)

	report, err := coord.Run(context.Background(), sampleSet())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 5)
	assert.False(t, report.Passed)
	// NoDelayMs error, DependencyUnverified and UnguardedFunctionDefinition warnings.
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 2, report.Warnings)
	assert.Len(t, report.Issues(), 3)

	assert.Equal(t, 1, obs.issues["NonBlocking/Error"])
	assert.Equal(t, 1, obs.issues["Dependency/Warning"])
	assert.Empty(t, obs.faults)

	summary := report.Summary()
	assert.Contains(t, summary, "NonBlocking: ✗ FAIL")
	assert.Contains(t, summary, "LayerSeparation: ✓ PASS")
	assert.Contains(t, summary, "Validation failed: 1 errors, 2 warnings")
}

func TestCoordinatorIsolatesFaults(t *testing.T) {
	tests := []struct {
		name    string
		faulty  *faultyValidator
		message string
	}{
		{
			name:    "panic",
			faulty:  &faultyValidator{name: "StateMachine", panicWith: "index out of range"},
			message: "index out of range",
		},
		{
			name:    "returned error",
			faulty:  &faultyValidator{name: "StateMachine", err: errors.New("scanner exploded")},
			message: "scanner exploded",
		},
		{
			name:    "nil outcome",
			faulty:  &faultyValidator{name: "StateMachine", nilResult: true},
			message: "no outcome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validators := DefaultValidators(Options{})
			validators[2] = tt.faulty
			obs := &recordingObserver{}

			report, err := NewCoordinator(nil, obs, validators...).Run(context.Background(), sampleSet())
			require.NoError(t, err)
			require.Len(t, report.Outcomes, len(validators))

			faulted := report.Outcomes[2]
			assert.Equal(t, "StateMachine", faulted.Validator)
			assert.False(t, faulted.Passed)
			require.Len(t, faulted.Issues, 1)
			assert.Equal(t, RuleValidatorException, faulted.Issues[0].Rule)
			assert.Equal(t, models.SeverityError, faulted.Issues[0].Severity)
			assert.Contains(t, faulted.Issues[0].Message, "StateMachine")
			assert.Contains(t, faulted.Issues[0].Message, tt.message)

			// The validators after the fault still ran.
			assert.Equal(t, "Dependency", report.Outcomes[3].Validator)
			assert.True(t, report.Outcomes[3].HasRule(RuleDependencyUnverified))
			assert.Equal(t, "BackwardsCompatibility", report.Outcomes[4].Validator)

			assert.Equal(t, []string{"StateMachine"}, obs.faults)
		})
	}
}

func TestCoordinatorCancelledBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewCoordinator(nil, nil, DefaultValidators(Options{})...).Run(ctx, sampleSet())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, report.Outcomes)
}

func TestCoordinatorCancelledBetweenValidators(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &faultyValidator{name: "first", onRun: cancel}
	second := &faultyValidator{name: "second", panicWith: "must not run"}

	report, err := NewCoordinator(nil, nil, first, second).Run(ctx, sampleSet())
	assert.ErrorIs(t, err, ErrCancelled)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "first", report.Outcomes[0].Validator)
}

func TestCoordinatorCancellationInsideValidatorIsNotAFault(t *testing.T) {
	v := &faultyValidator{name: "slow", err: context.Canceled}

	obs := &recordingObserver{}
	_, err := NewCoordinator(nil, obs, v).Run(context.Background(), sampleSet())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, obs.faults)
}
