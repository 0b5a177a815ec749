package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/compile"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/metrics"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/validation"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

const ledHeader = `#ifndef LED_H
#define LED_H
void LEDs_init(void);
#endif`

const ledImpl = `#include "led.h"

void LEDs_init(void) {
    led_state = 0;
}`

func cleanSet() *models.ArtifactSet {
	return models.NewArtifactSet(
		models.GeneratedArtifact{Path: "_api/LEDs/led.emic", Content: "EMIC:setInput(DEV:_hal/GPIO/gpio.emic)", Category: models.CategoryScript},
		models.GeneratedArtifact{Path: "_api/LEDs/led.h", Content: ledHeader, Category: models.CategoryHeader},
		models.GeneratedArtifact{Path: "_api/LEDs/led.c", Content: ledImpl, Category: models.CategoryImplementation},
	)
}

func blockingSet() *models.ArtifactSet {
	return cleanSet().WithContent("_api/LEDs/led.c", strings.Replace(ledImpl,
		"led_state = 0;", "led_state = 0;\n    __delay_ms(10);", 1))
}

// scriptedCompiler returns its results in order, repeating the last one.
type scriptedCompiler struct {
	results []*models.CompileAttemptResult
	calls   int
}

func (s *scriptedCompiler) Compile(context.Context, string) (*models.CompileAttemptResult, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], nil
}

func passing() *scriptedCompiler {
	return &scriptedCompiler{results: []*models.CompileAttemptResult{{Success: true}}}
}

func TestNew(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoCompiler)

	p, err := New(Options{SkipCompile: true})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRun_CleanArtifacts(t *testing.T) {
	rec := metrics.New()
	compiler := passing()
	p, err := New(Options{Compiler: compiler, Metrics: rec})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), "/work/project", cleanSet())
	require.NoError(t, err)

	_, parseErr := uuid.Parse(report.RunID)
	assert.NoError(t, parseErr)
	require.NotNil(t, report.Validation)
	assert.True(t, report.Validation.Passed, report.Validation.Summary())
	assert.Len(t, report.Validation.Outcomes, 5)
	require.NotNil(t, report.Compile)
	assert.True(t, report.Compile.Succeeded())
	assert.True(t, report.Passed())
	assert.Equal(t, 1, compiler.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.CompileAttempts.WithLabelValues("success")))

	// Markers were inserted into the final snapshot, not the input.
	final, _ := report.Artifacts.Get("_api/LEDs/led.c")
	assert.True(t, strings.HasPrefix(final.Content, "// @source: _api/LEDs/led.c:1"))
}

func TestRun_ValidationFailureSkipsCompile(t *testing.T) {
	rec := metrics.New()
	compiler := passing()
	p, err := New(Options{Compiler: compiler, Metrics: rec})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), "/work/project", blockingSet())
	require.NoError(t, err)
	assert.False(t, report.Validation.Passed)
	assert.Nil(t, report.Compile)
	assert.Equal(t, "validation failed", report.CompileSkipped)
	assert.Equal(t, 0, compiler.calls)
	assert.False(t, report.Passed())
	assert.Contains(t, report.Summary(), "compile: skipped (validation failed)")
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.ValidationIssues.WithLabelValues("NonBlocking", "Error")))
}

func TestRun_ForceCompile(t *testing.T) {
	compiler := passing()
	p, err := New(Options{Compiler: compiler, ForceCompile: true})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), "/work/project", blockingSet())
	require.NoError(t, err)
	assert.Equal(t, 1, compiler.calls)
	require.NotNil(t, report.Compile)
	assert.True(t, report.Compile.Succeeded())
	assert.False(t, report.Passed(), "validation errors still fail the run")
}

func TestRun_CompileOnlyWithRepair(t *testing.T) {
	compiler := &scriptedCompiler{results: []*models.CompileAttemptResult{
		{Errors: []string{"led.c:4:5: error: implicit declaration of function 'HAL_GPIO_PinSet'"}},
		{Success: true},
	}}
	p, err := New(Options{
		Compiler:       compiler,
		Compile:        compile.Config{MaxAttempts: 3},
		SkipValidation: true,
	})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), "/work/project", cleanSet())
	require.NoError(t, err)
	assert.Nil(t, report.Validation)
	require.NotNil(t, report.Compile)
	assert.Equal(t, compile.StateSucceeded, report.Compile.State)
	require.Len(t, report.Compile.Repairs, 1)

	final, _ := report.Artifacts.Get("_api/LEDs/led.c")
	assert.Contains(t, final.Content, `#include "hal_gpio.h"`)
	assert.Contains(t, report.Summary(), "compilation succeeded on attempt 2")
}

func TestRun_SkipCompile(t *testing.T) {
	p, err := New(Options{SkipCompile: true})
	require.NoError(t, err)

	input := cleanSet()
	report, err := p.Run(context.Background(), "/work/project", input)
	require.NoError(t, err)
	assert.Equal(t, "disabled", report.CompileSkipped)
	assert.Same(t, input, report.Artifacts)
	assert.True(t, report.Passed())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	compiler := passing()
	p, err := New(Options{Compiler: compiler})
	require.NoError(t, err)

	report, err := p.Run(ctx, "/work/project", cleanSet())
	assert.ErrorIs(t, err, validation.ErrCancelled)
	assert.True(t, report.Cancelled)
	assert.False(t, report.Passed())
	assert.Equal(t, 0, compiler.calls)
	assert.Contains(t, report.Summary(), "run cancelled")
}

func TestRun_DistinctRunIDs(t *testing.T) {
	p, err := New(Options{SkipCompile: true})
	require.NoError(t, err)

	a, err := p.Run(context.Background(), "/p", cleanSet())
	require.NoError(t, err)
	b, err := p.Run(context.Background(), "/p", cleanSet())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}
