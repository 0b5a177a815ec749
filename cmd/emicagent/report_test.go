package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/compile"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/pipeline"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/validation"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPrintReport_ValidationFailure(t *testing.T) {
	noColor(t)

	issue := models.ValidationIssue{
		Path:     "_api/LEDs/led.c",
		Line:     4,
		Rule:     "NoDelayMs",
		Message:  "blocking delay call",
		Severity: models.SeverityError,
	}
	report := &pipeline.Report{
		RunID: "run-1",
		Validation: &validation.Report{
			Outcomes: []*models.ValidationOutcome{
				{Validator: "LayerSeparation", Passed: true},
				{Validator: "NonBlocking", Passed: false, Issues: []models.ValidationIssue{issue}},
			},
			Errors: 1,
		},
		CompileSkipped: "validation failed",
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Run run-1\n")
	assert.Contains(t, out, "✓ LayerSeparation (0 issues)\n")
	assert.Contains(t, out, "✗ NonBlocking (1 issues)\n")
	assert.Contains(t, out, "    "+issue.String()+"\n")
	assert.Contains(t, out, "✗ Validation failed: 1 errors, 0 warnings\n")
	assert.Contains(t, out, "- Compilation skipped: validation failed\n")
}

func TestPrintReport_Compile(t *testing.T) {
	noColor(t)

	report := &pipeline.Report{
		RunID: "run-2",
		Compile: &compile.Outcome{
			State:   compile.StateSucceeded,
			Message: "compilation succeeded on attempt 2 with 1 warnings",
			Result:  models.CompileAttemptResult{Success: true, Warnings: []string{"led.c:9:1: warning: unused"}},
			Repairs: []compile.Repair{{Path: "_api/LEDs/led.c", Header: "hal_gpio.h", Identifier: "HAL_GPIO_PinSet"}},
		},
		CompileSkipped: "",
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "  + _api/LEDs/led.c: added #include \"hal_gpio.h\" for HAL_GPIO_PinSet\n")
	assert.Contains(t, out, "✓ compilation succeeded on attempt 2 with 1 warnings\n")
	assert.Contains(t, out, "    led.c:9:1: warning: unused\n")
	assert.NotContains(t, out, "Validation")
}

func TestPrintReport_Cancelled(t *testing.T) {
	noColor(t)

	report := &pipeline.Report{
		RunID:     "run-3",
		Compile:   &compile.Outcome{State: compile.StateCancelled, Message: "compilation cancelled after 1 attempts"},
		Cancelled: true,
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	assert.Contains(t, buf.String(), "⚠ compilation cancelled after 1 attempts\n")
	assert.Contains(t, buf.String(), "⚠ Run cancelled\n")

	buf.Reset()
	printReport(&buf, nil)
	assert.Empty(t, buf.String())
}
