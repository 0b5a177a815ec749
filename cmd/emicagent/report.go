package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/compile"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/pipeline"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/validation"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// printReport renders a run report for the terminal.
func printReport(w io.Writer, r *pipeline.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint("Run"), r.RunID)

	if r.Validation != nil {
		printValidation(w, r.Validation)
	}
	switch {
	case r.Compile != nil:
		printCompile(w, r.Compile)
	case r.CompileSkipped != "" && r.CompileSkipped != "disabled":
		printStatus(w, "-", "Compilation skipped: "+r.CompileSkipped, color.FgYellow)
	}
	if r.Cancelled {
		printStatus(w, "⚠", "Run cancelled", color.FgYellow)
	}
}

func printValidation(w io.Writer, vr *validation.Report) {
	for _, o := range vr.Outcomes {
		if o.Passed {
			printStatus(w, "✓", fmt.Sprintf("%s (%d issues)", o.Validator, len(o.Issues)), color.FgGreen)
		} else {
			printStatus(w, "✗", fmt.Sprintf("%s (%d issues)", o.Validator, len(o.Issues)), color.FgRed)
		}
		for _, issue := range o.Issues {
			attr := color.FgYellow
			if issue.Severity == models.SeverityError {
				attr = color.FgRed
			}
			fmt.Fprintf(w, "    %s\n", color.New(attr).Sprint(issue.String()))
		}
	}

	if vr.Passed {
		printStatus(w, "✓", fmt.Sprintf("Validation passed: %d warnings", vr.Warnings), color.FgGreen)
		return
	}
	printStatus(w, "✗", fmt.Sprintf("Validation failed: %d errors, %d warnings", vr.Errors, vr.Warnings), color.FgRed)
}

func printCompile(w io.Writer, o *compile.Outcome) {
	for _, rep := range o.Repairs {
		fmt.Fprintf(w, "  %s %s\n", color.New(color.FgCyan).Sprint("+"), rep.String())
	}

	switch o.State {
	case compile.StateSucceeded:
		printStatus(w, "✓", o.Message, color.FgGreen)
	case compile.StateCancelled:
		printStatus(w, "⚠", o.Message, color.FgYellow)
	default:
		printStatus(w, "✗", o.Message, color.FgRed)
	}

	if !o.Succeeded() {
		return
	}
	for _, warning := range o.Result.Warnings {
		fmt.Fprintf(w, "    %s\n", color.New(color.FgYellow).Sprint(warning))
	}
}
