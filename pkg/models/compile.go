package models

import "fmt"

// DiagnosticSeverity is the severity reported by the compiler.
type DiagnosticSeverity string

const (
	DiagError   DiagnosticSeverity = "error"
	DiagWarning DiagnosticSeverity = "warning"
	DiagFatal   DiagnosticSeverity = "fatal"
	DiagNote    DiagnosticSeverity = "note"
)

// IsError reports whether the severity stops the build.
func (s DiagnosticSeverity) IsError() bool {
	return s == DiagError || s == DiagFatal
}

// Diagnostic is a structured compiler message. File refers to whatever path
// the compiler printed, which is usually inside the expanded tree.
type Diagnostic struct {
	File     string             `json:"file,omitempty"`
	Line     int                `json:"line,omitempty"`
	Column   int                `json:"column,omitempty"`
	Severity DiagnosticSeverity `json:"severity"`
	Code     string             `json:"code,omitempty"`
	// Function is set for linker diagnostics that name the enclosing function.
	Function string `json:"function,omitempty"`
	Message  string `json:"message"`
}

// String renders the diagnostic in compiler style.
func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Severity, d.Message)
}

// LocationMapping ties an expanded-tree line back to the generated artifact.
type LocationMapping struct {
	OriginalPath string `json:"original_path"`
	OriginalLine int    `json:"original_line"`
	ExpandedLine int    `json:"expanded_line"`
}

// CompileAttemptResult is the outcome of one invocation of the compile capability.
type CompileAttemptResult struct {
	Success  bool     `json:"success"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Attempt  int      `json:"attempt"`
}
