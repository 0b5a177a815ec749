// Package diagnostic turns raw compiler and linker output into structured diagnostics.
package diagnostic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

var (
	// file:line[:column]: severity[: (code)]: message
	compilerPattern = regexp.MustCompile(
		`^\s*(.+?):(\d+)(?::(\d+))?:\s*(fatal error|fatal|error|warning|note)\s*:\s*(?:\((\w+)\)\s*:?\s*)?(.*)$`)

	// object(section): [In function 'x':] message
	linkerPattern = regexp.MustCompile(
		"^\\s*([^\\s():]+)\\(([^)]*)\\):\\s*(?:[Ii]n function [`'‘\"]([^`'’\"]+)[`'’\"]:\\s*)?(.*)$")
)

// Parse extracts diagnostics from raw output. Both patterns are applied to
// every line independently; compiler matches come first, then linker matches.
// Nothing is deduplicated.
func Parse(raw string) []models.Diagnostic {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var out []models.Diagnostic
	for _, line := range lines {
		if d, ok := parseCompilerLine(line); ok {
			out = append(out, d)
		}
	}
	for _, line := range lines {
		if d, ok := parseLinkerLine(line); ok {
			out = append(out, d)
		}
	}
	return out
}

// ParseOrDegenerate parses raw and, when neither pattern matches, returns a
// single error diagnostic carrying the raw text as its message.
func ParseOrDegenerate(raw string) []models.Diagnostic {
	if diags := Parse(raw); len(diags) > 0 {
		return diags
	}
	return []models.Diagnostic{{
		Severity: models.DiagError,
		Message:  strings.TrimSpace(raw),
	}}
}

func parseCompilerLine(line string) (models.Diagnostic, bool) {
	m := compilerPattern.FindStringSubmatch(line)
	if m == nil {
		return models.Diagnostic{}, false
	}
	lineNo, _ := strconv.Atoi(m[2])
	col := 0
	if m[3] != "" {
		col, _ = strconv.Atoi(m[3])
	}
	return models.Diagnostic{
		File:     strings.TrimSpace(m[1]),
		Line:     lineNo,
		Column:   col,
		Severity: normalizeSeverity(m[4]),
		Code:     m[5],
		Message:  strings.TrimSpace(m[6]),
	}, true
}

func parseLinkerLine(line string) (models.Diagnostic, bool) {
	m := linkerPattern.FindStringSubmatch(line)
	if m == nil {
		return models.Diagnostic{}, false
	}
	msg := strings.TrimSpace(m[4])
	if msg == "" && m[3] == "" {
		return models.Diagnostic{}, false
	}
	return models.Diagnostic{
		File:     m[1],
		Severity: models.DiagError,
		Function: m[3],
		Message:  msg,
	}, true
}

func normalizeSeverity(s string) models.DiagnosticSeverity {
	switch s {
	case "fatal error", "fatal":
		return models.DiagFatal
	case "warning":
		return models.DiagWarning
	case "note":
		return models.DiagNote
	default:
		return models.DiagError
	}
}
