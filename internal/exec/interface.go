// Package exec runs external toolchain commands behind an interface so the
// compile stage can be exercised with fakes.
package exec

import (
	"context"
)

// CommandRunner runs external commands.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a command line through "sh -c".
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)

	// Exists reports whether path exists, relative to workDir when not absolute.
	Exists(ctx context.Context, workDir string, path string) bool
}
