package exec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct {
	env    []string
	logger *zap.SugaredLogger
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithEnv appends KEY=VALUE entries to the inherited environment.
func WithEnv(env ...string) Option {
	return func(r *ExecRunner) {
		r.env = append(r.env, env...)
	}
}

// WithLogger sets the logger used for per-command debug output.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(r *ExecRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new ExecRunner.
func NewRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a command and returns combined stdout/stderr output.
func (r *ExecRunner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	start := time.Now()
	out, err := cmd.CombinedOutput()
	r.logger.Debugw("command finished",
		"command", name,
		"args", args,
		"dir", workDir,
		"duration", time.Since(start),
		"error", err,
	)
	return out, err
}

// RunShell executes a shell command through "sh -c".
func (r *ExecRunner) RunShell(ctx context.Context, workDir string, command string) ([]byte, error) {
	return r.Run(ctx, workDir, "sh", "-c", command)
}

// Exists checks if a file exists at the given path.
func (r *ExecRunner) Exists(_ context.Context, workDir string, path string) bool {
	if !filepath.IsAbs(path) && workDir != "" {
		path = filepath.Join(workDir, path)
	}
	_, err := os.Stat(path)
	return err == nil
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
