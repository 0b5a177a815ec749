package compile

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/diagnostic"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/exec"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// ProjectPlaceholder is replaced by the project path in the compile command.
const ProjectPlaceholder = "{project}"

// tailLines is how many output lines are reported when a failed build printed
// no recognizable diagnostic.
const tailLines = 5

// CommandCompiler implements Compiler by running a toolchain command line.
// The build succeeds when the command exits with status 0.
type CommandCompiler struct {
	runner  exec.CommandRunner
	command string
	argv    []string
	shell   bool
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// CommandOption configures a CommandCompiler.
type CommandOption func(*CommandCompiler)

// WithShell runs the command line through "sh -c" instead of splitting it.
func WithShell(shell bool) CommandOption {
	return func(c *CommandCompiler) { c.shell = shell }
}

// WithTimeout bounds each invocation. Zero means no timeout.
func WithTimeout(d time.Duration) CommandOption {
	return func(c *CommandCompiler) { c.timeout = d }
}

// WithCommandLogger sets the logger.
func WithCommandLogger(l *zap.SugaredLogger) CommandOption {
	return func(c *CommandCompiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCommandCompiler parses command with shell quoting rules.
func NewCommandCompiler(runner exec.CommandRunner, command string, opts ...CommandOption) (*CommandCompiler, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing compile command %q", command)
	}
	if len(argv) == 0 {
		return nil, errors.New("compile command is empty")
	}

	c := &CommandCompiler{
		runner:  runner,
		command: command,
		argv:    argv,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compile runs the command in the project directory. A non-zero exit yields a
// failed result; a command that cannot be started or times out is an error.
func (c *CommandCompiler) Compile(ctx context.Context, project string) (*models.CompileAttemptResult, error) {
	if !c.runner.Exists(ctx, "", project) {
		return nil, errors.Newf("project directory %s does not exist", project)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		out []byte
		err error
	)
	if c.shell {
		line := strings.ReplaceAll(c.command, ProjectPlaceholder, shellquote.Join(project))
		out, err = c.runner.RunShell(runCtx, project, line)
	} else {
		args := make([]string, len(c.argv))
		for i, a := range c.argv {
			args[i] = strings.ReplaceAll(a, ProjectPlaceholder, project)
		}
		out, err = c.runner.Run(runCtx, project, args[0], args[1:]...)
	}

	if runCtx.Err() != nil {
		return nil, errors.Wrapf(runCtx.Err(), "compile command %q did not finish", c.command)
	}
	if err != nil {
		if _, exited := exec.ExitCode(err); !exited {
			return nil, errors.Wrapf(err, "starting compile command %q", c.command)
		}
	}

	res := Classify(string(out))
	res.Success = err == nil
	if !res.Success && len(res.Errors) == 0 {
		res.Errors = tail(string(out), tailLines)
		if len(res.Errors) == 0 {
			res.Errors = []string{err.Error()}
		}
	}

	c.logger.Debugw("compile command finished",
		"command", c.command,
		"success", res.Success,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
	)
	return &res, nil
}

// Classify splits toolchain output into raw error and warning lines. Lines are
// kept verbatim, trimmed and deduplicated, so they parse again later.
func Classify(output string) models.CompileAttemptResult {
	var res models.CompileAttemptResult
	seen := make(map[string]bool)

	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		diags := diagnostic.Parse(line)
		if len(diags) == 0 {
			continue
		}
		seen[line] = true
		switch {
		case diags[0].Severity.IsError():
			res.Errors = append(res.Errors, line)
		case diags[0].Severity == models.DiagWarning:
			res.Warnings = append(res.Warnings, line)
		}
	}
	return res
}

func tail(output string, n int) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Verify CommandCompiler implements Compiler at compile time.
var _ Compiler = (*CommandCompiler)(nil)
