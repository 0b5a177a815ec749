// Package compile drives the bounded compile-repair loop: compile, parse
// diagnostics, map them back to generated artifacts, repair, and retry.
package compile

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/diagnostic"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/sourcemap"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// ErrCancelled is returned when the loop unwinds because the context was cancelled.
var ErrCancelled = errors.New("compilation cancelled")

// maxSummaryErrors bounds the raw errors quoted in a failure message.
const maxSummaryErrors = 5

// Compiler is the external compile capability. It may fail or panic; both are
// converted into a failed attempt.
type Compiler interface {
	Compile(ctx context.Context, project string) (*models.CompileAttemptResult, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, project string) (*models.CompileAttemptResult, error)

// Compile calls f.
func (f CompilerFunc) Compile(ctx context.Context, project string) (*models.CompileAttemptResult, error) {
	return f(ctx, project)
}

// Committer makes a snapshot visible to the compiler, usually by writing the
// artifacts that changed between prev and next to disk.
type Committer interface {
	Commit(ctx context.Context, prev, next *models.ArtifactSet) error
}

// ExpansionSource returns the expanded-tree text a diagnostic refers to.
type ExpansionSource interface {
	Expanded(d models.Diagnostic) (string, bool)
}

// Observer receives attempt and repair notifications, typically for metrics.
type Observer interface {
	ObserveAttempt(success bool)
	ObserveRepair(rule string)
}

// State is a state of the compile-repair loop.
type State string

const (
	StateCompiling State = "Compiling"
	StateFixing    State = "Fixing"
	StateSucceeded State = "Succeeded"
	StateExhausted State = "Exhausted"
	StateUnfixable State = "Unfixable"
	StateCancelled State = "Cancelled"
)

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateExhausted, StateUnfixable, StateCancelled:
		return true
	default:
		return false
	}
}

// Outcome is the result of one loop run.
type Outcome struct {
	// State is the terminal state.
	State State
	// Result is the last attempt result.
	Result models.CompileAttemptResult
	// Attempts holds every attempt result in order.
	Attempts []models.CompileAttemptResult
	// Repairs lists the repairs applied across all attempts.
	Repairs []Repair
	// Artifacts is the final snapshot, including markers and repairs.
	Artifacts *models.ArtifactSet
	// Message is the operator-facing summary.
	Message string
}

// Succeeded reports whether the loop ended with a successful compile.
func (o *Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Controller runs the compile-repair loop.
type Controller struct {
	compiler  Compiler
	committer Committer
	expansion ExpansionSource
	mapper    *sourcemap.Mapper
	repairer  *Repairer
	config    Config
	observer  Observer
	logger    *zap.SugaredLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithCommitter sets the committer. Without one, snapshots are not materialized.
func WithCommitter(c Committer) Option {
	return func(ctl *Controller) { ctl.committer = c }
}

// WithExpansion sets the expanded-tree source used for marker resolution.
func WithExpansion(e ExpansionSource) Option {
	return func(ctl *Controller) { ctl.expansion = e }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(ctl *Controller) { ctl.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// NewController creates a controller around a compile capability.
func NewController(compiler Compiler, config Config, opts ...Option) *Controller {
	c := &Controller{
		compiler: compiler,
		config:   config.withDefaults(),
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mapper = sourcemap.New(c.config.MarkerInterval, c.logger)
	c.repairer = NewRepairer(c.logger)
	return c
}

// loop is the mutable state of one run.
type loop struct {
	state    State
	attempt  int
	snapshot *models.ArtifactSet
	last     models.CompileAttemptResult
	outcome  *Outcome
}

// Run compiles project up to MaxAttempts times, repairing artifacts between
// attempts. The returned outcome is always non-nil. The error is ErrCancelled
// on cancellation, or a commit failure.
func (c *Controller) Run(ctx context.Context, project string, artifacts *models.ArtifactSet) (*Outcome, error) {
	l := &loop{
		state:    StateCompiling,
		snapshot: artifacts,
		outcome:  &Outcome{},
	}

	if c.config.InsertMarkers {
		marked := c.mapper.MarkAll(artifacts)
		if err := c.commit(ctx, artifacts, marked); err != nil {
			return c.finish(l), errors.Wrap(err, "committing markers")
		}
		c.logger.Debugw("location markers committed",
			"artifacts", len(marked.Changed(artifacts)),
			"interval", c.mapper.Interval(),
		)
		l.snapshot = marked
	}

	c.logger.Infow("starting compilation",
		"project", project,
		"max_attempts", c.config.MaxAttempts,
		"artifacts", artifacts.Len(),
	)

	for !l.state.Terminal() {
		var err error
		switch l.state {
		case StateCompiling:
			c.compiling(ctx, project, l)
		case StateFixing:
			err = c.fixing(ctx, l)
		}
		if err != nil {
			return c.finish(l), err
		}
	}

	out := c.finish(l)
	if l.state == StateCancelled {
		return out, ErrCancelled
	}
	return out, nil
}

// compiling runs one attempt and picks the next state:
// Succeeded on success, Exhausted on the last attempt, Fixing otherwise.
func (c *Controller) compiling(ctx context.Context, project string, l *loop) {
	if ctx.Err() != nil {
		l.state = StateCancelled
		return
	}

	l.attempt++
	c.logger.Infow("compilation attempt", "attempt", l.attempt, "max_attempts", c.config.MaxAttempts)

	res := c.compileOnce(ctx, project, l.attempt)
	l.last = res
	l.outcome.Attempts = append(l.outcome.Attempts, res)
	if c.observer != nil {
		c.observer.ObserveAttempt(res.Success)
	}

	switch {
	case res.Success:
		if len(res.Warnings) > 0 {
			c.logger.Warnw("compilation warnings", "attempt", l.attempt, "warnings", strings.Join(res.Warnings, "; "))
		}
		l.state = StateSucceeded
	case ctx.Err() != nil:
		l.state = StateCancelled
	case !c.config.ShouldRetry(l.attempt):
		l.state = StateExhausted
	default:
		c.logger.Warnw("compilation failed", "attempt", l.attempt, "errors", len(res.Errors))
		l.state = StateFixing
	}
}

// fixing applies repairs for the last attempt's errors. Without any repair
// there is no point retrying and the loop ends Unfixable.
func (c *Controller) fixing(ctx context.Context, l *loop) error {
	if ctx.Err() != nil {
		l.state = StateCancelled
		return nil
	}

	next, repairs := c.repair(l.snapshot, l.last)
	if len(repairs) == 0 {
		c.logger.Warnw("no automatic repair applied, stopping", "attempt", l.attempt)
		l.state = StateUnfixable
		return nil
	}

	if err := c.commit(ctx, l.snapshot, next); err != nil {
		return errors.Wrapf(err, "committing repairs after attempt %d", l.attempt)
	}
	l.snapshot = next
	l.outcome.Repairs = append(l.outcome.Repairs, repairs...)
	l.state = StateCompiling
	return nil
}

// compileOnce invokes the compiler, converting errors and panics into a failed result.
func (c *Controller) compileOnce(ctx context.Context, project string, attempt int) (res models.CompileAttemptResult) {
	defer func() {
		if r := recover(); r != nil {
			res = faultResult(attempt, errors.Newf("panic: %v", r))
			c.logger.Errorw("compile capability panicked", "attempt", attempt, "panic", r)
		}
	}()

	out, err := c.compiler.Compile(ctx, project)
	switch {
	case err != nil:
		c.logger.Errorw("compile capability failed", "attempt", attempt, "error", err)
		return faultResult(attempt, err)
	case out == nil:
		return faultResult(attempt, errors.New("no result returned"))
	}
	res = *out
	res.Attempt = attempt
	return res
}

func faultResult(attempt int, err error) models.CompileAttemptResult {
	return models.CompileAttemptResult{
		Success: false,
		Errors:  []string{"compilation service error: " + err.Error()},
		Attempt: attempt,
	}
}

// repair parses every raw error, maps it to an artifact and applies what it can.
// Repairs accumulate in a new snapshot; prev is left untouched.
func (c *Controller) repair(prev *models.ArtifactSet, res models.CompileAttemptResult) (*models.ArtifactSet, []Repair) {
	next := prev
	var applied []Repair

	for _, raw := range res.Errors {
		for _, d := range diagnostic.ParseOrDegenerate(raw) {
			expanded := ""
			if c.expansion != nil {
				if text, ok := c.expansion.Expanded(d); ok {
					expanded = text
				}
			}

			mapped, ok := c.mapper.MapDiagnostic(d, prev, expanded)
			if !ok {
				continue
			}
			current, _ := next.Get(mapped.Artifact.Path)
			rep, content, ok := c.repairer.Repair(current, mapped)
			if !ok {
				continue
			}
			next = next.WithContent(current.Path, content)
			applied = append(applied, rep)
			if c.observer != nil {
				c.observer.ObserveRepair(rep.Rule)
			}
		}
	}
	return next, applied
}

func (c *Controller) commit(ctx context.Context, prev, next *models.ArtifactSet) error {
	if c.committer == nil || prev == next {
		return nil
	}
	return c.committer.Commit(ctx, prev, next)
}

// finish fills the outcome from the loop state.
func (c *Controller) finish(l *loop) *Outcome {
	o := l.outcome
	o.State = l.state
	o.Result = l.last
	o.Artifacts = l.snapshot

	switch l.state {
	case StateSucceeded:
		o.Message = fmt.Sprintf("compilation succeeded on attempt %d", l.attempt)
		if n := len(l.last.Warnings); n > 0 {
			o.Message += fmt.Sprintf(" with %d warnings", n)
		}
	case StateExhausted:
		o.Message = fmt.Sprintf("compilation failed after %d attempts. Errors: %s",
			l.attempt, Summarize(l.last.Errors))
	case StateUnfixable:
		o.Message = fmt.Sprintf("compilation failed after %d attempts (no automatic repair applied). Errors: %s",
			l.attempt, Summarize(l.last.Errors))
	case StateCancelled:
		o.Message = fmt.Sprintf("compilation cancelled after %d attempts", l.attempt)
	default:
		o.Message = fmt.Sprintf("compilation stopped in state %s after %d attempts", l.state, l.attempt)
	}

	c.logger.Infow("compilation finished",
		"state", o.State,
		"attempts", l.attempt,
		"repairs", len(o.Repairs),
	)
	return o
}

// Summarize joins up to the first five raw errors.
func Summarize(errs []string) string {
	if len(errs) == 0 {
		return "unknown compilation error"
	}
	if len(errs) > maxSummaryErrors {
		errs = errs[:maxSummaryErrors]
	}
	return strings.Join(errs, "; ")
}
