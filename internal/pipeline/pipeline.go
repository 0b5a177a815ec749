// Package pipeline runs one generation run over an artifact snapshot: the
// validation stage followed by the compile-repair stage.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/compile"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/metrics"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/validation"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// ErrNoCompiler is returned when the compile stage is enabled without a compiler.
var ErrNoCompiler = errors.New("compile stage enabled without a compiler")

// Options configures a Pipeline.
type Options struct {
	// Validation configures the rule validators.
	Validation validation.Options
	// Compile configures the compile-repair loop.
	Compile compile.Config
	// Compiler is the compile capability. Required unless SkipCompile is set.
	Compiler compile.Compiler
	// Committer materializes snapshots for the compiler. Optional.
	Committer compile.Committer
	// Expansion reads expanded-tree text for marker resolution. Optional.
	Expansion compile.ExpansionSource
	// Metrics receives counters. Optional.
	Metrics *metrics.Recorder
	// Logger is the base logger; each run adds a run_id field.
	Logger *zap.SugaredLogger

	// SkipValidation disables the validation stage.
	SkipValidation bool
	// SkipCompile disables the compile stage.
	SkipCompile bool
	// ForceCompile runs the compile stage even when validation reported errors.
	ForceCompile bool
}

// Pipeline runs validation and compilation stages.
type Pipeline struct {
	opts  Options
	newID func() string
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if !opts.SkipCompile && opts.Compiler == nil {
		return nil, ErrNoCompiler
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Pipeline{
		opts:  opts,
		newID: func() string { return uuid.New().String() },
	}, nil
}

// Report is the result of one run.
type Report struct {
	RunID   string
	Project string
	Started time.Time
	// Duration is the wall time of the whole run.
	Duration time.Duration

	// Validation is nil when the stage was skipped.
	Validation *validation.Report
	// Compile is nil when the stage was skipped or not reached.
	Compile *compile.Outcome
	// CompileSkipped explains why the compile stage did not run, if it did not.
	CompileSkipped string

	// Artifacts is the final snapshot.
	Artifacts *models.ArtifactSet
	// Cancelled is true when a stage unwound on cancellation.
	Cancelled bool
}

// Passed reports whether every stage that ran succeeded.
func (r *Report) Passed() bool {
	if r.Cancelled {
		return false
	}
	if r.Validation != nil && !r.Validation.Passed {
		return false
	}
	if r.Compile != nil && !r.Compile.Succeeded() {
		return false
	}
	return true
}

// Summary renders a short multi-line summary of the run.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	if r.Validation != nil {
		fmt.Fprintf(&sb, "validation: %d errors, %d warnings\n", r.Validation.Errors, r.Validation.Warnings)
	}
	switch {
	case r.Compile != nil:
		fmt.Fprintf(&sb, "compile: %s\n", r.Compile.Message)
	case r.CompileSkipped != "":
		fmt.Fprintf(&sb, "compile: skipped (%s)\n", r.CompileSkipped)
	}
	if r.Cancelled {
		sb.WriteString("run cancelled\n")
	}
	return sb.String()
}

// Run executes the enabled stages over artifacts. The report is always
// non-nil. On cancellation the partial report is returned together with the
// stage's cancellation error.
func (p *Pipeline) Run(ctx context.Context, project string, artifacts *models.ArtifactSet) (*Report, error) {
	report := &Report{
		RunID:     p.newID(),
		Project:   project,
		Started:   time.Now(),
		Artifacts: artifacts,
	}
	logger := p.opts.Logger.With("run_id", report.RunID)
	defer func() {
		report.Duration = time.Since(report.Started)
		logger.Infow("run finished",
			"passed", report.Passed(),
			"cancelled", report.Cancelled,
			"duration", report.Duration,
		)
	}()

	logger.Infow("run started", "project", project, "artifacts", artifacts.Len())

	if !p.opts.SkipValidation {
		vr, err := p.validate(ctx, logger, artifacts)
		report.Validation = vr
		if err != nil {
			report.Cancelled = errors.Is(err, validation.ErrCancelled)
			return report, err
		}
	}

	switch {
	case p.opts.SkipCompile:
		report.CompileSkipped = "disabled"
		return report, nil
	case report.Validation != nil && !report.Validation.Passed && !p.opts.ForceCompile:
		report.CompileSkipped = "validation failed"
		logger.Warnw("skipping compilation", "reason", report.CompileSkipped)
		return report, nil
	}

	outcome, err := p.compile(ctx, logger, project, artifacts)
	report.Compile = outcome
	if outcome != nil && outcome.Artifacts != nil {
		report.Artifacts = outcome.Artifacts
	}
	if err != nil {
		report.Cancelled = errors.Is(err, compile.ErrCancelled)
		return report, err
	}
	return report, nil
}

func (p *Pipeline) validate(ctx context.Context, logger *zap.SugaredLogger, artifacts *models.ArtifactSet) (*validation.Report, error) {
	vopts := p.opts.Validation
	vopts.Logger = logger
	coordinator := validation.NewCoordinator(logger, p.opts.Metrics, validation.DefaultValidators(vopts)...)

	logger.Infow("validation stage", "validators", strings.Join(coordinator.Names(), ","))
	return coordinator.Run(ctx, artifacts)
}

func (p *Pipeline) compile(ctx context.Context, logger *zap.SugaredLogger, project string, artifacts *models.ArtifactSet) (*compile.Outcome, error) {
	opts := []compile.Option{
		compile.WithLogger(logger),
		compile.WithObserver(p.opts.Metrics),
	}
	if p.opts.Committer != nil {
		opts = append(opts, compile.WithCommitter(p.opts.Committer))
	}
	if p.opts.Expansion != nil {
		opts = append(opts, compile.WithExpansion(p.opts.Expansion))
	}
	controller := compile.NewController(p.opts.Compiler, p.opts.Compile, opts...)

	logger.Infow("compile stage", "project", project)
	return controller.Run(ctx, project, artifacts)
}
