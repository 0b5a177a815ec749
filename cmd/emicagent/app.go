package main

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/compile"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/config"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/exec"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/inventory"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/logging"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/metrics"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/pipeline"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/validation"
	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/workspace"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// app carries what every run-oriented command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.SugaredLogger
	metrics *metrics.Recorder
	project string
}

// newApp loads configuration, builds the logger and resolves the project
// directory from the optional positional argument.
func newApp(args []string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	project := "."
	if len(args) > 0 {
		project = args[0]
	}
	project, err = filepath.Abs(project)
	if err != nil {
		return nil, errors.Wrap(err, "resolving project directory")
	}
	if info, err := os.Stat(project); err != nil || !info.IsDir() {
		return nil, errors.Newf("project directory %s does not exist", project)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		project: project,
	}, nil
}

// loadConfig reads the --config file when given, else the layered configuration.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromPath(configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	return cfg, nil
}

// loadArtifacts reads the project tree, leaving out the expanded tree.
func (a *app) loadArtifacts() (*models.ArtifactSet, error) {
	return workspace.Load(a.project, a.excluded()...)
}

func (a *app) excluded() []string {
	if a.cfg.Compile.ExpandedDir == "" || filepath.IsAbs(a.cfg.Compile.ExpandedDir) {
		return nil
	}
	return []string{filepath.Base(a.cfg.Compile.ExpandedDir)}
}

func (a *app) validationOptions() (validation.Options, error) {
	opts := validation.Options{
		EntryFunction:     a.cfg.Validation.EntryFunction,
		BodyLineThreshold: a.cfg.Validation.BodyLineThreshold,
		Disabled:          a.cfg.Validation.Disabled,
	}
	if a.cfg.Validation.Inventory != "" {
		snapshot, err := inventory.Load(a.cfg.Validation.Inventory)
		if err != nil {
			return opts, err
		}
		a.logger.Debugw("inventory loaded",
			"path", a.cfg.Validation.Inventory,
			"paths", snapshot.Size(),
			"categories", snapshot.Categories(),
		)
		opts.Inventory = snapshot
	}
	return opts, nil
}

// stages selects the pipeline stages of a command.
type stages struct {
	validate bool
	compile  bool
	force    bool
}

func (a *app) pipeline(s stages) (*pipeline.Pipeline, error) {
	vopts, err := a.validationOptions()
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Validation:     vopts,
		Metrics:        a.metrics,
		Logger:         a.logger,
		SkipValidation: !s.validate,
		SkipCompile:    !s.compile,
		ForceCompile:   s.force,
	}
	if s.compile {
		compiler, err := compile.NewCommandCompiler(
			exec.NewRunner(exec.WithLogger(a.logger)),
			a.cfg.Compile.Command,
			compile.WithShell(a.cfg.Compile.Shell),
			compile.WithTimeout(a.cfg.Compile.Timeout),
			compile.WithCommandLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
		opts.Compiler = compiler
		opts.Compile = compile.Config{
			MaxAttempts:    a.cfg.Compile.MaxAttempts,
			InsertMarkers:  a.cfg.Compile.InsertMarkers,
			MarkerInterval: a.cfg.Compile.MarkerInterval,
		}
		opts.Committer = workspace.NewCommitter(a.project, a.logger)
		opts.Expansion = workspace.NewExpandedTree(a.project, a.cfg.Compile.ExpandedDir)
	}
	return pipeline.New(opts)
}

// finish flushes the logger and writes the metrics textfile if configured.
func (a *app) finish() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warnw("metrics export failed", "error", err)
	}
	_ = a.logger.Sync()
}
