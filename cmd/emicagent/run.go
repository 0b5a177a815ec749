package main

import (
	"github.com/spf13/cobra"
)

var (
	forceCompile bool
	maxAttempts  int
	noMarkers    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Run the rule validators over a generated artifact tree",
	Long: `Run the five rule validators (LayerSeparation, NonBlocking, StateMachine,
Dependency, BackwardsCompatibility) over every artifact under dir.

The directory defaults to the current directory. The expanded tree
(compile.expanded_dir) is not scanned. Exits with status 1 when any
validator reports an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, stages{validate: true})
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile [dir]",
	Short: "Run the compile-repair loop on a project",
	Long: `Compile the project with compile.command, map diagnostics back to the
generated artifacts and apply automatic repairs between attempts.

Location markers are written into the artifacts before the first attempt
unless --no-markers is given. Repaired files are written back to disk.

Examples:
  emicagent compile                    # Compile the current directory
  emicagent compile ./led-project      # Compile a specific project
  emicagent compile --max-attempts 3   # Stop after three attempts`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, stages{compile: true})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Validate, then compile when validation passes",
	Long: `Run the validation stage and, when it reports no errors, the
compile-repair stage. Use --force to compile despite validation errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, stages{validate: true, compile: true, force: forceCompile})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{compileCmd, checkCmd} {
		cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Maximum compile attempts; overrides compile.max_attempts")
		cmd.Flags().BoolVar(&noMarkers, "no-markers", false, "Do not insert location markers")
	}
	checkCmd.Flags().BoolVar(&forceCompile, "force", false, "Compile even when validation reports errors")
}

// runStages loads the project, runs the selected stages and prints the report.
func runStages(cmd *cobra.Command, args []string, s stages) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.finish()

	if maxAttempts > 0 {
		a.cfg.Compile.MaxAttempts = maxAttempts
	}
	if noMarkers {
		a.cfg.Compile.InsertMarkers = false
	}

	artifacts, err := a.loadArtifacts()
	if err != nil {
		return err
	}
	p, err := a.pipeline(s)
	if err != nil {
		return err
	}

	report, err := p.Run(cmd.Context(), a.project, artifacts)
	printReport(cmd.OutOrStdout(), report)
	if err != nil {
		return err
	}
	if !report.Passed() {
		return errRunFailed
	}
	return nil
}
