package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/workspace"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-run validation whenever an artifact changes",
	Long: `Validate the artifact tree once, then again each time a .emic, .h, .c,
.json or .xml file under dir changes. Bursts of edits are collapsed into a
single run. Stops on interrupt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", workspace.DefaultDebounce, "Quiet period before a change triggers validation")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.finish()

	p, err := a.pipeline(stages{validate: true})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	validate := func() {
		artifacts, err := a.loadArtifacts()
		if err != nil {
			a.logger.Warnw("cannot load artifacts", "error", err)
			return
		}
		report, err := p.Run(cmd.Context(), a.project, artifacts)
		if err != nil {
			a.logger.Warnw("validation interrupted", "error", err)
			return
		}
		printReport(out, report)
	}

	w, err := workspace.NewWatcher(a.project, watchDebounce, a.logger, a.excluded()...)
	if err != nil {
		return err
	}

	validate()
	fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", a.project)

	return w.Run(cmd.Context(), func(paths []string) {
		fmt.Fprintf(out, "\nChanged: %s\n", strings.Join(paths, ", "))
		validate()
	})
}
