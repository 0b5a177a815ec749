package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// errRunFailed signals a completed run that did not pass. The report has
// already been printed, so only the exit status is left to set.
var errRunFailed = errors.New("run failed")

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "emicagent",
	Short: "Validate and compile generated EMIC SDK artifacts",
	Long: `emicagent checks generated EMIC SDK artifacts (.emic scripts, C headers
and implementation files) before they reach the native toolchain.

It runs five rule validators over the artifact tree, then compiles the
project, maps compiler diagnostics back to the generated files through
location markers, applies small automatic repairs and retries, up to a
bounded number of attempts.

Configuration is read from ~/.config/emicagent/config.yaml, a project
.emicagent.yaml and EMICAGENT_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running stage.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Read configuration from this file instead of the user and project configs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides logging.level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json); overrides logging.format")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
