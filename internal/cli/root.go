package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/sentinel/internal/github"
	"github.com/dshills/sentinel/internal/providers"
)

const version = "0.1.0"

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var (
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Symbol-aware AI code audit for diffs",
	Long: "Sentinel maps a diff to the indexed functions and classes it touches, " +
		"asks a model to audit each one with similar code as context, and only " +
		"reports findings that point at lines the diff actually added.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx)
}

func execute(ctx context.Context) int {
	exitCode = ExitSuccess
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail reports a runtime error and records the matching exit code. Command
// handlers return its result so cobra does not treat it as a usage error.
func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	if providers.IsAuthError(err) || errors.Is(err, github.ErrAuth) {
		exitCode = ExitAuthError
	} else {
		exitCode = ExitRuntimeError
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print sentinel version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sentinel version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}
