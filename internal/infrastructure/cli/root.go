package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	logLevel    string
	logJSON     bool

	shutdownTelemetry func(context.Context) error
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "auditor",
	Version: Version,
	Short:   "Forensic auditor for agent swarm submissions",
	Long: `Auditor grades a trainee submission (a git repository plus a written report)
against a rubric. Detectives collect evidence, three judges argue over it and a
deterministic synthesis engine renders the final verdict.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logJSON)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		env, err := config.LoadEnv()
		if err != nil {
			return err
		}
		shutdown, err := telemetry.Setup(cmd.Context(), "auditor", env.OTelEndpoint, env.OTelEnabled)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		}
		shutdownTelemetry = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		return shutdownTelemetry(context.Background())
	},
}

// Execute runs the root command until it completes or the process is
// interrupted, and prints mapped errors with their hints.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(RootCmd.ErrOrStderr(), err)
	}
	return err
}

// ExitCode returns the process exit status for an error from Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	return 1
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectPath, "project", "C", "", "Workspace directory holding .auditor (defaults to the current directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
	RootCmd.SetVersionTemplate(fmt.Sprintf("auditor %s (commit %s, built %s)\n", Version, Commit, Date))
}
