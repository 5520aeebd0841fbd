// Package cli wires configuration, logging and the scan services into the
// secretscan command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/config"
	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/internal/server"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfg      config.Config
	log      *zap.SugaredLogger
	logLevel string
	exitCode int
}

// Run executes the command line and returns the process exit code.
func Run() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{exitCode: ExitSuccess}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		// cobra already printed the error
		var rerr *runtimeError
		if errors.As(err, &rerr) {
			return ExitRuntimeError
		}
		return ExitUsageError
	}
	return a.exitCode
}

// runtimeError marks a command failure that is not the caller's misuse:
// bad configuration, an unusable environment or an output write error.
type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

func failed(err error) error {
	if err == nil {
		return nil
	}
	return &runtimeError{err: err}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "secretscan",
		Short:        "Scan git history for committed secrets",
		Long:         "secretscan clones a repository with its full history and reports secrets added in any commit, including ones deleted since.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(a.serveCmd())
	root.AddCommand(a.scanCmd())
	root.AddCommand(a.patternsCmd())
	root.AddCommand(a.versionCmd())
	return root
}

// setup loads configuration and starts the logger. Console logs go to
// console so command output on stdout stays machine readable.
func (a *app) setup(console io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := logger.Init(logger.Options{Level: cfg.LogLevel, Path: cfg.LogPath, Console: console}); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.GetSugaredLogger()
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print secretscan version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "secretscan version %s\n", server.Version)
		},
	}
}
