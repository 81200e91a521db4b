// Package main provides the exetrix binary: a call-tracing profiler that
// runs a target program and writes an aggregated performance report.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/cli/run"
	"github.com/Evan-Pochtar/ExetrixAnalysis/pkg/version"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "exetrix",
		Short:         "Exetrix - execution tracing profiler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Unknown or malformed flags are usage errors, same as a missing
	// target, and exit with code 2.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &run.UsageError{Msg: err.Error()}
	})

	rootCmd.AddCommand(run.NewRunCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var usageErr *run.UsageError
		var exitErr *run.ExitError
		switch {
		case errors.As(err, &usageErr):
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		case errors.As(err, &exitErr):
			// The target's exit code is the profiler's exit code.
			os.Exit(exitErr.Code)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Exetrix version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
