// Package run implements the run subcommand: launch a target program,
// profile it, and write the report.
package run

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/aggregate"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/config"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/logging"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/runner"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/sampler"
)

// UsageError marks a malformed invocation. The binary exits with code 2.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// ExitError propagates the target program's exit code through cobra.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("target exited with code %d", e.Code)
}

type options struct {
	reportDir string
	logLevel  string
	noPprof   bool
}

func registerFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVar(&opts.reportDir, "report-dir", "", "Report output directory (default from config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.noPprof, "no-pprof", false, "Skip writing the pprof artifact")
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run --report-dir <dir> -- <target> [args...]",
		Short: "Profile a target program and write a performance report",
		Long: `Run a target program under the profiler.

The target and its arguments come after the -- delimiter. Its stdin,
stdout and stderr are passed through, and its exit code becomes the
profiler's exit code. Resource metrics are sampled for the target's
lifetime; report.json (and a pprof artifact) land in the report
directory.

Examples:
  exetrix run --report-dir ./out -- ./myprogram --flag arg
  exetrix run -- sh -c 'sleep 1'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The target is exactly what follows the -- delimiter;
			// anything positional before it is a malformed invocation.
			dash := cmd.ArgsLenAtDash()
			if dash != 0 || len(args) == 0 {
				return &UsageError{Msg: "usage: exetrix run --report-dir <dir> -- <target> [args...]"}
			}
			return execute(cmd.Context(), args, opts)
		},
	}

	registerFlags(cmd.Flags(), &opts)
	return cmd
}

func execute(ctx context.Context, target []string, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.reportDir != "" {
		cfg.ReportDir = opts.reportDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logger := logging.New(logCfg)

	if ctx == nil {
		ctx = context.Background()
	}

	// Call-boundary events only flow for in-process hosts; a subprocess
	// run still gets the full report shape with empty node/edge tables.
	agg := aggregate.New()

	launch, err := runner.Start(ctx, target, logger)
	if err != nil {
		logger.Error().Err(err).Strs("command", target).Msg("Failed to start target")
		return &ExitError{Code: 1}
	}

	smp := sampler.New(sampler.NewProcessSource(int32(launch.PID())), cfg.Profiler.Sampler, logger) //nolint:gosec // PIDs fit in int32.
	smp.Start()

	res := launch.Wait()

	stopErr := smp.Stop()
	if stopErr != nil {
		logger.Warn().Err(stopErr).Msg("Sampler did not stop cleanly; omitting resource samples")
	}

	paths, err := writeReport(cfg.ReportDir, agg, drainSampler(smp, stopErr), res, opts)
	if err != nil {
		// Report I/O failure is fatal, unlike everything on the
		// collection path.
		return err
	}

	logger.Info().
		Strs("reports", paths).
		Int("exit_code", res.ExitCode).
		Dur("wall", res.Wall).
		Msg("Profiler finished")

	if res.ExitCode != 0 {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}
