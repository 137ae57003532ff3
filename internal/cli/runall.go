package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/bisect"
	"github.com/roach88/dexbench/internal/runner"
	"github.com/roach88/dexbench/internal/store"
)

// RunAllOptions holds flags for the runall command.
type RunAllOptions struct {
	*RootOptions

	MaxMemoryMB       int
	Timeout           time.Duration
	IgnoreJavaVersion bool
}

// NewRunAllCommand creates the runall command.
func NewRunAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunAllOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runall",
		Short: "Compile every catalog permutation once",
		Long: `Compile every runnable (app, version, type, compiler, build) combination
in the catalog, stopping at the first failing compile.

Example:
  dexbench runall
  dexbench runall --timeout 20m`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxMemoryMB, "max-memory", 0, "the maximum memory in MB to run with")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-attempt wall clock budget, e.g. 10m")
	cmd.Flags().BoolVar(&opts.IgnoreJavaVersion, "ignore-java-version", false, "do not check the java version")

	return cmd
}

func runAll(opts *RunAllOptions, cmd *cobra.Command) error {
	cfg, cat, err := loadEnvironment(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.IgnoreJavaVersion {
		if err := runner.CheckJavaVersion(ctx, cfg.JavaPath); err != nil {
			return WrapExitError(ExitCommandError, "java version check", err)
		}
	}

	ceiling := opts.MaxMemoryMB
	if ceiling == 0 {
		ceiling = bisect.DefaultWorking
	}

	out := cmd.OutOrStdout()
	r := &runner.Runner{Timeout: opts.Timeout, Stderr: cmd.ErrOrStderr(), Logger: slog.Default()}
	for _, p := range cat.Permutations() {
		sel := TargetOptions{
			Compiler:      p.Tool,
			CompilerBuild: p.Build,
			App:           p.App,
			Version:       p.Version,
			Type:          p.Type,
		}
		target, inv, err := sel.resolve(cfg, cat)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolving target", err)
		}

		fmt.Fprintf(out, "Compiling %s\n", target)
		outcome, stats, err := r.Run(ctx, inv, ceiling)
		if err != nil {
			return WrapExitError(ExitCommandError, "launching compiler", err)
		}
		recordRun(ctx, cfg.DBPath, store.RunRecord{
			Target:    target,
			CeilingMB: ceiling,
			Status:    outcome.Status,
			ExitCode:  outcome.Code,
			Wall:      stats.Wall,
			PeakRSS:   stats.PeakRSS,
		})
		if outcome.Status != bisect.Success {
			return failedPermutationError(target, outcome)
		}
		slog.Info("compile finished",
			"target", target.String(),
			"wall_ms", stats.Wall.Milliseconds(),
			"peak_rss", stats.PeakRSS)
	}
	return nil
}

// failedPermutationError stops the sweep at the first failing compile.
// The process exits with the failed-compile status; the tool's own exit
// status is carried in the message.
func failedPermutationError(target store.Target, outcome bisect.Outcome) *ExitError {
	return NewExitError(ExitFailure,
		fmt.Sprintf("compile of %s ended with %s (exit code %d)", target, outcome.Status, outcome.Code))
}
