package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/bisect"
	"github.com/roach88/dexbench/internal/runner"
	"github.com/roach88/dexbench/internal/store"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Target TargetOptions

	MinMB             int
	MaxMB             int
	IncrementMB       int
	Timeout           time.Duration
	IgnoreJavaVersion bool
}

// sweepRow is one measured point of a heap sweep. Wall is negative when
// the compile did not succeed at that ceiling.
type sweepRow struct {
	CeilingMB int
	WallMS    int64
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Measure compile time across a range of heap sizes",
		Long: `Compile the same app repeatedly while stepping the -Xmx ceiling from
--min to --max, and print a table of compile time per heap size.

Example:
  dexbench sweep --compiler r8 --app gmscore --min 600 --max 1024
  dexbench sweep --compiler d8 --app youtube --min 128 --max 512 --increment 64`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	registerTargetFlags(cmd, &opts.Target)
	cmd.Flags().IntVar(&opts.MinMB, "min", 0, "lowest heap size in MB to measure")
	cmd.Flags().IntVar(&opts.MaxMB, "max", 0, "highest heap size in MB to measure")
	cmd.Flags().IntVar(&opts.IncrementMB, "increment", bisect.DefaultRangeSize, "step between measured heap sizes, in MB")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-attempt wall clock budget, e.g. 10m")
	cmd.Flags().BoolVar(&opts.IgnoreJavaVersion, "ignore-java-version", false, "do not check the java version")
	_ = cmd.MarkFlagRequired("min")
	_ = cmd.MarkFlagRequired("max")

	return cmd
}

func (o *SweepOptions) validate() error {
	if o.MinMB <= 0 || o.MaxMB <= 0 {
		return NewExitError(ExitCommandError, "--min and --max must be positive")
	}
	if o.MinMB > o.MaxMB {
		return NewExitError(ExitCommandError, "--min must not exceed --max")
	}
	if o.IncrementMB <= 0 {
		return NewExitError(ExitCommandError, "--increment must be positive")
	}
	return nil
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, cat, err := loadEnvironment(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}
	target, inv, err := opts.Target.resolve(cfg, cat)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving target", err)
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

	r := &runner.Runner{Timeout: opts.Timeout, Stderr: cmd.ErrOrStderr(), Logger: slog.Default()}
	var rows []sweepRow
	for ceiling := opts.MinMB; ceiling <= opts.MaxMB; ceiling += opts.IncrementMB {
		outcome, stats, err := r.Run(ctx, inv, ceiling)
		if err != nil {
			return WrapExitError(ExitCommandError, "launching compiler", err)
		}
		slog.Debug("sweep point finished",
			"ceiling_mb", ceiling,
			"status", outcome.Status,
			"wall_ms", stats.Wall.Milliseconds())
		recordRun(ctx, cfg.DBPath, store.RunRecord{
			Target:    target,
			CeilingMB: ceiling,
			Status:    outcome.Status,
			ExitCode:  outcome.Code,
			Wall:      stats.Wall,
			PeakRSS:   stats.PeakRSS,
		})
		wall := int64(-1)
		if outcome.Status == bisect.Success {
			wall = stats.Wall.Milliseconds()
		}
		rows = append(rows, sweepRow{CeilingMB: ceiling, WallMS: wall})
	}

	printSweepTable(cmd.OutOrStdout(), rows)
	return nil
}

// printSweepTable renders the sweep results as a tab separated table,
// ready to paste into a spreadsheet.
func printSweepTable(out io.Writer, rows []sweepRow) {
	fmt.Fprintln(out, "Memory (MB)\tTime (ms)")
	for _, row := range rows {
		fmt.Fprintf(out, "%d\t%d\n", row.CeilingMB, row.WallMS)
	}
}
