package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/bisect"
	"github.com/roach88/dexbench/internal/dexseg"
	"github.com/roach88/dexbench/internal/runner"
	"github.com/roach88/dexbench/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Target TargetOptions

	MaxMemoryMB       int
	Timeout           time.Duration
	ExpectOOM         bool
	IgnoreJavaVersion bool
	DumpArgsFile      string
	TrackMemoryFile   string
	PrintRuntimeRaw   string
	PrintMemoryUse    string
	PrintDexSegments  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile one app once and report metrics",
		Long: `Compile one application version with the selected compiler and report
timing and memory metrics.

Example:
  dexbench run --compiler r8 --app gmscore
  dexbench run --compiler d8 --app youtube --version 12.22 --max-memory 600`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(opts, cmd)
		},
	}

	registerTargetFlags(cmd, &opts.Target)
	cmd.Flags().IntVar(&opts.MaxMemoryMB, "max-memory", 0, "the maximum memory in MB to run with")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-attempt wall clock budget, e.g. 10m")
	cmd.Flags().BoolVar(&opts.ExpectOOM, "expect-oom", false, "expect that compilation will fail with an OOM")
	cmd.Flags().BoolVar(&opts.IgnoreJavaVersion, "ignore-java-version", false, "do not check the java version")
	cmd.Flags().StringVar(&opts.DumpArgsFile, "dump-args-file", "", "dump the compiler arguments to a file instead of running")
	cmd.Flags().StringVar(&opts.TrackMemoryFile, "track-memory-to-file", "", "track the memory usage of the process to the given file")
	cmd.Flags().StringVar(&opts.PrintRuntimeRaw, "print-runtimeraw", "", "print '<name>(RunTimeRaw): <elapsed> ms' at the end")
	cmd.Flags().StringVar(&opts.PrintMemoryUse, "print-memoryuse", "", "print '<name>(MemoryUse): <bytes>' at the end")
	cmd.Flags().StringVar(&opts.PrintDexSegments, "print-dexsegments", "", "print the sizes of individual dex segments")

	return cmd
}

// validate rejects conflicting flag combinations before anything runs.
func (o *RunOptions) validate() error {
	if o.ExpectOOM && o.MaxMemoryMB == 0 {
		return NewExitError(ExitCommandError, "--expect-oom requires --max-memory")
	}
	if o.ExpectOOM && o.Timeout != 0 {
		return NewExitError(ExitCommandError, "--expect-oom cannot be combined with --timeout")
	}
	return nil
}

func runOnce(opts *RunOptions, cmd *cobra.Command) error {
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

	if opts.DumpArgsFile != "" {
		body := strings.Join(inv.CommandLine(opts.MaxMemoryMB), "\n") + "\n"
		if err := os.WriteFile(opts.DumpArgsFile, []byte(body), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "writing args file", err)
		}
		return nil
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

	trackFile := opts.TrackMemoryFile
	if opts.PrintMemoryUse != "" && trackFile == "" {
		tmp, err := os.MkdirTemp("", "dexbench-memuse")
		if err != nil {
			return WrapExitError(ExitCommandError, "creating memory tracking file", err)
		}
		defer os.RemoveAll(tmp)
		trackFile = filepath.Join(tmp, "status")
	}

	r := &runner.Runner{
		Timeout:         opts.Timeout,
		Stderr:          cmd.ErrOrStderr(),
		TrackMemoryPath: trackFile,
		Logger:          slog.Default(),
	}
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

	if opts.ExpectOOM {
		if outcome.Status != bisect.OutOfMemory {
			return NewExitError(ExitFailure,
				fmt.Sprintf("expected an OOM at %d MB but the compile ended with %s", ceiling, outcome.Status))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Compile ran out of memory at %d MB, as expected\n", ceiling)
		return nil
	}
	if outcome.Status != bisect.Success {
		return NewExitError(ExitFailure,
			fmt.Sprintf("compile of %s ended with %s", target, outcome.Status))
	}

	out := cmd.OutOrStdout()
	if opts.PrintRuntimeRaw != "" {
		fmt.Fprintf(out, "%s(RunTimeRaw): %d ms\n", opts.PrintRuntimeRaw, stats.Wall.Milliseconds())
	}
	if opts.PrintMemoryUse != "" {
		fmt.Fprintf(out, "%s(MemoryUse): %d\n", opts.PrintMemoryUse, stats.PeakRSS)
	}
	if opts.PrintDexSegments != "" {
		outDir := filepath.Join(cfg.OutDir, target.App, target.Version, target.Type)
		dexFiles, err := filepath.Glob(filepath.Join(outDir, "*.dex"))
		if err == nil {
			var sizes dexseg.Sizes
			sizes, err = dexseg.Measure(ctx, cfg.JavaPath, inv.Jar, dexFiles)
			if err == nil {
				dexseg.Print(out, opts.PrintDexSegments, sizes)
			}
		}
		if err != nil {
			return WrapExitError(ExitFailure, "measuring dex segments", err)
		}
	}
	return nil
}

// recordRun persists the attempt when a history database is configured.
// Recording is best effort; a broken database never fails the compile.
func recordRun(ctx context.Context, dbPath string, rec store.RunRecord) {
	if dbPath == "" {
		return
	}
	st, err := store.Open(dbPath)
	if err != nil {
		slog.Warn("run history unavailable", "db", dbPath, "error", err)
		return
	}
	defer st.Close()
	if _, err := st.WriteRun(ctx, rec); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}
