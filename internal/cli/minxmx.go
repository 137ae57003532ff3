package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/archive"
	"github.com/roach88/dexbench/internal/bisect"
	"github.com/roach88/dexbench/internal/config"
	"github.com/roach88/dexbench/internal/runner"
	"github.com/roach88/dexbench/internal/store"
)

// MinXmxOptions holds flags for the minxmx command.
type MinXmxOptions struct {
	*RootOptions
	Target TargetOptions

	MinMB             int
	MaxMB             int
	RangeMB           int
	Timeout           time.Duration
	Archive           bool
	Revision          string
	IgnoreJavaVersion bool
}

// NewMinXmxCommand creates the minxmx command.
func NewMinXmxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MinXmxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "minxmx",
		Short: "Bisect the minimum heap size a compile succeeds with",
		Long: `Bisect the -Xmx value between a known failing floor and a known working
ceiling until the uncertainty interval is narrower than the requested
range. Each probe compiles the app once at the candidate heap size.

Example:
  dexbench minxmx --compiler r8 --app gmscore
  dexbench minxmx --compiler d8 --app youtube --min 256 --max 2048 --range 16`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMinXmx(opts, cmd)
		},
	}

	registerTargetFlags(cmd, &opts.Target)
	cmd.Flags().IntVar(&opts.MinMB, "min", 0, "known failing heap size in MB (default depends on the compiler)")
	cmd.Flags().IntVar(&opts.MaxMB, "max", bisect.DefaultWorking, "known working heap size in MB")
	cmd.Flags().IntVar(&opts.RangeMB, "range", bisect.DefaultRangeSize, "stop when the interval is this narrow, in MB")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-attempt wall clock budget, e.g. 10m")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "archive the found range")
	cmd.Flags().StringVar(&opts.Revision, "revision", "", "compiler revision to archive the range under")
	cmd.Flags().BoolVar(&opts.IgnoreJavaVersion, "ignore-java-version", false, "do not check the java version")

	return cmd
}

func (o *MinXmxOptions) validate() error {
	if o.Archive && o.Revision == "" {
		return NewExitError(ExitCommandError, "--archive requires --revision")
	}
	return nil
}

func runMinXmx(opts *MinXmxOptions, cmd *cobra.Command) error {
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

	notWorking := opts.MinMB
	if notWorking == 0 {
		notWorking = bisect.DefaultNotWorking(target.Tool)
	}

	r := &runner.Runner{Timeout: opts.Timeout, Stderr: cmd.ErrOrStderr(), Logger: slog.Default()}
	attempts := 0
	attempt := func(ctx context.Context, ceilingMB int) (bisect.Outcome, error) {
		attempts++
		outcome, stats, err := r.Run(ctx, inv, ceilingMB)
		if err != nil {
			return bisect.Outcome{}, err
		}
		slog.Debug("attempt finished",
			"ceiling_mb", ceilingMB,
			"status", outcome.Status,
			"wall_ms", stats.Wall.Milliseconds())
		recordRun(ctx, cfg.DBPath, store.RunRecord{
			Target:    target,
			CeilingMB: ceilingMB,
			Status:    outcome.Status,
			ExitCode:  outcome.Code,
			Wall:      stats.Wall,
			PeakRSS:   stats.PeakRSS,
		})
		return outcome, nil
	}

	// Under JSON output the probe log moves to stderr so stdout stays a
	// single machine-readable document.
	progress := cmd.OutOrStdout()
	if opts.Format == "json" {
		progress = cmd.ErrOrStderr()
	}
	searchOpts := bisect.Options{
		NotWorking: notWorking,
		Working:    opts.MaxMB,
		RangeSize:  opts.RangeMB,
	}
	iv, err := searchMinXmx(ctx, progress, searchOpts, attempt)
	if err != nil {
		var failure *bisect.FailureError
		if errors.As(err, &failure) {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("compile of %s failed for a reason other than memory", target), err)
		}
		return WrapExitError(ExitCommandError, "bisection aborted", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := reportRange(formatter, target, iv, attempts); err != nil {
		return WrapExitError(ExitCommandError, "writing result", err)
	}

	recordSearch(ctx, cfg.DBPath, store.SearchRecord{
		Target:    target,
		Interval:  iv,
		RangeSize: opts.RangeMB,
		Attempts:  attempts,
	})

	if opts.Archive {
		if err := archiveRange(ctx, cfg, opts.Revision, target, iv); err != nil {
			return WrapExitError(ExitCommandError, "archiving range", err)
		}
	}
	return nil
}

// RangeResult is the JSON payload of a completed search.
type RangeResult struct {
	Tool       string `json:"tool"`
	Build      string `json:"build"`
	App        string `json:"app"`
	Version    string `json:"version"`
	Type       string `json:"type"`
	NotWorking int    `json:"not_working"`
	Working    int    `json:"working"`
	Attempts   int    `json:"attempts"`
}

// reportRange writes the found range in the selected output format: the
// archived text line, or a RangeResult document under JSON.
func reportRange(f *OutputFormatter, target store.Target, iv bisect.Interval, attempts int) error {
	if f.Format == "json" {
		return f.Success(RangeResult{
			Tool:       target.Tool,
			Build:      target.Build,
			App:        target.App,
			Version:    target.Version,
			Type:       target.Type,
			NotWorking: iv.NotWorking,
			Working:    iv.Working,
			Attempts:   attempts,
		})
	}
	_, err := fmt.Fprintln(f.Writer, archive.FormatRange(iv))
	return err
}

// searchMinXmx drives the bisection, printing one line per probe so long
// searches show progress as they go.
func searchMinXmx(ctx context.Context, out io.Writer, opts bisect.Options, attempt bisect.AttemptFunc) (bisect.Interval, error) {
	prev := opts.Observer
	opts.Observer = func(step bisect.Step) {
		fmt.Fprintf(out, "Tried with %d MB: %s (working: %d, not working: %d)\n",
			step.Candidate, step.Outcome.Status, step.Interval.Working, step.Interval.NotWorking)
		if prev != nil {
			prev(step)
		}
	}
	return bisect.Search(ctx, opts, attempt)
}

// recordSearch persists the search result when a history database is
// configured. Best effort, like recordRun.
func recordSearch(ctx context.Context, dbPath string, rec store.SearchRecord) {
	if dbPath == "" {
		return
	}
	st, err := store.Open(dbPath)
	if err != nil {
		slog.Warn("search history unavailable", "db", dbPath, "error", err)
		return
	}
	defer st.Close()
	if _, err := st.WriteSearch(ctx, rec); err != nil {
		slog.Warn("failed to record search", "error", err)
	}
}

// archiveRange writes the found range to the configured archive backend.
func archiveRange(ctx context.Context, cfg *config.Config, revision string, target store.Target, iv bisect.Interval) error {
	arch, err := newArchiver(cfg)
	if err != nil {
		return err
	}
	key := archive.Key(revision, target.Tool, target.Build, target.App, target.Version, target.Type)
	return arch.Put(ctx, key, []byte(archive.FormatRange(iv)+"\n"))
}

// newArchiver selects the archive backend the configuration names.
func newArchiver(cfg *config.Config) (archive.Archiver, error) {
	switch {
	case cfg.Archive.Endpoint != "":
		return archive.NewObjectArchiver(cfg.Archive)
	case cfg.Archive.Dir != "":
		return archive.NewDirArchiver(cfg.Archive.Dir), nil
	default:
		return nil, fmt.Errorf("no archive backend configured: set archive.dir or archive.endpoint")
	}
}
