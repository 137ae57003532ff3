package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/appcatalog"
	"github.com/roach88/dexbench/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions

	Limit         int
	Compiler      string
	CompilerBuild string
	App           string
	Version       string
	Type          string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded searches and runs",
		Long: `Show the most recent minimum-Xmx searches from the history database, or,
when a target is selected, the individual compile attempts for it.

Example:
  dexbench history
  dexbench history --compiler r8 --app gmscore`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of entries to show")
	cmd.Flags().StringVar(&opts.Compiler, "compiler", "", "show runs for this compiler (d8|r8)")
	cmd.Flags().StringVar(&opts.CompilerBuild, "compiler-build", "lib", "compiler build (full|lib)")
	cmd.Flags().StringVar(&opts.App, "app", "", "show runs for this app")
	cmd.Flags().StringVar(&opts.Version, "version", "", "the version of the app")
	cmd.Flags().StringVar(&opts.Type, "type", "", "default for R8: deploy, for D8: proguarded")
	cmd.MarkFlagsRequiredTogether("compiler", "app")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	cfg, cat, err := loadEnvironment(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if cfg.DBPath == "" {
		return NewExitError(ExitCommandError, "no history database configured: set db_path")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening history database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	formatter := &OutputFormatter{Format: opts.Format, Writer: out}

	if opts.App != "" {
		typ := opts.Type
		if typ == "" {
			typ = appcatalog.DefaultType(opts.Compiler)
		}
		_, version, err := cat.Lookup(opts.App, opts.Version, typ)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolving target", err)
		}
		target := store.Target{
			Tool:    opts.Compiler,
			Build:   opts.CompilerBuild,
			App:     opts.App,
			Version: version,
			Type:    typ,
		}
		runs, err := st.RunsForTarget(ctx, target, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading run history", err)
		}
		if formatter.Format == "json" {
			entries := make([]RunEntry, 0, len(runs))
			for _, r := range runs {
				entries = append(entries, RunEntry{
					ID:        r.ID,
					CeilingMB: r.CeilingMB,
					Status:    r.Status.String(),
					ExitCode:  r.ExitCode,
					WallMS:    r.Wall.Milliseconds(),
					PeakRSS:   r.PeakRSS,
				})
			}
			return formatter.Success(entries)
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s: %d MB -> %s (exit %d, %d ms, rss %d)\n",
				target, r.CeilingMB, r.Status, r.ExitCode, r.Wall.Milliseconds(), r.PeakRSS)
		}
		return nil
	}

	searches, err := st.RecentSearches(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading search history", err)
	}
	if formatter.Format == "json" {
		results := make([]RangeResult, 0, len(searches))
		for _, s := range searches {
			results = append(results, RangeResult{
				Tool:       s.Target.Tool,
				Build:      s.Target.Build,
				App:        s.Target.App,
				Version:    s.Target.Version,
				Type:       s.Target.Type,
				NotWorking: s.Interval.NotWorking,
				Working:    s.Interval.Working,
				Attempts:   s.Attempts,
			})
		}
		return formatter.Success(results)
	}
	for _, s := range searches {
		fmt.Fprintf(out, "%s: range %s after %d attempts\n", s.Target, s.Interval, s.Attempts)
	}
	return nil
}

// RunEntry is the JSON shape of one recorded compile attempt.
type RunEntry struct {
	ID        string `json:"id"`
	CeilingMB int    `json:"ceiling_mb"`
	Status    string `json:"status"`
	ExitCode  int    `json:"exit_code"`
	WallMS    int64  `json:"wall_ms"`
	PeakRSS   int64  `json:"peak_rss"`
}
