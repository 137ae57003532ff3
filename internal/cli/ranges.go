package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/archive"
)

// RangesOptions holds flags for the ranges command.
type RangesOptions struct {
	*RootOptions

	Revision      string
	Compiler      string
	CompilerBuild string
}

// NewRangesCommand creates the ranges command.
func NewRangesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "List archived minimum-Xmx ranges for a revision",
		Long: `List every archived minimum heap range recorded for a compiler revision,
one line per target.

Example:
  dexbench ranges --revision 1a2b3c4d
  dexbench ranges --revision 1a2b3c4d --compiler r8 --compiler-build lib`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRanges(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Revision, "revision", "", "compiler revision to list ranges for")
	cmd.Flags().StringVar(&opts.Compiler, "compiler", "r8", "the compiler to list ranges for (d8|r8)")
	cmd.Flags().StringVar(&opts.CompilerBuild, "compiler-build", "lib", "compiler build to list ranges for (full|lib)")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

func runRanges(opts *RangesOptions, cmd *cobra.Command) error {
	cfg, _, err := loadEnvironment(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}
	arch, err := newArchiver(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "selecting archive backend", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	prefix := archive.Prefix(opts.Revision, opts.Compiler, opts.CompilerBuild)
	keys, err := arch.List(ctx, prefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing archived ranges", err)
	}
	if len(keys) == 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("no archived ranges for revision %s (%s %s)", opts.Revision, opts.Compiler, opts.CompilerBuild))
	}

	entries := make([]RangeEntry, 0, len(keys))
	for _, key := range keys {
		body, err := arch.Get(ctx, key)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("reading %s", key), err)
		}
		entries = append(entries, RangeEntry{
			Target: strings.TrimPrefix(key, prefix),
			Range:  strings.TrimSpace(string(body)),
		})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%s: %s\n", e.Target, e.Range)
	}
	return nil
}

// RangeEntry is one archived search result, keyed relative to the listed
// revision prefix.
type RangeEntry struct {
	Target string `json:"target"`
	Range  string `json:"range"`
}
