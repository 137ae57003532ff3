package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/cts"
)

// NewCtsCommand creates the cts command.
func NewCtsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cts <test_result.xml>",
		Short: "Summarize an Android CTS test result file",
		Long: `Scan a CTS test_result.xml and report how many modules and tests it
holds and how many of the tests passed.

Example:
  dexbench cts out/test_result.xml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCts(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runCts(opts *RootOptions, cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening test result", err)
	}
	defer f.Close()

	summary, err := cts.Summarize(f)
	if err != nil {
		return WrapExitError(ExitCommandError, "scanning test result", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return WrapExitError(ExitCommandError, "writing summary", err)
		}
	} else {
		fmt.Fprintf(formatter.Writer, "Modules: %d\nTests: %d\nPassed: %d\nFailed: %d\n",
			summary.Modules, summary.Tests, summary.Passed, summary.Failed)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d tests failed", summary.Failed, summary.Tests))
	}
	return nil
}
