// Package cli implements the dexbench command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/appcatalog"
	"github.com/roach88/dexbench/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to dexbench.yaml, empty for built-in defaults
	Catalog string // path to a catalog override directory, empty for embedded
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dexbench CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dexbench",
		Short: "Benchmark driver for the D8 and R8 compilers",
		Long: `dexbench compiles a fixed set of real-world applications with D8 or R8,
captures timing and memory metrics, and can bisect the minimum heap size
a compilation still succeeds with.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to dexbench.yaml")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "path to a CUE app catalog directory")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMinXmxCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewRunAllCommand(opts))
	cmd.AddCommand(NewRangesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewCtsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadEnvironment resolves the tool configuration and app catalog the
// global flags select.
func loadEnvironment(opts *RootOptions) (*config.Config, *appcatalog.Catalog, error) {
	cfg := config.DefaultConfig()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	var cat *appcatalog.Catalog
	var err error
	if opts.Catalog != "" {
		cat, err = appcatalog.LoadDir(opts.Catalog)
	} else {
		cat, err = appcatalog.Default()
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, cat, nil
}
