package cli

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dexbench/internal/appcatalog"
	"github.com/roach88/dexbench/internal/config"
	"github.com/roach88/dexbench/internal/runner"
	"github.com/roach88/dexbench/internal/store"
)

// TargetOptions holds the flags that select what to compile and with what.
// Shared by the run, minxmx and sweep commands.
type TargetOptions struct {
	Compiler      string // d8 | r8
	CompilerBuild string // full | lib
	App           string
	Version       string // empty selects the app default
	Type          string // empty selects the compiler default
	KeepRules     string // overrides the app's ProGuard configuration
	CompilerFlags []string
	NoLibraries   bool
	NoDebug       bool
}

// registerTargetFlags wires the shared target flags onto a command.
func registerTargetFlags(cmd *cobra.Command, opts *TargetOptions) {
	cmd.Flags().StringVar(&opts.Compiler, "compiler", "", "the compiler to use (d8|r8)")
	cmd.Flags().StringVar(&opts.CompilerBuild, "compiler-build", "lib", "compiler build to use (full|lib)")
	cmd.Flags().StringVar(&opts.App, "app", "", "what app to run on")
	cmd.Flags().StringVar(&opts.Version, "version", "", "the version of the app to run")
	cmd.Flags().StringVar(&opts.Type, "type", "", "default for R8: deploy, for D8: proguarded")
	cmd.Flags().StringVarP(&opts.KeepRules, "keep", "k", "", "override the default ProGuard keep rules")
	cmd.Flags().StringSliceVar(&opts.CompilerFlags, "compiler-flags", nil, "additional option(s) for the compiler")
	cmd.Flags().BoolVar(&opts.NoLibraries, "no-libraries", false, "do not pass in libraries, even if they exist in the catalog")
	cmd.Flags().BoolVar(&opts.NoDebug, "no-debug", false, "run without debug asserts")
	_ = cmd.MarkFlagRequired("compiler")
	_ = cmd.MarkFlagRequired("app")
}

// resolve turns the selected target into the invocation to launch and the
// record key to store results under. Configuration problems surface here,
// before anything is executed.
func (o *TargetOptions) resolve(cfg *config.Config, cat *appcatalog.Catalog) (store.Target, runner.Invocation, error) {
	if !slices.Contains(appcatalog.Tools, o.Compiler) {
		return store.Target{}, runner.Invocation{}, fmt.Errorf("you need to specify --compiler of %v", appcatalog.Tools)
	}
	if !slices.Contains(appcatalog.Builds, o.CompilerBuild) {
		return store.Target{}, runner.Invocation{}, fmt.Errorf("you need to specify --compiler-build of %v", appcatalog.Builds)
	}

	typ := o.Type
	if typ == "" {
		typ = appcatalog.DefaultType(o.Compiler)
	}
	if !slices.Contains(appcatalog.Types, typ) {
		return store.Target{}, runner.Invocation{}, fmt.Errorf("you need to specify --type of %v", appcatalog.Types)
	}

	build, version, err := cat.Lookup(o.App, o.Version, typ)
	if err != nil {
		return store.Target{}, runner.Invocation{}, err
	}

	jar, err := cfg.Jar(o.Compiler, o.CompilerBuild)
	if err != nil {
		return store.Target{}, runner.Invocation{}, err
	}

	outDir := filepath.Join(cfg.OutDir, o.App, version, typ)
	args := build.Arguments(appcatalog.ArgOptions{
		Tool:      o.Compiler,
		Type:      typ,
		OutDir:    outDir,
		KeepRules: o.KeepRules,
		NoLibs:    o.NoLibraries,
		Extra:     o.CompilerFlags,
	})

	var jvmArgs []string
	if !o.NoDebug {
		jvmArgs = append(jvmArgs, "-ea")
	}
	jvmArgs = append(jvmArgs, build.JVMProps()...)

	target := store.Target{
		Tool:    o.Compiler,
		Build:   o.CompilerBuild,
		App:     o.App,
		Version: version,
		Type:    typ,
	}
	inv := runner.Invocation{
		Tool:     o.Compiler,
		Build:    o.CompilerBuild,
		JavaPath: cfg.JavaPath,
		Jar:      jar,
		JVMArgs:  jvmArgs,
		Args:     args,
	}
	return target, inv, nil
}
