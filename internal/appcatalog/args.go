package appcatalog

// ArgOptions adjusts how a Build is rendered into compiler arguments.
type ArgOptions struct {
	Tool      string // "d8" or "r8"
	Type      string // "dex", "deploy" or "proguarded"
	OutDir    string // --output destination
	KeepRules string // overrides the app's own ProGuard configuration
	NoLibs    bool   // suppress --lib even when the entry has libraries
	Extra     []string
}

// Arguments renders the build entry into the compiler argument list.
// Inputs come last; for an R8 deploy compile whose jars are located via
// -injars, they are omitted from the command line entirely.
func (b Build) Arguments(opts ArgOptions) []string {
	var args []string
	args = append(args, "--output", opts.OutDir)
	if b.MinAPI != "" {
		args = append(args, "--min-api", b.MinAPI)
	}
	if b.MainDexList != "" {
		args = append(args, "--main-dex-list", b.MainDexList)
	}

	if opts.Tool == "r8" {
		if opts.KeepRules != "" {
			args = append(args, "--pg-conf", opts.KeepRules)
		} else {
			for _, conf := range b.PGConf {
				args = append(args, "--pg-conf", conf)
			}
		}
		for _, rules := range b.MainDexRules {
			args = append(args, "--main-dex-rules", rules)
		}
	}

	if !opts.NoLibs {
		for _, lib := range b.Libraries {
			args = append(args, "--lib", lib)
		}
	}

	args = append(args, b.Flags...)
	if opts.Tool == "r8" {
		args = append(args, b.R8Flags...)
	}
	args = append(args, opts.Extra...)

	if b.includeInputs(opts) {
		args = append(args, b.Inputs...)
	}
	return args
}

func (b Build) includeInputs(opts ArgOptions) bool {
	if len(b.Inputs) == 0 {
		return false
	}
	if opts.Tool == "r8" && opts.Type == "deploy" && b.InputsInPGConf && opts.KeepRules == "" {
		return false
	}
	return true
}

// JVMProps returns the system properties the entry needs on the JVM
// command line.
func (b Build) JVMProps() []string {
	var props []string
	if b.AllowTypeErrors {
		props = append(props, "-Dcom.android.tools.r8.allowTypeErrors=1")
	}
	if b.ProtoShrinking {
		props = append(props,
			"-Dcom.android.tools.r8.fieldBitAccessAnalysis=1",
			"-Dcom.android.tools.r8.generatedExtensionRegistryShrinking=1",
			"-Dcom.android.tools.r8.generatedMessageLiteShrinking=1",
			"-Dcom.android.tools.r8.stringSwitchConversion=1")
	}
	return props
}
