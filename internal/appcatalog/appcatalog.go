// Package appcatalog holds the per-application build configuration tables:
// which inputs, libraries and flags each (app, version, type) combination
// compiles with.
//
// The catalog ships as CUE so that user-provided overrides are validated
// against the same schema as the embedded defaults. The rest of the driver
// consumes only the already-resolved Build values; nothing outside this
// package knows application specifics.
package appcatalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Tool and build-variant identifiers accepted across the driver.
var (
	Tools  = []string{"d8", "r8"}
	Builds = []string{"full", "lib"}
	Types  = []string{"dex", "deploy", "proguarded"}
)

//go:embed catalog.cue
var catalogCUE []byte

// Build describes one compiler input configuration.
type Build struct {
	Inputs       []string `json:"inputs,omitempty"`
	Libraries    []string `json:"libraries,omitempty"`
	PGConf       []string `json:"pgconf,omitempty"`
	MinAPI       string   `json:"min_api,omitempty"`
	MainDexList  string   `json:"main_dex_list,omitempty"`
	MainDexRules []string `json:"main_dex_rules,omitempty"`
	Flags        []string `json:"flags,omitempty"`
	R8Flags      []string `json:"r8_flags,omitempty"`

	// InputsInPGConf marks entries whose program jars are located through
	// -injars in the ProGuard configuration, so they must not be passed
	// again on the command line for an R8 deploy compile.
	InputsInPGConf bool `json:"inputs_in_pgconf,omitempty"`

	AllowTypeErrors bool `json:"allow_type_errors,omitempty"`
	ProtoShrinking  bool `json:"proto_shrinking,omitempty"`
}

// App groups the versions of one benchmark application.
type App struct {
	DefaultVersion string                      `json:"default_version"`
	Versions       map[string]map[string]Build `json:"versions"`
}

// Catalog is the full table of benchmark applications.
type Catalog struct {
	Apps map[string]App `json:"apps"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(catalogCUE)
	return decode(v)
}

// LoadDir loads a catalog from a directory of CUE files and validates it
// against the embedded schema. The directory replaces the default tables
// entirely; it does not merge with them.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path is not a directory: %s", dir)
	}

	names, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no CUE files in %s", dir)
	}
	relative := make([]string, len(names))
	for i, name := range names {
		relative[i] = filepath.Base(name)
	}

	ctx := cuecontext.New()
	instances := load.Instances(relative, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", dir, inst.Err)
	}
	v := ctx.BuildInstance(inst)

	// Unify with the schema so overrides cannot drift from the shape the
	// driver expects.
	v = v.Unify(ctx.CompileString(catalogSchema))
	return decode(v)
}

// catalogSchema is the pattern constraint a catalog must satisfy. It
// mirrors the #App/#Build definitions at the top of catalog.cue without
// the embedded default tables.
const catalogSchema = `apps: [string]: {
	default_version: string
	versions: [string]: [string]: {
		inputs?: [...string]
		libraries?: [...string]
		pgconf?: [...string]
		min_api?:       string
		main_dex_list?: string
		main_dex_rules?: [...string]
		flags?: [...string]
		r8_flags?: [...string]
		inputs_in_pgconf?:  bool | *false
		allow_type_errors?: bool | *false
		proto_shrinking?:   bool | *false
	}
}`

func decode(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("building catalog value: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	var c Catalog
	if err := v.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if len(c.Apps) == 0 {
		return nil, fmt.Errorf("catalog defines no apps")
	}
	for name, app := range c.Apps {
		if app.DefaultVersion == "" {
			return nil, fmt.Errorf("app %s: missing default_version", name)
		}
		if _, ok := app.Versions[app.DefaultVersion]; !ok {
			return nil, fmt.Errorf("app %s: default_version %q not among versions", name, app.DefaultVersion)
		}
	}
	return &c, nil
}

// AppNames returns the catalog's application names, sorted.
func (c *Catalog) AppNames() []string {
	names := make([]string, 0, len(c.Apps))
	for name := range c.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultType returns the build type a tool compiles by default:
// deploy for R8, proguarded for D8.
func DefaultType(tool string) string {
	if tool == "r8" {
		return "deploy"
	}
	return "proguarded"
}

// Lookup resolves (app, version, type) to a Build. Empty version selects
// the app default; empty typ must be resolved by the caller via
// DefaultType first. The resolved version is returned alongside the build
// so callers can key results by it.
func (c *Catalog) Lookup(app, version, typ string) (Build, string, error) {
	a, ok := c.Apps[app]
	if !ok {
		return Build{}, "", fmt.Errorf("unknown app %q, valid apps are %v", app, c.AppNames())
	}
	if version == "" {
		version = a.DefaultVersion
	}
	types, ok := a.Versions[version]
	if !ok {
		return Build{}, "", fmt.Errorf("no version %q for app %s, valid versions are %v", version, app, keysOf(a.Versions))
	}
	b, ok := types[typ]
	if !ok {
		return Build{}, "", fmt.Errorf("no type %q for %s %s, valid types are %v", typ, app, version, keysOf(types))
	}
	return b, version, nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
