package appcatalog

import "sort"

// Permutation identifies one (app, version, type) compile with a chosen
// tool and tool build variant.
type Permutation struct {
	App     string
	Version string
	Type    string
	Tool    string
	Build   string
}

// disabledKey identifies a permutation excluded from runall sweeps.
type disabledKey struct {
	App     string
	Version string
	Type    string
}

// Disabled permutations carry a tracking bug; re-enable by deleting the
// entry once the bug is fixed.
var disabled = map[disabledKey]string{
	{App: "youtube", Version: "13.37", Type: "deploy"}: "b/120977564",
}

// Disabled reports whether the (app, version, type) combination is
// excluded from sweeps, and the tracking bug if so.
func Disabled(app, version, typ string) (string, bool) {
	bug, ok := disabled[disabledKey{App: app, Version: version, Type: typ}]
	return bug, ok
}

// Permutations expands the catalog into every runnable combination:
// each (app, version, type) entry, compiled by R8 for deploy inputs and
// D8 otherwise, once per tool build variant. Disabled combinations are
// skipped. Order is deterministic.
func (c *Catalog) Permutations() []Permutation {
	var perms []Permutation
	for _, app := range c.AppNames() {
		a := c.Apps[app]
		for _, version := range keysOf(a.Versions) {
			for _, typ := range keysOf(a.Versions[version]) {
				if _, off := Disabled(app, version, typ); off {
					continue
				}
				tool := "d8"
				if typ == "deploy" {
					tool = "r8"
				}
				for _, build := range Builds {
					perms = append(perms, Permutation{
						App:     app,
						Version: version,
						Type:    typ,
						Tool:    tool,
						Build:   build,
					})
				}
			}
		}
	}
	sort.Slice(perms, func(i, j int) bool {
		a, b := perms[i], perms[j]
		if a.App != b.App {
			return a.App < b.App
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Build < b.Build
	})
	return perms
}
