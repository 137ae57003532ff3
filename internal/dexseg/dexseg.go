// Package dexseg reports the size of each segment in compiled dex files,
// using the compiler jar's own dexsegments command.
package dexseg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
)

var segmentPattern = regexp.MustCompile(`- ([^:]+): ([0-9]+)`)

// Sizes maps segment name to size in bytes.
type Sizes map[string]int64

// Measure runs the dexsegments command of the given compiler jar against
// the dex files and returns the parsed segment sizes.
func Measure(ctx context.Context, javaPath, jar string, dexFiles []string) (Sizes, error) {
	if len(dexFiles) == 0 {
		return nil, fmt.Errorf("no dex files to measure")
	}
	if javaPath == "" {
		javaPath = "java"
	}
	args := append([]string{"-jar", jar, "dexsegments"}, dexFiles...)
	out, err := exec.CommandContext(ctx, javaPath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("running dexsegments: %w", err)
	}
	return ParseSegments(string(out))
}

// ParseSegments extracts segment sizes from dexsegments output lines of
// the form "- <segment>: <bytes>".
func ParseSegments(out string) (Sizes, error) {
	matches := segmentPattern.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("dexsegments produced no segment lines")
	}
	sizes := make(Sizes, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing size of segment %q: %w", m[1], err)
		}
		sizes[m[1]] = n
	}
	return sizes, nil
}

// Print writes one benchmark line per segment, sorted by segment name:
// <benchmark>-<segment>(CodeSize): <bytes>
func Print(w io.Writer, benchmark string, sizes Sizes) {
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s-%s(CodeSize): %d\n", benchmark, name, sizes[name])
	}
}
