// Package archive persists minimum-Xmx search results under a key derived
// from the toolchain revision and the compiled target, either in a local
// directory tree or in an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/roach88/dexbench/internal/bisect"
)

const (
	// resultsDir is the top-level prefix for archived search results.
	resultsDir = "find_min_xmx"
	// resultsFile is the leaf object name under each target key.
	resultsFile = "find_min_xmx_results"
)

// ErrNotFound is returned when a key has no archived value.
var ErrNotFound = errors.New("archive: not found")

// Archiver stores and retrieves small text results by key.
type Archiver interface {
	// Put stores body under key, replacing any previous value.
	Put(ctx context.Context, key string, body []byte) error
	// Get retrieves the value under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// FormatRange renders a search result in the archived line format.
func FormatRange(iv bisect.Interval) string {
	return fmt.Sprintf("Found range: %d - %d", iv.NotWorking, iv.Working)
}

// Key returns the archive key for one search result.
func Key(revision, tool, build, app, version, typ string) string {
	return path.Join(resultsDir, revision, tool, build, app, version, typ, resultsFile)
}

// Prefix returns the archive prefix holding every result for a revision
// and tool build, across apps.
func Prefix(revision, tool, build string) string {
	return path.Join(resultsDir, revision, tool, build) + "/"
}
