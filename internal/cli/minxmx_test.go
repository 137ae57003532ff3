package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dexbench/internal/archive"
	"github.com/roach88/dexbench/internal/bisect"
	"github.com/roach88/dexbench/internal/store"
)

func TestMinXmxCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	minxmxCmd, _, err := cmd.Find([]string{"minxmx"})
	require.NoError(t, err)

	minFlag := minxmxCmd.Flags().Lookup("min")
	require.NotNil(t, minFlag)
	assert.Equal(t, "0", minFlag.DefValue)

	maxFlag := minxmxCmd.Flags().Lookup("max")
	require.NotNil(t, maxFlag)
	assert.Equal(t, "8192", maxFlag.DefValue)

	rangeFlag := minxmxCmd.Flags().Lookup("range")
	require.NotNil(t, rangeFlag)
	assert.Equal(t, "32", rangeFlag.DefValue)

	assert.NotNil(t, minxmxCmd.Flags().Lookup("archive"))
	assert.NotNil(t, minxmxCmd.Flags().Lookup("revision"))
}

func TestMinXmxArchiveRequiresRevision(t *testing.T) {
	opts := &MinXmxOptions{RootOptions: &RootOptions{Format: "text"}, Archive: true}

	err := opts.validate()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--revision")
}

// TestSearchMinXmxProgress drives the search with a scripted attempt that
// succeeds at and above 4000 MB and runs out of memory below, and checks
// the printed probe log against a golden file.
func TestSearchMinXmxProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	attempt := func(ctx context.Context, ceilingMB int) (bisect.Outcome, error) {
		if ceilingMB >= 4000 {
			return bisect.Outcome{Status: bisect.Success}, nil
		}
		return bisect.Outcome{Status: bisect.OutOfMemory, Code: 42}, nil
	}

	iv, err := searchMinXmx(context.Background(), buf, bisect.Options{
		NotWorking: 128,
		Working:    8192,
		RangeSize:  32,
	}, attempt)
	require.NoError(t, err)
	assert.Equal(t, bisect.Interval{NotWorking: 3971, Working: 4003}, iv)
	assert.Equal(t, "Found range: 3971 - 4003", archive.FormatRange(iv))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "minxmx-progress", buf.Bytes())
}

func TestSearchMinXmxOtherFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	attempt := func(ctx context.Context, ceilingMB int) (bisect.Outcome, error) {
		return bisect.Outcome{Status: bisect.OtherFailure, Code: 17}, nil
	}

	_, err := searchMinXmx(context.Background(), buf, bisect.Options{
		NotWorking: 128,
		Working:    8192,
		RangeSize:  32,
	}, attempt)
	require.Error(t, err)

	var failure *bisect.FailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 17, failure.Code)
}

func TestReportRange(t *testing.T) {
	target := store.Target{Tool: "r8", Build: "lib", App: "gmscore", Version: "v10", Type: "deploy"}
	iv := bisect.Interval{NotWorking: 3971, Working: 4003}

	buf := &bytes.Buffer{}
	require.NoError(t, reportRange(&OutputFormatter{Format: "text", Writer: buf}, target, iv, 8))
	assert.Equal(t, "Found range: 3971 - 4003\n", buf.String())

	buf.Reset()
	require.NoError(t, reportRange(&OutputFormatter{Format: "json", Writer: buf}, target, iv, 8))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3971), data["not_working"])
	assert.Equal(t, float64(4003), data["working"])
	assert.Equal(t, float64(8), data["attempts"])
	assert.Equal(t, "gmscore", data["app"])
}

func TestNewArchiverSelection(t *testing.T) {
	cfg, _, err := loadEnvironment(&RootOptions{Format: "text"})
	require.NoError(t, err)

	_, err = newArchiver(cfg)
	require.Error(t, err, "no backend configured by default")

	cfg.Archive.Dir = t.TempDir()
	arch, err := newArchiver(cfg)
	require.NoError(t, err)
	assert.IsType(t, &archive.DirArchiver{}, arch)
}
