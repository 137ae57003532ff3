package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dexbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
java_path: /opt/jdk/bin/java
out_dir: /tmp/dexbench-out
db_path: /tmp/dexbench.db
jars:
  r8:
    full: /opt/r8/r8.jar
    lib: /opt/r8/r8lib.jar
archive:
  dir: /tmp/archive
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/jdk/bin/java", cfg.JavaPath)
	assert.Equal(t, "/tmp/dexbench-out", cfg.OutDir)
	assert.Equal(t, "/tmp/archive", cfg.Archive.Dir)

	jar, err := cfg.Jar("r8", "lib")
	require.NoError(t, err)
	assert.Equal(t, "/opt/r8/r8lib.jar", jar)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("DEXBENCH_TEST_HOME", "/srv/r8")
	path := writeConfig(t, `
out_dir: ${DEXBENCH_TEST_HOME}/out
jars:
  r8:
    full: ${DEXBENCH_TEST_HOME}/r8.jar
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/r8/out", cfg.OutDir)

	jar, err := cfg.Jar("r8", "full")
	require.NoError(t, err)
	assert.Equal(t, "/srv/r8/r8.jar", jar)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"endpoint without bucket", "archive:\n  endpoint: s3.example.com\n", "bucket is required"},
		{"endpoint and dir", "archive:\n  endpoint: s3.example.com\n  bucket: b\n  dir: /tmp/a\n", "mutually exclusive"},
		{"unknown tool", "jars:\n  dx:\n    full: dx.jar\n", "unknown tool"},
		{"empty out_dir", "out_dir: \"\"\n", "out_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestJar_Errors(t *testing.T) {
	cfg := DefaultConfig()

	_, err := cfg.Jar("dx", "full")
	assert.ErrorContains(t, err, "no jars configured")

	_, err = cfg.Jar("r8", "debug")
	assert.ErrorContains(t, err, "unknown tool build")
}

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}
