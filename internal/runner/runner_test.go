package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dexbench/internal/bisect"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		signaled bool
		timedOut bool
		stderr   string
		want     bisect.Status
		wantCode int
	}{
		{name: "clean exit", exitCode: 0, want: bisect.Success},
		{name: "clean exit ignores noisy stderr", exitCode: 0, stderr: "Warning: something", want: bisect.Success},
		{name: "oom marker in stderr", exitCode: 1, stderr: "Exception in thread \"main\" java.lang.OutOfMemoryError: Java heap space", want: bisect.OutOfMemory, wantCode: 1},
		{name: "magic oom exit code", exitCode: 42, want: bisect.OutOfMemory, wantCode: 42},
		{name: "oom marker wins over odd exit code", exitCode: 137, stderr: "java.lang.OutOfMemoryError: GC overhead limit exceeded", want: bisect.OutOfMemory, wantCode: 137},
		{name: "deadline kill keeps the negated signal", exitCode: -9, signaled: true, timedOut: true, want: bisect.Timeout, wantCode: -9},
		{name: "signal death without deadline is a failure", exitCode: -11, signaled: true, want: bisect.OtherFailure, wantCode: -11},
		{name: "plain failure", exitCode: 17, stderr: "CompilationError: bad input", want: bisect.OtherFailure, wantCode: 17},
		{name: "failure with empty stderr", exitCode: 1, want: bisect.OtherFailure, wantCode: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.exitCode, tt.signaled, tt.timedOut, tt.stderr)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestInvocation_CommandLine(t *testing.T) {
	inv := Invocation{
		Tool:    "r8",
		Build:   "lib",
		Jar:     "/opt/r8/r8lib.jar",
		JVMArgs: []string{"-ea", "-Dcom.android.tools.r8.stringSwitchConversion=1"},
		Args:    []string{"--output", "/tmp/out", "--pg-conf", "rules.pro", "app.jar"},
	}

	argv := inv.CommandLine(2048)
	assert.Equal(t, []string{
		"java",
		"-ea", "-Dcom.android.tools.r8.stringSwitchConversion=1",
		"-Xmx2048M",
		"-jar", "/opt/r8/r8lib.jar",
		"--output", "/tmp/out", "--pg-conf", "rules.pro", "app.jar",
	}, argv)

	// The ceiling is substituted per call without touching the invocation.
	argv2 := inv.CommandLine(4096)
	assert.Contains(t, argv2, "-Xmx4096M")
	assert.NotContains(t, inv.JVMArgs, "-Xmx2048M")
}

func TestInvocation_CommandLine_NoCeiling(t *testing.T) {
	inv := Invocation{JavaPath: "/usr/lib/jvm/bin/java", Jar: "d8.jar"}
	argv := inv.CommandLine(0)
	assert.Equal(t, []string{"/usr/lib/jvm/bin/java", "-jar", "d8.jar"}, argv)
}

func TestParseVmHWM(t *testing.T) {
	log := strings.Join([]string{
		"VmPeak:  10240 kB",
		"VmHWM:    1024 kB",
		"VmHWM:    4096 kB",
		"VmRSS:    2048 kB",
	}, "\n")

	n, err := ParseVmHWM(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, int64(4096*1024), n)
}

func TestParseVmHWM_NoUnit(t *testing.T) {
	n, err := ParseVmHWM(strings.NewReader("VmHWM: 123456"))
	require.NoError(t, err)
	assert.Equal(t, int64(123456), n)
}

func TestParseVmHWM_Errors(t *testing.T) {
	_, err := ParseVmHWM(strings.NewReader("VmRSS: 100 kB"))
	assert.ErrorContains(t, err, "no VmHWM")

	_, err = ParseVmHWM(strings.NewReader("VmHWM: 100 MB"))
	assert.ErrorContains(t, err, "unrecognized unit")
}

func TestCheckJavaVersionOutput(t *testing.T) {
	ok := `openjdk version "11.0.20" 2023-07-18
OpenJDK Runtime Environment (build 11.0.20+8)`
	require.NoError(t, checkJavaVersionOutput(ok))

	bad := `openjdk version "11.0.20-google" 2023-07-18`
	assert.ErrorContains(t, checkJavaVersionOutput(bad), "google JVM")

	assert.ErrorContains(t, checkJavaVersionOutput("gibberish"), "no version string")
}
