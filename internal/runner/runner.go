// Package runner launches one compiler invocation per attempt and
// classifies how it ended.
//
// Raw process exit information never leaves this package: the runner
// inspects the exit code, signal death and captured stderr once and hands
// the bisection a bisect.Outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/roach88/dexbench/internal/bisect"
)

// OOMExitCode is the magic exit code some tool wrappers use to signal that
// the child JVM ran out of memory. Honored in addition to the stderr marker.
const OOMExitCode = 42

// oomMarker is the diagnostic text that identifies an out-of-memory
// failure regardless of the raw exit code.
const oomMarker = "java.lang.OutOfMemoryError"

// Invocation describes a single compiler run. It is immutable; the heap
// ceiling is substituted per attempt by CommandLine.
type Invocation struct {
	Tool  string // "d8" or "r8"
	Build string // "full" or "lib"

	JavaPath string   // java binary, defaults to "java"
	Jar      string   // compiler jar to run
	JVMArgs  []string // extra JVM args (-D properties, asserts)
	Args     []string // compiler arguments
	Dir      string   // working directory, empty for inherited
}

// CommandLine returns the full argv for an attempt at the given ceiling.
// A fresh slice is returned per call; the invocation itself is not mutated.
func (inv Invocation) CommandLine(ceilingMB int) []string {
	java := inv.JavaPath
	if java == "" {
		java = "java"
	}
	argv := []string{java}
	argv = append(argv, inv.JVMArgs...)
	if ceilingMB > 0 {
		argv = append(argv, fmt.Sprintf("-Xmx%dM", ceilingMB))
	}
	argv = append(argv, "-jar", inv.Jar)
	argv = append(argv, inv.Args...)
	return argv
}

// Stats captures per-attempt measurements.
type Stats struct {
	Wall    time.Duration
	PeakRSS int64 // peak resident set size in bytes, 0 if unavailable
}

// Runner executes invocations with an optional wall-clock budget.
type Runner struct {
	// Timeout bounds one attempt; zero means wait for the process.
	Timeout time.Duration

	// Stderr, if set, receives the child's captured stderr after a
	// failing attempt, for diagnostics.
	Stderr io.Writer

	// TrackMemoryPath, if set, receives periodic snapshots of the
	// child's /proc status while it runs. The VmHWM high-water mark in
	// the final snapshot feeds Stats.PeakRSS.
	TrackMemoryPath string

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run launches the invocation with the given heap ceiling and classifies
// the result. The returned error is reserved for attempts that could not
// be carried out at all (temp dir or spawn failures); a completed process
// always classifies, never errors. The child and its temporary files are
// reclaimed on every return path, including timeout kills.
func (r *Runner) Run(ctx context.Context, inv Invocation, ceilingMB int) (bisect.Outcome, Stats, error) {
	tmp, err := os.MkdirTemp("", "dexbench")
	if err != nil {
		return bisect.Outcome{}, Stats{}, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	stderrPath := filepath.Join(tmp, "stderr")
	stderrFile, err := os.Create(stderrPath)
	if err != nil {
		return bisect.Outcome{}, Stats{}, fmt.Errorf("creating stderr capture: %w", err)
	}
	defer stderrFile.Close()

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	argv := inv.CommandLine(ceilingMB)
	r.logger().Debug("launching compiler", "tool", inv.Tool, "build", inv.Build, "xmx_mb", ceilingMB, "argv", argv)

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Stdout = io.Discard
	cmd.Stderr = stderrFile
	// Escalate straight to SIGKILL on deadline; a compiler wedged on heap
	// pressure rarely honors SIGTERM.
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return bisect.Outcome{}, Stats{}, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	var sampler sync.WaitGroup
	stopSampling := make(chan struct{})
	if r.TrackMemoryPath != "" {
		sampler.Add(1)
		go func() {
			defer sampler.Done()
			sampleProcStatus(cmd.Process.Pid, r.TrackMemoryPath, stopSampling)
		}()
	}

	waitErr := cmd.Wait()
	close(stopSampling)
	sampler.Wait()

	stats := Stats{Wall: time.Since(start), PeakRSS: peakRSS(cmd.ProcessState)}
	if r.TrackMemoryPath != "" {
		if hwm, err := trackedPeak(r.TrackMemoryPath); err == nil && hwm > stats.PeakRSS {
			stats.PeakRSS = hwm
		}
	}

	if errors.Is(runCtx.Err(), context.Canceled) {
		// Outer cancellation, not our per-attempt budget.
		return bisect.Outcome{}, stats, runCtx.Err()
	}
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !timedOut {
		return bisect.Outcome{}, stats, fmt.Errorf("waiting for %s: %w", argv[0], waitErr)
	}

	stderrText, readErr := os.ReadFile(stderrPath)
	if readErr != nil {
		stderrText = nil
	}

	outcome := Classify(exitStatus(cmd.ProcessState), signaled(cmd.ProcessState),
		timedOut, string(stderrText))

	if outcome.Status != bisect.Success && r.Stderr != nil && len(stderrText) > 0 {
		r.Stderr.Write(stderrText)
	}
	r.logger().Info("attempt finished", "xmx_mb", ceilingMB, "status", outcome.Status,
		"wall_ms", stats.Wall.Milliseconds())
	return outcome, stats, nil
}

// Classify maps raw process exit information onto the search's tri-state
// outcome. The OOM marker in stderr wins over the exit code: the JVM often
// dies with a generic status while printing the real cause. The raw exit
// status (negated signal number for signal deaths) is carried on every
// outcome so run history keeps it.
func Classify(exitCode int, wasSignaled bool, timedOut bool, stderr string) bisect.Outcome {
	switch {
	case exitCode == 0:
		return bisect.Outcome{Status: bisect.Success}
	case containsOOMMarker(stderr) || exitCode == OOMExitCode:
		return bisect.Outcome{Status: bisect.OutOfMemory, Code: exitCode}
	case timedOut && wasSignaled:
		return bisect.Outcome{Status: bisect.Timeout, Code: exitCode}
	default:
		return bisect.Outcome{Status: bisect.OtherFailure, Code: exitCode}
	}
}

func containsOOMMarker(stderr string) bool {
	return strings.Contains(stderr, oomMarker)
}

// exitStatus returns the exit code, or the negated signal number when the
// child was terminated by a signal (the Popen convention the stored run
// records keep using).
func exitStatus(ps *os.ProcessState) int {
	if ps == nil {
		return -1
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}

func signaled(ps *os.ProcessState) bool {
	if ps == nil {
		return false
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}

// sampleProcStatus copies /proc/<pid>/status to path every 100ms until
// stop closes. VmHWM is monotonic, so the last snapshot carries the peak;
// each write replaces the previous one. Sampling ends quietly once the
// process is gone or on systems without /proc.
func sampleProcStatus(pid int, path string, stop <-chan struct{}) {
	src := fmt.Sprintf("/proc/%d/status", pid)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			body, err := os.ReadFile(src)
			if err != nil {
				return
			}
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return
			}
		}
	}
}

// trackedPeak parses the last recorded memory snapshot.
func trackedPeak(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ParseVmHWM(f)
}

// peakRSS reads the child's peak resident set size from its rusage.
// Linux reports ru_maxrss in kilobytes.
func peakRSS(ps *os.ProcessState) int64 {
	if ps == nil {
		return 0
	}
	ru, ok := ps.SysUsage().(*syscall.Rusage)
	if !ok {
		return 0
	}
	return ru.Maxrss * 1024
}
