package runner

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var javaVersionPattern = regexp.MustCompile(`(?:openjdk|java) version "([^"]*)"`)

// CheckJavaVersion verifies that the java binary on the path is usable for
// benchmarking. Google-internal JVM builds carry patches that skew timing
// and memory numbers, so they are rejected outright.
func CheckJavaVersion(ctx context.Context, javaPath string) error {
	if javaPath == "" {
		javaPath = "java"
	}
	out, err := exec.CommandContext(ctx, javaPath, "-version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s -version: %w", javaPath, err)
	}
	return checkJavaVersionOutput(string(out))
}

func checkJavaVersionOutput(out string) error {
	m := javaVersionPattern.FindStringSubmatch(out)
	if m == nil {
		return fmt.Errorf("no version string in output of 'java -version': %q", out)
	}
	if strings.Contains(m[1], "google") {
		return fmt.Errorf("do not benchmark with a google JVM: %s", m[1])
	}
	return nil
}
