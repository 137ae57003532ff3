// Package bisect finds the minimum heap ceiling under which a compiler
// invocation still succeeds.
//
// The search keeps a bracketing interval [NotWorking, Working] in megabytes
// and narrows it one attempt at a time. Attempts are expensive (a full
// compile each), so the search is strictly sequential: every outcome is
// interpreted before the next candidate is chosen.
//
// INVARIANTS:
//   - NotWorking < Working before and after every update
//   - each candidate is attempted exactly once, never retried
//   - a failure-like outcome only ever moves NotWorking upward
package bisect

import (
	"context"
	"fmt"
)

// Default search bounds in MB. D8 runs in far less memory than R8, so its
// assumed-failing floor starts lower.
const (
	DefaultNotWorkingD8 = 128
	DefaultNotWorkingR8 = 1024
	DefaultWorking      = 8192
	DefaultRangeSize    = 32
)

// DefaultNotWorking returns the assumed-failing lower bound for a tool.
func DefaultNotWorking(tool string) int {
	if tool == "d8" {
		return DefaultNotWorkingD8
	}
	return DefaultNotWorkingR8
}

// AttemptFunc runs one compiler invocation with the given heap ceiling.
// A non-nil error means the attempt could not be carried out at all
// (spawn failure, cancelled context); it aborts the search. Outcome
// classification of a completed process never produces an error.
type AttemptFunc func(ctx context.Context, ceilingMB int) (Outcome, error)

// Interval brackets the true minimal successful ceiling: NotWorking is a
// ceiling known (or assumed) to fail, Working one known (or assumed) to
// succeed.
type Interval struct {
	NotWorking int
	Working    int
}

// Width returns the interval width in MB.
func (iv Interval) Width() int {
	return iv.Working - iv.NotWorking
}

func (iv Interval) String() string {
	return fmt.Sprintf("(%d, %d]", iv.NotWorking, iv.Working)
}

// Step describes one completed iteration, for progress reporting.
type Step struct {
	Candidate int      // ceiling attempted this iteration
	Outcome   Outcome  // how the attempt ended
	Interval  Interval // interval after applying the outcome
}

// Options configures a search. The initial bounds are assumptions: the
// search never re-validates them, so if the true boundary lies outside
// [NotWorking, Working] the result is silently wrong. Callers overriding
// the defaults accept that risk.
type Options struct {
	NotWorking int // initial ceiling assumed to fail
	Working    int // initial ceiling assumed to succeed
	RangeSize  int // acceptable final interval width, >= 1

	// Observer, if set, is called after each attempt with the applied step.
	Observer func(Step)
}

func (o Options) validate() error {
	if o.NotWorking < 0 {
		return fmt.Errorf("lower bound must be non-negative, got %d", o.NotWorking)
	}
	if o.NotWorking >= o.Working {
		return fmt.Errorf("lower bound %d must be below upper bound %d", o.NotWorking, o.Working)
	}
	if o.RangeSize < 1 {
		return fmt.Errorf("range size must be at least 1 MB, got %d", o.RangeSize)
	}
	return nil
}

// Search narrows the interval until its width is within RangeSize and
// returns it. A viable non-success outcome (OOM, timeout) raises the
// lower bound; success lowers the upper bound. OtherFailure signals a
// defect unrelated to memory and aborts immediately with a *FailureError:
// folding it into the bisection would produce a meaningless interval.
//
// Candidate selection is working - (working-notWorking)/2 with integer
// floor division. The floor bias is deliberate and kept bit-for-bit: it
// rounds the candidate toward the working bound on odd widths, which keeps
// iteration counts reproducible against historical results. While the loop
// condition holds it also guarantees notWorking < candidate < working, so
// every iteration makes strict progress.
func Search(ctx context.Context, opts Options, attempt AttemptFunc) (Interval, error) {
	if err := opts.validate(); err != nil {
		return Interval{}, fmt.Errorf("invalid search bounds: %w", err)
	}

	iv := Interval{NotWorking: opts.NotWorking, Working: opts.Working}
	for iv.Width() > opts.RangeSize {
		candidate := iv.Working - iv.Width()/2

		outcome, err := attempt(ctx, candidate)
		if err != nil {
			return iv, fmt.Errorf("attempt at %d MB: %w", candidate, err)
		}
		switch {
		case !outcome.Viable():
			return iv, &FailureError{Code: outcome.Code}
		case outcome.Status == Success:
			iv.Working = candidate
		case outcome.Status == OutOfMemory || outcome.Status == Timeout:
			iv.NotWorking = candidate
		default:
			return iv, fmt.Errorf("attempt at %d MB returned unknown status %d", candidate, outcome.Status)
		}

		if opts.Observer != nil {
			opts.Observer(Step{Candidate: candidate, Outcome: outcome, Interval: iv})
		}
	}
	return iv, nil
}
