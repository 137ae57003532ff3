package bisect

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thresholdAttempt succeeds iff the ceiling is at least boundary MB and
// counts how many attempts were made.
func thresholdAttempt(boundary int, count *int) AttemptFunc {
	return func(_ context.Context, ceilingMB int) (Outcome, error) {
		*count++
		if ceilingMB >= boundary {
			return Outcome{Status: Success}, nil
		}
		return Outcome{Status: OutOfMemory}, nil
	}
}

// TestSearch_ConvergesOnBoundary narrows the default interval onto a
// boundary at 4000 MB within the 32 MB tolerance.
func TestSearch_ConvergesOnBoundary(t *testing.T) {
	attempts := 0
	opts := Options{NotWorking: 128, Working: 8192, RangeSize: 32}

	iv, err := Search(context.Background(), opts, thresholdAttempt(4000, &attempts))
	require.NoError(t, err)

	assert.Equal(t, Interval{NotWorking: 3971, Working: 4003}, iv)
	assert.Less(t, iv.NotWorking, 4000)
	assert.GreaterOrEqual(t, iv.Working, 4000)
	assert.LessOrEqual(t, iv.Width(), 32)
	assert.Equal(t, 8, attempts)
}

// TestSearch_IntervalInvariant checks NotWorking < Working after every step.
func TestSearch_IntervalInvariant(t *testing.T) {
	attempts := 0
	opts := Options{
		NotWorking: 128,
		Working:    8192,
		RangeSize:  32,
		Observer: func(s Step) {
			assert.Less(t, s.Interval.NotWorking, s.Interval.Working,
				"interval must keep bracketing after attempting %d", s.Candidate)
			assert.Greater(t, s.Candidate, 128)
			assert.Less(t, s.Candidate, 8192)
		},
	}

	_, err := Search(context.Background(), opts, thresholdAttempt(300, &attempts))
	require.NoError(t, err)
}

// TestSearch_IterationBound verifies the logarithmic attempt bound for a
// monotonic attempt function.
func TestSearch_IterationBound(t *testing.T) {
	for _, boundary := range []int{129, 1000, 4000, 8000, 8192} {
		attempts := 0
		opts := Options{NotWorking: 128, Working: 8192, RangeSize: 32}

		_, err := Search(context.Background(), opts, thresholdAttempt(boundary, &attempts))
		require.NoError(t, err)

		bound := int(math.Ceil(math.Log2(float64(8192-128) / 32)))
		assert.LessOrEqual(t, attempts, bound, "boundary %d", boundary)
	}
}

// TestSearch_AlwaysSucceeding collapses the upper bound toward the floor
// even when the very first candidate already succeeds.
func TestSearch_AlwaysSucceeding(t *testing.T) {
	attempts := 0
	iv, err := Search(context.Background(),
		Options{NotWorking: 128, Working: 8192, RangeSize: 32},
		func(_ context.Context, _ int) (Outcome, error) {
			attempts++
			return Outcome{Status: Success}, nil
		})
	require.NoError(t, err)

	assert.Equal(t, Interval{NotWorking: 128, Working: 160}, iv)
	assert.Equal(t, 8, attempts)
}

// TestSearch_OtherFailureShortCircuits aborts on the first attempt with the
// exit code preserved and no interval treated as a result.
func TestSearch_OtherFailureShortCircuits(t *testing.T) {
	attempts := 0
	_, err := Search(context.Background(),
		Options{NotWorking: 128, Working: 8192, RangeSize: 32},
		func(_ context.Context, _ int) (Outcome, error) {
			attempts++
			return Outcome{Status: OtherFailure, Code: 17}, nil
		})

	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 17, fe.Code)
	assert.Equal(t, 1, attempts)
}

// TestSearch_WithinToleranceRunsNothing returns the initial interval
// untouched when it is already within tolerance.
func TestSearch_WithinToleranceRunsNothing(t *testing.T) {
	attempts := 0
	iv, err := Search(context.Background(),
		Options{NotWorking: 100, Working: 132, RangeSize: 32},
		thresholdAttempt(110, &attempts))
	require.NoError(t, err)

	assert.Equal(t, Interval{NotWorking: 100, Working: 132}, iv)
	assert.Zero(t, attempts)
}

// TestSearch_SpuriousTimeoutStaysSafe: a timeout above the true boundary
// must only raise the lower bound, never let the search report success
// below the boundary.
func TestSearch_SpuriousTimeoutStaysSafe(t *testing.T) {
	const boundary = 4000
	timedOutOnce := false
	attempt := func(_ context.Context, ceilingMB int) (Outcome, error) {
		if !timedOutOnce && ceilingMB >= boundary {
			timedOutOnce = true
			return Outcome{Status: Timeout}, nil
		}
		if ceilingMB >= boundary {
			return Outcome{Status: Success}, nil
		}
		return Outcome{Status: OutOfMemory}, nil
	}

	iv, err := Search(context.Background(),
		Options{NotWorking: 128, Working: 8192, RangeSize: 32}, attempt)
	require.NoError(t, err)

	assert.True(t, timedOutOnce)
	// The final working bound is still a ceiling that genuinely succeeded.
	assert.GreaterOrEqual(t, iv.Working, boundary)
}

// TestSearch_TimeoutNarrowsLikeOOM treats a deterministic timeout region
// exactly like a failing region.
func TestSearch_TimeoutNarrowsLikeOOM(t *testing.T) {
	attempt := func(_ context.Context, ceilingMB int) (Outcome, error) {
		if ceilingMB >= 4000 {
			return Outcome{Status: Success}, nil
		}
		return Outcome{Status: Timeout}, nil
	}

	iv, err := Search(context.Background(),
		Options{NotWorking: 128, Working: 8192, RangeSize: 32}, attempt)
	require.NoError(t, err)
	assert.Equal(t, Interval{NotWorking: 3971, Working: 4003}, iv)
}

// TestSearch_TinyInterval makes strict progress on a width-2 interval.
func TestSearch_TinyInterval(t *testing.T) {
	attempts := 0
	iv, err := Search(context.Background(),
		Options{NotWorking: 0, Working: 2, RangeSize: 1},
		thresholdAttempt(2, &attempts))
	require.NoError(t, err)

	assert.Equal(t, Interval{NotWorking: 1, Working: 2}, iv)
	assert.Equal(t, 1, attempts)
}

// TestSearch_AttemptErrorAborts propagates a spawn-level error immediately.
func TestSearch_AttemptErrorAborts(t *testing.T) {
	boom := errors.New("java not found")
	attempts := 0
	_, err := Search(context.Background(),
		Options{NotWorking: 128, Working: 8192, RangeSize: 32},
		func(_ context.Context, _ int) (Outcome, error) {
			attempts++
			return Outcome{}, boom
		})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

// TestSearch_InvalidOptions fails fast before any attempt is launched.
func TestSearch_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"inverted bounds", Options{NotWorking: 8192, Working: 128, RangeSize: 32}},
		{"equal bounds", Options{NotWorking: 1024, Working: 1024, RangeSize: 32}},
		{"zero range", Options{NotWorking: 128, Working: 8192, RangeSize: 0}},
		{"negative lower bound", Options{NotWorking: -1, Working: 8192, RangeSize: 32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			_, err := Search(context.Background(), tt.opts, thresholdAttempt(4000, &attempts))
			require.Error(t, err)
			assert.Zero(t, attempts)
		})
	}
}

// TestSearch_ObserverSeesEveryAttempt records candidates in issue order.
func TestSearch_ObserverSeesEveryAttempt(t *testing.T) {
	var seen []int
	attempts := 0
	opts := Options{
		NotWorking: 128,
		Working:    8192,
		RangeSize:  32,
		Observer:   func(s Step) { seen = append(seen, s.Candidate) },
	}

	_, err := Search(context.Background(), opts, thresholdAttempt(4000, &attempts))
	require.NoError(t, err)

	assert.Equal(t, []int{4160, 2144, 3152, 3656, 3908, 4034, 3971, 4003}, seen)
	assert.Equal(t, attempts, len(seen))
}

func TestDefaultNotWorking(t *testing.T) {
	assert.Equal(t, 128, DefaultNotWorking("d8"))
	assert.Equal(t, 1024, DefaultNotWorking("r8"))
}
