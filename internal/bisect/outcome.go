package bisect

import "fmt"

// Status classifies the result of one compiler attempt.
//
// The runner translates raw process exit information (exit code, signal
// death, captured stderr) into a Status so that nothing downstream ever
// inspects exit codes directly.
type Status int

const (
	// Success means the attempt exited cleanly.
	Success Status = iota

	// OutOfMemory means the attempt failed because the heap ceiling was
	// too small. Detected from diagnostic output, not the exit code alone.
	OutOfMemory

	// Timeout means the attempt was forcibly killed after exceeding its
	// wall-clock budget. Treated like a failing ceiling by the search,
	// but kept distinct for logging.
	Timeout

	// OtherFailure means the attempt failed for a reason unrelated to
	// memory (crash, bad configuration). It aborts a search.
	OtherFailure
)

// String returns the status name used in logs and stored results.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case OutOfMemory:
		return "oom"
	case Timeout:
		return "timeout"
	case OtherFailure:
		return "failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String, for statuses read back
// from storage.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "success":
		return Success, nil
	case "oom":
		return OutOfMemory, nil
	case "timeout":
		return Timeout, nil
	case "failure":
		return OtherFailure, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// Outcome is the tri-state-plus-error result of a single attempt.
// Code carries the raw exit status of the attempt: zero on success, the
// negated signal number when the process died to a signal (timeout kills
// record -9), the exit code otherwise.
type Outcome struct {
	Status Status
	Code   int
}

// Viable reports whether the outcome narrows the search interval
// (as opposed to aborting the search).
func (o Outcome) Viable() bool {
	return o.Status != OtherFailure
}

// FailureError is returned by Search when an attempt reports OtherFailure.
// The search interval reached so far is not authoritative and is not
// exposed alongside the error.
type FailureError struct {
	Code int
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("compiler attempt failed with non-memory error (exit code %d)", e.Code)
}
