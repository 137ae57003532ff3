package bisect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "oom", OutOfMemory.String())
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "failure", OtherFailure.String())
}

func TestOutcome_Viable(t *testing.T) {
	assert.True(t, Outcome{Status: Success}.Viable())
	assert.True(t, Outcome{Status: OutOfMemory}.Viable())
	assert.True(t, Outcome{Status: Timeout}.Viable())
	assert.False(t, Outcome{Status: OtherFailure, Code: 1}.Viable())
}

func TestFailureError_Message(t *testing.T) {
	err := &FailureError{Code: 17}
	assert.Contains(t, err.Error(), "17")
	assert.Contains(t, err.Error(), "non-memory")
}
