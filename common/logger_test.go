package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_CallbackReceivesSeverityAndMessage(t *testing.T) {
	var severities []Severity
	var messages []string

	SetLogCallback(func(severity Severity, message string) {
		severities = append(severities, severity)
		messages = append(messages, message)
	})
	defer SetLogCallback(nil)

	LogError("some %v", "error")
	LogWarning("warning")
	LogInfo("info")
	LogTrace("trace")

	assert.Equal(t, []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityTrace}, severities)
	assert.Equal(t, []string{"some error", "warning", "info", "trace"}, messages)
}

func TestLog_NilCallbackIsSkipped(t *testing.T) {
	SetLogCallback(nil)
	defer SetLogCallback(nil)

	assert.NotPanics(t, func() {
		LogError("dropped")
	})
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "Error", SeverityError.String())
	assert.Equal(t, "Warning", SeverityWarning.String())
	assert.Equal(t, "Info", SeverityInfo.String())
	assert.Equal(t, "Trace", SeverityTrace.String())
}

func TestControl_CloseFiresObservers(t *testing.T) {
	control := NewControl(nil)

	var failures []error
	control.OnClose(func(cause error) {
		failures = append(failures, cause)
	})

	assert.False(t, control.IsClosed())
	assert.Nil(t, control.Close())
	assert.True(t, control.IsClosed())
	assert.Equal(t, []error{nil}, failures)

	// A second close is a no-op.
	assert.Nil(t, control.Close())
	assert.Equal(t, []error{nil}, failures)
}
