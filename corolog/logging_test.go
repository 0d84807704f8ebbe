package corolog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithLevel(LevelWarn))

	Debug(l, "poller", "ignored", nil)
	require.Empty(t, buf.String())

	Warn(l, "poller", "armed fd 5", map[string]any{"fd": 5})
	require.Contains(t, buf.String(), "armed fd 5")
	require.Contains(t, buf.String(), "fd=5")
}

func TestDefaultLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithJSON(true), WithLevel(LevelDebug))

	Error(l, "timer", "re-arm failed", errors.New("boom"), nil)
	require.Contains(t, buf.String(), `"category":"timer"`)
	require.Contains(t, buf.String(), `"error":"boom"`)
}

func TestNoOpLogger(t *testing.T) {
	n := NoOp{}
	require.False(t, n.IsEnabled(LevelError))
	n.Log(Entry{Level: LevelError, Message: "should be dropped silently"})
}
