package cliutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToProvidedWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LoggerOptions{Writer: &buf, Level: "info", Component: "planner"})
	require.NoError(t, err)

	logger.Info("plan compiled", "operations", 4)
	require.Contains(t, buf.String(), "plan compiled")
	require.Contains(t, buf.String(), "component")
	require.Contains(t, buf.String(), "planner")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(LoggerOptions{Level: "not-a-level"})
	require.Error(t, err)
}

func TestWithAddsPersistentFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LoggerOptions{Writer: &buf})
	require.NoError(t, err)

	scoped := logger.With("run_id", "abc123")
	scoped.Info("starting")
	require.Contains(t, buf.String(), "run_id")
	require.Contains(t, buf.String(), "abc123")
}
