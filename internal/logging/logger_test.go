// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestNamedToleratesNil(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Named(nil, "pipeline"))
	assert.NotNil(t, ForRun(nil, "run-1"))
}

func TestForRunAddsRunID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := ForRun(zap.New(core), "run-42")
	logger.Info("store done")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-42", entries[0].ContextMap()["run_id"])
}
