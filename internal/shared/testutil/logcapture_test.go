package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCapture(t *testing.T) {
	logger, logs := NewLogger(t)

	logger.With(slog.String("component", "store")).Info("rows_replaced", slog.Int("rows", 3))
	logger.WithGroup("run").Warn("slow", slog.Int("ms", 900))
	logger.Error("failed")

	require.Len(t, logs.Entries(), 3)

	e, ok := logs.Find("rows_replaced")
	require.True(t, ok)
	assert.Equal(t, "store", e.Attrs["component"])
	assert.EqualValues(t, 3, e.Attrs["rows"])

	e, ok = logs.Find("slow")
	require.True(t, ok)
	assert.EqualValues(t, 900, e.Attrs["run.ms"])

	assert.True(t, logs.Has(slog.LevelError, "failed"))
	assert.False(t, logs.Has(slog.LevelInfo, "failed"))
	assert.Equal(t, 1, logs.Count(slog.LevelWarn))

	logs.Reset()
	assert.Empty(t, logs.Entries())
}
