// Package shared is the parent of helpers used by more than one adshub
// package. It holds no code itself.
//
// The testutil subpackage provides LogCapture, an in-memory slog.Handler
// that pipelines, audits and HTTP tests use to assert on emitted events:
//
//	logger, logs := testutil.NewLogger(t)
//	runStage(ctx, logger)
//	require.True(t, logs.Has(slog.LevelWarn, "rolling reach missing"))
package shared
