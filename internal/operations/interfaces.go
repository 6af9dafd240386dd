package operations

// WebSocketHub receives the pipeline events the status broadcaster emits.
// The websocket hub implements it; tests record the calls.
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// ProgressReporter takes percentage updates from a running stage. The
// manager installs one on the stage context, see ReportProgress.
type ProgressReporter interface {
	ReportProgress(progress int, message string) error
}
