// Package app wires the adshub components together and manages their
// lifecycle.
//
// New builds, in order: logging, OpenTelemetry and the business metrics,
// the optional SQLite store, the rolling reach source (Google Sheets or the
// CSV export), the optional S3 publisher, the websocket hub, the pipeline
// registry with its manager and job queue, the application services and
// finally the HTTP router. CLI commands use the services directly; serve
// calls Run, which listens until SIGINT or SIGTERM.
//
// Stop releases everything New opened and may be called more than once.
package app
