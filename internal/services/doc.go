// Package services sits between the HTTP handlers and the pipeline
// packages.
//
// EstimatorService owns the lazily loaded estimator dataset,
// AuditService runs the integrity audits against freshly loaded exports,
// OperationsService starts and tracks pipeline runs and HealthService
// reports liveness and readiness.
//
// Services return AppError or APIError values from internal/errors so
// handlers can hand them straight to the error handler.
package services
