package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"adshub/internal/infrastructure"
)

// TracerName is the instrumentation scope of pipeline spans.
const TracerName = "adshub.pipeline"

// Stage outcomes recorded on metrics
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// OperationTracer records pipeline spans and stage metrics
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer over the given providers
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		providers = infrastructure.NoopProviders()
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return &OperationTracer{tracer: providers.Tracer, metrics: metrics}, nil
}

// NewOperationTracerWithMetrics shares already created instruments
func NewOperationTracerWithMetrics(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *OperationTracer {
	return &OperationTracer{tracer: tracer, metrics: metrics}
}

// TraceOperation starts the span of a whole run
func (t *OperationTracer) TraceOperation(ctx context.Context, operationID string, stages []string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.StringSlice("operation.stages", stages),
		),
	)
}

// EndOperation closes the run span and counts the run
func (t *OperationTracer) EndOperation(ctx context.Context, span trace.Span, status OperationStatusValue, err error) {
	span.SetAttributes(attribute.String("operation.status", string(status)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	t.metrics.PipelineRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

// TraceStage starts the span of one stage attempt
func (t *OperationTracer) TraceStage(ctx context.Context, operationID, stageID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("stage.id", stageID),
			attribute.Int("stage.attempt", attempt),
		),
	)
}

// EndStage closes a stage span, attaching the stage metadata, and records
// pipeline_stage_total and pipeline_stage_duration_seconds
func (t *OperationTracer) EndStage(ctx context.Context, span trace.Span, stageID string, duration time.Duration, metadata map[string]interface{}, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(infrastructure.Attributes(metadata)...)
	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	span.End()

	attrs := metric.WithAttributes(attribute.String("stage", stageID), attribute.String("status", outcome))
	t.metrics.PipelineStageTotal.Add(ctx, 1, attrs)
	t.metrics.PipelineStageDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSkip counts a stage that did not run
func (t *OperationTracer) RecordSkip(ctx context.Context, stageID string) {
	t.metrics.PipelineStageTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stageID), attribute.String("status", OutcomeSkipped)))
}
