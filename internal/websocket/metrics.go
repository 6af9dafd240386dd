package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the hub's OpenTelemetry instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	connections  metric.Int64Counter
	active       metric.Int64UpDownCounter
	duration     metric.Float64Histogram
	messagesSent metric.Int64Counter
	bytesSent    metric.Int64Counter
	dropped      metric.Int64Counter
}

// NewMetrics registers the websocket instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.connections, err = meter.Int64Counter("websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections")); err != nil {
		return nil, err
	}
	if m.active, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.messagesSent, err = meter.Int64Counter("websocket_messages_sent_total",
		metric.WithDescription("Messages written to clients")); err != nil {
		return nil, err
	}
	if m.bytesSent, err = meter.Int64Counter("websocket_message_bytes_total",
		metric.WithDescription("Bytes written to clients"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("websocket_messages_dropped_total",
		metric.WithDescription("Messages dropped because a buffer was full")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) connected(ctx context.Context) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, 1)
	m.active.Add(ctx, 1)
}

func (m *Metrics) disconnected(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
	m.duration.Record(ctx, d.Seconds())
}

func (m *Metrics) sent(ctx context.Context, messageType string, size int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("type", messageType))
	m.messagesSent.Add(ctx, 1, attrs)
	m.bytesSent.Add(ctx, int64(size), attrs)
}

func (m *Metrics) drop(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
