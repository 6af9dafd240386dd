package websocket

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/goleak"

	"adshub/internal/config"
	"adshub/internal/infrastructure"
	"adshub/pkg/contracts/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T, metrics *Metrics) *Hub {
	t.Helper()
	h := NewHub(infrastructure.NewLogger(io.Discard, "error"), metrics)
	h.Start()
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Hub) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	c := NewClient(h, conn, config.Default().WebSocket, "trace-1")
	c.Serve()
	hello := conn.next(t)
	require.Equal(t, events.MessageTypeConnect, hello.Type)
	require.Equal(t, "trace-1", hello.TraceID)
	return c, conn
}

func TestHubBroadcastUpdate(t *testing.T) {
	h := startHub(t, nil)
	_, a := connect(t, h)
	_, b := connect(t, h)
	require.Equal(t, 2, h.ClientCount())

	h.BroadcastUpdate(string(events.MessageTypeOperationSnapshot), "op-1", "running", map[string]int{"progress": 40})

	for _, conn := range []*fakeConn{a, b} {
		msg := conn.next(t)
		assert.Equal(t, events.MessageTypeOperationSnapshot, msg.Type)
		assert.Equal(t, "op-1", msg.Subject)
		assert.Equal(t, "running", msg.Status)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, map[string]interface{}{"progress": float64(40)}, msg.Data)
	}
}

func TestHubPublishCarriesTraceID(t *testing.T) {
	h := startHub(t, nil)
	_, conn := connect(t, h)

	ctx := infrastructure.WithTraceID(context.Background(), "req-42")
	require.NoError(t, h.Publish(ctx, events.WebSocketMessage{
		BaseMessage: events.BaseMessage{Type: events.MessageTypeDatasetReloaded},
		Data:        events.DatasetReloadedEvent{Campaigns: 3, Source: "csv"},
	}))

	msg := conn.next(t)
	assert.Equal(t, events.MessageTypeDatasetReloaded, msg.Type)
	assert.Equal(t, "req-42", msg.TraceID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestHubUnregistersClosedClient(t *testing.T) {
	h := startHub(t, nil)
	_, conn := connect(t, h)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := startHub(t, nil)
	// registered without pumps, so nothing drains its buffer
	c := NewClient(h, newFakeConn(), config.WebSocketConfig{}, "")
	h.Register(c)
	require.Equal(t, 1, h.ClientCount())

	require.Eventually(t, func() bool {
		h.BroadcastUpdate("tick", "", "", nil)
		return h.ClientCount() == 0
	}, 5*time.Second, time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	h := NewHub(infrastructure.NewLogger(io.Discard, "error"), nil)
	h.Start()
	_, conn := connect(t, h)

	h.Stop()
	require.Eventually(t, func() bool { return conn.sawFrame(websocket.CloseMessage) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.ClientCount())

	// stopped hubs neither block nor register
	h.BroadcastUpdate("late", "", "", nil)
	late := NewClient(h, newFakeConn(), config.WebSocketConfig{}, "")
	h.Register(late)
	_, open := <-late.send
	assert.False(t, open)
	h.Stop()
}

func TestHubMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	h := startHub(t, m)
	_, conn := connect(t, h)
	h.BroadcastUpdate("tick", "", "", nil)
	conn.next(t)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if s, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["websocket_connections_total"])
	assert.Equal(t, int64(1), sums["websocket_connections_active"])
	assert.GreaterOrEqual(t, sums["websocket_messages_sent_total"], int64(1))
}

func TestClientDefaults(t *testing.T) {
	h := NewHub(infrastructure.NewLogger(io.Discard, "error"), nil)
	c := NewClient(h, newFakeConn(), config.WebSocketConfig{PingPeriod: time.Minute, PongWait: 10 * time.Second}, "")
	assert.Equal(t, 10*time.Second, c.pongWait)
	assert.Equal(t, 9*time.Second, c.pingPeriod)

	c = NewClient(h, newFakeConn(), config.WebSocketConfig{}, "")
	assert.Equal(t, config.WebSocketPongWait, c.pongWait)
	assert.NotEmpty(t, c.ID())
}
