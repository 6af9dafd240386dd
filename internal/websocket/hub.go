package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"adshub/internal/infrastructure"
	"adshub/pkg/contracts/events"
)

// broadcastBuffer bounds the messages waiting for the hub loop.
const broadcastBuffer = 256

type outbound struct {
	typ  string
	data []byte
}

// Hub maintains the set of active clients and fans messages out to them.
// A client whose send buffer is full is disconnected rather than allowed to
// stall the others.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	quit      chan struct{}
	done      chan struct{}
	running   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		h.running.Store(true)
		go h.run()
	})
}

// Stop ends the hub loop and closes every client's send channel, which
// makes their write pumps send a close frame and exit
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	if h.running.Load() {
		<-h.done
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("hub_stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()

			ctx := c.context()
			h.metrics.connected(ctx)
			h.logger.InfoContext(ctx, "client_registered",
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))
			h.greet(c)

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}

			ctx := c.context()
			h.metrics.disconnected(ctx, time.Since(c.connectedAt))
			h.logger.InfoContext(ctx, "client_unregistered",
				slog.String("client_id", c.id),
				slog.Duration("connection_duration", time.Since(c.connectedAt)),
				slog.Int("total_clients", count))

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) greet(c *Client) {
	data, err := encode(events.MessageTypeConnect, "", "connected", map[string]string{"client_id": c.id}, c.traceID)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		h.metrics.drop(c.context(), "client_buffer_full")
	}
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	failed := 0
	for c := range h.clients {
		select {
		case c.send <- msg.data:
		default:
			failed++
			close(c.send)
			delete(h.clients, c)
			h.metrics.drop(context.Background(), "client_buffer_full")
			h.logger.Warn("client_buffer_full", slog.String("client_id", c.id))
		}
	}
	h.logger.Debug("broadcast",
		slog.String("type", msg.typ),
		slog.Int("clients", len(h.clients)),
		slog.Int("dropped_clients", failed),
		slog.Int("size", len(msg.data)))
}

func encode(typ events.MessageType, subject, status string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      typ,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Subject: subject,
		Status:  status,
		Data:    data,
	})
}

// BroadcastUpdate wraps the event in a WebSocketMessage and queues it for
// every client. It never blocks: when the queue is full the message is
// dropped.
func (h *Hub) BroadcastUpdate(eventType, subject, status string, data interface{}) {
	msg, err := encode(events.MessageType(eventType), subject, status, data, "")
	if err != nil {
		h.logger.Error("marshal_failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}
	h.enqueue(outbound{typ: eventType, data: msg})
}

// Publish queues a prepared message for every client
func (h *Hub) Publish(ctx context.Context, msg events.WebSocketMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.TraceID == "" {
		msg.TraceID = infrastructure.GetTraceID(ctx)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.enqueue(outbound{typ: string(msg.Type), data: data})
	return nil
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case <-h.quit:
		return
	default:
	}
	select {
	case h.broadcast <- msg:
	default:
		h.metrics.drop(context.Background(), "hub_queue_full")
		h.logger.Warn("broadcast_dropped", slog.String("type", msg.typ))
	}
}

// Register adds a client. After Stop the client's send channel is closed
// right away.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		close(c.send)
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
