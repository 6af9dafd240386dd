package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"adshub/pkg/contracts/events"
)

// fakeConn is an in-memory Connection. Reads block until a frame is pushed
// or the connection is closed.
type fakeConn struct {
	mu       sync.Mutex
	frames   []int
	text     chan []byte
	incoming chan []byte
	closed   chan struct{}
	once     sync.Once
	pong     func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		text:     make(chan []byte, 64),
		incoming: make(chan []byte, 8),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("use of closed connection")
	default:
	}
	f.mu.Lock()
	f.frames = append(f.frames, messageType)
	f.mu.Unlock()
	if messageType == websocket.TextMessage {
		f.text <- data
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-f.incoming:
		return websocket.TextMessage, m, nil
	case <-f.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64)               {}
func (f *fakeConn) RemoteAddr() string               { return "127.0.0.1:50000" }

func (f *fakeConn) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	f.pong = h
	f.mu.Unlock()
}

func (f *fakeConn) sawFrame(messageType int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.frames {
		if t == messageType {
			return true
		}
	}
	return false
}

// next decodes the next text frame written to the connection
func (f *fakeConn) next(t *testing.T) events.WebSocketMessage {
	t.Helper()
	select {
	case data := <-f.text:
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message written")
		return events.WebSocketMessage{}
	}
}
