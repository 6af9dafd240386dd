// Package events contains the WebSocket message contracts of the ads hub.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeOperationSnapshot carries pipeline progress
	MessageTypeOperationSnapshot MessageType = "operation:snapshot"

	// MessageTypeDatasetReloaded is sent after the estimator dataset is reloaded
	MessageTypeDatasetReloaded MessageType = "dataset:reloaded"

	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Subject string      `json:"subject,omitempty"`
	Status  string      `json:"status,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// DatasetReloadedEvent is broadcast after the estimator reloads its data
type DatasetReloadedEvent struct {
	Campaigns int       `json:"campaigns"`
	Source    string    `json:"source"` // csv|store
	LoadedAt  time.Time `json:"loaded_at"`
}
