// Package testutil holds mocks and fixtures for pipeline tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"adshub/internal/operations"
)

// MockStage is a configurable stage
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string
	Inputs            []operations.DataRequirement
	Outputs           []operations.DataOutput

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu            sync.Mutex
	executeCalls  int
	validateCalls int
	executedAt    []time.Time
}

// ID returns the stage ID
func (m *MockStage) ID() string {
	return m.IDValue
}

// Name returns the stage name
func (m *MockStage) Name() string {
	return m.NameValue
}

// GetDependencies returns the stage dependencies
func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute counts the call and runs ExecuteFunc
func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	m.executedAt = append(m.executedAt, time.Now())
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate counts the call and runs ValidateFunc
func (m *MockStage) Validate(state *operations.OperationState) error {
	m.mu.Lock()
	m.validateCalls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// ExecuteCalls returns the number of Execute calls
func (m *MockStage) ExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// ValidateCalls returns the number of Validate calls
func (m *MockStage) ValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// ExecutedAt returns the start time of every Execute call
func (m *MockStage) ExecutedAt() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.executedAt...)
}

// RequiredInputs returns Inputs
func (m *MockStage) RequiredInputs() []operations.DataRequirement {
	return m.Inputs
}

// ProducedOutputs returns Outputs
func (m *MockStage) ProducedOutputs() []operations.DataOutput {
	return m.Outputs
}

// MockWebSocketHub records broadcast messages
type MockWebSocketHub struct {
	mu       sync.Mutex
	Messages []WebSocketMessage
}

// WebSocketMessage is one recorded broadcast
type WebSocketMessage struct {
	EventType string
	Step      string
	Status    string
	Metadata  interface{}
	Time      time.Time
}

// BroadcastUpdate records the message
func (m *MockWebSocketHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, WebSocketMessage{
		EventType: eventType,
		Step:      step,
		Status:    status,
		Metadata:  metadata,
		Time:      time.Now(),
	})
}

// GetMessages returns all recorded messages
func (m *MockWebSocketHub) GetMessages() []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WebSocketMessage(nil), m.Messages...)
}

// GetMessagesByType returns the messages of one event type
func (m *MockWebSocketHub) GetMessagesByType(eventType string) []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WebSocketMessage
	for _, msg := range m.Messages {
		if msg.EventType == eventType {
			out = append(out, msg)
		}
	}
	return out
}

// Snapshots returns the snapshot payloads broadcast for an operation
func (m *MockWebSocketHub) Snapshots(operationID string) []*operations.OperationSnapshot {
	var out []*operations.OperationSnapshot
	for _, msg := range m.GetMessagesByType(operations.EventTypeOperationSnapshot) {
		if s, ok := msg.Metadata.(*operations.OperationSnapshot); ok && s.OperationID == operationID {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the last snapshot of an operation, or nil
func (m *MockWebSocketHub) Last(operationID string) *operations.OperationSnapshot {
	snaps := m.Snapshots(operationID)
	if len(snaps) == 0 {
		return nil
	}
	return snaps[len(snaps)-1]
}

// Clear removes all recorded messages
func (m *MockWebSocketHub) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
