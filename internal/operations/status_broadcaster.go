package operations

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// StatusBroadcaster owns the client-facing view of every operation. Updates
// are applied one at a time and each one broadcasts a full snapshot.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// OperationSnapshot is the complete state of an operation sent to clients
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`   // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"` // 0-100
	CurrentStep string         `json:"current_step"`
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot is the state of a single stage
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"` // pending|running|completed|failed|skipped
	Progress int                    `json:"progress"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (s *OperationSnapshot) clone() *OperationSnapshot {
	c := *s
	c.Steps = make([]StepSnapshot, len(s.Steps))
	for i, st := range s.Steps {
		c.Steps[i] = st
		if st.Metadata != nil {
			c.Steps[i].Metadata = make(map[string]interface{}, len(st.Metadata))
			for k, v := range st.Metadata {
				c.Steps[i].Metadata[k] = v
			}
		}
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (s *OperationSnapshot) terminal() bool {
	return s.Status == "completed" || s.Status == "failed" || s.Status == "cancelled"
}

func (s *OperationSnapshot) step(id string) *StepSnapshot {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i]
		}
	}
	s.Steps = append(s.Steps, StepSnapshot{ID: id, Name: id, Status: "pending"})
	return &s.Steps[len(s.Steps)-1]
}

type updateRequest struct {
	operationID string
	apply       func(*OperationSnapshot)
	done        chan struct{}
}

// NewStatusBroadcaster starts a broadcaster. hub may be nil.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	sb := &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger.With(slog.String("component", "status_broadcaster")),
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go sb.processUpdates()
	return sb
}

func (sb *StatusBroadcaster) processUpdates() {
	defer close(sb.done)
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	snapshot, exists := sb.operations[req.operationID]
	if !exists {
		now := time.Now()
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      "pending",
			StartedAt:   now,
			Steps:       []StepSnapshot{},
		}
		sb.operations[req.operationID] = snapshot
	}

	req.apply(snapshot)
	snapshot.UpdatedAt = time.Now()

	if len(snapshot.Steps) > 0 {
		total := 0
		for _, step := range snapshot.Steps {
			if step.Status == "skipped" {
				total += 100
				continue
			}
			total += step.Progress
		}
		snapshot.Progress = total / len(snapshot.Steps)
	}
	if snapshot.terminal() && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}
	out := snapshot.clone()
	sb.mu.Unlock()

	sb.broadcast(out)
}

func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	sb.logger.Debug("operation_snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep))
	if sb.hub == nil {
		return
	}
	sb.hub.BroadcastUpdate(EventTypeOperationSnapshot, snapshot.OperationID, snapshot.Status, snapshot)
}

// UpdateStatus applies fn to the snapshot of operationID and waits until
// the resulting snapshot has been broadcast. It is a no-op once the
// broadcaster is stopped.
func (sb *StatusBroadcaster) UpdateStatus(operationID string, fn func(*OperationSnapshot)) {
	req := updateRequest{operationID: operationID, apply: fn, done: make(chan struct{})}
	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}
	select {
	case <-req.done:
	case <-sb.done:
	}
}

// CreateOperation resets operationID to a pending run of the given stages
func (sb *StatusBroadcaster) CreateOperation(operationID string, steps []Step) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "pending"
		s.Progress = 0
		s.CompletedAt = nil
		s.Error = ""
		s.Steps = make([]StepSnapshot, len(steps))
		for i, step := range steps {
			s.Steps[i] = StepSnapshot{ID: step.ID(), Name: step.Name(), Status: "pending"}
		}
		s.Message = "Operation created"
	})
}

// StartOperation marks an operation as running
func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "running"
		s.Message = "Operation started"
	})
}

// UpdateStepProgress updates a stage's progress. Progress never moves
// backwards while the stage is running.
func (sb *StatusBroadcaster) UpdateStepProgress(operationID, stepID string, progress int, message string) {
	sb.UpdateStepWithMetadata(operationID, stepID, progress, message, nil)
}

// UpdateStepWithMetadata updates a stage's progress and metadata
func (sb *StatusBroadcaster) UpdateStepWithMetadata(operationID, stepID string, progress int, message string, metadata map[string]interface{}) {
	progress = min(max(progress, 0), 100)
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		if !(step.Status == "running" && progress < step.Progress) {
			step.Progress = progress
		}
		step.Message = message
		if metadata != nil {
			step.Metadata = metadata
		}
		if progress >= 100 {
			step.Status = "completed"
			step.Progress = 100
		} else {
			step.Status = "running"
			s.CurrentStep = step.Name
		}
	})
}

// CompleteStep marks a stage as completed with its final metadata
func (sb *StatusBroadcaster) CompleteStep(operationID, stepID, message string, metadata map[string]interface{}) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Status = "completed"
		step.Progress = 100
		step.Message = message
		step.Error = ""
		if metadata != nil {
			step.Metadata = metadata
		}
	})
}

// SkipStep marks a stage as skipped
func (sb *StatusBroadcaster) SkipStep(operationID, stepID, reason string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Status = "skipped"
		step.Message = reason
	})
}

// FailStep marks a stage as failed
func (sb *StatusBroadcaster) FailStep(operationID, stepID string, err error) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Status = "failed"
		step.Error = err.Error()
	})
}

// CompleteOperation marks an operation as completed
func (sb *StatusBroadcaster) CompleteOperation(operationID, message string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "completed"
		s.CurrentStep = ""
		s.Message = message
	})
}

// FailOperation marks an operation as failed
func (sb *StatusBroadcaster) FailOperation(operationID string, err error) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "failed"
		s.Error = err.Error()
		s.CurrentStep = ""
	})
}

// CancelOperation marks an operation as cancelled
func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "cancelled"
		s.CurrentStep = ""
		s.Message = "Operation cancelled by user"
	})
}

// GetSnapshot returns a copy of the current snapshot of an operation
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}
	return snapshot.clone(), true
}

// GetAllSnapshots returns copies of every snapshot, newest first
func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	out := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snapshot := range sb.operations {
		out = append(out, snapshot.clone())
	}
	sb.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// CleanupOldOperations forgets finished operations older than maxAge
func (sb *StatusBroadcaster) CleanupOldOperations(maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, snapshot := range sb.operations {
		if snapshot.terminal() && snapshot.CompletedAt != nil && now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			removed++
		}
	}
	return removed
}

// Stop shuts the update loop down and waits for it to exit
func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() { close(sb.stop) })
	<-sb.done
}
