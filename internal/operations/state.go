package operations

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// OperationStatusValue represents the overall operation status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// Terminal reports whether no further transition can happen
func (s OperationStatusValue) Terminal() bool {
	return s == OperationStatusCompleted || s == OperationStatusFailed || s == OperationStatusCancelled
}

// OperationState represents the complete state of one pipeline run
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	// Order lists the stage IDs in execution order
	Order []string              `json:"order"`
	Steps map[string]*StepState `json:"steps"`

	// Context passes figures between stages
	Context map[string]interface{} `json:"context"`

	// Config holds the request parameters
	Config map[string]interface{} `json:"config"`

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.finish(OperationStatusCompleted, nil)
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.finish(OperationStatusFailed, err)
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.finish(OperationStatusCancelled, nil)
}

func (p *OperationState) finish(status OperationStatusValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Status.Terminal() {
		return
	}
	now := time.Now()
	p.EndTime = &now
	p.Status = status
	p.Error = err
}

// GetStatus returns the current status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific stage
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage adds or replaces the state of a stage
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.Steps[stageID]; !ok {
		p.Order = append(p.Order, stageID)
	}
	p.Steps[stageID] = state
}

// GetContext reads a figure a previous stage left for later ones
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	return p.lookup(p.Context, key)
}

// SetContext leaves a figure for later stages
func (p *OperationState) SetContext(key string, value interface{}) {
	p.store(p.Context, key, value)
}

// GetConfig reads a run parameter such as "strategy" or "step"
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	return p.lookup(p.Config, key)
}

// ConfigString returns a string parameter, or "" when unset
func (p *OperationState) ConfigString(key string) string {
	v, _ := p.GetConfig(key)
	s, _ := v.(string)
	return s
}

// SetConfig records a run parameter
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.store(p.Config, key, value)
}

func (p *OperationState) lookup(m map[string]interface{}, key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := m[key]
	return v, ok
}

func (p *OperationState) store(m map[string]interface{}, key string, value interface{}) {
	p.mu.Lock()
	m[key] = value
	p.mu.Unlock()
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

func (p *OperationState) stagesWith(status StepStatus) []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*StepState
	for _, id := range p.Order {
		if s := p.Steps[id]; s.GetStatus() == status {
			out = append(out, s)
		}
	}
	return out
}

// GetCompletedStages returns the completed stages in execution order
func (p *OperationState) GetCompletedStages() []*StepState {
	return p.stagesWith(StepStatusCompleted)
}

// GetFailedStages returns the failed stages in execution order
func (p *OperationState) GetFailedStages() []*StepState {
	return p.stagesWith(StepStatusFailed)
}

// HasFailures returns true if any stage has failed
func (p *OperationState) HasFailures() bool {
	return len(p.GetFailedStages()) > 0
}

// Clone snapshots the run for readers outside the manager. Stage states
// are copied under their own locks.
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Order:     slices.Clone(p.Order),
		Steps:     make(map[string]*StepState, len(p.Steps)),
		Context:   maps.Clone(p.Context),
		Config:    maps.Clone(p.Config),
		Error:     p.Error,
	}
	if p.EndTime != nil {
		end := *p.EndTime
		c.EndTime = &end
	}
	for id, st := range p.Steps {
		c.Steps[id] = st.clone()
	}
	return c
}

func (s *StepState) clone() *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &StepState{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Progress:  s.Progress,
		Message:   s.Message,
		Error:     s.Error,
		Metadata:  maps.Clone(s.Metadata),
	}
}
