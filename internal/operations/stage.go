package operations

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// DataRequirement is an input file a stage reads
type DataRequirement struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Optional bool   `json:"optional"`
}

// DataOutput is a file a stage writes
type DataOutput struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Step is one stage of the report pipeline: standardize, master, rolling,
// audiences, persist. Stages exchange data through files, so a lone stage
// can run whenever its RequiredInputs exist.
type Step interface {
	ID() string
	Name() string

	// Execute does the work. Figures worth showing go into the stage's
	// metadata via state.
	Execute(ctx context.Context, state *OperationState) error

	// Validate runs before Execute; an error fails the stage unrun.
	Validate(state *OperationState) error

	// GetDependencies orders stages in a full run.
	GetDependencies() []string

	RequiredInputs() []DataRequirement
	ProducedOutputs() []DataOutput
}

// StepStatus represents the current status of a stage
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a stage
type StepState struct {
	mu        sync.RWMutex           `json:"-"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message"`
	Error     error                  `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState creates a pending stage state
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start moves the stage to active and clears the previous attempt
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.Status, s.StartTime, s.EndTime = StepStatusActive, &now, nil
	s.Progress, s.Error = 0, nil
}

// Complete settles the stage at 100%
func (s *StepState) Complete() {
	s.settle(StepStatusCompleted, func() { s.Progress = 100 })
}

// Fail settles the stage with err, whose text becomes the message
func (s *StepState) Fail(err error) {
	s.settle(StepStatusFailed, func() {
		s.Error = err
		if err != nil {
			s.Message = err.Error()
		}
	})
}

// Skip settles the stage without running it
func (s *StepState) Skip(reason string) {
	s.settle(StepStatusSkipped, func() { s.Message = reason })
}

// settle stamps the end time and applies the final field changes under
// the state lock
func (s *StepState) settle(status StepStatus, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.Status, s.EndTime = status, &now
	apply()
}

// UpdateProgress records a percentage and status line
func (s *StepState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	s.Progress, s.Message = progress, message
	s.mu.Unlock()
}

// SetMetadata records a figure produced by the stage
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// MetadataCopy returns a snapshot of the stage metadata
func (s *StepState) MetadataCopy() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.Metadata))
	for k, v := range s.Metadata {
		out[k] = v
	}
	return out
}

// Duration is the elapsed run time, still growing while the stage is active
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.StartTime == nil:
		return 0
	case s.EndTime == nil:
		return time.Since(*s.StartTime)
	}
	return s.EndTime.Sub(*s.StartTime)
}

// BaseStage carries the identity half of Step. Pipeline stages embed it and
// add Execute plus whatever file contracts they have.
type BaseStage struct {
	id, name string
	deps     []string
}

// NewBaseStage names a stage and the stages it runs after
func NewBaseStage(id, name string, dependencies []string) BaseStage {
	b := BaseStage{id: id, name: name, deps: dependencies}
	if b.deps == nil {
		b.deps = []string{}
	}
	return b
}

func (b *BaseStage) ID() string { return b.id }
func (b *BaseStage) Name() string { return b.name }
func (b *BaseStage) GetDependencies() []string { return b.deps }
func (b *BaseStage) Validate(state *OperationState) error { return nil }
func (b *BaseStage) RequiredInputs() []DataRequirement { return nil }
func (b *BaseStage) ProducedOutputs() []DataOutput { return nil }

// MissingInputs returns the required, non-optional inputs of s that do not
// exist on disk
func MissingInputs(s Step) []string {
	var missing []string
	for _, req := range s.RequiredInputs() {
		if req.Optional {
			continue
		}
		if _, err := os.Stat(req.Path); err != nil {
			missing = append(missing, req.Path)
		}
	}
	return missing
}

// CheckInputs fails with a validation error naming the first missing input
func CheckInputs(s Step) error {
	if missing := MissingInputs(s); len(missing) > 0 {
		return NewValidationError(s.ID(), fmt.Sprintf("missing input %s", missing[0]))
	}
	return nil
}
