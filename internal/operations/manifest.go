package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunManifest records what one pipeline run executed and which files it
// left behind. It is written as JSON after every stage so a crashed run
// still shows how far it got.
type RunManifest struct {
	mu sync.RWMutex

	OperationID string                 `json:"operation_id"`
	StartTime   time.Time              `json:"start_time"`
	Config      map[string]interface{} `json:"config,omitempty"`

	Stages  []StageExecution     `json:"stages"`
	Outputs map[string]*DataInfo `json:"outputs"`

	Status      string    `json:"status"` // pending|running|completed|failed|cancelled
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// DataInfo describes one file a stage produced
type DataInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Exists    bool      `json:"exists"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string                 `json:"stage_id"`
	StageName string                 `json:"stage_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Attempts  int                    `json:"attempts"`
	Status    string                 `json:"status"` // running|completed|failed|skipped
	Outputs   []string               `json:"outputs,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewRunManifest creates the manifest of an operation
func NewRunManifest(operationID string, config map[string]interface{}) *RunManifest {
	now := time.Now()
	return &RunManifest{
		OperationID: operationID,
		StartTime:   now,
		Config:      config,
		Stages:      []StageExecution{},
		Outputs:     make(map[string]*DataInfo),
		Status:      "pending",
		LastUpdated: now,
	}
}

func (m *RunManifest) execution(stageID, stageName string) *StageExecution {
	for i := range m.Stages {
		if m.Stages[i].StageID == stageID {
			return &m.Stages[i]
		}
	}
	m.Stages = append(m.Stages, StageExecution{StageID: stageID, StageName: stageName})
	return &m.Stages[len(m.Stages)-1]
}

// SetStatus records the overall run status
func (m *RunManifest) SetStatus(status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = status
	if err != nil {
		m.Error = err.Error()
	}
	m.LastUpdated = time.Now()
}

// RecordStageStart records an attempt of a stage. Retries reuse the entry.
func (m *RunManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.execution(stageID, stageName)
	e.StartTime = time.Now()
	e.Status = "running"
	e.Attempts++
	e.Error = ""
	m.LastUpdated = e.StartTime
}

func (m *RunManifest) end(stageID string, status string) *StageExecution {
	e := m.execution(stageID, stageID)
	e.EndTime = time.Now()
	if !e.StartTime.IsZero() {
		e.Duration = e.EndTime.Sub(e.StartTime).Round(time.Millisecond).String()
	}
	e.Status = status
	m.LastUpdated = e.EndTime
	return e
}

// RecordStageCompletion records a completed stage and stats its outputs
func (m *RunManifest) RecordStageCompletion(stageID string, outputs []DataOutput, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.end(stageID, "completed")
	e.Metadata = metadata
	e.Outputs = e.Outputs[:0]
	for _, out := range outputs {
		info := &DataInfo{Name: out.Name, Path: out.Path, CreatedBy: stageID, CreatedAt: e.EndTime}
		if fi, err := os.Stat(out.Path); err == nil {
			info.Exists = true
			info.Size = fi.Size()
		}
		m.Outputs[out.Name] = info
		e.Outputs = append(e.Outputs, out.Name)
	}
}

// RecordStageFailure records a failed stage
func (m *RunManifest) RecordStageFailure(stageID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.end(stageID, "failed")
	e.Error = err.Error()
	m.Error = fmt.Sprintf("stage %s failed: %v", stageID, err)
}

// RecordStageSkip records a stage that did not run
func (m *RunManifest) RecordStageSkip(stageID, stageName, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.execution(stageID, stageName)
	e.Status = "skipped"
	e.Error = reason
	m.LastUpdated = time.Now()
}

// IsStageCompleted checks if a stage has been completed
func (m *RunManifest) IsStageCompleted(stageID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, stage := range m.Stages {
		if stage.StageID == stageID && stage.Status == "completed" {
			return true
		}
	}
	return false
}

// GetOutput returns a recorded output by name
func (m *RunManifest) GetOutput(name string) (*DataInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.Outputs[name]
	return info, ok
}

// SaveToFile writes the manifest atomically as indented JSON
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile loads a manifest written by SaveToFile
func LoadManifestFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if manifest.Outputs == nil {
		manifest.Outputs = make(map[string]*DataInfo)
	}
	return &manifest, nil
}

// GetProgress is the share of recorded stages that completed or were skipped
func (m *RunManifest) GetProgress() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.Stages) == 0 {
		return 0
	}
	done := 0
	for _, stage := range m.Stages {
		if stage.Status == "completed" || stage.Status == "skipped" {
			done++
		}
	}
	return done * 100 / len(m.Stages)
}
