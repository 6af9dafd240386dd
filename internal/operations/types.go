package operations

import (
	"time"
)

// Pipeline stage identifiers
const (
	StageIDMerge       = "merge"
	StageIDHRExtract   = "hr-extract"
	StageIDStandardize = "standardize"
	StageIDMaster      = "master"
	StageIDRolling     = "rolling"
	StageIDPersist     = "persist"
	StageIDPublish     = "publish"
)

// Pipeline stage names
const (
	StageNameMerge       = "Master Backup Merge"
	StageNameHRExtract   = "Croatia Extraction"
	StageNameStandardize = "Standardization"
	StageNameMaster      = "Master Cleanup"
	StageNameRolling     = "Rolling Reach"
	StageNamePersist     = "Persist"
	StageNamePublish     = "Publish"
)

// Context keys for operation state
const (
	ContextKeyStrategy       = "strategy"
	ContextKeyMasterRows     = "master_rows"
	ContextKeyMasterTotal    = "master_total"
	ContextKeyHRRows         = "hr_rows"
	ContextKeyHRTotal        = "hr_total"
	ContextKeyStandardized   = "standardized_rows"
	ContextKeyFinalRows      = "final_rows"
	ContextKeyFinalTotal     = "final_total"
	ContextKeyRollingWindows = "rolling_windows"
	ContextKeyPublished      = "published"
	ContextKeyRunID          = "run_id"
)

// Request parameters
const (
	ParamStep     = "step"
	ParamStrategy = "strategy"
)

// WebSocket event types
const (
	EventTypeOperationStatus   = "operation:status"
	EventTypeOperationProgress = "operation:progress"
	EventTypeOperationComplete = "operation:complete"
	EventTypeOperationError    = "operation:error"
	EventTypeOperationSnapshot = "operation:snapshot"
)

// Default timeouts
const (
	DefaultStageTimeout       = 10 * time.Minute
	DefaultMergeTimeout       = 5 * time.Minute
	DefaultHRExtractTimeout   = 2 * time.Minute
	DefaultStandardizeTimeout = 2 * time.Minute
	DefaultMasterTimeout      = 2 * time.Minute
	DefaultRollingTimeout     = 5 * time.Minute
	DefaultPersistTimeout     = 2 * time.Minute
	DefaultPublishTimeout     = 5 * time.Minute
)

// ExecutionMode defines how steps are executed
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the backoff before the given retry attempt (1-based)
func (r RetryConfig) Delay(attempt int) time.Duration {
	d := r.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * r.Multiplier)
		if r.MaxDelay > 0 && d > r.MaxDelay {
			return r.MaxDelay
		}
	}
	return d
}

// OperationRequest represents a request to execute the pipeline
type OperationRequest struct {
	ID         string                 `json:"id"`
	Mode       string                 `json:"mode"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Step returns the single stage requested via the "step" parameter
func (r OperationRequest) Step() string {
	s, _ := r.Parameters[ParamStep].(string)
	return s
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// OperationType describes a runnable stage
type OperationType struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Dependencies []string              `json:"dependencies"`
	CanRunAlone  bool                  `json:"can_run_alone"`
	Parameters   []ParameterDefinition `json:"parameters,omitempty"`
}

// ParameterDefinition defines a parameter for an operation type
type ParameterDefinition struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // string, number, boolean, select
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Options     []string    `json:"options,omitempty"`
}
