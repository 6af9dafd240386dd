package operations

import (
	"errors"
	"fmt"
)

// ErrorType classifies why a stage or run failed
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDependency   ErrorType = "dependency"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInvalidState ErrorType = "invalid_state"
)

// OperationError is the error every pipeline stage failure is reported as.
// Stage is empty for run level errors.
type OperationError struct {
	Type      ErrorType              `json:"type"`
	Stage     string                 `json:"stage,omitempty"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same type and stage, so sentinel values work
// with errors.Is
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Stage == "" || t.Stage == e.Stage)
}

func stageErr(t ErrorType, stage, message string) *OperationError {
	return &OperationError{Type: t, Stage: stage, Message: message}
}

// NewValidationError reports a stage that refused to start, usually because
// an input file is missing
func NewValidationError(stage, message string) *OperationError {
	return stageErr(ErrorTypeValidation, stage, message)
}

// NewDependencyError reports a stage skipped because dependsOn did not
// complete
func NewDependencyError(stage, dependsOn, message string) *OperationError {
	e := stageErr(ErrorTypeDependency, stage, message)
	e.Context = map[string]interface{}{"depends_on": dependsOn}
	return e
}

// NewExecutionError wraps a failure raised inside Execute
func NewExecutionError(stage string, cause error, retryable bool) *OperationError {
	e := stageErr(ErrorTypeExecution, stage, "stage execution failed")
	e.Cause, e.Retryable = cause, retryable
	return e
}

// NewTimeoutError reports a stage cut off by its per-stage deadline.
// Timeouts are always retryable.
func NewTimeoutError(stage string, timeout string) *OperationError {
	e := stageErr(ErrorTypeTimeout, stage, "stage exceeded timeout of "+timeout)
	e.Context = map[string]interface{}{"timeout": timeout}
	e.Retryable = true
	return e
}

// NewCancellationError reports a run stopped by its caller
func NewCancellationError(stage string) *OperationError {
	return stageErr(ErrorTypeCancellation, stage, "operation was cancelled")
}

// NewFatalError aborts the whole run regardless of ContinueOnError
func NewFatalError(message string, cause error) *OperationError {
	e := stageErr(ErrorTypeFatal, "", message)
	e.Cause = cause
	return e
}

// IsRetryable reports whether the manager may run the stage again
func IsRetryable(err error) bool {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	return false
}

// GetErrorType returns the type of the error, execution for foreign errors
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// WrapError attaches stage to err. An OperationError keeps its type and
// gains the stage only if it had none.
func WrapError(err error, stage string, message string) *OperationError {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Stage == "" {
			opErr.Stage = stage
		}
		return opErr
	}
	return &OperationError{
		Type:    ErrorTypeExecution,
		Stage:   stage,
		Message: message,
		Cause:   err,
	}
}

// Sentinels for run lookups; match them with errors.Is.
var (
	ErrOperationNotFound   = stageErr(ErrorTypeNotFound, "", "operation not found")
	ErrOperationNotRunning = stageErr(ErrorTypeInvalidState, "", "operation is not running")
)
