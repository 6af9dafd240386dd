package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adshub/internal/operations"
)

// ErrStageFailed is returned by the failing fixtures.
var ErrStageFailed = errors.New("stage failed")

// CreateTestConfig returns a config with short timeouts and retry delays
func CreateTestConfig() *operations.Config {
	return operations.NewConfigBuilder().
		WithRetryConfig(operations.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     20 * time.Millisecond,
			Multiplier:   2.0,
		}).
		Build()
}

// CreateSuccessfulStage creates a stage that records a figure and succeeds
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			operations.ReportProgress(ctx, 50, "working")
			state.GetStage(id).SetMetadata("rows", 1)
			state.SetContext(id+"_done", true)
			return nil
		},
	}
}

// CreateFailingStage creates a stage that always fails with a
// non-retryable error
func CreateFailingStage(id, name string, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return ErrStageFailed
		},
	}
}

// CreateFlakyStage fails with a retryable error until the given attempt
func CreateFlakyStage(id, name string, succeedOn int32, deps ...string) *MockStage {
	var calls atomic.Int32
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			if calls.Add(1) < succeedOn {
				return operations.NewExecutionError(id, ErrStageFailed, true)
			}
			return nil
		},
	}
}

// CreateBlockingStage signals started and waits until ctx is done
func CreateBlockingStage(id, name string, started chan<- struct{}, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
}

// RequireStageStatus fails the test unless the stage has the status
func RequireStageStatus(t *testing.T, state *operations.OperationState, stageID string, want operations.StepStatus) {
	t.Helper()
	step := state.GetStage(stageID)
	require.NotNil(t, step, "stage %s not found", stageID)
	require.Equal(t, want, step.GetStatus(), "stage %s: %s", stageID, step.Message)
}
