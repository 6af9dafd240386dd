package operations_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adshub/internal/operations"
)

func TestStepStateTransitions(t *testing.T) {
	s := operations.NewStepState("merge", "Merge")
	assert.Equal(t, operations.StepStatusPending, s.GetStatus())
	assert.Zero(t, s.Duration())

	s.Start()
	assert.Equal(t, operations.StepStatusActive, s.GetStatus())
	s.UpdateProgress(40, "loading")
	assert.Equal(t, 40.0, s.Progress)

	s.Fail(errors.New("boom"))
	assert.Equal(t, operations.StepStatusFailed, s.GetStatus())
	assert.Equal(t, "boom", s.Message)

	// a retry clears the previous failure
	s.Start()
	assert.Nil(t, s.Error)
	assert.Nil(t, s.EndTime)

	s.SetMetadata("campaigns", 12)
	s.Complete()
	assert.Equal(t, operations.StepStatusCompleted, s.GetStatus())
	assert.Equal(t, 100.0, s.Progress)
	assert.Equal(t, map[string]interface{}{"campaigns": 12}, s.MetadataCopy())
	assert.GreaterOrEqual(t, s.Duration(), time.Duration(0))
}

func TestOperationStateTerminal(t *testing.T) {
	p := operations.NewOperationState("op")
	p.Start()
	assert.Equal(t, operations.OperationStatusRunning, p.GetStatus())

	p.Cancel()
	assert.True(t, p.GetStatus().Terminal())

	// later transitions are ignored once terminal
	p.Fail(errors.New("late"))
	p.Complete()
	assert.Equal(t, operations.OperationStatusCancelled, p.GetStatus())
	assert.NoError(t, p.Error)
	assert.NotNil(t, p.EndTime)
}

func TestOperationStateStages(t *testing.T) {
	p := operations.NewOperationState("op")
	for _, id := range []string{"merge", "hr-extract", "standardize"} {
		p.SetStage(id, operations.NewStepState(id, id))
	}
	p.SetStage("merge", operations.NewStepState("merge", "again"))
	assert.Equal(t, []string{"merge", "hr-extract", "standardize"}, p.Order)

	p.GetStage("merge").Complete()
	p.GetStage("hr-extract").Fail(errors.New("x"))

	completed := p.GetCompletedStages()
	require.Len(t, completed, 1)
	assert.Equal(t, "merge", completed[0].ID)
	assert.True(t, p.HasFailures())
	assert.Equal(t, "hr-extract", p.GetFailedStages()[0].ID)
}

func TestOperationStateContextAndConfig(t *testing.T) {
	p := operations.NewOperationState("op")
	p.SetConfig(operations.ParamStrategy, "croatia-only")
	p.SetConfig("limit", 3)
	p.SetContext(operations.ContextKeyMasterRows, 1522)

	assert.Equal(t, "croatia-only", p.ConfigString(operations.ParamStrategy))
	assert.Equal(t, "", p.ConfigString("limit"))
	v, ok := p.GetContext(operations.ContextKeyMasterRows)
	require.True(t, ok)
	assert.Equal(t, 1522, v)
}

func TestOperationStateClone(t *testing.T) {
	p := operations.NewOperationState("op")
	p.SetStage("merge", operations.NewStepState("merge", "Merge"))
	p.GetStage("merge").SetMetadata("rows", 1)
	p.SetContext("k", "v")

	c := p.Clone()
	c.GetStage("merge").SetMetadata("rows", 2)
	c.SetContext("k", "changed")
	c.Order[0] = "other"

	assert.Equal(t, 1, p.GetStage("merge").MetadataCopy()["rows"])
	v, _ := p.GetContext("k")
	assert.Equal(t, "v", v)
	assert.Equal(t, []string{"merge"}, p.Order)
}

func TestRetryConfigDelay(t *testing.T) {
	r := operations.RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, r.Delay(1))
	assert.Equal(t, 2*time.Second, r.Delay(2))
	assert.Equal(t, 4*time.Second, r.Delay(3))
	assert.Equal(t, 5*time.Second, r.Delay(4))
}

func TestConfigStageTimeouts(t *testing.T) {
	c := operations.NewConfig()
	assert.Equal(t, operations.DefaultMergeTimeout, c.GetStageTimeout(operations.StageIDMerge))
	assert.Equal(t, operations.DefaultStageTimeout, c.GetStageTimeout("unknown"))

	c = operations.NewConfigBuilder().
		WithStageTimeout(operations.StageIDRolling, time.Second).
		WithContinueOnError(true).
		WithManifest("run.json").
		Build()
	assert.Equal(t, time.Second, c.GetStageTimeout(operations.StageIDRolling))
	assert.True(t, c.ContinueOnError)
	assert.Equal(t, "run.json", c.ManifestPath)
	assert.Equal(t, operations.DefaultHistory, c.History)
}

func TestOperationRequestStep(t *testing.T) {
	assert.Equal(t, "", operations.OperationRequest{}.Step())
	req := operations.OperationRequest{Parameters: map[string]interface{}{operations.ParamStep: "rolling"}}
	assert.Equal(t, "rolling", req.Step())
}
