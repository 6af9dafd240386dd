package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adshub/internal/errors"
	"adshub/internal/operations"
	"adshub/internal/operations/testutil"
	api "adshub/pkg/contracts/api/v1"
)

func newOperationsService(t *testing.T, stages ...operations.Step) *OperationsService {
	t.Helper()
	r := operations.NewRegistry()
	for _, s := range stages {
		require.NoError(t, r.Register(s))
	}
	m := operations.NewManager(&testutil.MockWebSocketHub{}, r, testutil.CreateTestConfig(), nil, nil)
	q := operations.NewJobQueue(1, nil, m, nil)
	q.Start(context.Background())
	t.Cleanup(func() {
		_ = q.Stop(2 * time.Second)
		m.Stop()
	})
	return NewOperationsService(m, q, nil)
}

func pipelineStages() []operations.Step {
	return []operations.Step{
		testutil.CreateSuccessfulStage(operations.StageIDMerge, operations.StageNameMerge),
		testutil.CreateSuccessfulStage(operations.StageIDHRExtract, operations.StageNameHRExtract, operations.StageIDMerge),
	}
}

func TestOperationsServiceRun(t *testing.T) {
	svc := newOperationsService(t, pipelineStages()...)

	resp, err := svc.Run(context.Background(), api.OperationStartRequest{Strategy: "croatia-only"})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Len(t, resp.Steps, 2)

	state, err := svc.Status(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "croatia-only", state.Config[operations.ParamStrategy])
	assert.Equal(t, "full", state.Config["mode"])
}

func TestOperationsServiceRunSingleStep(t *testing.T) {
	svc := newOperationsService(t, pipelineStages()...)

	resp, err := svc.Run(context.Background(), api.OperationStartRequest{Step: operations.StageIDMerge})
	require.NoError(t, err)
	assert.Len(t, resp.Steps, 1)
	assert.Contains(t, resp.Steps, operations.StageIDMerge)
}

func TestOperationsServiceStartAndList(t *testing.T) {
	svc := newOperationsService(t, pipelineStages()...)
	ctx := context.Background()

	job, err := svc.Start(ctx, api.OperationStartRequest{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, err := svc.Status(job.OperationID)
		return err == nil && st.GetStatus() == operations.OperationStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	_, err = svc.Run(ctx, api.OperationStartRequest{Step: operations.StageIDMerge})
	require.NoError(t, err)

	assert.Len(t, svc.List(api.OperationListRequest{}), 2)
	assert.Len(t, svc.List(api.OperationListRequest{Limit: 1}), 1)
	assert.Empty(t, svc.List(api.OperationListRequest{Status: "failed"}))

	jobs, err := svc.Jobs(operations.JobFilter{})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, 1, svc.QueueStats()["workers"])
}

func TestOperationsServiceErrors(t *testing.T) {
	svc := newOperationsService(t, pipelineStages()...)
	ctx := context.Background()

	_, err := svc.Status("op-missing")
	assert.ErrorIs(t, err, apperrors.ErrOperationNotFound)
	assert.ErrorIs(t, svc.Cancel(ctx, "op-missing"), apperrors.ErrOperationNotFound)

	resp, err := svc.Run(ctx, api.OperationStartRequest{})
	require.NoError(t, err)
	var apiErr *apperrors.APIError
	require.True(t, errors.As(svc.Cancel(ctx, resp.ID), &apiErr))
	assert.Equal(t, "CONFLICT", apiErr.ErrorCode)

	_, err = svc.Start(ctx, api.OperationStartRequest{Step: "scrape"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}

func TestOperationsServiceCancel(t *testing.T) {
	started := make(chan struct{})
	svc := newOperationsService(t, testutil.CreateBlockingStage(operations.StageIDMerge, operations.StageNameMerge, started))

	job, err := svc.Start(context.Background(), api.OperationStartRequest{})
	require.NoError(t, err)
	<-started

	require.NoError(t, svc.Cancel(context.Background(), job.OperationID))
	require.Eventually(t, func() bool {
		st, err := svc.Status(job.OperationID)
		return err == nil && st.GetStatus() == operations.OperationStatusCancelled
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOperationsServiceStages(t *testing.T) {
	svc := newOperationsService(t, pipelineStages()...)

	stages, err := svc.Stages()
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, operations.StageIDMerge, stages[0].ID)
	assert.Equal(t, []string{operations.StageIDMerge}, stages[1].Dependencies)
}
