package operations_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"adshub/internal/operations"
	"adshub/internal/operations/testutil"
)

func newQueue(t *testing.T, stages ...operations.Step) (*operations.JobQueue, *operations.Manager) {
	t.Helper()
	r := operations.NewRegistry()
	for _, s := range stages {
		require.NoError(t, r.Register(s))
	}
	m := operations.NewManager(&testutil.MockWebSocketHub{}, r, testutil.CreateTestConfig(), nil, nil)
	q := operations.NewJobQueue(1, nil, m, nil)
	q.Start(context.Background())
	t.Cleanup(func() {
		assert.NoError(t, q.Stop(2*time.Second))
		m.Stop()
		goleak.VerifyNone(t)
	})
	return q, m
}

func waitForJob(t *testing.T, q *operations.JobQueue, id string, want operations.JobStatus) *operations.Job {
	t.Helper()
	var job *operations.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = q.GetJob(id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return job
}

func TestJobQueueRunsOperation(t *testing.T) {
	q, m := newQueue(t, testutil.CreateSuccessfulStage("merge", "Merge"))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	job, err := q.Enqueue(ctx, operations.OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "job-"+job.OperationID, job.ID)
	assert.Equal(t, "req-42", job.Metadata["request_id"])

	done := waitForJob(t, q, job.ID, operations.JobStatusCompleted)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)

	state, err := m.GetOperation(job.OperationID)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, state.GetStatus())
}

func TestJobQueueRecordsFailure(t *testing.T) {
	q, _ := newQueue(t, testutil.CreateFailingStage("merge", "Merge"))

	job, err := q.Enqueue(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: "merge"},
	})
	require.NoError(t, err)
	assert.Equal(t, "merge", job.StageID)

	failed := waitForJob(t, q, job.ID, operations.JobStatusFailed)
	assert.Contains(t, failed.Error, testutil.ErrStageFailed.Error())

	jobs, err := q.ListJobs(operations.JobFilter{Status: operations.JobStatusFailed})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJobQueueCancel(t *testing.T) {
	started := make(chan struct{})
	q, _ := newQueue(t, testutil.CreateBlockingStage("merge", "Merge", started))

	job, err := q.Enqueue(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	waitForJob(t, q, job.ID, operations.JobStatusRunning)
	require.NoError(t, q.CancelJob(job.ID))

	cancelled := waitForJob(t, q, job.ID, operations.JobStatusCancelled)
	assert.NotNil(t, cancelled.CompletedAt)
	assert.Error(t, q.CancelJob(job.ID))
	assert.Error(t, q.CancelJob("job-missing"))
}

func TestJobQueueRejectsUnknownStep(t *testing.T) {
	q, _ := newQueue(t, testutil.CreateSuccessfulStage("merge", "Merge"))

	_, err := q.Enqueue(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: "nope"},
	})
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))

	stats := q.GetQueueStats()
	assert.Equal(t, 1, stats["workers"])
	assert.Equal(t, 0, stats["queue_size"])
}

func TestMemoryJobStore(t *testing.T) {
	s := operations.NewMemoryJobStore()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateJob(&operations.Job{
			ID:        id,
			Status:    operations.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	assert.Error(t, s.CreateJob(&operations.Job{ID: "a"}))
	assert.Error(t, s.UpdateJob(&operations.Job{ID: "zzz"}))

	job, err := s.GetJob("b")
	require.NoError(t, err)
	job.Status = operations.JobStatusCompleted
	stored, _ := s.GetJob("b")
	assert.Equal(t, operations.JobStatusPending, stored.Status, "GetJob returns a copy")
	require.NoError(t, s.UpdateJob(job))

	all, err := s.ListJobs(operations.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	limited, _ := s.ListJobs(operations.JobFilter{Limit: 1, Status: operations.JobStatusPending})
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)

	recent, _ := s.ListJobs(operations.JobFilter{Since: base.Add(1500 * time.Millisecond)})
	assert.Len(t, recent, 1)
}
