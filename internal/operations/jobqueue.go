package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is an operation queued for background execution
type Job struct {
	ID          string                 `json:"id"`
	OperationID string                 `json:"operation_id"`
	StageID     string                 `json:"stage_id,omitempty"`
	Status      JobStatus              `json:"status"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Request     OperationRequest       `json:"request"`
}

func (j *Job) clone() *Job {
	c := *j
	if j.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(j.Metadata))
		for k, v := range j.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// JobStore keeps job records
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
}

// JobFilter for querying jobs
type JobFilter struct {
	Status JobStatus
	Since  time.Time
	Limit  int
}

// MemoryJobStore is a JobStore held in memory
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryJobStore creates an empty store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*Job)}
}

// CreateJob stores a new job
func (s *MemoryJobStore) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.clone()
	return nil
}

// GetJob returns a copy of a job
func (s *MemoryJobStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job.clone(), nil
}

// UpdateJob replaces a stored job
func (s *MemoryJobStore) UpdateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}
	s.jobs[job.ID] = job.clone()
	return nil
}

// ListJobs returns matching jobs, newest first
func (s *MemoryJobStore) ListJobs(filter JobFilter) ([]*Job, error) {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && job.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, job.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// JobQueue runs operations in the background on a fixed set of workers
type JobQueue struct {
	jobs     chan *Job
	workers  int
	wg       sync.WaitGroup
	store    JobStore
	manager  *Manager
	logger   *slog.Logger
	shutdown chan struct{}
	stopOnce sync.Once
}

// NewJobQueue creates a job queue. The pipeline writes shared output files,
// so one worker is the default.
func NewJobQueue(workers int, store JobStore, manager *Manager, logger *slog.Logger) *JobQueue {
	if workers <= 0 {
		workers = 1
	}
	if store == nil {
		store = NewMemoryJobStore()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{
		jobs:     make(chan *Job, workers*8),
		workers:  workers,
		store:    store,
		manager:  manager,
		logger:   logger.With(slog.String("component", "jobqueue")),
		shutdown: make(chan struct{}),
	}
}

// Start launches the workers
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("job_queue_start", slog.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop signals the workers and waits for the running jobs to return
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.stopOnce.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job_queue_stopped")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job_queue_stop_timeout", slog.Duration("timeout", timeout))
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// Enqueue prepares the operation and queues it. The returned job carries
// the operation ID clients poll or watch over the websocket.
func (q *JobQueue) Enqueue(ctx context.Context, req OperationRequest) (*Job, error) {
	opID, err := q.manager.Prepare(req)
	if err != nil {
		return nil, err
	}
	req.ID = opID

	job := &Job{
		ID:          "job-" + opID,
		OperationID: opID,
		StageID:     req.Step(),
		Status:      JobStatusPending,
		CreatedAt:   time.Now(),
		Request:     req,
		Metadata:    map[string]interface{}{},
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		job.Metadata["request_id"] = reqID
	}

	if err := q.store.CreateJob(job); err != nil {
		_ = q.manager.CancelOperation(opID)
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	out := job.clone()
	select {
	case q.jobs <- job:
		q.logger.InfoContext(ctx, "job_enqueued",
			slog.String("job_id", out.ID),
			slog.String("operation_id", opID),
			slog.String("stage_id", out.StageID))
		return out, nil
	default:
		_ = q.manager.CancelOperation(opID)
		job.Status = JobStatusFailed
		job.Error = "job queue is full"
		_ = q.store.UpdateJob(job)
		return nil, fmt.Errorf("job queue is full")
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// CancelJob cancels the operation behind a pending or running job
func (q *JobQueue) CancelJob(id string) error {
	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}
	if job.Status != JobStatusRunning && job.Status != JobStatusPending {
		return fmt.Errorf("job %s cannot be cancelled (status: %s)", id, job.Status)
	}
	return q.manager.CancelOperation(job.OperationID)
}

func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.shutdown:
			return
		case job := <-q.jobs:
			q.processJob(ctx, job, logger)
		}
	}
}

func (q *JobQueue) processJob(ctx context.Context, job *Job, logger *slog.Logger) {
	if reqID, ok := job.Metadata["request_id"].(string); ok {
		ctx = context.WithValue(ctx, middleware.RequestIDKey, reqID)
	}
	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("operation_id", job.OperationID))

	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now
	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("job_update_failed", slog.String("error", err.Error()))
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job_panic", slog.Any("panic", r))
			q.finishJob(job, JobStatusFailed, fmt.Errorf("job processing panicked: %v", r), logger)
			q.manager.GetBroadcaster().FailOperation(job.OperationID, fmt.Errorf("internal error"))
		}
	}()

	logger.InfoContext(ctx, "job_start")
	resp, err := q.manager.Run(ctx, job.OperationID)

	status := JobStatusCompleted
	switch {
	case resp != nil && resp.Status == OperationStatusCancelled:
		status = JobStatusCancelled
	case err != nil:
		status = JobStatusFailed
	}
	q.finishJob(job, status, err, logger)
}

func (q *JobQueue) finishJob(job *Job, status JobStatus, err error, logger *slog.Logger) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	if err != nil {
		job.Error = err.Error()
	}
	if uerr := q.store.UpdateJob(job); uerr != nil {
		logger.Error("job_update_failed", slog.String("error", uerr.Error()))
	}
	logger.Info("job_finished", slog.String("status", string(status)))
}

// GetQueueStats returns queue statistics
func (q *JobQueue) GetQueueStats() map[string]interface{} {
	return map[string]interface{}{
		"workers":    q.workers,
		"queue_size": len(q.jobs),
		"queue_cap":  cap(q.jobs),
	}
}
