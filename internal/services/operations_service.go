package services

import (
	"context"
	"errors"
	"log/slog"

	apperrors "adshub/internal/errors"
	"adshub/internal/infrastructure"
	"adshub/internal/operations"
	api "adshub/pkg/contracts/api/v1"
)

// OperationsService starts and tracks pipeline runs. Asynchronous runs go
// through the job queue; Run executes in the caller's goroutine.
type OperationsService struct {
	manager *operations.Manager
	queue   *operations.JobQueue
	logger  *slog.Logger
}

func NewOperationsService(manager *operations.Manager, queue *operations.JobQueue, logger *slog.Logger) *OperationsService {
	return &OperationsService{
		manager: manager,
		queue:   queue,
		logger:  infrastructure.WithComponent(logger, "operations_service"),
	}
}

func request(req api.OperationStartRequest) operations.OperationRequest {
	params := make(map[string]interface{}, len(req.Parameters)+2)
	for k, v := range req.Parameters {
		params[k] = v
	}
	if req.Step != "" {
		params[operations.ParamStep] = req.Step
	}
	if req.Strategy != "" {
		params[operations.ParamStrategy] = req.Strategy
	}
	mode := "full"
	if req.Step != "" {
		mode = "single"
	}
	return operations.OperationRequest{Mode: mode, Parameters: params}
}

// operationError maps manager errors onto API errors. Errors it does not
// recognize pass through.
func operationError(err error) error {
	var opErr *operations.OperationError
	switch {
	case errors.Is(err, operations.ErrOperationNotFound):
		return apperrors.ErrOperationNotFound
	case errors.Is(err, operations.ErrOperationNotRunning):
		return apperrors.NewWithDetails(apperrors.ErrConflict.StatusCode, apperrors.ErrConflict.ErrorCode, "Operation is not running", err.Error())
	case errors.As(err, &opErr) && opErr.Type == operations.ErrorTypeValidation:
		return apperrors.NewAppValidationError(opErr.Error())
	}
	return err
}

// Start queues a run and returns its job
func (s *OperationsService) Start(ctx context.Context, req api.OperationStartRequest) (*operations.Job, error) {
	job, err := s.queue.Enqueue(ctx, request(req))
	if err != nil {
		return nil, operationError(err)
	}
	s.logger.InfoContext(ctx, "operation_queued",
		slog.String("operation_id", job.OperationID),
		slog.String("step", req.Step),
		slog.String("strategy", req.Strategy))
	return job, nil
}

// Run executes a run to completion
func (s *OperationsService) Run(ctx context.Context, req api.OperationStartRequest) (*operations.OperationResponse, error) {
	resp, err := s.manager.Execute(ctx, request(req))
	if err != nil && resp == nil {
		return nil, operationError(err)
	}
	return resp, err
}

// Status returns the state of one run
func (s *OperationsService) Status(id string) (*operations.OperationState, error) {
	state, err := s.manager.GetOperation(id)
	if err != nil {
		return nil, operationError(err)
	}
	return state, nil
}

// List returns the known runs, newest first, optionally filtered by status
func (s *OperationsService) List(req api.OperationListRequest) []*operations.OperationState {
	all := s.manager.ListOperations()
	out := make([]*operations.OperationState, 0, len(all))
	for _, st := range all {
		if req.Status != "" && string(st.GetStatus()) != req.Status {
			continue
		}
		out = append(out, st)
		if req.Limit > 0 && len(out) == req.Limit {
			break
		}
	}
	return out
}

// Cancel stops a pending or running run
func (s *OperationsService) Cancel(ctx context.Context, id string) error {
	if err := s.manager.CancelOperation(id); err != nil {
		return operationError(err)
	}
	s.logger.InfoContext(ctx, "operation_cancelled", slog.String("operation_id", id))
	return nil
}

// Stages describes the registered pipeline stages
func (s *OperationsService) Stages() ([]operations.OperationType, error) {
	return s.manager.Stages()
}

// Jobs lists queued and finished jobs
func (s *OperationsService) Jobs(filter operations.JobFilter) ([]*operations.Job, error) {
	return s.queue.ListJobs(filter)
}

// QueueStats reports the worker pool state
func (s *OperationsService) QueueStats() map[string]interface{} {
	return s.queue.GetQueueStats()
}
