package http

import (
	"context"

	"adshub/internal/audit"
	"adshub/internal/estimator"
	"adshub/internal/operations"
	"adshub/internal/services"
	api "adshub/pkg/contracts/api/v1"
	"adshub/pkg/contracts/domain"
)

// EstimatorService is the estimator surface the handlers use
type EstimatorService interface {
	Options(ctx context.Context) (estimator.FilterOptions, error)
	Campaigns(ctx context.Context, f domain.EstimatorFilter) (*services.CampaignPage, error)
	Summary(ctx context.Context, f domain.EstimatorFilter) (estimator.Summary, error)
	Detail(ctx context.Context, id string) (estimator.Detail, error)
	Reload(ctx context.Context) (services.DatasetInfo, error)
	Info(ctx context.Context) (services.DatasetInfo, error)
}

// AuditService runs the named audits
type AuditService interface {
	List() []audit.Audit
	Run(ctx context.Context, name string) (*services.AuditResult, error)
	ExportXLSX(ctx context.Context, path string, names ...string) ([]*services.AuditResult, error)
}

// OperationsService starts and tracks pipeline runs
type OperationsService interface {
	Start(ctx context.Context, req api.OperationStartRequest) (*operations.Job, error)
	Status(id string) (*operations.OperationState, error)
	List(req api.OperationListRequest) []*operations.OperationState
	Cancel(ctx context.Context, id string) error
	Stages() ([]operations.OperationType, error)
	Jobs(filter operations.JobFilter) ([]*operations.Job, error)
	QueueStats() map[string]interface{}
}
