package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"adshub/internal/audit"
	"adshub/internal/estimator"
	"adshub/internal/operations"
	"adshub/internal/services"
	api "adshub/pkg/contracts/api/v1"
	"adshub/pkg/contracts/domain"
)

type MockEstimatorService struct {
	mock.Mock
}

func (m *MockEstimatorService) Options(ctx context.Context) (estimator.FilterOptions, error) {
	args := m.Called(ctx)
	return args.Get(0).(estimator.FilterOptions), args.Error(1)
}

func (m *MockEstimatorService) Campaigns(ctx context.Context, f domain.EstimatorFilter) (*services.CampaignPage, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CampaignPage), args.Error(1)
}

func (m *MockEstimatorService) Summary(ctx context.Context, f domain.EstimatorFilter) (estimator.Summary, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(estimator.Summary), args.Error(1)
}

func (m *MockEstimatorService) Detail(ctx context.Context, id string) (estimator.Detail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(estimator.Detail), args.Error(1)
}

func (m *MockEstimatorService) Reload(ctx context.Context) (services.DatasetInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.DatasetInfo), args.Error(1)
}

func (m *MockEstimatorService) Info(ctx context.Context) (services.DatasetInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.DatasetInfo), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) List() []audit.Audit {
	return m.Called().Get(0).([]audit.Audit)
}

func (m *MockAuditService) Run(ctx context.Context, name string) (*services.AuditResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuditResult), args.Error(1)
}

func (m *MockAuditService) ExportXLSX(ctx context.Context, path string, names ...string) ([]*services.AuditResult, error) {
	args := m.Called(ctx, path, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.AuditResult), args.Error(1)
}

type MockOperationsService struct {
	mock.Mock
}

func (m *MockOperationsService) Start(ctx context.Context, req api.OperationStartRequest) (*operations.Job, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.Job), args.Error(1)
}

func (m *MockOperationsService) Status(id string) (*operations.OperationState, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationState), args.Error(1)
}

func (m *MockOperationsService) List(req api.OperationListRequest) []*operations.OperationState {
	return m.Called(req).Get(0).([]*operations.OperationState)
}

func (m *MockOperationsService) Cancel(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOperationsService) Stages() ([]operations.OperationType, error) {
	args := m.Called()
	return args.Get(0).([]operations.OperationType), args.Error(1)
}

func (m *MockOperationsService) Jobs(filter operations.JobFilter) ([]*operations.Job, error) {
	args := m.Called(filter)
	return args.Get(0).([]*operations.Job), args.Error(1)
}

func (m *MockOperationsService) QueueStats() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}
