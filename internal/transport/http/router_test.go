package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"adshub/internal/audit"
	"adshub/internal/config"
	apperrors "adshub/internal/errors"
	"adshub/internal/estimator"
	"adshub/internal/operations"
	"adshub/internal/services"
	api "adshub/pkg/contracts/api/v1"
	"adshub/pkg/contracts/domain"
)

type mocks struct {
	estimator  *MockEstimatorService
	audits     *MockAuditService
	operations *MockOperationsService
	health     *MockHealthService
}

func newTestRouter(t *testing.T) (http.Handler, *mocks) {
	t.Helper()
	cfg := config.Default()
	cfg.Security.RateLimit.Enabled = false
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	m := &mocks{
		estimator:  new(MockEstimatorService),
		audits:     new(MockAuditService),
		operations: new(MockOperationsService),
		health:     new(MockHealthService),
	}
	t.Cleanup(func() {
		m.estimator.AssertExpectations(t)
		m.audits.AssertExpectations(t)
		m.operations.AssertExpectations(t)
		m.health.AssertExpectations(t)
	})
	r := NewRouter(RouterDeps{
		Config:       cfg,
		Logger:       logger,
		ErrorHandler: apperrors.NewErrorHandler(logger, false),
		Estimator:    m.estimator,
		Audits:       m.audits,
		Operations:   m.operations,
		Health:       m.health,
	})
	return r, m
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestEstimatorCampaignsFromQuery(t *testing.T) {
	r, m := newTestRouter(t)

	want := domain.EstimatorFilter{Brands: []string{"McDonald's", "Kaufland"}, Formats: []string{"Video", "Display"}, Limit: 5}
	m.estimator.On("Campaigns", mock.Anything, want).Return(&services.CampaignPage{
		Table: &estimator.Table{Columns: []string{estimator.CampaignColumn, estimator.MetricCost}},
		Count: 2, Matched: 7,
	}, nil)

	rec := do(t, r, http.MethodGet, "/api/estimator/campaigns?brands=McDonald%27s&brands=Kaufland&formats=Video&formats=Display&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 2, body["count"])
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 7, data["matched"])
}

func TestEstimatorQueryErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/api/estimator/campaigns?limit=many&min_budget=cheap", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Len(t, body["errors"], 2)

	rec = do(t, r, http.MethodGet, "/api/estimator/summary?limit=20000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimatorSummaryPost(t *testing.T) {
	r, m := newTestRouter(t)

	m.estimator.On("Summary", mock.Anything, domain.EstimatorFilter{Brands: []string{"Lidl", "Kaufland"}, TargetBudget: 1000}).
		Return(estimator.Summary{Count: 3, Total: 10, Cost: 2950}, nil)

	rec := do(t, r, http.MethodPost, "/api/estimator/summary", `{"brands":["Lidl","Kaufland"],"target_budget":1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["count"])
	assert.EqualValues(t, 2950, body["data"].(map[string]interface{})["cost"])
}

func TestEstimatorDetailNotFound(t *testing.T) {
	r, m := newTestRouter(t)
	m.estimator.On("Detail", mock.Anything, "404").Return(estimator.Detail{}, apperrors.ErrCampaignNotFound)

	rec := do(t, r, http.MethodGet, "/api/estimator/campaigns/404", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CAMPAIGN_NOT_FOUND", decode(t, rec)["error_code"])
}

func TestEstimatorReload(t *testing.T) {
	r, m := newTestRouter(t)
	m.estimator.On("Reload", mock.Anything).Return(services.DatasetInfo{Campaigns: 42, Source: services.SourceCSV}, nil)

	rec := do(t, r, http.MethodPost, "/api/estimator/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, decode(t, rec)["data"].(map[string]interface{})["campaigns"])
}

func TestAuditRoutes(t *testing.T) {
	r, m := newTestRouter(t)

	m.audits.On("List").Return([]audit.Audit{{Name: "budget"}, {Name: "formats"}})
	m.audits.On("Run", mock.Anything, "budget").Return(&services.AuditResult{
		Report:  &audit.Report{Name: "budget", Title: "Budget audit"},
		Verdict: audit.VerdictPass,
	}, nil)
	m.audits.On("Run", mock.Anything, "nope").Return(nil, apperrors.ErrAuditNotFound)

	rec := do(t, r, http.MethodGet, "/api/audits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = do(t, r, http.MethodGet, "/api/audits/budget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "Budget audit", data["title"])
	assert.Equal(t, audit.VerdictPass, data["verdict"])

	rec = do(t, r, http.MethodGet, "/api/audits/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditXLSX(t *testing.T) {
	r, m := newTestRouter(t)

	m.audits.On("ExportXLSX", mock.Anything, mock.AnythingOfType("string"), []string{"budget"}).
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(args.String(1), []byte("PK-fake-workbook"), 0o644))
		}).
		Return([]*services.AuditResult{}, nil)

	rec := do(t, r, http.MethodGet, "/api/audits/budget/xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="budget.xlsx"`)
	assert.Equal(t, "PK-fake-workbook", rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/audits/xlsx", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationsStart(t *testing.T) {
	r, m := newTestRouter(t)

	m.operations.On("Start", mock.Anything, api.OperationStartRequest{Strategy: "croatia-only"}).
		Return(&operations.Job{ID: "job-op-1", OperationID: "op-1", Status: operations.JobStatusPending}, nil)

	rec := do(t, r, http.MethodPost, "/api/operations/start", `{"strategy":"croatia-only"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/operations/op-1", rec.Header().Get("Location"))
	assert.Equal(t, "job-op-1", decode(t, rec)["data"].(map[string]interface{})["id"])

	rec = do(t, r, http.MethodPost, "/api/operations/start", `{"step":"scrape"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationsListAndStatus(t *testing.T) {
	r, m := newTestRouter(t)

	m.operations.On("List", api.OperationListRequest{Status: "completed", Limit: 5}).
		Return([]*operations.OperationState{{ID: "op-1", Status: operations.OperationStatusCompleted}})
	m.operations.On("Status", "op-2").Return(nil, apperrors.ErrOperationNotFound)

	rec := do(t, r, http.MethodGet, "/api/operations?status=completed&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, r, http.MethodGet, "/api/operations?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/operations?status=exploded", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/operations/op-2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "OPERATION_NOT_FOUND", decode(t, rec)["error_code"])
}

func TestOperationsCancelStagesJobs(t *testing.T) {
	r, m := newTestRouter(t)

	m.operations.On("Cancel", mock.Anything, "op-1").Return(nil)
	m.operations.On("Cancel", mock.Anything, "op-done").Return(apperrors.ErrConflict)
	m.operations.On("Stages").Return([]operations.OperationType{{ID: operations.StageIDMerge}}, nil)
	m.operations.On("Jobs", operations.JobFilter{Status: operations.JobStatusRunning}).Return([]*operations.Job{}, nil)
	m.operations.On("QueueStats").Return(map[string]interface{}{"workers": 1})

	rec := do(t, r, http.MethodPost, "/api/operations/op-1/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/operations/op-done/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/operations/stages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, r, http.MethodGet, "/api/operations/jobs?status=running", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["queue"].(map[string]interface{})["workers"])
}

func TestHealthRoutes(t *testing.T) {
	r, m := newTestRouter(t)

	m.health.On("HealthCheck", mock.Anything).Return(services.HealthStatus{Status: "ok"})
	m.health.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{
		Status:   "not_ready",
		Services: map[string]services.ServiceHealth{"exports": {Status: "not_ready"}},
	})
	m.health.On("LivenessCheck", mock.Anything).Return(services.HealthStatus{Status: "alive"})
	m.health.On("Version").Return(map[string]interface{}{"app": config.AppName})

	tests := []struct {
		path   string
		status int
		field  string
		want   string
	}{
		{"/api/health", http.StatusOK, "status", "ok"},
		{"/api/health/ready", http.StatusServiceUnavailable, "status", "not_ready"},
		{"/api/health/live", http.StatusOK, "status", "alive"},
		{"/api/version", http.StatusOK, "app", config.AppName},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, tt.path, "")
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)[tt.field])
		})
	}
}

func TestRouterFallbacks(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodDelete, "/api/audits", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/health/live", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDashboard(t *testing.T) {
	r, m := newTestRouter(t)

	f := domain.EstimatorFilter{Brands: []string{"Lidl", "Spar"}}
	m.estimator.On("Options", mock.Anything).Return(estimator.FilterOptions{
		Brands:  []string{domain.AllBrands, "Konzum", "Lidl", "Spar"},
		Formats: []string{"Video"},
		Metrics: estimator.OptionalMetrics(),
	}, nil)
	m.estimator.On("Summary", mock.Anything, f).Return(estimator.Summary{Count: 1, Total: 4, Cost: 1234.5, CoveragePct: 25}, nil)
	m.estimator.On("Campaigns", mock.Anything, f).Return(&services.CampaignPage{
		Table: &estimator.Table{
			Columns: []string{estimator.CampaignColumn, estimator.MetricCost, estimator.MetricImpressions},
			Kinds:   []string{estimator.KindCurrency, estimator.KindCount},
			Rows:    []estimator.TableRow{{ID: "1", Campaign: "Lidl Q1 Video", Values: []float64{1234.5, 120000}}},
		},
		Count: 1,
	}, nil)

	rec := do(t, r, http.MethodGet, "/?brands=Lidl&brands=Spar", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "Lidl Q1 Video")
	assert.Contains(t, body, "€1,234.50")
	assert.Contains(t, body, "120,000")
	assert.Contains(t, body, "<option selected>Lidl</option>")
	assert.Contains(t, body, "<option selected>Spar</option>")
	assert.Contains(t, body, "<option>Konzum</option>")
}

func TestDashboardServiceError(t *testing.T) {
	r, m := newTestRouter(t)
	m.estimator.On("Options", mock.Anything).Return(estimator.FilterOptions{}, apperrors.ErrDatasetUnavailable)

	rec := do(t, r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFilterFromQuery(t *testing.T) {
	f, err := FilterFromQuery(map[string][]string{
		"search":              {"big mac"},
		"brands":              {"McDonald's", "Kaufland"},
		"quarters":            {"Q1", "Q2"},
		"target_budget":       {"1500.5"},
		"show_original_names": {"true"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EstimatorFilter{
		Search:            "big mac",
		Brands:            []string{"McDonald's", "Kaufland"},
		Quarters:          []string{"Q1", "Q2"},
		TargetBudget:      1500.5,
		ShowOriginalNames: true,
	}, f)

	_, err = FilterFromQuery(map[string][]string{"show_original_names": {"maybe"}})
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestRespondCountsSlices(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	respond(rec, req, http.StatusCreated, []string{"a", "b", "c"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":["a","b","c"],"count":3}`, rec.Body.String())
}
