package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	apperrors "adshub/internal/errors"
	"adshub/internal/infrastructure"
	"adshub/internal/shared/testutil"
	api "adshub/pkg/contracts/api/v1"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen, trace string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = chimw.GetReqID(r.Context())
		trace = infrastructure.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, seen, trace)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", seen)
	assert.Equal(t, "caller-id", rec.Header().Get(RequestIDHeader))
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewLogger(t)
	rl := NewRateLimiter(1, 2, apperrors.NewErrorHandler(logger, false))
	h := rl.Handler(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, float64(http.StatusTooManyRequests), body["status"])
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://dashboard.local"}})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/estimator/options", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	DefaultSecureHeaders().Handler(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	bm, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(HTTPMetrics(bm))
	r.Get("/api/estimator/campaigns/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/estimator/campaigns/"+id, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			dp := sum.DataPoints[0]
			assert.Equal(t, int64(2), dp.Value)
			route, _ := dp.Attributes.Value("route")
			status, _ := dp.Attributes.Value("status")
			assert.Equal(t, "/api/estimator/campaigns/{id}", route.AsString())
			assert.Equal(t, "404", status.AsString())
			found = true
		}
	}
	assert.True(t, found)
}

func TestTracingPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Tracing(infrastructure.NoopProviders())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidatorDecode(t *testing.T) {
	v := NewValidator()

	var start api.OperationStartRequest
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"step":"rolling","strategy":"croatia-only"}`))
	require.NoError(t, v.Decode(req, &start))
	assert.Equal(t, "rolling", start.Step)

	var empty api.OperationStartRequest
	require.NoError(t, v.Decode(httptest.NewRequest(http.MethodPost, "/", http.NoBody), &empty))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"step":"scrape"}`))
	err := v.Decode(req, &api.OperationStartRequest{})
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	details, isList := apiErr.Details.([]apperrors.ValidationError)
	require.True(t, isList)
	require.Len(t, details, 1)
	assert.Equal(t, "step", details[0].Field)
	assert.Contains(t, details[0].Message, "hr-extract")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"limit":`))
	err = v.Decode(req, &api.EstimatorQueryRequest{})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_REQUEST", apiErr.ErrorCode)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"limit":20000,"min_budget":-1}`))
	err = v.Decode(req, &api.EstimatorQueryRequest{})
	require.ErrorAs(t, err, &apiErr)
	assert.Len(t, apiErr.Details, 2)
}
