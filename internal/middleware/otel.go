package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"adshub/internal/infrastructure"
)

// Tracing starts a server span per request and propagates incoming trace
// context. Spans are named after the method and path.
func Tracing(providers *infrastructure.OTelProviders) func(http.Handler) http.Handler {
	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/ws"
		}),
	}
	if providers != nil && providers.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(providers.TracerProvider))
	}
	if providers != nil && providers.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(providers.MeterProvider))
	}
	return otelhttp.NewMiddleware("adshub", opts...)
}

// HTTPMetrics counts requests and records their latency by route pattern,
// method and status. It must be mounted on the chi router so the pattern
// is known once the handler returns.
func HTTPMetrics(m *infrastructure.BusinessMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := metric.WithAttributes(
				attribute.String("route", routePattern(r)),
				attribute.String("method", r.Method),
				attribute.String("status", strconv.Itoa(status)),
			)
			m.HTTPRequestsTotal.Add(r.Context(), 1, attrs)
			m.HTTPRequestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
