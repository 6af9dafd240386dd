package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adshub/internal/config"
	apperrors "adshub/internal/errors"
	"adshub/internal/infrastructure"
	"adshub/internal/middleware"
)

// RouterDeps are the services and settings the router mounts
type RouterDeps struct {
	Config       *config.Config
	Logger       *slog.Logger
	Providers    *infrastructure.OTelProviders
	Metrics      *infrastructure.BusinessMetrics
	ErrorHandler *apperrors.ErrorHandler

	Estimator  EstimatorService
	Audits     AuditService
	Operations OperationsService
	Health     HealthService

	// WebSocket serves /ws when set
	WebSocket http.Handler
}

// NewRouter builds the HTTP router with the middleware chain and every route
func NewRouter(deps RouterDeps) chi.Router {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errs := deps.ErrorHandler
	if errs == nil {
		errs = apperrors.NewErrorHandler(logger, false)
	}
	validator := middleware.NewValidator()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.Providers != nil {
		r.Use(middleware.Tracing(deps.Providers))
	}
	r.Use(apperrors.NewErrorMiddleware(errs, logger).Handler)
	r.Use(apperrors.RecoveryMiddleware(errs))
	r.Use(middleware.DefaultSecureHeaders().Handler)
	if cfg.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.Security.AllowedOrigins}))
	}
	if rl := cfg.Security.RateLimit; rl.Enabled {
		r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, errs).Handler)
	}
	if deps.Metrics != nil {
		r.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	r.Route("/api", func(api chi.Router) {
		if deps.Health != nil {
			health := NewHealthHandler(deps.Health, logger)
			api.Mount("/health", health.Routes())
			api.Get("/version", health.Version)
		}
		if deps.Estimator != nil {
			api.Mount("/estimator", NewEstimatorHandler(deps.Estimator, validator, errs, logger).Routes())
		}
		if deps.Audits != nil {
			api.Mount("/audits", NewAuditHandler(deps.Audits, validator, errs, logger).Routes())
		}
		if deps.Operations != nil {
			api.Mount("/operations", NewOperationsHandler(deps.Operations, validator, errs, logger).Routes())
		}
	})

	r.Handle("/metrics", metricsHandler(deps.Providers))
	if deps.WebSocket != nil {
		r.Handle("/ws", deps.WebSocket)
	}
	if deps.Estimator != nil {
		r.Method(http.MethodGet, "/", NewDashboardHandler(deps.Estimator, errs, logger))
	}
	return r
}

// metricsHandler serves the OTel Prometheus registry, or the default
// registry when metrics are not exported through OTel
func metricsHandler(p *infrastructure.OTelProviders) http.Handler {
	if p != nil && p.PrometheusHTTP != nil {
		return p.PrometheusHTTP
	}
	return promhttp.Handler()
}
