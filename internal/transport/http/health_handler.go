package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"adshub/internal/services"
)

// HealthService reports liveness and readiness
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// HealthHandler serves the probes under /api/health and the build info
// at /api/version
type HealthHandler struct {
	service HealthService
	logger  *slog.Logger
}

func NewHealthHandler(service HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.probe(h.service.HealthCheck))
	r.Get("/ready", h.ReadinessCheck)
	r.Get("/live", h.probe(h.service.LivenessCheck))
	return r
}

// probe renders a check that always answers 200
func (h *HealthHandler) probe(check func(context.Context) services.HealthStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, check(r.Context()))
	}
}

// ReadinessCheck answers 503 with the same body while the master dataset
// or the store is unavailable, so load balancers stop routing here
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	if status.Status == "not_ready" {
		h.logger.DebugContext(r.Context(), "not_ready", slog.Any("services", status.Services))
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
