package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "adshub/internal/errors"
	"adshub/internal/middleware"
	"adshub/internal/operations"
	api "adshub/pkg/contracts/api/v1"
)

// OperationsHandler starts and tracks pipeline runs
type OperationsHandler struct {
	service      OperationsService
	validator    *middleware.Validator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

func NewOperationsHandler(service OperationsService, validator *middleware.Validator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *OperationsHandler {
	return &OperationsHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "operations")),
	}
}

// Routes mounts under /api/operations
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Get("/stages", h.Stages)
	r.Get("/jobs", h.Jobs)
	r.Post("/start", h.Start)
	r.Get("/{id}", h.Status)
	r.Post("/{id}/cancel", h.Cancel)
	return r
}

// Start handles POST /api/operations/start. The run is queued and its job
// is returned with 202.
func (h *OperationsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req api.OperationStartRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	job, err := h.service.Start(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/operations/"+job.OperationID)
	respond(w, r, http.StatusAccepted, job)
}

// List handles GET /api/operations?status=&limit=
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	req := api.OperationListRequest{Status: r.URL.Query().Get("status")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.errorHandler.HandleError(w, r, apperrors.NewValidationErrors([]apperrors.ValidationError{
				{Field: "limit", Message: "limit must be an integer"},
			}))
			return
		}
		req.Limit = n
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, h.service.List(req))
}

// Status handles GET /api/operations/{id}
func (h *OperationsHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Status(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, state)
}

// Cancel handles POST /api/operations/{id}/cancel
func (h *OperationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"operation_id": id, "status": "cancelling"})
}

// Stages handles GET /api/operations/stages
func (h *OperationsHandler) Stages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.service.Stages()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stages)
}

// Jobs handles GET /api/operations/jobs?status=
func (h *OperationsHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.Jobs(operations.JobFilter{Status: operations.JobStatus(r.URL.Query().Get("status"))})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"queue": h.service.QueueStats(),
	})
}
