package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "adshub/internal/errors"
	"adshub/internal/middleware"
	api "adshub/pkg/contracts/api/v1"
	"adshub/pkg/contracts/domain"
)

// EstimatorHandler serves the campaign estimator
type EstimatorHandler struct {
	service      EstimatorService
	validator    *middleware.Validator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

func NewEstimatorHandler(service EstimatorService, validator *middleware.Validator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *EstimatorHandler {
	return &EstimatorHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "estimator")),
	}
}

// Routes mounts under /api/estimator
func (h *EstimatorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/options", h.Options)
	r.Get("/info", h.Info)
	r.Get("/campaigns", h.Campaigns)
	r.Post("/campaigns", h.Campaigns)
	r.Get("/campaigns/{id}", h.Detail)
	r.Get("/summary", h.Summary)
	r.Post("/summary", h.Summary)
	r.Post("/reload", h.Reload)
	return r
}

func (h *EstimatorHandler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, opts)
}

func (h *EstimatorHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, info)
}

// filter reads the filter from the JSON body of a POST or the query of a GET
func (h *EstimatorHandler) filter(r *http.Request) (domain.EstimatorFilter, error) {
	if r.Method == http.MethodPost {
		var req api.EstimatorQueryRequest
		if err := h.validator.Decode(r, &req); err != nil {
			return domain.EstimatorFilter{}, err
		}
		return req.EstimatorFilter, nil
	}
	f, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		return domain.EstimatorFilter{}, err
	}
	if err := h.validator.Struct(f); err != nil {
		return domain.EstimatorFilter{}, err
	}
	return f, nil
}

// Campaigns handles GET|POST /api/estimator/campaigns
func (h *EstimatorHandler) Campaigns(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	page, err := h.service.Campaigns(r.Context(), f)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondCount(w, r, page, page.Count)
}

// Summary handles GET|POST /api/estimator/summary
func (h *EstimatorHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	s, err := h.service.Summary(r.Context(), f)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondCount(w, r, s, s.Count)
}

// Detail handles GET /api/estimator/campaigns/{id}
func (h *EstimatorHandler) Detail(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, d)
}

// Reload handles POST /api/estimator/reload
func (h *EstimatorHandler) Reload(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dataset_reload_requested",
		slog.Int("campaigns", info.Campaigns),
		slog.String("source", info.Source))
	respond(w, r, http.StatusOK, info)
}

// FilterFromQuery parses an estimator filter from query parameters. List
// filters repeat their parameter (brands=Lidl&formats=Bumper&formats=In-Stream).
func FilterFromQuery(q url.Values) (domain.EstimatorFilter, error) {
	f := domain.EstimatorFilter{
		Search:   q.Get("search"),
		Brands:   q["brands"],
		Formats:  q["formats"],
		Ages:     q["ages"],
		Genders:  q["genders"],
		Bids:     q["bids"],
		Quarters: q["quarters"],
		Metrics:  q["metrics"],
	}

	var errs []apperrors.ValidationError
	float := func(name string, dst *float64) {
		if v := q.Get(name); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, apperrors.ValidationError{Field: name, Message: name + " must be a number"})
				return
			}
			*dst = n
		}
	}
	float("target_budget", &f.TargetBudget)
	float("min_budget", &f.MinBudget)
	float("max_budget", &f.MaxBudget)

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, apperrors.ValidationError{Field: "limit", Message: "limit must be an integer"})
		}
		f.Limit = n
	}
	if v := q.Get("show_original_names"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, apperrors.ValidationError{Field: "show_original_names", Message: "show_original_names must be a boolean"})
		}
		f.ShowOriginalNames = b
	}
	if len(errs) > 0 {
		return domain.EstimatorFilter{}, apperrors.NewValidationErrors(errs)
	}
	return f, nil
}
