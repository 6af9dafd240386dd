package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem types.
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypeMethod          = "/errors/method-not-allowed"
	TypePayloadTooLarge = "/errors/payload-too-large"

	TypeOperationNotFound = "/errors/operation/not-found"
	TypeCampaignNotFound  = "/errors/campaign/not-found"
	TypeAuditNotFound     = "/errors/audit/not-found"
	TypeDataUnavailable   = "/errors/data/unavailable"
	TypeDataCorrupted     = "/errors/data/corrupted"
	TypeStorage           = "/errors/storage"
	TypeUpstream          = "/errors/upstream"
	TypeConfig            = "/errors/config"
)

// ErrorHandler renders every failure as problem details
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes it as a problem response. A nil error
// writes nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r).WithExtension("trace_id", reqID)
	serverSide := problem.Status >= http.StatusInternalServerError

	level := slog.LevelWarn
	if serverSide {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request_failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	if serverSide && h.includeStack {
		problem.WithExtension("stack", stackTrace())
	}
	_ = render.Render(w, r, problem)
}

// at builds a problem for the request path
func at(r *http.Request, status int, typ, title, detail string) *ProblemDetails {
	return NewProblemDetails(status, typ, title, detail, r.URL.Path)
}

// messageProblems map plain errors from lower layers by their text. The
// first matching fragment wins.
var messageProblems = []struct {
	fragments []string
	status    int
	typ       string
	title     string
	detail    string // empty keeps the error text
}{
	{[]string{"not found"}, http.StatusNotFound, TypeNotFound, "Resource Not Found", ""},
	{[]string{"rate limit"}, http.StatusTooManyRequests, TypeRateLimit, "Rate Limit Exceeded", "Too many requests. Please try again later."},
	{[]string{"already running", "conflict"}, http.StatusConflict, TypeConflict, "Conflict", ""},
	{[]string{"request body too large"}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large", "The request body exceeds the maximum allowed size"},
}

// ErrorToProblem maps an error to its problem document. Context errors
// become 504, APIError and AppError keep their category and anything else
// is a 500 unless its message says otherwise.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return at(r, http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiProblem(apiErr, r)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appProblem(appErr, r)
	}

	msg := err.Error()
	for _, m := range messageProblems {
		for _, f := range m.fragments {
			if !strings.Contains(msg, f) {
				continue
			}
			detail := m.detail
			if detail == "" {
				detail = msg
			}
			p := at(r, m.status, m.typ, m.title, detail)
			if m.status == http.StatusTooManyRequests {
				p.WithExtension("retry_after", 1)
			}
			return p
		}
	}
	return at(r, http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request")
}

// codeTypes maps APIError codes to problem types; unknown codes are internal
var codeTypes = map[string]string{
	"VALIDATION_FAILED":   TypeValidation,
	"INVALID_REQUEST":     TypeValidation,
	"MISSING_PARAMETER":   TypeValidation,
	"NOT_FOUND":           TypeNotFound,
	"OPERATION_NOT_FOUND": TypeOperationNotFound,
	"CAMPAIGN_NOT_FOUND":  TypeCampaignNotFound,
	"AUDIT_NOT_FOUND":     TypeAuditNotFound,
	"CONFLICT":            TypeConflict,
	"RATE_LIMIT_EXCEEDED": TypeRateLimit,
	"DATASET_UNAVAILABLE": TypeDataUnavailable,
	"SERVICE_UNAVAILABLE": TypeServiceDown,
}

func apiProblem(e *APIError, r *http.Request) *ProblemDetails {
	typ, ok := codeTypes[e.ErrorCode]
	if !ok {
		typ = TypeInternal
	}
	p := at(r, e.StatusCode, typ, http.StatusText(e.StatusCode), e.Message).
		WithExtension("error_code", e.ErrorCode)
	switch d := e.Details.(type) {
	case nil:
	case []ValidationError:
		p.WithExtension("errors", d)
	default:
		p.WithExtension("details", d)
	}
	return p
}

var appErrorProblems = map[ErrorType]struct {
	status int
	typ    string
	title  string
}{
	ErrTypeParsing:    {http.StatusUnprocessableEntity, TypeDataCorrupted, "Unreadable Export"},
	ErrTypeStorage:    {http.StatusInternalServerError, TypeStorage, "Storage Error"},
	ErrTypeValidation: {http.StatusBadRequest, TypeValidation, "Validation Failed"},
	ErrTypeNotFound:   {http.StatusNotFound, TypeNotFound, "Resource Not Found"},
	ErrTypeConfig:     {http.StatusInternalServerError, TypeConfig, "Configuration Error"},
	ErrTypeUpstream:   {http.StatusBadGateway, TypeUpstream, "Upstream Service Error"},
}

// appProblem hides the cause of server side failures; client errors carry
// the full chain in detail
func appProblem(e *AppError, r *http.Request) *ProblemDetails {
	m, ok := appErrorProblems[e.Type]
	if !ok {
		m.status, m.typ, m.title = http.StatusInternalServerError, TypeInternal, "Internal Server Error"
	}
	detail := e.Message
	if m.status < http.StatusInternalServerError && e.Cause != nil {
		detail = e.Error()
	}
	p := at(r, m.status, m.typ, m.title, detail).WithExtension("error_type", string(e.Type))
	for k, v := range e.Context {
		p.WithExtension(k, v)
	}
	return p
}

// HandlePanic writes a 500 problem for a recovered panic
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "panic_recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	p := at(r, http.StatusInternalServerError, TypeInternal, "Internal Server Error", "An unexpected error occurred").
		WithExtension("trace_id", reqID)
	if h.includeStack {
		p.WithExtension("panic", fmt.Sprintf("%v", recovered)).WithExtension("stack", stackTrace())
	}
	_ = render.Render(w, r, p)
}

// NotFound is the router's fallback for unknown paths
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	p := at(r, http.StatusNotFound, TypeNotFound, "Not Found", "The requested resource was not found")
	_ = render.Render(w, r, p.WithExtension("trace_id", middleware.GetReqID(r.Context())))
}

// MethodNotAllowed is the router's fallback for known paths with the wrong verb
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	p := at(r, http.StatusMethodNotAllowed, TypeMethod, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method))
	_ = render.Render(w, r, p.WithExtension("trace_id", middleware.GetReqID(r.Context())))
}

func stackTrace() string {
	buf := make([]byte, 8<<10)
	return string(buf[:runtime.Stack(buf, false)])
}
