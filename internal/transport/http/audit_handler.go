package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	apperrors "adshub/internal/errors"
	"adshub/internal/middleware"
	api "adshub/pkg/contracts/api/v1"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AuditHandler lists and runs the audit reports
type AuditHandler struct {
	service      AuditService
	validator    *middleware.Validator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

func NewAuditHandler(service AuditService, validator *middleware.Validator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "audits")),
	}
}

// Routes mounts under /api/audits
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/xlsx", h.ExportMany)
	r.Get("/{name}", h.Run)
	r.Get("/{name}/xlsx", h.Export)
	return r
}

// List handles GET /api/audits
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, h.service.List())
}

// Run handles GET /api/audits/{name}
func (h *AuditHandler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Run(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

// Export handles GET /api/audits/{name}/xlsx
func (h *AuditHandler) Export(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.writeWorkbook(w, r, name+".xlsx", []string{name})
}

// ExportMany handles POST /api/audits/xlsx with an AuditRunRequest body
func (h *AuditHandler) ExportMany(w http.ResponseWriter, r *http.Request) {
	var req api.AuditRunRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeWorkbook(w, r, "audits.xlsx", req.Names)
}

// writeWorkbook renders the audits into a temporary workbook and streams it
func (h *AuditHandler) writeWorkbook(w http.ResponseWriter, r *http.Request, filename string, names []string) {
	dir, err := os.MkdirTemp("", "adshub-audit-")
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.FileSystemError("xlsx export", err))
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filename)
	if _, err := h.service.ExportXLSX(r.Context(), path, names...); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.FileSystemError("xlsx export", err))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.FileSystemError("xlsx export", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
	h.logger.InfoContext(r.Context(), "audit_xlsx_served",
		slog.Any("audits", names),
		slog.Int64("bytes", info.Size()))
}
