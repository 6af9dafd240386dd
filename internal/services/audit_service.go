package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"adshub/internal/audit"
	apperrors "adshub/internal/errors"
	"adshub/internal/exporter"
	"adshub/internal/infrastructure"
	"adshub/internal/sources"
)

// AuditSettings are the expectations audits compare against
type AuditSettings struct {
	ExpectedTotal         float64
	Tolerance             float64
	DemographicsThreshold float64
}

// AuditService runs the named audits against freshly loaded exports and
// writes the side outputs they produce
type AuditService struct {
	loader    *sources.Loader
	settings  AuditSettings
	csv       *exporter.CSVWriter
	xlsx      *exporter.XLSXWriter
	outputDir string
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// AuditResult is one report plus the files written for it
type AuditResult struct {
	*audit.Report
	Verdict  string        `json:"verdict"`
	Written  []string      `json:"written,omitempty"`
	Duration time.Duration `json:"duration"`
}

func NewAuditService(loader *sources.Loader, settings AuditSettings, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AuditService {
	logger = infrastructure.WithComponent(logger, "audit_service")
	return &AuditService{
		loader:    loader,
		settings:  settings,
		csv:       exporter.NewCSVWriter("", logger),
		xlsx:      exporter.NewXLSXWriter(logger),
		outputDir: loader.Layout().OutputDir,
		metrics:   metrics,
		logger:    logger,
	}
}

// List returns the registered audits
func (s *AuditService) List() []audit.Audit {
	return audit.List()
}

// Input loads everything the audits look at. The pipeline outputs are
// optional.
func (s *AuditService) Input(ctx context.Context) (*audit.Input, error) {
	bundle, err := s.loader.LoadAll(ctx)
	if err != nil {
		return nil, apperrors.NewParsingError("load exports", err)
	}
	in := &audit.Input{
		Bundle:                bundle,
		ExpectedTotal:         s.settings.ExpectedTotal,
		Tolerance:             s.settings.Tolerance,
		DemographicsThreshold: s.settings.DemographicsThreshold,
	}
	if in.Master, err = optional(s.loader.Master); err != nil {
		return nil, apperrors.NewParsingError("master dataset", err)
	}
	if in.Rolling, err = optional(s.loader.RollingClean); err != nil {
		return nil, apperrors.NewParsingError("rolling dataset", err)
	}
	return in, nil
}

func optional[T any](read func() ([]T, error)) ([]T, error) {
	rows, err := read()
	if missing(err) {
		return nil, nil
	}
	return rows, err
}

// Run executes one audit and writes its CSV exports
func (s *AuditService) Run(ctx context.Context, name string) (*AuditResult, error) {
	if _, ok := audit.Lookup(name); !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("audit %s", name)).WithContext("audits", audit.Names())
	}
	in, err := s.Input(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, name, in)
}

// RunAll executes the named audits, or every audit when names is empty,
// against one loaded input
func (s *AuditService) RunAll(ctx context.Context, names ...string) ([]*AuditResult, error) {
	if len(names) == 0 {
		names = audit.Names()
	}
	for _, n := range names {
		if _, ok := audit.Lookup(n); !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("audit %s", n)).WithContext("audits", audit.Names())
		}
	}
	in, err := s.Input(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*AuditResult, 0, len(names))
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.run(ctx, n, in)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *AuditService) run(ctx context.Context, name string, in *audit.Input) (*AuditResult, error) {
	start := time.Now()
	r, err := audit.Run(name, in)
	if errors.Is(err, audit.ErrUnknownAudit) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("audit %s", name))
	}
	if err != nil {
		return nil, err
	}

	res := &AuditResult{Report: r, Verdict: r.Verdict(), Duration: time.Since(start)}
	for _, e := range r.Exports {
		path := filepath.Join(s.outputDir, e.File)
		opts := exporter.DefaultOptions()
		if e.Delimiter != 0 {
			opts.Delimiter = e.Delimiter
		}
		if err := s.csv.Write(path, e.Header, e.Rows, opts); err != nil {
			return nil, apperrors.FileSystemError("audit export", err)
		}
		res.Written = append(res.Written, path)
	}

	if s.metrics != nil && s.metrics.AuditRunsTotal != nil {
		s.metrics.AuditRunsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("audit", name),
			attribute.String("verdict", res.Verdict)))
	}
	s.logger.InfoContext(ctx, "audit_complete",
		slog.String("audit", name),
		slog.String("verdict", res.Verdict),
		slog.Int("issues", len(r.Issues)),
		slog.Int("warnings", len(r.Warnings)),
		slog.Int("exports", len(res.Written)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// ExportXLSX runs the named audits and writes them to one workbook
func (s *AuditService) ExportXLSX(ctx context.Context, path string, names ...string) ([]*AuditResult, error) {
	results, err := s.RunAll(ctx, names...)
	if err != nil {
		return nil, err
	}
	reports := make([]*audit.Report, len(results))
	for i, r := range results {
		reports[i] = r.Report
	}
	if err := s.xlsx.WriteReport(path, reports...); err != nil {
		return nil, apperrors.FileSystemError("xlsx export", err)
	}
	return results, nil
}
