package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "adshub/internal/errors"
	"adshub/internal/estimator"
	"adshub/internal/exporter"
	"adshub/internal/infrastructure"
	"adshub/internal/sources"
	"adshub/pkg/contracts/domain"
	"adshub/pkg/contracts/events"
)

// Dataset sources.
const (
	SourceCSV   = "csv"
	SourceStore = "store"
)

// CampaignReader is the persisted fallback for the master dataset
type CampaignReader interface {
	Campaigns(ctx context.Context) ([]domain.Campaign, error)
	Rolling(ctx context.Context) ([]domain.RollingWindow, error)
}

// Broadcaster pushes events to connected dashboards
type Broadcaster interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// CampaignPage is the table of a filtered selection
type CampaignPage struct {
	Table    *estimator.Table `json:"table"`
	Count    int              `json:"count"`
	Matched  int              `json:"matched"`
	Budget   estimator.Bounds `json:"budget"`
	Filtered bool             `json:"filtered"`
}

// DatasetInfo describes the loaded dataset
type DatasetInfo struct {
	Campaigns      int                `json:"campaigns"`
	Duplicates     int                `json:"duplicates"`
	UnknownQuarter int                `json:"unknown_quarter"`
	Rolling        estimator.Coverage `json:"rolling"`
	Source         string             `json:"source"`
	LoadedAt       time.Time          `json:"loaded_at"`
}

// EstimatorService serves estimator queries from a dataset built on first
// use. The master CSV is preferred; the store is used when the CSV is
// missing.
type EstimatorService struct {
	layout   sources.Layout
	fallback CampaignReader
	opts     estimator.BuildOptions
	metrics  *infrastructure.BusinessMetrics
	hub      Broadcaster
	xlsx     *exporter.XLSXWriter
	logger   *slog.Logger

	mu      sync.RWMutex
	dataset *estimator.Dataset
	info    DatasetInfo
}

// EstimatorOption configures an EstimatorService
type EstimatorOption func(*EstimatorService)

// WithFallback reads the dataset from r when the master CSV is missing
func WithFallback(r CampaignReader) EstimatorOption {
	return func(s *EstimatorService) { s.fallback = r }
}

func WithMetrics(m *infrastructure.BusinessMetrics) EstimatorOption {
	return func(s *EstimatorService) { s.metrics = m }
}

// WithBroadcaster announces reloads to websocket clients
func WithBroadcaster(b Broadcaster) EstimatorOption {
	return func(s *EstimatorService) { s.hub = b }
}

func NewEstimatorService(layout sources.Layout, build estimator.BuildOptions, logger *slog.Logger, opts ...EstimatorOption) *EstimatorService {
	s := &EstimatorService{
		layout: layout,
		opts:   build,
		logger: infrastructure.WithComponent(logger, "estimator_service"),
	}
	s.xlsx = exporter.NewXLSXWriter(s.logger)
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *EstimatorService) count(ctx context.Context, query string) {
	if s.metrics == nil || s.metrics.EstimatorQueriesTotal == nil {
		return
	}
	s.metrics.EstimatorQueriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("query", query)))
}

// Dataset returns the loaded dataset, loading it on first call
func (s *EstimatorService) Dataset(ctx context.Context) (*estimator.Dataset, error) {
	s.mu.RLock()
	d := s.dataset
	s.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset != nil {
		return s.dataset, nil
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s.dataset, nil
}

// Reload rebuilds the dataset from the current files
func (s *EstimatorService) Reload(ctx context.Context) (DatasetInfo, error) {
	s.mu.Lock()
	err := s.load(ctx)
	info := s.info
	s.mu.Unlock()
	if err != nil {
		return DatasetInfo{}, err
	}
	s.count(ctx, "reload")
	if s.hub != nil {
		s.hub.BroadcastUpdate(string(events.MessageTypeDatasetReloaded), "estimator", "reloaded", events.DatasetReloadedEvent{
			Campaigns: info.Campaigns,
			Source:    info.Source,
			LoadedAt:  info.LoadedAt,
		})
	}
	return info, nil
}

// Info describes the dataset, loading it if needed
func (s *EstimatorService) Info(ctx context.Context) (DatasetInfo, error) {
	if _, err := s.Dataset(ctx); err != nil {
		return DatasetInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info, nil
}

func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// load must hold s.mu
func (s *EstimatorService) load(ctx context.Context) error {
	start := time.Now()
	source := SourceCSV

	master, err := sources.ReadCampaigns(s.layout.Master)
	var windows []domain.RollingWindow
	switch {
	case err == nil:
		windows, err = sources.ReadRolling(s.layout.RollingClean)
		if err != nil && !missing(err) {
			return apperrors.NewParsingError("rolling dataset", err).WithContext("file", s.layout.RollingClean)
		}
	case missing(err) && s.fallback != nil:
		source = SourceStore
		if master, err = s.fallback.Campaigns(ctx); err != nil {
			return apperrors.NewStorageError("load campaigns", err)
		}
		if windows, err = s.fallback.Rolling(ctx); err != nil {
			return apperrors.NewStorageError("load rolling windows", err)
		}
		if len(master) == 0 {
			return apperrors.ErrDatasetUnavailable
		}
	case missing(err):
		return apperrors.NewNotFoundError("master dataset").WithContext("file", s.layout.Master)
	default:
		return apperrors.NewParsingError("master dataset", err).WithContext("file", s.layout.Master)
	}

	demo, err := sources.ReadDemographics(s.layout.AgeGender)
	if err != nil && !missing(err) {
		s.logger.WarnContext(ctx, "demographics_unreadable", slog.String("error", err.Error()))
	}

	d := estimator.Build(master, windows, demo, s.opts)
	s.dataset = d
	s.info = DatasetInfo{
		Campaigns:      d.Len(),
		Duplicates:     d.Duplicates(),
		UnknownQuarter: d.UnknownQuarter(),
		Rolling:        d.Coverage(),
		Source:         source,
		LoadedAt:       d.BuiltAt(),
	}
	s.logger.InfoContext(ctx, "dataset_loaded",
		slog.String("source", source),
		slog.Int("campaigns", d.Len()),
		slog.Int("duplicates", d.Duplicates()),
		slog.Int("rolling_matched", d.Coverage().Matched),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Options lists the filter values of the dataset
func (s *EstimatorService) Options(ctx context.Context) (estimator.FilterOptions, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return estimator.FilterOptions{}, err
	}
	s.count(ctx, "options")
	return d.Options(), nil
}

func filtered(f domain.EstimatorFilter) bool {
	return f.Search != "" || f.HasBrand() || f.TargetBudget > 0 || f.MinBudget > 0 || f.MaxBudget > 0 ||
		len(f.Formats) > 0 || len(f.Ages) > 0 || len(f.Genders) > 0 || len(f.Bids) > 0 || len(f.Quarters) > 0
}

// Campaigns returns the table of the campaigns matching f, truncated to
// f.Limit rows when set
func (s *EstimatorService) Campaigns(ctx context.Context, f domain.EstimatorFilter) (*CampaignPage, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	s.count(ctx, "campaigns")

	rows := d.Apply(f)
	t := d.Table(rows, f.Metrics, f.ShowOriginalNames)
	if f.Limit > 0 && len(t.Rows) > f.Limit {
		t.Rows = t.Rows[:f.Limit]
	}
	return &CampaignPage{
		Table:    t,
		Count:    len(t.Rows),
		Matched:  len(rows),
		Budget:   d.Budget(f),
		Filtered: filtered(f),
	}, nil
}

// Summary aggregates the campaigns matching f
func (s *EstimatorService) Summary(ctx context.Context, f domain.EstimatorFilter) (estimator.Summary, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return estimator.Summary{}, err
	}
	s.count(ctx, "summary")
	return d.Summarize(d.Apply(f)), nil
}

// Detail returns one campaign card
func (s *EstimatorService) Detail(ctx context.Context, id string) (estimator.Detail, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return estimator.Detail{}, err
	}
	s.count(ctx, "detail")
	det, ok := d.Detail(id)
	if !ok {
		return estimator.Detail{}, apperrors.NewNotFoundError(fmt.Sprintf("campaign %s", id)).WithContext("campaign_id", id)
	}
	return det, nil
}

// ExportXLSX writes the master and rolling datasets to a workbook
func (s *EstimatorService) ExportXLSX(ctx context.Context, path string) error {
	master, err := sources.ReadCampaigns(s.layout.Master)
	if missing(err) && s.fallback != nil {
		master, err = s.fallback.Campaigns(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to read master dataset: %w", err)
	}
	windows, err := sources.ReadRolling(s.layout.RollingClean)
	if err != nil && !missing(err) {
		return fmt.Errorf("failed to read rolling dataset: %w", err)
	}

	sheets := []exporter.Sheet{{Name: "Master", Header: domain.CampaignHeader(), Rows: records(master, domain.Campaign.Record)}}
	if len(windows) > 0 {
		sheets = append(sheets, exporter.Sheet{Name: "Rolling", Header: domain.RollingHeader(), Rows: records(windows, domain.RollingWindow.Record)})
	}
	if err := s.xlsx.WriteSheets(path, sheets...); err != nil {
		return apperrors.FileSystemError("xlsx export", err)
	}
	return nil
}

func records[T any](rows []T, record func(T) []string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = record(r)
	}
	return out
}
