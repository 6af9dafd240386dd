package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"adshub/pkg/contracts/domain"
)

// RollingSource supplies rolling reach windows from somewhere other than
// the exported CSV
type RollingSource interface {
	Windows(ctx context.Context) ([]domain.RollingWindow, error)
}

// Bundle holds every loaded export
type Bundle struct {
	Anchor       []domain.Campaign
	Segments     []domain.SegmentRow
	Countries    []domain.CountryRow
	Demographics []domain.DemographicRow
	Interests    []domain.InterestRow
	Durations    []domain.DurationRow
	Reach        []domain.ReachRow
	Bidding      []domain.BiddingRow
	FormatFixes  []domain.FormatFix
	Rolling      []domain.RollingWindow
	MetricsV2    []domain.SegmentRow

	// Missing lists the optional exports that were not found
	Missing  []string
	LoadedAt time.Time
}

// Loader reads the exports named by a Layout
type Loader struct {
	layout  Layout
	logger  *slog.Logger
	rolling RollingSource
}

// NewLoader creates a loader. rolling may be nil, in which case the rolling
// windows are read from the CSV export.
func NewLoader(layout Layout, logger *slog.Logger, rolling RollingSource) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		layout:  layout,
		logger:  logger.With(slog.String("component", "sources")),
		rolling: rolling,
	}
}

// Layout returns the paths the loader reads
func (l *Loader) Layout() Layout {
	return l.layout
}

// LoadAll reads the exports concurrently. Only the anchor export is
// required; a missing optional export yields an empty table.
func (l *Loader) LoadAll(ctx context.Context) (*Bundle, error) {
	start := time.Now()
	b := &Bundle{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)

	optional := func(name, path string, load func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := load()
			if errors.Is(err, os.ErrNotExist) {
				l.logger.WarnContext(ctx, "optional_export_missing",
					slog.String("export", name),
					slog.String("path", path))
				mu.Lock()
				b.Missing = append(b.Missing, name)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		rows, err := ReadAnchor(l.layout.Anchor)
		if err != nil {
			return fmt.Errorf("failed to load anchor export: %w", err)
		}
		b.Anchor = rows
		return nil
	})

	optional("segmented", l.layout.Segmented, func() (err error) {
		b.Segments, err = ReadSegments(l.layout.Segmented)
		return err
	})
	optional("country", l.layout.Country, func() (err error) {
		b.Countries, err = ReadCountries(l.layout.Country)
		return err
	})
	optional("age-gender", l.layout.AgeGender, func() (err error) {
		b.Demographics, err = ReadDemographics(l.layout.AgeGender)
		return err
	})
	optional("interests", l.layout.Interests, func() (err error) {
		b.Interests, err = ReadInterests(l.layout.Interests)
		return err
	})
	optional("duration", l.layout.Duration, func() (err error) {
		b.Durations, err = ReadDurations(l.layout.Duration)
		return err
	})
	optional("bidding", l.layout.Bidding, func() (err error) {
		b.Bidding, err = ReadBidding(l.layout.Bidding)
		return err
	})
	optional("format-fixes", l.layout.FormatFixes, func() (err error) {
		b.FormatFixes, err = ReadFormatFixes(l.layout.FormatFixes)
		return err
	})
	optional("metrics-v2", l.layout.MetricsV2, func() (err error) {
		b.MetricsV2, err = ReadMetricsV2(l.layout.MetricsV2)
		return err
	})

	var quarters [4][]domain.ReachRow
	for i := range l.layout.Reach {
		q := i
		label := fmt.Sprintf("Q%d", q+1)
		optional("reach-"+label, l.layout.Reach[q], func() (err error) {
			quarters[q], err = ReadReach(l.layout.Reach[q], label)
			return err
		})
	}

	if l.rolling != nil {
		g.Go(func() error {
			rows, err := l.rolling.Windows(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch rolling windows: %w", err)
			}
			b.Rolling = rows
			return nil
		})
	} else {
		optional("rolling", l.layout.Rolling, func() (err error) {
			b.Rolling, err = ReadRolling(l.layout.Rolling)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, q := range quarters {
		b.Reach = append(b.Reach, q...)
	}
	b.LoadedAt = time.Now()

	l.logger.InfoContext(ctx, "exports_loaded",
		slog.Int("anchor_rows", len(b.Anchor)),
		slog.Int("segment_rows", len(b.Segments)),
		slog.Int("country_rows", len(b.Countries)),
		slog.Int("demographic_rows", len(b.Demographics)),
		slog.Int("reach_rows", len(b.Reach)),
		slog.Int("rolling_rows", len(b.Rolling)),
		slog.Any("missing", b.Missing),
		slog.Duration("duration", time.Since(start)))
	return b, nil
}

// Master reads the final cleaned master dataset
func (l *Loader) Master() ([]domain.Campaign, error) {
	return ReadCampaigns(l.layout.Master)
}

// RollingClean reads the cleaned rolling reach dataset
func (l *Loader) RollingClean() ([]domain.RollingWindow, error) {
	return ReadRolling(l.layout.RollingClean)
}
