package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"adshub/internal/exporter"
	"adshub/internal/infrastructure"
	"adshub/internal/sources"
	"adshub/pkg/contracts/domain"
)

func testCampaigns() []domain.Campaign {
	return []domain.Campaign{
		{ID: "10", Name: "Kaufland Zagreb bumper", Account: "Kaufland HR", Brand: "Kaufland", AdFormat: "Bumper",
			DateRange: "Jan-Mar 25", Cost: 900, Impressions: "90000", PeakReach: 4000, StandardizedName: "Kaufland | Bumper"},
		{ID: "11", Name: "Kaufland national in-stream", Account: "Kaufland HR", Brand: "Kaufland", AdFormat: "In-Stream",
			DateRange: "Apr 25", Cost: 2100, Impressions: "300000", PeakReach: 25000},
		{ID: "12", Name: "Nivea search", Account: "Beiersdorf", Brand: "Nivea", AdFormat: "Other",
			DateRange: "May 25", Cost: 150, Impressions: "1000"},
	}
}

func testWindows() []domain.RollingWindow {
	return []domain.RollingWindow{
		{WindowStart: "2025-01-06", WindowEnd: "2025-04-05", CampaignID: "10", Reach: domain.Some(5200), AvgFrequency: domain.Some(2.5)},
	}
}

func writeMaster(t *testing.T, layout sources.Layout, campaigns []domain.Campaign) {
	t.Helper()
	w := exporter.NewCSVWriter("", nil)
	rows := make([][]string, len(campaigns))
	for i, c := range campaigns {
		rows[i] = c.Record()
	}
	require.NoError(t, w.Write(layout.Master, domain.CampaignHeader(), rows, exporter.DefaultOptions()))
}

func writeRolling(t *testing.T, layout sources.Layout, windows []domain.RollingWindow) {
	t.Helper()
	w := exporter.NewCSVWriter("", nil)
	rows := make([][]string, len(windows))
	for i, win := range windows {
		rows[i] = win.Record()
	}
	require.NoError(t, w.Write(layout.RollingClean, domain.RollingHeader(), rows, exporter.Comma()))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testLayout(t *testing.T) sources.Layout {
	dir := t.TempDir()
	return sources.DefaultLayout(filepath.Join(dir, "data"), filepath.Join(dir, "out"))
}

// testMetrics returns business metrics backed by a manual reader
func testMetrics(t *testing.T) (*infrastructure.BusinessMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

// counterTotal sums every data point of the named counter
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

type fakeReader struct {
	campaigns []domain.Campaign
	windows   []domain.RollingWindow
	err       error
	calls     int
}

func (f *fakeReader) Campaigns(context.Context) ([]domain.Campaign, error) {
	f.calls++
	return f.campaigns, f.err
}

func (f *fakeReader) Rolling(context.Context) ([]domain.RollingWindow, error) {
	return f.windows, f.err
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	m.Called(eventType, step, status, metadata)
}
