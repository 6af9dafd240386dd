package estimator

import (
	"sort"
	"strings"
)

// Metric column names.
const (
	MetricCost        = "Cost (EUR)"
	MetricImpressions = "Impressions"
	MetricCPM         = "CPM (EUR)"
	MetricPeakReach   = "Peak Reach"
	MetricClicks      = "Clicks"
	MetricCTR         = "CTR (%)"
	MetricAvgCPC      = "Avg. CPC (EUR)"
	MetricViews       = "TrueView Views"
	MetricCPV         = "TrueView CPV (EUR)"
	MetricConversions = "Conversions"
	MetricConvRate    = "Conv. Rate (%)"
	MetricCostPerConv = "Cost/Conv. (EUR)"
)

// CampaignColumn heads the name column of a table.
const CampaignColumn = "Campaign"

var baseMetrics = []string{MetricCost, MetricImpressions, MetricCPM}

var optionalMetrics = []string{
	MetricPeakReach, MetricClicks, MetricCTR, MetricAvgCPC, MetricViews,
	MetricCPV, MetricConversions, MetricConvRate, MetricCostPerConv,
}

// DefaultMetrics are shown when no optional metric is selected.
var DefaultMetrics = []string{MetricPeakReach}

var metricValues = map[string]func(Row) float64{
	MetricCost:        func(r Row) float64 { return r.Cost },
	MetricImpressions: func(r Row) float64 { return float64(r.Impressions) },
	MetricCPM:         func(r Row) float64 { return r.CPM },
	MetricPeakReach:   func(r Row) float64 { return float64(r.PeakReach) },
	MetricClicks:      func(r Row) float64 { return float64(r.Clicks) },
	MetricCTR:         func(r Row) float64 { return r.CTR },
	MetricAvgCPC:      func(r Row) float64 { return r.AvgCPC },
	MetricViews:       func(r Row) float64 { return float64(r.Views) },
	MetricCPV:         func(r Row) float64 { return r.AvgCPV },
	MetricConversions: func(r Row) float64 { return r.Conversions },
	MetricConvRate:    func(r Row) float64 { return r.ConvRate },
	MetricCostPerConv: func(r Row) float64 { return r.CostPerConv },
}

// OptionalMetrics returns the selectable metric columns
func OptionalMetrics() []string {
	out := make([]string, len(optionalMetrics))
	copy(out, optionalMetrics)
	return out
}

// Column kinds, used by renderers to pick a number format.
const (
	KindCurrency = "currency"
	KindPercent  = "percent"
	KindCount    = "count"
	KindDecimal  = "decimal"
)

// MetricKind classifies a metric column for display
func MetricKind(metric string) string {
	switch {
	case strings.Contains(metric, "EUR"), strings.Contains(metric, "CPM"), strings.Contains(metric, "CPC"), strings.Contains(metric, "CPV"), strings.Contains(metric, "Cost"):
		return KindCurrency
	case strings.Contains(metric, "%"):
		return KindPercent
	case strings.Contains(metric, "Impressions"), strings.Contains(metric, "Reach"), strings.Contains(metric, "Clicks"), strings.Contains(metric, "Views"):
		return KindCount
	}
	return KindDecimal
}

// TableRow is one campaign line of a table
type TableRow struct {
	ID       string    `json:"campaign_id"`
	Campaign string    `json:"campaign"`
	Values   []float64 `json:"values"`
}

// Table is the campaign grid of a selection
type Table struct {
	Columns []string   `json:"columns"`
	Kinds   []string   `json:"kinds"`
	Rows    []TableRow `json:"rows"`
}

// DisplayName is "Standardized (Original)", or just the original name when
// showOriginal is set
func DisplayName(r Row, showOriginal bool) string {
	if showOriginal || r.StandardizedName == "" {
		return r.Name
	}
	return r.StandardizedName + " (" + r.Name + ")"
}

// BuildTable lays out rows under the base metrics plus the selected
// optional ones, most expensive first. Unknown metric names are ignored and
// a nil selection shows DefaultMetrics.
func BuildTable(rows []Row, metrics []string, showOriginal bool) *Table {
	if metrics == nil {
		metrics = DefaultMetrics
	}
	cols := append([]string{}, baseMetrics...)
	seen := map[string]bool{}
	for _, m := range baseMetrics {
		seen[m] = true
	}
	for _, m := range metrics {
		if _, ok := metricValues[m]; ok && !seen[m] {
			seen[m] = true
			cols = append(cols, m)
		}
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Cost > sorted[j].Cost })

	t := &Table{
		Columns: append([]string{CampaignColumn}, cols...),
		Kinds:   make([]string, 0, len(cols)),
		Rows:    make([]TableRow, 0, len(sorted)),
	}
	for _, c := range cols {
		t.Kinds = append(t.Kinds, MetricKind(c))
	}
	for _, r := range sorted {
		tr := TableRow{ID: r.ID, Campaign: DisplayName(r, showOriginal), Values: make([]float64, len(cols))}
		for i, c := range cols {
			tr.Values[i] = metricValues[c](r)
		}
		t.Rows = append(t.Rows, tr)
	}
	return t
}

// Table builds the grid of a selection drawn from this dataset
func (d *Dataset) Table(rows []Row, metrics []string, showOriginal bool) *Table {
	return BuildTable(rows, metrics, showOriginal)
}
