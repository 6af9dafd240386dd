package estimator

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adshub/internal/demographics"
	"adshub/pkg/contracts/domain"
)

func fixtureMaster() []domain.Campaign {
	return []domain.Campaign{
		{
			ID: "1", Name: "McDonalds Zagreb Summer", Account: "McD HR", Brand: "McDonald's",
			AdFormat: "In-Stream", DateRange: "Jan-Mar 25", BidStrategyShort: "tCPM", Goal: "Awareness",
			Cost: 1000, Impressions: "100,000", PeakReach: 5000, Clicks: "1,000", CTR: "1.00%",
		},
		{
			ID: "2", Name: "Kaufland Split promo", Account: "Kaufland HR", Brand: "Kaufland",
			AdFormat: "Bumper", DateRange: "Apr 25", BidStrategyShort: "CPV",
			Cost: 500, Impressions: "50000", PeakReach: 3000,
		},
		{
			ID: "2", Name: "Kaufland Split promo", Account: "Kaufland HR", Brand: "Kaufland",
			AdFormat: "Bumper", DateRange: "Apr 25", BidStrategyShort: "CPV",
			Cost: 250, Impressions: "25000", PeakReach: 4000, CTR: "2",
		},
		{ID: "3", Name: "Nivea national", Account: "Nivea HR", Brand: "Nivea", DateRange: "Jan 24", Cost: 90},
		{
			ID: "4", Name: "Philips Display", Account: "Philips HR", Brand: "Philips",
			AdFormat: "Display", DateRange: "Oct-Dec 25", Cost: 2000, Impressions: "0", PeakReach: 700,
		},
	}
}

func fixtureRolling() []domain.RollingWindow {
	return []domain.RollingWindow{
		{CampaignID: "1", Reach: domain.Some(8000), AvgFrequency: domain.Some(2)},
		{CampaignID: "1", Reach: domain.Some(9000), AvgFrequency: domain.Some(3)},
		{CampaignID: "3", Reach: domain.Some(100)},
		{CampaignID: "4", AvgFrequency: domain.Some(1.5)},
	}
}

func fixtureDemographics() []domain.DemographicRow {
	return []domain.DemographicRow{
		{CampaignID: "1", Age: "25-34", Gender: "Female", Cost: 600},
		{CampaignID: "1", Age: "35-44", Gender: "Female", Cost: 400},
	}
}

func fixtureDataset() *Dataset {
	return Build(fixtureMaster(), fixtureRolling(), fixtureDemographics(), BuildOptions{})
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestBuild(t *testing.T) {
	d := fixtureDataset()

	require.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"1", "2", "4"}, ids(d.Rows()))
	assert.Equal(t, 1, d.UnknownQuarter())
	assert.Equal(t, 1, d.Duplicates())

	// Coverage is counted before the unknown quarter row is dropped.
	cov := d.Coverage()
	assert.Equal(t, 2, cov.Matched)
	assert.Equal(t, 5, cov.Total)
	assert.InDelta(t, 40.0, cov.Percent, 1e-9)

	rows := d.Rows()
	mcd := rows[0]
	assert.Equal(t, "Q1 2025", mcd.Quarter)
	assert.Equal(t, int64(100000), mcd.Impressions)
	assert.Equal(t, int64(9000), mcd.PeakReach)
	assert.True(t, mcd.RollingReach)
	assert.Equal(t, domain.Some(2.5), mcd.AvgFrequency)
	assert.InDelta(t, 10.0, mcd.CPM, 1e-9)
	assert.Equal(t, int64(1000), mcd.Clicks)
	assert.InDelta(t, 1.0, mcd.CTR, 1e-9)
	assert.Equal(t, "25-44", mcd.AgeRange)
	assert.Equal(t, "Female", mcd.Gender)
	assert.Equal(t, "25-44 | Female", mcd.Target)
	assert.Equal(t, "McDonald's | In-Stream | 25-44 | Female | Jan-Mar 25 | tCPM | Awareness", mcd.StandardizedName)

	philips := rows[2]
	assert.Equal(t, "Q4 2025", philips.Quarter)
	assert.Equal(t, int64(700), philips.PeakReach, "master reach is kept without rolling reach")
	assert.False(t, philips.RollingReach)
	assert.Equal(t, domain.Some(1.5), philips.AvgFrequency)
	assert.Zero(t, philips.CPM)
	assert.Equal(t, "Unknown | Unknown", philips.Target)
}

func TestBuildMergesDuplicates(t *testing.T) {
	r := fixtureDataset().Rows()[1]

	assert.Equal(t, "2", r.ID)
	assert.Equal(t, "Kaufland Split promo", r.Name)
	assert.Equal(t, 750.0, r.Cost)
	assert.Equal(t, int64(75000), r.Impressions)
	assert.Equal(t, int64(4000), r.PeakReach)
	assert.InDelta(t, 1.0, r.CTR, 1e-9)
	assert.InDelta(t, 10.0, r.CPM, 1e-9)
	assert.False(t, r.AvgFrequency.Valid)
}

func TestBuildFixesCroatiaBrand(t *testing.T) {
	d := Build([]domain.Campaign{
		{ID: "5", Name: "Bison spring", Account: "Bison HR", Brand: "Croatia", DateRange: "Jul 25", Cost: 100},
	}, nil, nil, BuildOptions{})

	require.Equal(t, 1, d.Len())
	assert.Equal(t, "Bison", d.Rows()[0].Brand)
	assert.Equal(t, "Q3 2025", d.Rows()[0].Quarter)
}

func TestBuildEmpty(t *testing.T) {
	d := Build(nil, nil, nil, BuildOptions{})

	assert.Zero(t, d.Len())
	assert.Equal(t, Bounds{}, d.CostBounds())
	assert.Equal(t, Coverage{}, d.Coverage())
	s := d.Summarize(nil)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.WeightedCPM)
	assert.Equal(t, LevelNational, s.Targeting.Level)
}

func TestApply(t *testing.T) {
	d := fixtureDataset()

	tests := []struct {
		name     string
		filter   domain.EstimatorFilter
		expected []string
	}{
		{"no filter", domain.EstimatorFilter{}, []string{"1", "2", "4"}},
		{"search is case insensitive", domain.EstimatorFilter{Search: "  ZAGREB "}, []string{"1"}},
		{"brand", domain.EstimatorFilter{Brands: []string{"Kaufland"}}, []string{"2"}},
		{"several brands", domain.EstimatorFilter{Brands: []string{"McDonald's", "Kaufland"}}, []string{"1", "2"}},
		{"all brands", domain.EstimatorFilter{Brands: []string{domain.AllBrands}}, []string{"1", "2", "4"}},
		{"all brands entry wins", domain.EstimatorFilter{Brands: []string{"Kaufland", domain.AllBrands}}, []string{"1", "2", "4"}},
		{"target budget band", domain.EstimatorFilter{TargetBudget: 800}, []string{"2"}},
		{"target budget overrides range", domain.EstimatorFilter{TargetBudget: 2000, MaxBudget: 100}, []string{"4"}},
		{"min budget", domain.EstimatorFilter{MinBudget: 900}, []string{"1", "4"}},
		{"max budget", domain.EstimatorFilter{MaxBudget: 1000}, []string{"1", "2"}},
		{"formats", domain.EstimatorFilter{Formats: []string{"Display", "Bumper"}}, []string{"2", "4"}},
		{"all formats entry", domain.EstimatorFilter{Formats: []string{"Display", domain.AllBrands}}, []string{"1", "2", "4"}},
		{"ages are strict", domain.EstimatorFilter{Ages: []string{"25-34"}}, []string{}},
		{"ages", domain.EstimatorFilter{Ages: []string{"25-44"}}, []string{"1"}},
		{"genders", domain.EstimatorFilter{Genders: []string{"Unknown"}}, []string{"2", "4"}},
		{"bids", domain.EstimatorFilter{Bids: []string{"tCPM"}}, []string{"1"}},
		{"quarters", domain.EstimatorFilter{Quarters: []string{"Q2 2025", "Q4 2025"}}, []string{"2", "4"}},
		{"search then brand", domain.EstimatorFilter{Search: "split", Brands: []string{"Philips"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(d.Apply(tt.filter)))
		})
	}
}

func TestBudget(t *testing.T) {
	d := fixtureDataset()

	assert.Equal(t, Bounds{Min: 750, Max: 2000}, d.Budget(domain.EstimatorFilter{}))
	b := d.Budget(domain.EstimatorFilter{TargetBudget: 1000})
	assert.InDelta(t, 900, b.Min, 1e-9)
	assert.InDelta(t, 1100, b.Max, 1e-9)
	assert.True(t, b.Contains(900))
	assert.True(t, b.Contains(1100))
	assert.False(t, b.Contains(1100.01))
}

func TestOptions(t *testing.T) {
	opts := fixtureDataset().Options()

	want := FilterOptions{
		Brands:   []string{domain.AllBrands, "Kaufland", "McDonald's", "Philips"},
		Formats:  []string{"Bumper", "Display", "In-Stream"},
		Ages:     []string{"25-44"},
		Genders:  []string{"Female"},
		Bids:     []string{"CPV", "tCPM"},
		Quarters: []string{"Q1 2025", "Q2 2025", "Q4 2025"},
		Metrics:  OptionalMetrics(),
		Budget:   Bounds{Min: 750, Max: 2000},
	}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("Options() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	d := fixtureDataset()
	s := d.Summarize(d.Rows())

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 3, s.Total)
	assert.InDelta(t, 100.0, s.CoveragePct, 1e-9)
	assert.InDelta(t, 3750.0, s.Cost, 1e-9)
	assert.Equal(t, int64(175000), s.Impressions)
	assert.InDelta(t, 3750.0/175000*1000, s.WeightedCPM, 1e-9)
	assert.Equal(t, int64(9000), s.PeakReach)
	assert.InDelta(t, 2.0, s.AvgFrequency, 1e-9)
	assert.Equal(t, LevelNational, s.Targeting.Level)
	assert.Equal(t, 40.0, s.Rolling.Percent)

	wantAges := []demographics.Share{
		{Label: "Unknown", Cost: 2750, Percent: 73.33},
		{Label: "25-44", Cost: 1000, Percent: 26.67},
	}
	if diff := cmp.Diff(wantAges, s.Ages); diff != "" {
		t.Errorf("age distribution mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, s.Genders, 2)
	assert.Equal(t, "Unknown", s.Genders[0].Label)

	wantNoise := []demographics.Share{
		{Label: "25-34", Cost: 600, Percent: 60},
		{Label: "35-44", Cost: 400, Percent: 40},
	}
	if diff := cmp.Diff(wantNoise, s.Noise); diff != "" {
		t.Errorf("noise mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeSelection(t *testing.T) {
	d := fixtureDataset()
	s := d.Summarize(d.Apply(domain.EstimatorFilter{Search: "zagreb"}))

	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, 100.0/3, s.CoveragePct, 1e-9)
	assert.InDelta(t, 10.0, s.WeightedCPM, 1e-9)
	assert.Equal(t, LevelLocal, s.Targeting.Level)
	assert.Equal(t, "City Level", s.Targeting.Label)
}

func TestTargetingLevel(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		expected string
	}{
		{"empty", nil, LevelNational},
		{"all local", []string{"McDelivery HR", "Zagreb promo"}, LevelLocal},
		{"exactly eighty percent", []string{"Split", "Pula", "Osijek", "Rijeka", "National"}, LevelNational},
		{"mixed case keyword", []string{"ZADAR summer"}, LevelLocal},
		{"national", []string{"Brand awareness", "Zagreb"}, LevelNational},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TargetingLevel(tt.names).Level)
		})
	}
}

func TestTable(t *testing.T) {
	d := fixtureDataset()
	tbl := d.Table(d.Rows(), nil, false)

	assert.Equal(t, []string{CampaignColumn, MetricCost, MetricImpressions, MetricCPM, MetricPeakReach}, tbl.Columns)
	assert.Equal(t, []string{KindCurrency, KindCount, KindCurrency, KindCount}, tbl.Kinds)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "4", tbl.Rows[0].ID)
	assert.Equal(t, "Philips | Display | Unknown | Unknown | Oct-Dec 25 (Philips Display)", tbl.Rows[0].Campaign)
	assert.Equal(t, []float64{2000, 0, 0, 700}, tbl.Rows[0].Values)
	assert.Equal(t, "1", tbl.Rows[1].ID)
	assert.Equal(t, "2", tbl.Rows[2].ID)

	orig := d.Table(d.Rows(), []string{MetricClicks, "bogus", MetricCost}, true)
	assert.Equal(t, []string{CampaignColumn, MetricCost, MetricImpressions, MetricCPM, MetricClicks}, orig.Columns)
	assert.Equal(t, "Philips Display", orig.Rows[0].Campaign)
	assert.Equal(t, 1000.0, orig.Rows[1].Values[3])
}

func TestMetricKind(t *testing.T) {
	assert.Equal(t, KindPercent, MetricKind(MetricCTR))
	assert.Equal(t, KindPercent, MetricKind(MetricConvRate))
	assert.Equal(t, KindCurrency, MetricKind(MetricCostPerConv))
	assert.Equal(t, KindCount, MetricKind(MetricViews))
	assert.Equal(t, KindDecimal, MetricKind(MetricConversions))
}

func TestDetail(t *testing.T) {
	d := fixtureDataset()

	det, ok := d.Detail("1")
	require.True(t, ok)
	assert.Equal(t, "McDonalds Zagreb Summer", det.Name)
	assert.Equal(t, "McD HR", det.Account)
	assert.Equal(t, "25-44 | Female", det.Target)
	assert.Equal(t, int64(9000), det.PeakReach)

	_, ok = d.Detail("3")
	assert.False(t, ok, "unknown quarter campaigns are not in the dataset")
}

func TestBrandSelection(t *testing.T) {
	var f domain.EstimatorFilter
	require.NoError(t, json.Unmarshal([]byte(`{"brands":["McDonald's","Kaufland"]}`), &f))
	assert.Equal(t, []string{"McDonald's", "Kaufland"}, f.Brands)
	assert.True(t, f.HasBrand())
	assert.Equal(t, []string{"1", "2"}, ids(fixtureDataset().Apply(f)))

	assert.False(t, domain.EstimatorFilter{}.HasBrand())
	assert.False(t, domain.EstimatorFilter{Brands: []string{"Lidl", domain.AllBrands}}.HasBrand())
}
