package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adshub/internal/sources"
	"adshub/pkg/contracts/domain"
)

func fixtureBundle() *sources.Bundle {
	return &sources.Bundle{
		Anchor: []domain.Campaign{
			{ID: "1", Name: "VID_BR_HR_Kaufland_Q1", Account: "Kaufland HR", CostOriginal: "1,000.00", Cost: 1000},
			{ID: "2", Name: "McDonalds Worldwide", Account: "McDonald's Global", CostOriginal: "500.00", Cost: 500},
			{ID: "3", Name: "PMAX Nivea", Account: "Beiersdorf_HR", CostOriginal: "250.25", Cost: 250.25},
		},
		Segments: []domain.SegmentRow{
			{CampaignID: "1", AdFormat: "Skippable in-stream ads"},
			{CampaignID: "1", AdFormat: "Bumper ads"},
			{CampaignID: "1", AdFormat: "Bumper ads"},
		},
		Countries: []domain.CountryRow{
			{CampaignID: "1", Campaign: "VID_BR_HR_Kaufland_Q1", Account: "Kaufland HR", Country: "Croatia", Cost: 900},
			{CampaignID: "1", Campaign: "VID_BR_HR_Kaufland_Q1", Account: "Kaufland HR", Country: "Slovenia", Cost: 100},
			{CampaignID: "3", Campaign: "PMAX Nivea", Account: "Beiersdorf_HR", Country: "Croatia", Cost: 250.25},
		},
		Demographics: []domain.DemographicRow{
			{CampaignID: "1", Age: "25-34", Gender: "Female", Cost: 600},
			{CampaignID: "1", Age: "35-44", Gender: "Male", Cost: 400},
		},
		Interests: []domain.InterestRow{{CampaignID: "1", Segment: "Shoppers"}},
		Durations: []domain.DurationRow{
			{CampaignID: "1", Start: "01.02.2025", End: "31.03.2025"},
			{CampaignID: "1", Start: "01.01.2024", End: "02.01.2024"},
		},
		Reach: []domain.ReachRow{
			{CampaignID: "1", Quarter: "Q2", UniqueUsers: 8000},
			{CampaignID: "1", Quarter: "Q1", UniqueUsers: 12000},
		},
	}
}

func worldwideCountries() []domain.CountryRow {
	var rows []domain.CountryRow
	for _, c := range []string{"Austria", "Belgium", "Croatia", "Czechia", "France", "Germany", "Hungary", "Italy", "Poland", "Serbia", "Spain"} {
		rows = append(rows, domain.CountryRow{CampaignID: "2", Campaign: "McDonalds Worldwide", Account: "McDonald's Global", Country: c, Cost: 10})
	}
	return rows
}

func TestBuildMaster(t *testing.T) {
	res := BuildMaster(fixtureBundle(), MasterOptions{ExpectedTotal: 1750.25})
	require.Len(t, res.Campaigns, 3)

	c := res.Campaigns[0]
	assert.Equal(t, "Bumper ads, Skippable in-stream ads", c.YouTubeAdFormats)
	assert.Equal(t, "Croatia, Slovenia", c.TargetCountries)
	assert.Equal(t, 2, c.NumberOfCountries)
	assert.True(t, c.HasDemographics)
	assert.Equal(t, 2, c.DemographicsSegmentsCount)
	assert.Equal(t, domain.LabelAvailable, c.DemographicsLabel)
	assert.True(t, c.HasInterests)
	assert.Equal(t, "01.02.2025", c.StartDate)
	assert.Equal(t, int64(12000), c.PeakReach)
	assert.Equal(t, "Q1, Q2", c.ActiveQuarters)
	assert.Equal(t, "Kaufland", c.Brand)
	assert.Equal(t, "1,000.00", c.CostOriginal)

	pmax := res.Campaigns[2]
	assert.Equal(t, domain.NonYouTubeFormat, pmax.YouTubeAdFormats)
	assert.Equal(t, domain.LabelAutomaticPMax, pmax.DemographicsLabel)
	assert.Equal(t, domain.Unknown, pmax.ActiveQuarters)
	assert.Equal(t, "Nivea (Beiersdorf)", pmax.Brand)

	assert.InDelta(t, 1750.25, res.GrandTotal, 1e-9)
	assert.True(t, res.TotalOK)
	assert.Equal(t, 1, res.YouTubeCampaigns)
	require.NotEmpty(t, res.TopBrands)
	assert.Equal(t, "Kaufland", res.TopBrands[0].Brand)

	off := BuildMaster(fixtureBundle(), MasterOptions{})
	assert.False(t, off.TotalOK)
	assert.Equal(t, DefaultExpectedTotal, off.ExpectedTotal)
}

func TestCleanHRCroatiaSpend(t *testing.T) {
	b := fixtureBundle()
	master := BuildMaster(b, MasterOptions{}).Campaigns
	countries := append(b.Countries, worldwideCountries()...)

	res, err := CleanHR(master, countries, HROptions{})
	require.NoError(t, err)
	assert.Equal(t, StrategyCroatiaSpend, res.Strategy)

	require.Len(t, res.WorldwideErrors, 1)
	assert.Equal(t, "2", res.WorldwideErrors[0].CampaignID)
	assert.InDelta(t, 110, res.WorldwideErrorSpend, 1e-9)

	require.Len(t, res.KauflandAnomalies, 1)
	k := res.KauflandAnomalies[0]
	assert.InDelta(t, 900, k.CroatiaSpend, 1e-9)
	assert.InDelta(t, 100, k.NonCroatiaSpend, 1e-9)
	assert.InDelta(t, 1000, k.TotalSpend, 1e-9)

	require.Len(t, res.Campaigns, 2)
	kaufland := res.Campaigns[0]
	assert.Equal(t, "1", kaufland.ID)
	assert.InDelta(t, 900, kaufland.Cost, 1e-9)
	assert.True(t, kaufland.CostGlobalSet)
	assert.InDelta(t, 1000, kaufland.CostOriginalGlobal, 1e-9)
	assert.InDelta(t, 1150.25, res.HRTotal, 1e-9)
	assert.InDelta(t, 1750.25, res.GlobalTotal, 1e-9)
}

func TestCleanHRCroatiaOnly(t *testing.T) {
	master := BuildMaster(fixtureBundle(), MasterOptions{}).Campaigns

	res, err := CleanHR(master, nil, HROptions{Strategy: StrategyCroatiaOnly, ExpectedTotal: 250.25})
	require.NoError(t, err)
	require.Len(t, res.Campaigns, 1)
	assert.Equal(t, "3", res.Campaigns[0].ID)
	assert.True(t, res.TotalOK)

	require.Len(t, res.Rejected, 2)
	assert.Equal(t, "1", res.Rejected[0].ID)
	assert.InDelta(t, 1500, res.RejectedSpend, 1e-9)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyCroatiaSpend, s)

	_, err = ParseStrategy("everything")
	assert.Error(t, err)

	_, err = CleanHR(nil, nil, HROptions{Strategy: "bogus"})
	assert.Error(t, err)
}

func TestStandardize(t *testing.T) {
	b := fixtureBundle()
	master := BuildMaster(b, MasterOptions{}).Campaigns
	hr, err := CleanHR(master, b.Countries, HROptions{})
	require.NoError(t, err)

	bidding := []domain.BiddingRow{
		{CampaignID: "1", Strategy: "Target CPM"},
		{CampaignID: "1", Strategy: "Manual CPV"},
	}
	res := Standardize(hr.Campaigns, b.Demographics, bidding)
	require.Len(t, res.Campaigns, 2)

	type labels struct{ Brand, Format, Target, DateRange, Bid, Goal, Name string }
	got := make([]labels, 0, len(res.Campaigns))
	for _, c := range res.Campaigns {
		got = append(got, labels{c.Brand, c.AdFormat, c.Target, c.DateRange, c.BidStrategyShort, c.Goal, c.StandardizedName})
	}
	want := []labels{
		{"Kaufland", "YouTube In-Stream", "25-44 | M/F", "Feb-Mar 25", "tCPM", "Awareness",
			"Kaufland | YouTube In-Stream | 25-44 | M/F | Feb-Mar 25 | tCPM | Awareness"},
		{"Nivea", "PMax", "Auto | All", "Unknown Period", "Unknown", "Action",
			"Nivea | PMax | Auto | All | Unknown Period | Unknown | Action"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("standardized labels mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Target CPM", res.Campaigns[0].BidStrategyType)
	assert.Len(t, res.TopByCost, 2)
	assert.Len(t, res.Goals, 2)
}

func TestFinalize(t *testing.T) {
	std := []domain.Campaign{
		{ID: "1", Name: "A", Brand: "Croatia", AdFormat: "Other", Target: "All | All", DateRange: "Jan-Mar 25", BidStrategyShort: "CPM", Goal: "Awareness"},
		{ID: "2", Name: "B", Brand: "Zott", AdFormat: "Other", DateRange: "Unknown Period"},
		{ID: "3", Name: "C", Brand: "Zott", AdFormat: "Display", DateRange: "Oct 25"},
	}
	fixes := []domain.FormatFix{
		{Campaign: "A", CampaignType: "Demand Gen"},
		{Campaign: "B", CampaignType: "Display"},
		{Campaign: "Z", CampaignType: "Display"},
	}

	res := Finalize(std, fixes, FinalizeOptions{})
	assert.Equal(t, 2, res.FormatsFixed)
	assert.True(t, res.FixesMismatch)
	assert.Equal(t, []string{"Z"}, res.FixesNotFound)
	assert.Equal(t, 1, res.HidraRenamed)
	assert.Equal(t, 1, res.UnknownDropped)

	require.Len(t, res.Campaigns, 2)
	a := res.Campaigns[0]
	assert.Equal(t, "Hidra", a.Brand)
	assert.Equal(t, "Demand Gen", a.AdFormat)
	assert.Equal(t, "Q1 2025", a.Quarter)
	assert.Equal(t, "Hidra | Demand Gen | All | All | Jan-Mar 25 | CPM | Awareness", a.StandardizedName)
	assert.Equal(t, "Q4 2025", res.Campaigns[1].Quarter)

	exact := Finalize(std[:1], fixes[:1], FinalizeOptions{ExpectedFixes: 1})
	assert.False(t, exact.FixesMismatch)
}
