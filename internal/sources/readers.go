package sources

import (
	"fmt"

	"adshub/internal/dataprocessing"
	"adshub/pkg/contracts/domain"
)

// Google Ads export columns.
const (
	colAdFormat     = "Ad format"
	colCountry      = "Country/Territory (User location)"
	colAge          = "Age"
	colGender       = "Gender"
	colSegment      = "Audience segment"
	colStartDate    = "Campaign start date"
	colEndDate      = "Campaign end date"
	colUniqueUsers  = "Unique users"
	colCampaignType = "Campaign Type"
)

var semicolon = dataprocessing.ReadOptions{Delimiter: ';'}
var comma = dataprocessing.ReadOptions{Delimiter: ','}

func accountColumn(t *dataprocessing.Table) string {
	return t.FirstOf(domain.ColAccount, domain.ColAccountName)
}

func requireColumns(t *dataprocessing.Table, path string, cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%s: missing column %q", path, c)
		}
	}
	return nil
}

// ReadAnchor reads the unsegmented campaign metrics export. CostOriginal
// keeps the exported text and Cost its parsed value.
func ReadAnchor(path string) ([]domain.Campaign, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaignID, domain.ColCost); err != nil {
		return nil, err
	}

	out := make([]domain.Campaign, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		c := domain.CampaignFromRecord(t, i)
		raw := t.Value(i, domain.ColCost)
		c.CostOriginal = raw
		c.Cost = dataprocessing.ParseCost(raw)
		out = append(out, c)
	}
	return out, nil
}

// ReadSegments reads the ad-format segmented export
func ReadSegments(path string) ([]domain.SegmentRow, error) {
	return readSegments(path, dataprocessing.ParseCost)
}

// ReadMetricsV2 reads the v2 campaign metrics export, whose costs use a
// decimal comma.
func ReadMetricsV2(path string) ([]domain.SegmentRow, error) {
	return readSegments(path, dataprocessing.ParseEuropeanCost)
}

func readSegments(path string, parse func(string) float64) ([]domain.SegmentRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaign, domain.ColCost); err != nil {
		return nil, err
	}
	acc := accountColumn(t)

	out := make([]domain.SegmentRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		raw := t.Value(i, domain.ColCost)
		out = append(out, domain.SegmentRow{
			CampaignID: t.Value(i, domain.ColCampaignID),
			Campaign:   t.Value(i, domain.ColCampaign),
			Account:    t.Value(i, acc),
			AdFormat:   t.Value(i, colAdFormat),
			CostRaw:    raw,
			Cost:       parse(raw),
		})
	}
	return out, nil
}

// ReadCountries reads the user-location export
func ReadCountries(path string) ([]domain.CountryRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaignID, colCountry); err != nil {
		return nil, err
	}
	acc := accountColumn(t)

	out := make([]domain.CountryRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.CountryRow{
			CampaignID: t.Value(i, domain.ColCampaignID),
			Campaign:   t.Value(i, domain.ColCampaign),
			Account:    t.Value(i, acc),
			Country:    t.Value(i, colCountry),
			Cost:       dataprocessing.ParseCost(t.Value(i, domain.ColCost)),
		})
	}
	return out, nil
}

// ReadDemographics reads the age × gender export
func ReadDemographics(path string) ([]domain.DemographicRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaignID); err != nil {
		return nil, err
	}

	out := make([]domain.DemographicRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.DemographicRow{
			CampaignID: t.Value(i, domain.ColCampaignID),
			Campaign:   t.Value(i, domain.ColCampaign),
			Age:        t.Value(i, colAge),
			Gender:     t.Value(i, colGender),
			Cost:       dataprocessing.ParseCost(t.Value(i, domain.ColCost)),
		})
	}
	return out, nil
}

// ReadInterests reads the audience segment export
func ReadInterests(path string) ([]domain.InterestRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaignID); err != nil {
		return nil, err
	}

	out := make([]domain.InterestRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.InterestRow{
			CampaignID: t.Value(i, domain.ColCampaignID),
			Segment:    t.Value(i, colSegment),
			Cost:       dataprocessing.ParseCost(t.Value(i, domain.ColCost)),
		})
	}
	return out, nil
}

// ReadDurations reads the campaign start and end dates. An export without
// date columns yields no rows.
func ReadDurations(path string) ([]domain.DurationRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if !t.Has(colStartDate) || !t.Has(colEndDate) {
		return nil, nil
	}

	out := make([]domain.DurationRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.DurationRow{
			CampaignID: t.Value(i, domain.ColCampaignID),
			Start:      t.Value(i, colStartDate),
			End:        t.Value(i, colEndDate),
		})
	}
	return out, nil
}

// ReadReach reads one quarterly reach export and labels its rows
func ReadReach(path, quarter string) ([]domain.ReachRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ReachRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.ReachRow{
			CampaignID:  t.Value(i, domain.ColCampaignID),
			Quarter:     quarter,
			UniqueUsers: dataprocessing.ParseReach(t.Value(i, colUniqueUsers)),
		})
	}
	return out, nil
}

// ReadBidding reads the bid strategy export
func ReadBidding(path string) ([]domain.BiddingRow, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaignID, domain.ColBidStrategyType); err != nil {
		return nil, err
	}

	out := make([]domain.BiddingRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.BiddingRow{
			CampaignID: t.Value(i, domain.ColCampaignID),
			Strategy:   t.Value(i, domain.ColBidStrategyType),
		})
	}
	return out, nil
}

// ReadFormatFixes reads the manually cleaned ad format list
func ReadFormatFixes(path string) ([]domain.FormatFix, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(t, path, domain.ColCampaign, colCampaignType); err != nil {
		return nil, err
	}

	out := make([]domain.FormatFix, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.FormatFix{
			Campaign:     t.Value(i, domain.ColCampaign),
			CampaignType: t.Value(i, colCampaignType),
		})
	}
	return out, nil
}

// ReadCampaigns reads a derived master dataset file
func ReadCampaigns(path string) ([]domain.Campaign, error) {
	t, err := dataprocessing.ReadTableFile(path, semicolon)
	if err != nil {
		return nil, err
	}
	return CampaignsFromTable(t), nil
}

// CampaignsFromTable maps every row of t onto the master schema
func CampaignsFromTable(t *dataprocessing.Table) []domain.Campaign {
	out := make([]domain.Campaign, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.CampaignFromRecord(t, i))
	}
	return out
}

// ReadRolling reads a raw or cleaned rolling reach export
func ReadRolling(path string) ([]domain.RollingWindow, error) {
	t, err := dataprocessing.ReadTableFile(path, comma)
	if err != nil {
		return nil, err
	}
	return RollingFromTable(t), nil
}

// RollingFromTable maps the rows of a rolling reach table. Window dates are
// normalized to YYYY-MM-DD when they parse.
func RollingFromTable(t *dataprocessing.Table) []domain.RollingWindow {
	out := make([]domain.RollingWindow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		w := domain.RollingWindow{
			WindowStart:  t.Value(i, domain.ColWindowStart),
			WindowEnd:    t.Value(i, domain.ColWindowEnd),
			AccountID:    t.Value(i, domain.ColAccountID),
			AccountName:  t.Value(i, domain.ColRollAccount),
			CampaignID:   t.Value(i, domain.ColRollCampID),
			Campaign:     t.Value(i, domain.ColCampaign),
			Type:         t.Value(i, domain.ColType),
			TypeOriginal: t.Value(i, domain.ColTypeOriginal),
			Brand:        t.Value(i, domain.ColBrand),
			Target:       t.Value(i, domain.ColTarget),
			BidStrategy:  t.Value(i, domain.ColBidStrategy),
			Cost:         dataprocessing.ParseMeasure(t.Value(i, domain.ColCost)),
			Impressions:  dataprocessing.ParseMeasure(t.Value(i, domain.ColRollImpr)),
			Reach:        dataprocessing.ParseMeasure(t.Value(i, domain.ColReach)),
			AvgFrequency: dataprocessing.ParseMeasure(t.Value(i, domain.ColAvgFrequency)),
		}
		if s := w.Start(); !s.IsZero() {
			w.WindowStart = s.Format("2006-01-02")
		}
		if e := w.End(); !e.IsZero() {
			w.WindowEnd = e.Format("2006-01-02")
		}
		out = append(out, w)
	}
	return out
}
