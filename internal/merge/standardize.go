package merge

import (
	"sort"

	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// LabelCount is one row of a value count
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StandardizeResult is the labelled dataset and its value counts
type StandardizeResult struct {
	Campaigns []domain.Campaign `json:"-"`
	TopByCost []domain.Campaign `json:"top_by_cost"`
	Brands    []LabelCount      `json:"brands"`
	Formats   []LabelCount      `json:"formats"`
	Bids      []LabelCount      `json:"bids"`
	Goals     []LabelCount      `json:"goals"`
}

// Standardize labels every campaign and builds its standardized name
func Standardize(hr []domain.Campaign, demographics []domain.DemographicRow, bidding []domain.BiddingRow) *StandardizeResult {
	bids := make(map[string]string, len(bidding))
	for _, b := range bidding {
		if _, ok := bids[b.CampaignID]; !ok {
			bids[b.CampaignID] = b.Strategy
		}
	}

	demo := make(map[string][]domain.DemographicRow)
	for _, r := range demographics {
		demo[r.CampaignID] = append(demo[r.CampaignID], r)
	}

	out := make([]domain.Campaign, 0, len(hr))
	for _, c := range hr {
		c.BidStrategyType = bids[c.ID]

		c.Target = standardize.AutoTarget
		if c.HasDemographics {
			c.Target = standardize.TargetInfo(demo[c.ID])
		}
		c.Brand = standardize.AccountBrand(c.Account, c.Name)
		c.AdFormat = standardize.AdFormat(c.YouTubeAdFormats, c.Name)
		c.DateRange = standardize.DateRange(c.StartDate, c.EndDate)
		c.BidStrategyShort = standardize.ShortenBidStrategy(c.BidStrategyType)
		c.Goal = standardize.Goal(c.AdFormat, c.BidStrategyShort)
		c.StandardizedName = NameOf(c)
		out = append(out, c)
	}

	return &StandardizeResult{
		Campaigns: out,
		TopByCost: topByCost(out, 5),
		Brands:    valueCounts(out, func(c domain.Campaign) string { return c.Brand }, 5),
		Formats:   valueCounts(out, func(c domain.Campaign) string { return c.AdFormat }, 0),
		Bids:      valueCounts(out, func(c domain.Campaign) string { return c.BidStrategyShort }, 5),
		Goals:     valueCounts(out, func(c domain.Campaign) string { return c.Goal }, 0),
	}
}

// NameOf builds the standardized name from the labels of c
func NameOf(c domain.Campaign) string {
	return standardize.Parts{
		Brand:     c.Brand,
		Format:    c.AdFormat,
		Target:    c.Target,
		DateRange: c.DateRange,
		Bid:       c.BidStrategyShort,
		Goal:      c.Goal,
	}.Name()
}

func topByCost(campaigns []domain.Campaign, n int) []domain.Campaign {
	sorted := make([]domain.Campaign, len(campaigns))
	copy(sorted, campaigns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Cost > sorted[j].Cost })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// valueCounts counts labels, most frequent first. n <= 0 keeps every label.
func valueCounts(campaigns []domain.Campaign, label func(domain.Campaign) string, n int) []LabelCount {
	counts := make(map[string]int)
	for _, c := range campaigns {
		counts[label(c)]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
