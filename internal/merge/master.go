package merge

import (
	"sort"
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/internal/sources"
	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// DefaultExpectedTotal is the spend of the unsegmented anchor export.
const DefaultExpectedTotal = 2354918.67

// DefaultTotalTolerance bounds the grand total check of the raw master.
const DefaultTotalTolerance = 0.10

// MasterOptions configures BuildMaster
type MasterOptions struct {
	ExpectedTotal float64
	Tolerance     float64
}

func (o MasterOptions) withDefaults() MasterOptions {
	if o.ExpectedTotal == 0 {
		o.ExpectedTotal = DefaultExpectedTotal
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTotalTolerance
	}
	return o
}

// BrandSpend is the spend share of one brand
type BrandSpend struct {
	Brand     string  `json:"brand"`
	Cost      float64 `json:"cost"`
	Campaigns int     `json:"campaigns"`
	Percent   float64 `json:"percent"`
}

// MasterResult is the raw master dataset and its audit figures
type MasterResult struct {
	Campaigns        []domain.Campaign `json:"-"`
	GrandTotal       float64           `json:"grand_total"`
	ExpectedTotal    float64           `json:"expected_total"`
	TotalOK          bool              `json:"total_ok"`
	YouTubeCampaigns int               `json:"youtube_campaigns"`
	WithDemographics int               `json:"with_demographics"`
	WithInterests    int               `json:"with_interests"`
	WithReach        int               `json:"with_reach"`
	TopBrands        []BrandSpend      `json:"top_brands"`
}

// BuildMaster joins the anchor export with every segmented export. No
// campaign is dropped: the anchor cost is kept as exported and as parsed.
func BuildMaster(b *sources.Bundle, opts MasterOptions) *MasterResult {
	opts = opts.withDefaults()

	formats := uniqueBy(b.Segments, func(r domain.SegmentRow) (string, string) { return r.CampaignID, r.AdFormat })
	countries := uniqueBy(b.Countries, func(r domain.CountryRow) (string, string) { return r.CampaignID, r.Country })
	demoCount := countBy(b.Demographics, func(r domain.DemographicRow) string { return r.CampaignID })
	interestCount := countBy(b.Interests, func(r domain.InterestRow) string { return r.CampaignID })

	durations := make(map[string]domain.DurationRow, len(b.Durations))
	for _, d := range b.Durations {
		if _, ok := durations[d.CampaignID]; !ok {
			durations[d.CampaignID] = d
		}
	}

	peak := make(map[string]int64)
	quarters := uniqueBy(b.Reach, func(r domain.ReachRow) (string, string) { return r.CampaignID, r.Quarter })
	for _, r := range b.Reach {
		if cur, ok := peak[r.CampaignID]; !ok || r.UniqueUsers > cur {
			peak[r.CampaignID] = r.UniqueUsers
		}
	}

	res := &MasterResult{
		Campaigns:     make([]domain.Campaign, 0, len(b.Anchor)),
		ExpectedTotal: opts.ExpectedTotal,
	}
	var total dataprocessing.Total

	for _, c := range b.Anchor {
		c.YouTubeAdFormats = domain.NonYouTubeFormat
		if f, ok := formats[c.ID]; ok {
			c.YouTubeAdFormats = strings.Join(f, ", ")
			res.YouTubeCampaigns++
		}

		c.TargetCountries = domain.Unknown
		c.NumberOfCountries = 0
		if cs, ok := countries[c.ID]; ok {
			c.TargetCountries = strings.Join(cs, ", ")
			c.NumberOfCountries = len(cs)
		}

		c.DemographicsSegmentsCount = demoCount[c.ID]
		c.HasDemographics = c.DemographicsSegmentsCount > 0
		c.DemographicsLabel = availability(c.HasDemographics)
		if c.HasDemographics {
			res.WithDemographics++
		}

		c.InterestSegmentsCount = interestCount[c.ID]
		c.HasInterests = c.InterestSegmentsCount > 0
		c.InterestsLabel = availability(c.HasInterests)
		if c.HasInterests {
			res.WithInterests++
		}

		if d, ok := durations[c.ID]; ok {
			c.StartDate, c.EndDate = d.Start, d.End
		}

		c.PeakReach = peak[c.ID]
		c.ActiveQuarters = domain.Unknown
		if q, ok := quarters[c.ID]; ok {
			c.ActiveQuarters = strings.Join(q, ", ")
		}
		if c.PeakReach > 0 {
			res.WithReach++
		}

		c.Brand = standardize.SmartBrand(c.Name, c.Account)

		total.Add(c.Cost)
		res.Campaigns = append(res.Campaigns, c)
	}

	res.GrandTotal = total.Float()
	res.TotalOK = dataprocessing.WithinTolerance(res.GrandTotal, opts.ExpectedTotal, opts.Tolerance)
	res.TopBrands = TopBrands(res.Campaigns, 5)
	return res
}

func availability(ok bool) string {
	if ok {
		return domain.LabelAvailable
	}
	return domain.LabelAutomaticPMax
}

// TopBrands ranks brands by summed cost. n <= 0 returns every brand.
func TopBrands(campaigns []domain.Campaign, n int) []BrandSpend {
	byBrand := make(map[string]*BrandSpend)
	var total dataprocessing.Total
	sums := make(map[string]*dataprocessing.Total)

	for _, c := range campaigns {
		bs, ok := byBrand[c.Brand]
		if !ok {
			bs = &BrandSpend{Brand: c.Brand}
			byBrand[c.Brand] = bs
			sums[c.Brand] = &dataprocessing.Total{}
		}
		bs.Campaigns++
		sums[c.Brand].Add(c.Cost)
		total.Add(c.Cost)
	}

	out := make([]BrandSpend, 0, len(byBrand))
	grand := total.Float()
	for brand, bs := range byBrand {
		bs.Cost = sums[brand].Float()
		if grand > 0 {
			bs.Percent = bs.Cost / grand * 100
		}
		out = append(out, *bs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost > out[j].Cost
		}
		return out[i].Brand < out[j].Brand
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// uniqueBy collects the sorted distinct non-empty values per campaign ID
func uniqueBy[T any](rows []T, key func(T) (string, string)) map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, r := range rows {
		id, v := key(r)
		if v == "" {
			continue
		}
		if seen[id] == nil {
			seen[id] = make(map[string]bool)
		}
		seen[id][v] = true
	}

	out := make(map[string][]string, len(seen))
	for id, set := range seen {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[id] = vals
	}
	return out
}

func countBy[T any](rows []T, key func(T) string) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[key(r)]++
	}
	return out
}
