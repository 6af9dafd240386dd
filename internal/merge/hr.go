package merge

import (
	"fmt"
	"sort"
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/pkg/contracts/domain"
)

// Strategy selects how the Croatian market is cut out of the master
type Strategy string

const (
	// StrategyCroatiaSpend keeps every campaign with Croatian spend and
	// replaces its cost with that spend.
	StrategyCroatiaSpend Strategy = "croatia-spend"
	// StrategyCroatiaOnly keeps campaigns that targeted Croatia alone.
	StrategyCroatiaOnly Strategy = "croatia-only"
)

// CroatiaCountry is the location label of the home market.
const CroatiaCountry = "Croatia"

// Defaults for the HR extraction.
const (
	DefaultWorldwideLimit   = 10
	DefaultHRExpectedTotal  = 2120976.88
	DefaultHRTotalTolerance = 1.0
)

// ParseStrategy validates a strategy name. "" selects StrategyCroatiaSpend.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyCroatiaSpend:
		return StrategyCroatiaSpend, nil
	case StrategyCroatiaOnly:
		return StrategyCroatiaOnly, nil
	}
	return "", fmt.Errorf("unknown hr strategy %q", s)
}

// HROptions configures CleanHR
type HROptions struct {
	Strategy Strategy
	// WorldwideLimit is the country count above which a McDonald's
	// campaign is treated as a worldwide targeting error.
	WorldwideLimit int
	// ExpectedTotal and Tolerance check the croatia-only result.
	ExpectedTotal float64
	Tolerance     float64
}

func (o HROptions) withDefaults() HROptions {
	if o.Strategy == "" {
		o.Strategy = StrategyCroatiaSpend
	}
	if o.WorldwideLimit == 0 {
		o.WorldwideLimit = DefaultWorldwideLimit
	}
	if o.ExpectedTotal == 0 {
		o.ExpectedTotal = DefaultHRExpectedTotal
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultHRTotalTolerance
	}
	return o
}

// MarketSplit is the country breakdown of one campaign
type MarketSplit struct {
	CampaignID      string   `json:"campaign_id"`
	Campaign        string   `json:"campaign"`
	Countries       []string `json:"countries"`
	HasCroatia      bool     `json:"has_croatia"`
	CroatiaSpend    float64  `json:"croatia_spend"`
	NonCroatiaSpend float64  `json:"non_croatia_spend"`
	TotalSpend      float64  `json:"total_spend"`
}

// HRResult is the Croatian dataset and what was removed to get there
type HRResult struct {
	Strategy  Strategy          `json:"strategy"`
	Campaigns []domain.Campaign `json:"-"`

	WorldwideErrors     []MarketSplit     `json:"worldwide_errors,omitempty"`
	WorldwideErrorSpend float64           `json:"worldwide_error_spend"`
	KauflandAnomalies   []MarketSplit     `json:"kaufland_anomalies,omitempty"`
	KauflandNonHRSpend  float64           `json:"kaufland_non_hr_spend"`
	Rejected            []domain.Campaign `json:"-"`
	RejectedSpend       float64           `json:"rejected_spend"`

	GlobalTotal   float64 `json:"global_total"`
	HRTotal       float64 `json:"hr_total"`
	ExpectedTotal float64 `json:"expected_total,omitempty"`
	TotalOK       bool    `json:"total_ok"`
}

// CleanHR restricts the master dataset to the Croatian market
func CleanHR(master []domain.Campaign, countries []domain.CountryRow, opts HROptions) (*HRResult, error) {
	opts = opts.withDefaults()

	res := &HRResult{Strategy: opts.Strategy}
	var global dataprocessing.Total
	for _, c := range master {
		global.Add(c.Cost)
	}
	res.GlobalTotal = global.Float()

	switch opts.Strategy {
	case StrategyCroatiaSpend:
		cleanByCroatiaSpend(res, master, countries, opts)
	case StrategyCroatiaOnly:
		cleanCroatiaOnly(res, master)
	default:
		return nil, fmt.Errorf("unknown hr strategy %q", opts.Strategy)
	}

	var hr dataprocessing.Total
	for _, c := range res.Campaigns {
		hr.Add(c.Cost)
	}
	res.HRTotal = hr.Float()
	if opts.Strategy == StrategyCroatiaOnly {
		res.ExpectedTotal = opts.ExpectedTotal
		res.TotalOK = dataprocessing.WithinTolerance(res.HRTotal, opts.ExpectedTotal, opts.Tolerance)
	} else {
		res.TotalOK = true
	}
	return res, nil
}

func cleanCroatiaOnly(res *HRResult, master []domain.Campaign) {
	var rejected dataprocessing.Total
	for _, c := range master {
		if c.TargetCountries == CroatiaCountry {
			res.Campaigns = append(res.Campaigns, c)
			continue
		}
		res.Rejected = append(res.Rejected, c)
		rejected.Add(c.Cost)
	}
	sort.SliceStable(res.Rejected, func(i, j int) bool { return res.Rejected[i].Cost > res.Rejected[j].Cost })
	res.RejectedSpend = rejected.Float()
}

func cleanByCroatiaSpend(res *HRResult, master []domain.Campaign, countries []domain.CountryRow, opts HROptions) {
	splits := splitMarkets(countries)

	worldwide := make(map[string]bool)
	var worldwideSpend, kauflandNonHR dataprocessing.Total
	for _, s := range splits {
		if s.mcdonalds && len(s.Countries) > opts.WorldwideLimit {
			worldwide[s.CampaignID] = true
			res.WorldwideErrors = append(res.WorldwideErrors, s.MarketSplit)
			worldwideSpend.Add(s.TotalSpend)
		}
		if s.kaufland && s.NonCroatiaSpend > 0 {
			res.KauflandAnomalies = append(res.KauflandAnomalies, s.MarketSplit)
			kauflandNonHR.Add(s.NonCroatiaSpend)
		}
	}
	res.WorldwideErrorSpend = worldwideSpend.Float()
	res.KauflandNonHRSpend = kauflandNonHR.Float()

	croatia := make(map[string]*dataprocessing.Total)
	for _, r := range countries {
		if r.Country != CroatiaCountry || worldwide[r.CampaignID] {
			continue
		}
		if croatia[r.CampaignID] == nil {
			croatia[r.CampaignID] = &dataprocessing.Total{}
		}
		croatia[r.CampaignID].Add(r.Cost)
	}

	for _, c := range master {
		spend, ok := croatia[c.ID]
		if !ok {
			continue
		}
		c.CostOriginalGlobal = c.Cost
		c.CostGlobalSet = true
		c.Cost = spend.Float()
		res.Campaigns = append(res.Campaigns, c)
	}
}

type campaignSplit struct {
	MarketSplit
	mcdonalds bool
	kaufland  bool
}

// MarketSplits groups the country export per campaign, in order of first
// appearance
func MarketSplits(rows []domain.CountryRow) []MarketSplit {
	splits := splitMarkets(rows)
	out := make([]MarketSplit, len(splits))
	for i, s := range splits {
		out[i] = s.MarketSplit
	}
	return out
}

func splitMarkets(rows []domain.CountryRow) []campaignSplit {
	index := make(map[string]int)
	var out []campaignSplit
	totals := make(map[string]*[3]dataprocessing.Total)
	countrySets := make(map[string]map[string]bool)

	for _, r := range rows {
		i, ok := index[r.CampaignID]
		if !ok {
			i = len(out)
			index[r.CampaignID] = i
			out = append(out, campaignSplit{MarketSplit: MarketSplit{CampaignID: r.CampaignID, Campaign: r.Campaign}})
			totals[r.CampaignID] = &[3]dataprocessing.Total{}
			countrySets[r.CampaignID] = make(map[string]bool)
		}
		s := &out[i]
		name, acc := strings.ToLower(r.Campaign), strings.ToLower(r.Account)
		if strings.Contains(name, "mcdonald") || strings.Contains(acc, "mcdonald") {
			s.mcdonalds = true
		}
		if strings.Contains(name, "kaufland") || strings.Contains(acc, "kaufland") {
			s.kaufland = true
		}
		if r.Country != "" {
			countrySets[r.CampaignID][r.Country] = true
		}

		t := totals[r.CampaignID]
		if r.Country == CroatiaCountry {
			t[0].Add(r.Cost)
		} else {
			t[1].Add(r.Cost)
		}
		t[2].Add(r.Cost)
	}

	for i := range out {
		s := &out[i]
		for c := range countrySets[s.CampaignID] {
			s.Countries = append(s.Countries, c)
		}
		sort.Strings(s.Countries)
		s.HasCroatia = countrySets[s.CampaignID][CroatiaCountry]
		t := totals[s.CampaignID]
		s.CroatiaSpend, s.NonCroatiaSpend, s.TotalSpend = t[0].Float(), t[1].Float(), t[2].Float()
	}
	return out
}
