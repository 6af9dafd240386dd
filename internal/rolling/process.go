// Package rolling cleans the 90 day rolling reach export and measures how
// it compares with the master dataset.
package rolling

import (
	"sort"

	"adshub/pkg/contracts/domain"
)

// Defaults for Process.
const (
	DefaultExcludedYear     = 2026
	DefaultSaturationSample = 50
	HighFrequency           = 20
)

// Options configures Process
type Options struct {
	// ExcludedYear drops windows ending in that year.
	ExcludedYear int
	// SaturationSample is the number of multi-window campaigns analysed.
	SaturationSample int
}

func (o Options) withDefaults() Options {
	if o.ExcludedYear == 0 {
		o.ExcludedYear = DefaultExcludedYear
	}
	if o.SaturationSample == 0 {
		o.SaturationSample = DefaultSaturationSample
	}
	return o
}

// GroupStats summarizes the windows of one brand and format, or of one
// format when Brand is empty
type GroupStats struct {
	Brand           string  `json:"brand,omitempty"`
	Type            string  `json:"type"`
	ReachMean       float64 `json:"reach_mean"`
	ReachMedian     float64 `json:"reach_median"`
	ReachMin        float64 `json:"reach_min"`
	ReachMax        float64 `json:"reach_max"`
	ReachCount      int     `json:"reach_count"`
	FrequencyMean   float64 `json:"frequency_mean"`
	FrequencyMedian float64 `json:"frequency_median"`
	Cost            float64 `json:"cost"`
	Impressions     float64 `json:"impressions"`
	Campaigns       int     `json:"campaigns"`
}

// Comparison sets the rolling peak reach of a campaign against the
// quarterly peak in the master
type Comparison struct {
	CampaignID   string         `json:"campaign_id"`
	Campaign     string         `json:"campaign"`
	Brand        string         `json:"brand"`
	Type         string         `json:"type"`
	RollingReach domain.Measure `json:"rolling_reach"`
	AvgFrequency domain.Measure `json:"avg_frequency"`
	Cost         float64        `json:"cost"`
	Impressions  float64        `json:"impressions"`
	MasterReach  domain.Measure `json:"master_reach"`
	ReachDiffPct domain.Measure `json:"reach_diff_pct"`
}

// Anomalies counts suspicious rows of the cleaned windows
type Anomalies struct {
	ZeroReach     int `json:"zero_reach"`
	HighFrequency int `json:"high_frequency"`
	NegativeCost  int `json:"negative_cost"`
}

// Any reports whether any anomaly was found
func (a Anomalies) Any() bool {
	return a.ZeroReach+a.HighFrequency+a.NegativeCost > 0
}

// Result is the cleaned rolling dataset and its analysis
type Result struct {
	Windows []domain.RollingWindow `json:"-"`

	Input             int      `json:"input"`
	ExcludedYear      int      `json:"excluded_year_rows"`
	Duplicates        int      `json:"duplicates"`
	AfterSanitize     int      `json:"after_sanitize"`
	Mapped            int      `json:"mapped"`
	Unmapped          int      `json:"unmapped"`
	UnmappedCampaigns []string `json:"unmapped_campaigns,omitempty"`

	BrandFormat []GroupStats      `json:"brand_format"`
	Formats     []GroupStats      `json:"formats"`
	Saturation  []SaturationEntry `json:"saturation"`
	Saturated   int               `json:"saturated"`
	Comparison  []Comparison      `json:"comparison"`

	Anomalies    Anomalies    `json:"anomalies"`
	BrandCounts  []LabelCount `json:"brand_counts"`
	FormatCounts []LabelCount `json:"format_counts"`
}

// Process sanitizes the rolling windows, maps them onto the master labels
// and analyses reach growth. The input slice is not modified.
func Process(windows []domain.RollingWindow, master []domain.Campaign, opts Options) *Result {
	opts = opts.withDefaults()
	res := &Result{Input: len(windows)}

	clean := sanitize(windows, opts.ExcludedYear, res)
	res.AfterSanitize = len(clean)

	byID := make(map[string]domain.Campaign, len(master))
	for _, c := range master {
		byID[c.ID] = c
	}

	unmapped := make(map[string]bool)
	for i := range clean {
		w := &clean[i]
		w.TypeOriginal = w.Type
		c, ok := byID[w.CampaignID]
		if !ok {
			w.Type, w.Brand, w.Target, w.BidStrategy = "", "", "", ""
			res.Unmapped++
			if !unmapped[w.CampaignID] {
				unmapped[w.CampaignID] = true
				res.UnmappedCampaigns = append(res.UnmappedCampaigns, w.CampaignID)
			}
			continue
		}
		w.Type = c.AdFormat
		w.Brand = c.Brand
		w.Target = c.Target
		w.BidStrategy = c.BidStrategyShort
		res.Mapped++
	}

	res.BrandFormat = brandFormatStats(clean)
	res.Formats = formatStats(clean)
	res.Saturation = saturation(clean, opts.SaturationSample)
	for _, s := range res.Saturation {
		if s.Saturated {
			res.Saturated++
		}
	}
	res.Comparison = compare(clean, byID)

	for _, w := range clean {
		if w.Type == "" || w.Brand == "" {
			continue
		}
		res.Windows = append(res.Windows, w)
	}
	res.Anomalies = anomalies(res.Windows)
	res.BrandCounts = countLabels(res.Windows, func(w domain.RollingWindow) string { return w.Brand })
	res.FormatCounts = countLabels(res.Windows, func(w domain.RollingWindow) string { return w.Type })
	return res
}

type windowKey struct{ id, start string }

func sanitize(windows []domain.RollingWindow, excludedYear int, res *Result) []domain.RollingWindow {
	seen := make(map[windowKey]bool, len(windows))
	out := make([]domain.RollingWindow, 0, len(windows))
	for _, w := range windows {
		if end := w.End(); !end.IsZero() && end.Year() == excludedYear {
			res.ExcludedYear++
			continue
		}
		k := windowKey{w.CampaignID, w.WindowStart}
		if seen[k] {
			res.Duplicates++
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

type groupAcc struct {
	reach, freq, cost, impr series
	campaigns             map[string]bool
}

func newGroupAcc() *groupAcc {
	return &groupAcc{campaigns: make(map[string]bool)}
}

func (g *groupAcc) add(w domain.RollingWindow) {
	g.reach.add(w.Reach)
	g.freq.add(w.AvgFrequency)
	g.cost.add(w.Cost)
	g.impr.add(w.Impressions)
	g.campaigns[w.CampaignID] = true
}

func (g *groupAcc) stats(brand, typ string) GroupStats {
	return GroupStats{
		Brand:           brand,
		Type:            typ,
		ReachMean:       round2(g.reach.mean()),
		ReachMedian:     round2(g.reach.median()),
		ReachMin:        round2(g.reach.min()),
		ReachMax:        round2(g.reach.max()),
		ReachCount:      len(g.reach),
		FrequencyMean:   round2(g.freq.mean()),
		FrequencyMedian: round2(g.freq.median()),
		Cost:            round2(g.cost.sum()),
		Impressions:     round2(g.impr.sum()),
		Campaigns:       len(g.campaigns),
	}
}

func brandFormatStats(windows []domain.RollingWindow) []GroupStats {
	type key struct{ brand, typ string }
	groups := make(map[key]*groupAcc)
	for _, w := range windows {
		if w.Brand == "" || w.Type == "" {
			continue
		}
		k := key{w.Brand, w.Type}
		if groups[k] == nil {
			groups[k] = newGroupAcc()
		}
		groups[k].add(w)
	}

	out := make([]GroupStats, 0, len(groups))
	for k, g := range groups {
		out = append(out, g.stats(k.brand, k.typ))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Brand != out[j].Brand {
			return out[i].Brand < out[j].Brand
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func formatStats(windows []domain.RollingWindow) []GroupStats {
	groups := make(map[string]*groupAcc)
	for _, w := range windows {
		if w.Type == "" {
			continue
		}
		if groups[w.Type] == nil {
			groups[w.Type] = newGroupAcc()
		}
		groups[w.Type].add(w)
	}

	out := make([]GroupStats, 0, len(groups))
	for typ, g := range groups {
		out = append(out, g.stats("", typ))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func compare(windows []domain.RollingWindow, master map[string]domain.Campaign) []Comparison {
	index := make(map[string]int)
	var out []Comparison
	freqs := make(map[string]*series)
	reaches := make(map[string]*series)

	for _, w := range windows {
		i, ok := index[w.CampaignID]
		if !ok {
			i = len(out)
			index[w.CampaignID] = i
			out = append(out, Comparison{CampaignID: w.CampaignID, Campaign: w.Campaign, Brand: w.Brand, Type: w.Type})
			freqs[w.CampaignID] = &series{}
			reaches[w.CampaignID] = &series{}
		}
		c := &out[i]
		c.Cost += w.Cost.Or(0)
		c.Impressions += w.Impressions.Or(0)
		freqs[w.CampaignID].add(w.AvgFrequency)
		reaches[w.CampaignID].add(w.Reach)
	}

	for i := range out {
		c := &out[i]
		if r := *reaches[c.CampaignID]; len(r) > 0 {
			c.RollingReach = domain.Some(r.max())
		}
		if f := *freqs[c.CampaignID]; len(f) > 0 {
			c.AvgFrequency = domain.Some(f.mean())
		}
		if m, ok := master[c.CampaignID]; ok {
			c.MasterReach = domain.Some(float64(m.PeakReach))
			if m.PeakReach > 0 && c.RollingReach.Valid {
				diff := (c.RollingReach.Value - float64(m.PeakReach)) / float64(m.PeakReach) * 100
				c.ReachDiffPct = domain.Some(round2(diff))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return lessID(out[i].CampaignID, out[j].CampaignID) })
	return out
}

func anomalies(windows []domain.RollingWindow) Anomalies {
	var a Anomalies
	for _, w := range windows {
		if w.Reach.Valid && w.Reach.Value == 0 {
			a.ZeroReach++
		}
		if w.AvgFrequency.Valid && w.AvgFrequency.Value > HighFrequency {
			a.HighFrequency++
		}
		if w.Cost.Valid && w.Cost.Value < 0 {
			a.NegativeCost++
		}
	}
	return a
}
