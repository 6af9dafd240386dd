package estimator

import (
	"time"

	"adshub/internal/dataprocessing"
	"adshub/internal/demographics"
	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// Row is one campaign of the estimator dataset with its metrics parsed
type Row struct {
	ID      string `json:"campaign_id"`
	Name    string `json:"campaign"`
	Account string `json:"account"`

	Brand            string `json:"brand"`
	AdFormat         string `json:"ad_format"`
	DateRange        string `json:"date_range"`
	BidStrategy      string `json:"bid_strategy"`
	Goal             string `json:"goal"`
	Quarter          string `json:"quarter"`
	AgeRange         string `json:"age_range"`
	Gender           string `json:"gender"`
	Target           string `json:"target"`
	StandardizedName string `json:"standardized_name"`

	Cost         float64        `json:"cost"`
	Impressions  int64          `json:"impressions"`
	CPM          float64        `json:"cpm"`
	PeakReach    int64          `json:"peak_reach"`
	AvgFrequency domain.Measure `json:"avg_frequency"`
	RollingReach bool           `json:"rolling_reach"`

	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	AvgCPC      float64 `json:"avg_cpc"`
	AvgCPM      float64 `json:"avg_cpm"`
	Views       int64   `json:"views"`
	AvgCPV      float64 `json:"avg_cpv"`
	Conversions float64 `json:"conversions"`
	ConvRate    float64 `json:"conv_rate"`
	CostPerConv float64 `json:"cost_per_conv"`
}

// BuildOptions tunes Build
type BuildOptions struct {
	// Threshold is the demographic spend share a segment needs to count.
	Threshold float64
	// YearToken is the year suffix quarters are derived from.
	YearToken string
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Threshold <= 0 {
		o.Threshold = demographics.DefaultThreshold
	}
	if o.YearToken == "" {
		o.YearToken = standardize.DefaultYearToken
	}
	return o
}

// Coverage counts the master campaigns that matched rolling reach data
type Coverage struct {
	Matched int     `json:"matched"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Dataset is the queryable campaign set behind the estimator
type Dataset struct {
	rows         []Row
	index        map[string]int
	demographics *demographics.Index

	coverage       Coverage
	unknownQuarter int
	duplicates     int
	builtAt        time.Time
}

type rollingAgg struct {
	reach    float64
	hasReach bool
	freqSum  float64
	freqN    int
}

// aggregateRolling takes the peak reach and the mean frequency of every
// campaign's windows. Missing values are skipped.
func aggregateRolling(windows []domain.RollingWindow) map[string]*rollingAgg {
	out := make(map[string]*rollingAgg)
	for _, w := range windows {
		a := out[w.CampaignID]
		if a == nil {
			a = &rollingAgg{}
			out[w.CampaignID] = a
		}
		if w.Reach.Valid && (!a.hasReach || w.Reach.Value > a.reach) {
			a.reach = w.Reach.Value
			a.hasReach = true
		}
		if w.AvgFrequency.Valid {
			a.freqSum += w.AvgFrequency.Value
			a.freqN++
		}
	}
	return out
}

func parseRow(c domain.Campaign, yearToken string) Row {
	r := Row{
		ID:          c.ID,
		Name:        c.Name,
		Account:     c.Account,
		Brand:       standardize.FixCroatiaBrand(c.Brand, c.Account),
		AdFormat:    c.AdFormat,
		DateRange:   c.DateRange,
		BidStrategy: c.BidStrategyShort,
		Goal:        c.Goal,
		Quarter:     standardize.Quarter(c.DateRange, yearToken),

		Cost:        c.Cost,
		Impressions: dataprocessing.ParseNumber(c.Impressions),
		PeakReach:   c.PeakReach,

		Clicks:      dataprocessing.ParseNumber(c.Clicks),
		CTR:         dataprocessing.ParseFloat(c.CTR),
		AvgCPC:      dataprocessing.ParseCost(c.AvgCPC),
		AvgCPM:      dataprocessing.ParseCost(c.AvgCPM),
		Views:       dataprocessing.ParseNumber(c.Views),
		AvgCPV:      dataprocessing.ParseCost(c.AvgCPV),
		Conversions: dataprocessing.ParseFloat(c.Conversions),
		ConvRate:    dataprocessing.ParseFloat(c.ConvRate),
		CostPerConv: dataprocessing.ParseCost(c.CostPerConv),
	}
	if r.Impressions > 0 {
		r.CPM = r.Cost / float64(r.Impressions) * 1000
	}
	return r
}

// Build prepares the estimator dataset from the cleaned master, the clean
// rolling windows and the age × gender export.
//
// Rolling peak reach replaces the master reach where present. Campaigns
// without a quarter are dropped after the rolling coverage is counted.
// Targets and standardized names are rebuilt from the threshold
// demographics, then duplicate campaign IDs are merged into one row.
func Build(master []domain.Campaign, windows []domain.RollingWindow, demo []domain.DemographicRow, opts BuildOptions) *Dataset {
	opts = opts.withDefaults()
	rolling := aggregateRolling(windows)
	idx := demographics.NewIndex(demo)

	d := &Dataset{demographics: idx, builtAt: time.Now()}
	rows := make([]Row, 0, len(master))
	for _, c := range master {
		r := parseRow(c, opts.YearToken)
		if a, ok := rolling[c.ID]; ok {
			if a.hasReach {
				r.PeakReach = int64(a.reach)
				r.RollingReach = true
				d.coverage.Matched++
			}
			if a.freqN > 0 {
				r.AvgFrequency = domain.Some(a.freqSum / float64(a.freqN))
			}
		}
		rows = append(rows, r)
	}
	d.coverage.Total = len(rows)
	if d.coverage.Total > 0 {
		d.coverage.Percent = float64(d.coverage.Matched) / float64(d.coverage.Total) * 100
	}

	kept := rows[:0]
	for _, r := range rows {
		if r.Quarter == domain.Unknown {
			d.unknownQuarter++
			continue
		}
		r.AgeRange, r.Gender = idx.FullRange(r.ID, opts.Threshold)
		r.Target = r.AgeRange + " | " + r.Gender
		r.StandardizedName = standardize.BuildName(r.Brand, r.AdFormat, r.Target, r.DateRange, r.BidStrategy, r.Goal)
		kept = append(kept, r)
	}

	d.rows, d.duplicates = mergeDuplicates(kept)
	d.index = make(map[string]int, len(d.rows))
	for i, r := range d.rows {
		d.index[r.ID] = i
	}
	return d
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

type group struct {
	row  Row
	freq mean

	ctr, cpc, cpmRaw, cpv mean
	convRate, costConv    mean
	cpm                   mean
}

// mergeDuplicates folds rows sharing a campaign ID. Text fields keep the
// first value, volumes are summed, reach takes the max and rates are
// averaged. Rows keep the order of their first appearance.
func mergeDuplicates(rows []Row) ([]Row, int) {
	groups := make(map[string]*group, len(rows))
	order := make([]string, 0, len(rows))
	dups := 0
	for _, r := range rows {
		g, ok := groups[r.ID]
		if !ok {
			g = &group{row: r}
			groups[r.ID] = g
			order = append(order, r.ID)
		} else {
			dups++
			g.row.Cost += r.Cost
			g.row.Impressions += r.Impressions
			g.row.Clicks += r.Clicks
			g.row.Views += r.Views
			g.row.Conversions += r.Conversions
			g.row.PeakReach = max(g.row.PeakReach, r.PeakReach)
			g.row.RollingReach = g.row.RollingReach || r.RollingReach
		}
		if r.AvgFrequency.Valid {
			g.freq.add(r.AvgFrequency.Value)
		}
		g.ctr.add(r.CTR)
		g.cpc.add(r.AvgCPC)
		g.cpmRaw.add(r.AvgCPM)
		g.cpv.add(r.AvgCPV)
		g.convRate.add(r.ConvRate)
		g.costConv.add(r.CostPerConv)
		g.cpm.add(r.CPM)
	}
	if dups == 0 {
		return rows, 0
	}

	out := make([]Row, 0, len(order))
	for _, id := range order {
		g := groups[id]
		r := g.row
		if g.freq.n > 0 {
			r.AvgFrequency = domain.Some(g.freq.value())
		}
		r.CTR = g.ctr.value()
		r.AvgCPC = g.cpc.value()
		r.AvgCPM = g.cpmRaw.value()
		r.AvgCPV = g.cpv.value()
		r.ConvRate = g.convRate.value()
		r.CostPerConv = g.costConv.value()
		r.CPM = g.cpm.value()
		out = append(out, r)
	}
	return out, dups
}

// Rows returns a copy of every campaign in the dataset
func (d *Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	copy(out, d.rows)
	return out
}

// Len returns the number of campaigns
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Coverage reports how many master campaigns carry rolling reach
func (d *Dataset) Coverage() Coverage {
	return d.coverage
}

// UnknownQuarter is the number of campaigns dropped for having no quarter
func (d *Dataset) UnknownQuarter() int {
	return d.unknownQuarter
}

// Duplicates is the number of rows merged into an earlier campaign ID
func (d *Dataset) Duplicates() int {
	return d.duplicates
}

// BuiltAt returns when the dataset was built
func (d *Dataset) BuiltAt() time.Time {
	return d.builtAt
}

// Demographics returns the demographic index the targets were inferred from
func (d *Dataset) Demographics() *demographics.Index {
	return d.demographics
}
