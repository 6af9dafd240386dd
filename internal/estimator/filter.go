package estimator

import (
	"math"
	"sort"
	"strings"

	"adshub/pkg/contracts/domain"
)

// BudgetBand is the relative width of the target budget window.
const BudgetBand = 0.10

// Bounds is an inclusive cost range
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the bounds
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// CostBounds returns the lowest and highest campaign cost
func (d *Dataset) CostBounds() Bounds {
	if len(d.rows) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, r := range d.rows {
		b.Min = min(b.Min, r.Cost)
		b.Max = max(b.Max, r.Cost)
	}
	return b
}

// Budget resolves the cost range a filter selects. A target budget wins
// over the explicit range; unset ends fall back to the data bounds.
func (d *Dataset) Budget(f domain.EstimatorFilter) Bounds {
	if f.TargetBudget > 0 {
		return Bounds{Min: f.TargetBudget * (1 - BudgetBand), Max: f.TargetBudget * (1 + BudgetBand)}
	}
	b := d.CostBounds()
	if f.MinBudget > 0 {
		b.Min = f.MinBudget
	}
	if f.MaxBudget > 0 {
		b.Max = f.MaxBudget
	}
	return b
}

// set is a selection where no values or the AllBrands entry select everything
type set map[string]bool

func newSet(values []string) set {
	if len(values) == 0 {
		return nil
	}
	s := make(set, len(values))
	for _, v := range values {
		if v == domain.AllBrands {
			return nil
		}
		s[v] = true
	}
	return s
}

func (s set) allows(v string) bool {
	return s == nil || s[v]
}

// Apply returns the campaigns matching the filter in dataset order. The
// search runs first against the original campaign names.
func (d *Dataset) Apply(f domain.EstimatorFilter) []Row {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	budget := d.Budget(f)
	brands := newSet(f.Brands)
	formats := newSet(f.Formats)
	ages := newSet(f.Ages)
	genders := newSet(f.Genders)
	bids := newSet(f.Bids)
	quarters := newSet(f.Quarters)

	out := make([]Row, 0, len(d.rows))
	for _, r := range d.rows {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		if !brands.allows(r.Brand) {
			continue
		}
		if !budget.Contains(r.Cost) {
			continue
		}
		if !formats.allows(r.AdFormat) || !ages.allows(r.AgeRange) || !genders.allows(r.Gender) ||
			!bids.allows(r.BidStrategy) || !quarters.allows(r.Quarter) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterOptions lists the values each filter accepts
type FilterOptions struct {
	Brands   []string `json:"brands"`
	Formats  []string `json:"formats"`
	Ages     []string `json:"ages"`
	Genders  []string `json:"genders"`
	Bids     []string `json:"bids"`
	Quarters []string `json:"quarters"`
	Metrics  []string `json:"metrics"`
	Budget   Bounds   `json:"budget"`
}

func distinct(rows []Row, value func(Row) string, skip ...string) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		seen[value(r)] = true
	}
	delete(seen, "")
	for _, s := range skip {
		delete(seen, s)
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Options returns the filter values present in the dataset. Brands lead with
// the all brands entry; ages and genders leave out Unknown.
func (d *Dataset) Options() FilterOptions {
	return FilterOptions{
		Brands:   append([]string{domain.AllBrands}, distinct(d.rows, func(r Row) string { return r.Brand })...),
		Formats:  distinct(d.rows, func(r Row) string { return r.AdFormat }),
		Ages:     distinct(d.rows, func(r Row) string { return r.AgeRange }, domain.Unknown),
		Genders:  distinct(d.rows, func(r Row) string { return r.Gender }, domain.Unknown),
		Bids:     distinct(d.rows, func(r Row) string { return r.BidStrategy }),
		Quarters: distinct(d.rows, func(r Row) string { return r.Quarter }),
		Metrics:  OptionalMetrics(),
		Budget:   d.CostBounds(),
	}
}

// Detail is the card of a single campaign
type Detail struct {
	ID               string  `json:"campaign_id"`
	Name             string  `json:"campaign"`
	Account          string  `json:"account"`
	Brand            string  `json:"brand"`
	AdFormat         string  `json:"ad_format"`
	Target           string  `json:"target"`
	StandardizedName string  `json:"standardized_name"`
	Quarter          string  `json:"quarter"`
	Cost             float64 `json:"cost"`
	Impressions      int64   `json:"impressions"`
	CPM              float64 `json:"cpm"`
	PeakReach        int64   `json:"peak_reach"`
	RollingReach     bool    `json:"rolling_reach"`
}

// Detail looks up one campaign by ID
func (d *Dataset) Detail(id string) (Detail, bool) {
	i, ok := d.index[id]
	if !ok {
		return Detail{}, false
	}
	r := d.rows[i]
	return Detail{
		ID:               r.ID,
		Name:             r.Name,
		Account:          r.Account,
		Brand:            r.Brand,
		AdFormat:         r.AdFormat,
		Target:           r.Target,
		StandardizedName: r.StandardizedName,
		Quarter:          r.Quarter,
		Cost:             r.Cost,
		Impressions:      r.Impressions,
		CPM:              r.CPM,
		PeakReach:        r.PeakReach,
		RollingReach:     r.RollingReach,
	}, true
}

// Targeting levels.
const (
	LevelLocal    = "LOCAL"
	LevelNational = "NATIONAL"
)

// LocalShare is the share of city campaigns above which a selection counts
// as local.
const LocalShare = 80.0

// CityKeywords mark campaigns targeting a single city.
var CityKeywords = []string{"McDelivery", "Zagreb", "Split", "Rijeka", "Osijek", "Zadar", "Pula"}

// Targeting is the geographic level of a campaign selection
type Targeting struct {
	Level        string  `json:"level"`
	Label        string  `json:"label"`
	LocalPercent float64 `json:"local_percent"`
}

func isLocal(name string) bool {
	name = strings.ToLower(name)
	for _, k := range CityKeywords {
		if strings.Contains(name, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// TargetingLevel is LOCAL only when more than 80% of the campaign names
// carry a city keyword
func TargetingLevel(names []string) Targeting {
	if len(names) == 0 {
		return Targeting{Level: LevelNational, Label: "Croatia"}
	}
	local := 0
	for _, n := range names {
		if isLocal(n) {
			local++
		}
	}
	pct := float64(local) / float64(len(names)) * 100
	if pct > LocalShare {
		return Targeting{Level: LevelLocal, Label: "City Level", LocalPercent: pct}
	}
	return Targeting{Level: LevelNational, Label: "Croatia", LocalPercent: pct}
}
