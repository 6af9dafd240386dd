package estimator

import (
	"math"
	"sort"

	"adshub/internal/dataprocessing"
	"adshub/internal/demographics"
)

// Summary aggregates a selection of campaigns
type Summary struct {
	Count       int     `json:"count"`
	Total       int     `json:"total"`
	CoveragePct float64 `json:"coverage_pct"`

	Cost         float64 `json:"cost"`
	Impressions  int64   `json:"impressions"`
	WeightedCPM  float64 `json:"weighted_cpm"`
	PeakReach    int64   `json:"peak_reach"`
	AvgFrequency float64 `json:"avg_frequency"`

	Ages      []demographics.Share `json:"ages"`
	Genders   []demographics.Share `json:"genders"`
	Noise     []demographics.Share `json:"noise"`
	Targeting Targeting            `json:"targeting"`
	Rolling   Coverage             `json:"rolling"`
}

// WeightedCPM is total cost per thousand total impressions
func WeightedCPM(rows []Row) float64 {
	var cost dataprocessing.Total
	var impr int64
	for _, r := range rows {
		cost.Add(r.Cost)
		impr += r.Impressions
	}
	if impr == 0 {
		return 0
	}
	return cost.Float() / float64(impr) * 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// distribution sums cost per label, largest first, with percentages of the
// selection total rounded to two decimals
func distribution(rows []Row, label func(Row) string) []demographics.Share {
	sums := make(map[string]*dataprocessing.Total)
	var total dataprocessing.Total
	for _, r := range rows {
		t := sums[label(r)]
		if t == nil {
			t = &dataprocessing.Total{}
			sums[label(r)] = t
		}
		t.Add(r.Cost)
		total.Add(r.Cost)
	}
	out := make([]demographics.Share, 0, len(sums))
	for l, t := range sums {
		s := demographics.Share{Label: l, Cost: t.Float()}
		if total.Float() > 0 {
			s.Percent = round2(s.Cost / total.Float() * 100)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost > out[j].Cost
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Summarize computes the totals, distributions and targeting level of rows
func (d *Dataset) Summarize(rows []Row) Summary {
	s := Summary{
		Count:   len(rows),
		Total:   len(d.rows),
		Rolling: d.coverage,
	}
	if s.Total > 0 {
		s.CoveragePct = float64(s.Count) / float64(s.Total) * 100
	}

	var cost dataprocessing.Total
	var freq mean
	names := make([]string, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		cost.Add(r.Cost)
		s.Impressions += r.Impressions
		s.PeakReach = max(s.PeakReach, r.PeakReach)
		if r.AvgFrequency.Valid {
			freq.add(r.AvgFrequency.Value)
		}
		names = append(names, r.Name)
		ids = append(ids, r.ID)
	}
	s.Cost = cost.Float()
	s.WeightedCPM = WeightedCPM(rows)
	s.AvgFrequency = freq.value()

	s.Ages = distribution(rows, func(r Row) string { return r.AgeRange })
	s.Genders = distribution(rows, func(r Row) string { return r.Gender })
	s.Targeting = TargetingLevel(names)
	s.Noise = d.demographics.Noise(ids)
	for i := range s.Noise {
		s.Noise[i].Percent = round2(s.Noise[i].Percent)
	}
	return s
}
