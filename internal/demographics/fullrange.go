package demographics

import (
	"sort"
	"strings"

	"adshub/pkg/contracts/domain"
)

// DefaultThreshold is the minimum spend share of a significant segment.
const DefaultThreshold = 0.10

// unknownSpend is the spend at which " + UNK" is appended to the age.
const unknownSpend = 0.01

const unknown = "Unknown"

var genderNames = map[string]string{
	"F":      "Female",
	"M":      "Male",
	"Female": "Female",
	"Male":   "Male",
}

func invalidLabel(s string) bool {
	switch strings.TrimSpace(s) {
	case "Unknown", "nan", "", "N/A":
		return true
	}
	return false
}

func unknownAge(s string) bool {
	return invalidLabel(s) || strings.TrimSpace(s) == "Undetermined"
}

// Share is the spend of one segment label
type Share struct {
	Label   string  `json:"label"`
	Cost    float64 `json:"cost"`
	Percent float64 `json:"percent"`
}

// spendBy sums cost per label. Labels come back in ascending order so ties
// resolve the same way on every run.
func spendBy(rows []domain.DemographicRow, label func(domain.DemographicRow) string) []Share {
	sums := map[string]float64{}
	for _, r := range rows {
		sums[strings.TrimSpace(label(r))] += r.Cost
	}
	out := make([]Share, 0, len(sums))
	for l, c := range sums {
		out = append(out, Share{Label: l, Cost: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func totalCost(rows []domain.DemographicRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.Cost
	}
	return total
}

// significant returns the valid labels at or above threshold, by share
// descending, falling back to the single largest valid label.
func significant(shares []Share, total, threshold float64) []Share {
	var passed []Share
	var dominant *Share
	for i := range shares {
		s := shares[i]
		if invalidLabel(s.Label) {
			continue
		}
		s.Percent = s.Cost / total
		if dominant == nil || s.Cost > dominant.Cost {
			d := s
			dominant = &d
		}
		if s.Percent >= threshold {
			passed = append(passed, s)
		}
	}
	if len(passed) == 0 && dominant != nil {
		passed = []Share{*dominant}
	}
	sort.SliceStable(passed, func(i, j int) bool { return passed[i].Percent > passed[j].Percent })
	return passed
}

// FullRange returns the age range and gender of one campaign's demographic
// rows, ignoring segments below threshold.
func FullRange(rows []domain.DemographicRow, threshold float64) (ageRange, gender string) {
	if len(rows) == 0 {
		return unknown, unknown
	}
	total := totalCost(rows)
	if total == 0 {
		return unknown, unknown
	}

	ageShares := spendBy(rows, func(r domain.DemographicRow) string { return r.Age })
	ages := significant(ageShares, total, threshold)
	if len(ages) == 0 {
		return unknown, unknown
	}

	ageRange = ages[0].Label
	if len(ages) > 1 {
		labels := make([]string, len(ages))
		for i, a := range ages {
			labels[i] = a.Label
		}
		if combined, ok := combineAges(labels); ok {
			ageRange = combined
		}
	}

	genders := significant(spendBy(rows, func(r domain.DemographicRow) string { return r.Gender }), total, threshold)
	if len(genders) == 0 {
		return ageRange, unknown
	}
	if len(genders) > 1 {
		gender = "All"
	} else if g, ok := genderNames[genders[0].Label]; ok {
		gender = g
	} else {
		gender = genders[0].Label
	}

	var unknownCost float64
	for _, s := range ageShares {
		if unknownAge(s.Label) {
			unknownCost += s.Cost
		}
	}
	if unknownCost >= unknownSpend {
		ageRange += " + UNK"
	}
	return ageRange, gender
}
