package standardize

import (
	"sort"

	"adshub/pkg/contracts/domain"
)

var ageCodes = map[string]int{
	"18-24": 18,
	"25-34": 25,
	"35-44": 35,
	"45-54": 45,
	"55-64": 55,
	"65+":   65,
}

var ageLows = map[int]string{18: "18", 25: "25", 35: "35", 45: "45", 55: "55", 65: "65"}
var ageHighs = map[int]string{18: "24", 25: "34", 35: "44", 45: "54", 55: "64", 65: "65+"}

// AutoTarget is the target of campaigns without demographic segments.
const AutoTarget = "Auto | All"

// TargetInfo summarizes the age and gender segments of one campaign as
// "age | gender".
func TargetInfo(rows []domain.DemographicRow) string {
	if len(rows) == 0 {
		return "All | All"
	}
	return targetAge(rows) + " | " + targetGender(rows)
}

func targetAge(rows []domain.DemographicRow) string {
	seen := map[int]bool{}
	var codes []int
	for _, r := range rows {
		c, ok := ageCodes[r.Age]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	switch len(codes) {
	case 0:
		return "All"
	case 1:
		for label, c := range ageCodes {
			if c == codes[0] {
				return label
			}
		}
	}
	sort.Ints(codes)
	return ageLows[codes[0]] + "-" + ageHighs[codes[len(codes)-1]]
}

func targetGender(rows []domain.DemographicRow) string {
	set := map[string]bool{}
	for _, r := range rows {
		set[r.Gender] = true
	}
	switch {
	case len(set) == 1 && set["Male"]:
		return "M"
	case len(set) == 1 && set["Female"]:
		return "F"
	case len(set) == 2 && set["Male"] && set["Female"]:
		return "M/F"
	}
	return "All"
}
