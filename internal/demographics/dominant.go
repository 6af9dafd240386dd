package demographics

import (
	"sort"

	"adshub/pkg/contracts/domain"
)

type segment struct{ age, gender string }

// Dominant returns the top age × gender segment of a campaign. Campaigns
// where no segment holds half of the spend are summarized instead.
func Dominant(rows []domain.DemographicRow) (age, gender string) {
	if len(rows) == 0 {
		return unknown, unknown
	}

	spend := map[segment]float64{}
	var order []segment
	for _, r := range rows {
		k := segment{r.Age, r.Gender}
		if _, ok := spend[k]; !ok {
			order = append(order, k)
		}
		spend[k] += r.Cost
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].age != order[j].age {
			return order[i].age < order[j].age
		}
		return order[i].gender < order[j].gender
	})

	var total float64
	top := order[0]
	for _, k := range order {
		total += spend[k]
		if spend[k] > spend[top] {
			top = k
		}
	}
	if total == 0 {
		return unknown, unknown
	}

	if spend[top]/total >= 0.5 {
		if g, ok := genderNames[top.gender]; ok {
			return top.age, g
		}
		return top.age, top.gender
	}

	ages := distinct(order, func(s segment) string { return s.age })
	sort.Strings(ages)
	genders := distinct(order, func(s segment) string { return s.gender })

	switch {
	case len(ages) > 3:
		age = "Multi-Age"
	case len(ages) > 1:
		age = ages[0] + "-" + ages[len(ages)-1]
	default:
		age = ages[0]
	}
	gender = genders[0]
	if len(genders) > 1 {
		gender = "All"
	}
	return age, gender
}

func distinct(segs []segment, key func(segment) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range segs {
		k := key(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Index groups demographic rows by campaign ID
type Index struct {
	byCampaign map[string][]domain.DemographicRow
}

// NewIndex builds an index over the age × gender export
func NewIndex(rows []domain.DemographicRow) *Index {
	idx := &Index{byCampaign: make(map[string][]domain.DemographicRow)}
	for _, r := range rows {
		idx.byCampaign[r.CampaignID] = append(idx.byCampaign[r.CampaignID], r)
	}
	return idx
}

// Rows returns the rows of one campaign
func (i *Index) Rows(id string) []domain.DemographicRow {
	if i == nil {
		return nil
	}
	return i.byCampaign[id]
}

// Len returns the number of campaigns with demographic rows
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byCampaign)
}

// IDs returns the indexed campaign IDs in ascending order
func (i *Index) IDs() []string {
	if i == nil {
		return nil
	}
	ids := make([]string, 0, len(i.byCampaign))
	for id := range i.byCampaign {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FullRange applies FullRange to one campaign
func (i *Index) FullRange(id string, threshold float64) (string, string) {
	return FullRange(i.Rows(id), threshold)
}

// Noise returns the raw age spend of the given campaigns with no threshold
// applied. Only segments with positive spend are kept, largest first.
func (i *Index) Noise(ids []string) []Share {
	var rows []domain.DemographicRow
	for _, id := range ids {
		rows = append(rows, i.Rows(id)...)
	}
	return Noise(rows)
}

// Noise is the threshold-free age breakdown of rows
func Noise(rows []domain.DemographicRow) []Share {
	shares := spendBy(rows, func(r domain.DemographicRow) string { return r.Age })
	var total float64
	var out []Share
	for _, s := range shares {
		if s.Cost > 0 {
			total += s.Cost
			out = append(out, s)
		}
	}
	for k := range out {
		out[k].Percent = out[k].Cost / total * 100
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Cost > out[b].Cost })
	return out
}
