package rolling

import (
	"sort"

	"adshub/pkg/contracts/domain"
)

// SaturationEntry describes the reach growth of one campaign across its
// consecutive windows
type SaturationEntry struct {
	CampaignID   string  `json:"campaign_id"`
	Campaign     string  `json:"campaign"`
	Brand        string  `json:"brand"`
	Windows      int     `json:"windows"`
	InitialReach float64 `json:"initial_reach"`
	PeakReach    float64 `json:"peak_reach"`
	FinalReach   float64 `json:"final_reach"`
	EarlyGrowth  float64 `json:"early_growth_pct"`
	LateGrowth   float64 `json:"late_growth_pct"`
	Saturated    bool    `json:"saturated"`
}

// saturation looks at the first sample campaigns, in ID order, that have
// more than one window. A campaign is saturated when its late growth falls
// below half of its early growth.
func saturation(windows []domain.RollingWindow, sample int) []SaturationEntry {
	byID := make(map[string][]domain.RollingWindow)
	for _, w := range windows {
		byID[w.CampaignID] = append(byID[w.CampaignID], w)
	}

	ids := make([]string, 0, len(byID))
	for id, ws := range byID {
		if len(ws) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	if len(ids) > sample {
		ids = ids[:sample]
	}

	var out []SaturationEntry
	for _, id := range ids {
		ws := byID[id]
		if len(ws) < 3 {
			continue
		}
		sort.SliceStable(ws, func(i, j int) bool { return startsBefore(ws[i], ws[j]) })

		var rates []float64
		var reach series
		for i, w := range ws {
			reach.add(w.Reach)
			if i == 0 {
				continue
			}
			prev := ws[i-1].Reach
			if prev.Valid && prev.Value > 0 && w.Reach.Valid {
				rates = append(rates, (w.Reach.Value-prev.Value)/prev.Value*100)
			}
		}
		if len(rates) < 2 {
			continue
		}

		half := len(rates) / 2
		early := series(rates[:half]).mean()
		late := series(rates[half:]).mean()
		out = append(out, SaturationEntry{
			CampaignID:   id,
			Campaign:     ws[0].Campaign,
			Brand:        ws[0].Brand,
			Windows:      len(ws),
			InitialReach: ws[0].Reach.Or(0),
			PeakReach:    reach.max(),
			FinalReach:   ws[len(ws)-1].Reach.Or(0),
			EarlyGrowth:  round2(early),
			LateGrowth:   round2(late),
			Saturated:    late < early*0.5,
		})
	}
	return out
}

// startsBefore orders windows by start date with unparseable dates last
func startsBefore(a, b domain.RollingWindow) bool {
	sa, sb := a.Start(), b.Start()
	switch {
	case sa.IsZero():
		return false
	case sb.IsZero():
		return true
	}
	return sa.Before(sb)
}
