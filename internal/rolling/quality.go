package rolling

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/pkg/contracts/domain"
)

// Quality verdicts.
const (
	VerdictGood = "good"
	VerdictOK   = "ok"
	VerdictBad  = "bad"
)

// FrequencyStats summarizes the average frequency of a window group
type FrequencyStats struct {
	Type   string  `json:"type"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// QualityReport scores a rolling reach export against the master dataset
type QualityReport struct {
	Score   int      `json:"score"`
	Verdict string   `json:"verdict"`
	Issues  []string `json:"issues"`

	ZeroReachWithCost int `json:"zero_reach_with_cost"`
	MissingReach      int `json:"missing_reach"`
	MissingFrequency  int `json:"missing_frequency"`
	NegativeCost      int `json:"negative_cost"`
	NegativeReach     int `json:"negative_reach"`
	RollingAccounts   int `json:"rolling_accounts"`
	MasterAccounts    int `json:"master_accounts"`

	FrequencyByType  []FrequencyStats `json:"frequency_by_type"`
	VideoFrequency   FrequencyStats   `json:"video_frequency"`
	DisplayFrequency FrequencyStats   `json:"display_frequency"`

	RollingCost         float64 `json:"rolling_cost"`
	RollingImpressions  float64 `json:"rolling_impressions"`
	RollingAvgCPM       float64 `json:"rolling_avg_cpm"`
	RollingAvgReach     float64 `json:"rolling_avg_reach"`
	RollingAvgFrequency float64 `json:"rolling_avg_frequency"`
	MasterCost          float64 `json:"master_cost"`
	MasterImpressions   float64 `json:"master_impressions"`
}

// Quality scores the raw rolling windows. The score starts at 100 and drops
// for zero reach with spend, missing reach or frequency, and fewer accounts
// than the master; more accounts than the master add 10.
func Quality(windows []domain.RollingWindow, master []domain.Campaign) *QualityReport {
	q := &QualityReport{Score: 100}

	accounts := make(map[string]bool)
	for _, w := range windows {
		if w.Reach.Valid && w.Reach.Value == 0 && w.Cost.Valid && w.Cost.Value > 0 {
			q.ZeroReachWithCost++
		}
		if !w.Reach.Valid {
			q.MissingReach++
		} else if w.Reach.Value < 0 {
			q.NegativeReach++
		}
		if !w.AvgFrequency.Valid {
			q.MissingFrequency++
		}
		if w.Cost.Valid && w.Cost.Value < 0 {
			q.NegativeCost++
		}
		if w.AccountID != "" {
			accounts[w.AccountID] = true
		}
	}
	q.RollingAccounts = len(accounts)

	masterAccounts := make(map[string]bool)
	var masterCost dataprocessing.Total
	for _, c := range master {
		if c.Account != "" {
			masterAccounts[c.Account] = true
		}
		masterCost.Add(c.Cost)
		q.MasterImpressions += float64(dataprocessing.ParseNumber(c.Impressions))
	}
	q.MasterAccounts = len(masterAccounts)
	q.MasterCost = masterCost.Float()

	if q.ZeroReachWithCost > 0 {
		q.Score -= 10
		q.Issues = append(q.Issues, fmt.Sprintf("%d rows with Reach=0 but Cost>0", q.ZeroReachWithCost))
	}
	if q.MissingReach > 0 {
		q.Score -= 5
		q.Issues = append(q.Issues, fmt.Sprintf("%d rows without Reach", q.MissingReach))
	}
	if q.MissingFrequency > 0 {
		q.Score -= 5
		q.Issues = append(q.Issues, fmt.Sprintf("%d rows without Avg_Frequency", q.MissingFrequency))
	}
	switch {
	case q.RollingAccounts < q.MasterAccounts:
		q.Score -= 15
		q.Issues = append(q.Issues, fmt.Sprintf("fewer accounts than the master (%d vs %d)", q.RollingAccounts, q.MasterAccounts))
	case q.RollingAccounts > q.MasterAccounts:
		q.Score += 10
	}

	switch {
	case q.Score >= 85:
		q.Verdict = VerdictGood
	case q.Score >= 70:
		q.Verdict = VerdictOK
	default:
		q.Verdict = VerdictBad
	}

	q.FrequencyByType, q.VideoFrequency, q.DisplayFrequency = frequencyByType(windows)
	campaignTotals(q, windows)
	return q
}

func frequencyByType(windows []domain.RollingWindow) ([]FrequencyStats, FrequencyStats, FrequencyStats) {
	groups := make(map[string]*series)
	video, display := &series{}, &series{}
	for _, w := range windows {
		if groups[w.Type] == nil {
			groups[w.Type] = &series{}
		}
		groups[w.Type].add(w.AvgFrequency)
		t := strings.ToLower(w.Type)
		if strings.Contains(t, "video") {
			video.add(w.AvgFrequency)
		}
		if strings.Contains(t, "display") {
			display.add(w.AvgFrequency)
		}
	}

	out := make([]FrequencyStats, 0, len(groups))
	for typ, s := range groups {
		out = append(out, freqStats(typ, *s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, freqStats("Video", *video), freqStats("Display", *display)
}

func freqStats(typ string, s series) FrequencyStats {
	return FrequencyStats{
		Type:   typ,
		Mean:   round2(s.mean()),
		Median: round2(s.median()),
		Min:    round2(s.min()),
		Max:    round2(s.max()),
		Count:  len(s),
	}
}

// campaignTotals aggregates the windows per campaign name before averaging
// CPM, reach and frequency
func campaignTotals(q *QualityReport, windows []domain.RollingWindow) {
	type agg struct {
		cost, impr  float64
		reach, freq series
	}
	byName := make(map[string]*agg)
	for _, w := range windows {
		a := byName[w.Campaign]
		if a == nil {
			a = &agg{}
			byName[w.Campaign] = a
		}
		a.cost += w.Cost.Or(0)
		a.impr += w.Impressions.Or(0)
		a.reach.add(w.Reach)
		a.freq.add(w.AvgFrequency)
	}

	var cpm, reach, freq series
	for _, a := range byName {
		q.RollingCost += a.cost
		q.RollingImpressions += a.impr
		if a.impr > 0 {
			if v := a.cost / a.impr * 1000; !math.IsInf(v, 0) && !math.IsNaN(v) {
				cpm = append(cpm, v)
			}
		}
		if len(a.reach) > 0 {
			reach = append(reach, a.reach.max())
		}
		if len(a.freq) > 0 {
			freq = append(freq, a.freq.mean())
		}
	}
	q.RollingAvgCPM = round2(cpm.mean())
	q.RollingAvgReach = round2(reach.mean())
	q.RollingAvgFrequency = round2(freq.mean())
}
