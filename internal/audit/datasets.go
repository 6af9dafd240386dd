package audit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/internal/demographics"
	"adshub/internal/rolling"
	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// Side output files.
const (
	OtherFormatsFile   = "other_formats_audit_list.csv"
	MissingRollingFile = "MISSING_ROLLING_CAMPAIGNS_DETAILED.csv"
)

// MinSampleSegments is the segment count a campaign needs to be sampled by
// the demographics audit.
const MinSampleSegments = 5

// sampleSeed makes the sampled campaign stable between runs
const sampleSeed = 42

// Critical share of the missing rolling spend.
const (
	CriticalShareHigh   = 20.0
	CriticalShareMedium = 5.0
)

func requireMaster(r *Report, in *Input) bool {
	if len(in.Master) == 0 {
		r.issue("master dataset is not available, run the pipeline first")
		return false
	}
	return true
}

func demographicsAudit(in *Input) *Report {
	r := newReport("demographics", "")
	if !requireMaster(r, in) {
		return r
	}
	demo := in.Bundle.Demographics
	idx := demographics.NewIndex(demo)

	mainIDs := idSet(in.Master, func(c domain.Campaign) string { return c.ID })
	demoIDs := idSet(demo, func(d domain.DemographicRow) string { return d.CampaignID })
	both, onlyMain, onlyDemo := 0, 0, 0
	for id := range mainIDs {
		if demoIDs[id] {
			both++
		} else {
			onlyMain++
		}
	}
	for id := range demoIDs {
		if !mainIDs[id] {
			onlyDemo++
		}
	}

	var mainCost, demoCost dataprocessing.Total
	for _, c := range in.Master {
		if demoIDs[c.ID] {
			mainCost.Add(c.Cost)
		}
	}
	for _, d := range demo {
		if mainIDs[d.CampaignID] {
			demoCost.Add(d.Cost)
		}
	}
	diff := math.Abs(mainCost.Float() - demoCost.Float())
	r.figure("overlap", float64(both))
	r.figure("overlap_cost_difference", diff)

	s := r.section("Total spend check")
	s.linef("Campaigns in the master: %d", len(mainIDs))
	s.linef("Campaigns in the demographics export: %d", len(demoIDs))
	s.linef("In both: %d, only in the master: %d, only in demographics: %d", both, onlyMain, onlyDemo)
	s.linef("Overlap spend, master: %s, demographics: %s", eur(mainCost.Float()), eur(demoCost.Float()))
	if diff < 1.0 {
		s.linef("Spend totals match within EUR 1.00")
	} else {
		s.linef("Difference %s (%s), expected when the exports were taken separately", eur(diff), pctText(diff, mainCost.Float()))
	}

	duplicates := len(in.Master) - len(mainIDs)
	r.figure("duplicates", float64(duplicates))
	s = r.section("Uniqueness check")
	s.linef("Rows: %d, unique campaign IDs: %d, duplicates: %d", len(in.Master), len(mainIDs), duplicates)
	if duplicates > 0 {
		r.issue("%d duplicate campaign IDs in the master", duplicates)
	}

	var candidates []string
	for _, id := range idx.IDs() {
		if len(idx.Rows(id)) >= MinSampleSegments && mainIDs[id] {
			candidates = append(candidates, id)
		}
	}
	byID := make(map[string]domain.Campaign, len(in.Master))
	for _, c := range in.Master {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}

	s = r.section("Recalculation test")
	if len(candidates) == 0 {
		s.linef("No campaign with %d or more segments in the master", MinSampleSegments)
		return r
	}
	rng := rand.New(rand.NewPCG(sampleSeed, sampleSeed))
	id := candidates[rng.IntN(len(candidates))]
	c := byID[id]
	rows := idx.Rows(id)
	var segCost dataprocessing.Total
	for _, d := range rows {
		segCost.Add(d.Cost)
	}
	age, gender := demographics.FullRange(rows, in.DemographicsThreshold)
	s.linef("Campaign %s: %s", id, clip(c.Name, 80))
	s.linef("Brand: %s, format: %s", c.Brand, c.AdFormat)
	s.linef("Segments: %d, segment spend: %s, master spend: %s", len(rows), eur(segCost.Float()), eur(c.Cost))
	s.linef("Full range: %s | %s", age, gender)
	r.figure("sample_segments", float64(len(rows)))

	checked := head(candidates, 20)
	for _, cid := range checked {
		lo, hi := ageBounds(idx.Rows(cid))
		if lo == 0 || lo > 24 || hi < 54 {
			continue
		}
		age, _ := demographics.FullRange(idx.Rows(cid), in.DemographicsThreshold)
		s := r.section("Range logic test")
		s.linef("Campaign %s: %s", cid, clip(byID[cid].Name, 80))
		s.linef("Ages %d to %d across %d segments, full range: %s", lo, hi, len(idx.Rows(cid)), age)
		break
	}

	for _, cid := range checked {
		genders := spendByGender(idx.Rows(cid))
		if genders["Male"] == nil || genders["Female"] == nil {
			continue
		}
		_, gender := demographics.FullRange(idx.Rows(cid), in.DemographicsThreshold)
		s := r.section("Gender logic test")
		s.linef("Campaign %s: %s", cid, clip(byID[cid].Name, 80))
		g := s.grid("Gender", "Spend")
		for _, sp := range ranked(genders) {
			g.add(sp.label, eur(sp.cost))
		}
		s.linef("Full range gender: %s", gender)
		break
	}
	return r
}

func ageBounds(rows []domain.DemographicRow) (lo, hi int) {
	for _, d := range rows {
		a, b := demographics.ParseAgeRange(d.Age)
		if a <= 0 {
			continue
		}
		if lo == 0 || a < lo {
			lo = a
		}
		if b > hi {
			hi = b
		}
	}
	return lo, hi
}

func spendByGender(rows []domain.DemographicRow) map[string]*spend {
	out := make(map[string]*spend)
	for _, d := range rows {
		g := strings.TrimSpace(d.Gender)
		switch g {
		case "M":
			g = "Male"
		case "F":
			g = "Female"
		}
		accumulate(out, g, d.Cost)
	}
	return out
}

func otherFormatsAudit(in *Input) *Report {
	r := newReport("other-formats", "")
	if !requireMaster(r, in) {
		return r
	}

	exp := Export{
		File:      OtherFormatsFile,
		Delimiter: ';',
		Header:    []string{domain.ColBrand, domain.ColStandardizedName, domain.ColCampaign, domain.ColAccount},
	}
	for _, c := range in.Master {
		if c.AdFormat == standardize.FormatOther {
			exp.Rows = append(exp.Rows, []string{c.Brand, c.StandardizedName, c.Name, c.Account})
		}
	}
	r.Exports = append(r.Exports, exp)
	r.figure("other_campaigns", float64(len(exp.Rows)))

	s := r.section("Campaigns with format Other")
	s.linef("Campaigns: %d of %d", len(exp.Rows), len(in.Master))
	s.linef("Exported to %s", OtherFormatsFile)
	if len(exp.Rows) > 0 {
		g := s.grid(exp.Header...)
		for _, row := range head(exp.Rows, 20) {
			g.add(row...)
		}
	}
	return r
}

type missingGroup struct {
	spend
	formats map[string]int
}

func (m *missingGroup) breakdown() string {
	type fc struct {
		f string
		n int
	}
	list := make([]fc, 0, len(m.formats))
	for f, n := range m.formats {
		list = append(list, fc{f, n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].n != list[j].n {
			return list[i].n > list[j].n
		}
		return list[i].f < list[j].f
	})
	parts := make([]string, len(list))
	for i, x := range list {
		parts[i] = fmt.Sprintf("%s: %d", x.f, x.n)
	}
	return strings.Join(parts, ", ")
}

func groupMissing(campaigns []domain.Campaign, key func(domain.Campaign) string) []*missingGroup {
	byKey := make(map[string]*missingGroup)
	for _, c := range campaigns {
		k := key(c)
		g := byKey[k]
		if g == nil {
			g = &missingGroup{spend: spend{label: k}, formats: make(map[string]int)}
			byKey[k] = g
		}
		g.cost += c.Cost
		g.n++
		g.formats[c.AdFormat]++
	}
	out := make([]*missingGroup, 0, len(byKey))
	for _, g := range byKey {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].label < out[j].label
	})
	return out
}

func missingRollingAudit(in *Input) *Report {
	r := newReport("missing-rolling", "")
	if !requireMaster(r, in) {
		return r
	}
	windows := in.Rolling
	if len(windows) == 0 {
		windows = in.Bundle.Rolling
	}
	rollingIDs := idSet(windows, func(w domain.RollingWindow) string { return w.CampaignID })

	var missing []domain.Campaign
	var missingCost, allCost dataprocessing.Total
	for _, c := range in.Master {
		allCost.Add(c.Cost)
		if !rollingIDs[c.ID] {
			missing = append(missing, c)
			missingCost.Add(c.Cost)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool { return missing[i].Cost > missing[j].Cost })

	s := r.section("Coverage")
	s.linef("Master campaigns: %d, unique rolling campaigns: %d", len(in.Master), len(rollingIDs))
	s.linef("Missing from rolling: %d (%.1f%%)", len(missing), pct(float64(len(missing)), float64(len(in.Master))))
	s.linef("Missing spend: %s of %s (%s)", eur(missingCost.Float()), eur(allCost.Float()), pctText(missingCost.Float(), allCost.Float()))
	r.figure("missing", float64(len(missing)))
	r.figure("missing_cost", missingCost.Float())

	s = r.section("Missing by account")
	g := s.grid("Account", "Campaigns", "Cost", "Formats")
	for _, m := range groupMissing(missing, func(c domain.Campaign) string { return c.Account }) {
		g.add(m.label, count(m.n), eur(m.cost), m.breakdown())
	}
	s = r.section("Missing by brand")
	g = s.grid("Brand", "Campaigns", "Cost", "Formats")
	for _, m := range groupMissing(missing, func(c domain.Campaign) string { return c.Brand }) {
		g.add(m.label, count(m.n), eur(m.cost), m.breakdown())
	}

	exp := Export{
		File:      MissingRollingFile,
		Delimiter: ',',
		Header:    []string{domain.ColAccount, domain.ColBrand, domain.ColCampaign, domain.ColAdFormat, "Cost_Parsed", domain.ColCampaignID},
	}
	var critical, nonCritical []domain.Campaign
	var criticalCost, nonCriticalCost dataprocessing.Total
	for _, c := range missing {
		exp.Rows = append(exp.Rows, []string{c.Account, c.Brand, c.Name, c.AdFormat, dataprocessing.FormatFloat(c.Cost), c.ID})
		if standardize.IsCritical(c.AdFormat) {
			critical = append(critical, c)
			criticalCost.Add(c.Cost)
		} else {
			nonCritical = append(nonCritical, c)
			nonCriticalCost.Add(c.Cost)
		}
	}
	r.Exports = append(r.Exports, exp)

	s = r.section("Critical campaigns (YouTube and Display)")
	s.linef("Campaigns: %d, cost: %s", len(critical), eur(criticalCost.Float()))
	if len(critical) > 0 {
		g := s.grid("Campaign", "Account", "Brand", "Format", "Cost", "Campaign ID")
		for _, c := range head(critical, 20) {
			g.add(clip(c.Name, 80), c.Account, c.Brand, c.AdFormat, eur(c.Cost), c.ID)
		}
		formatTable(r.section("Critical campaigns by format"), critical)
	}

	s = r.section("Non-critical campaigns")
	s.linef("Campaigns: %d, cost: %s", len(nonCritical), eur(nonCriticalCost.Float()))
	if len(nonCritical) > 0 {
		formatTable(s, nonCritical)
	}

	share := pct(criticalCost.Float(), missingCost.Float())
	r.figure("critical_cost_pct", share)
	s = r.section("Recommendation")
	switch {
	case share > CriticalShareHigh:
		r.issue("%.1f%% of the missing cost is in critical formats, re-export the rolling reach data", share)
		s.linef("High priority: significant YouTube and Display campaigns are missing")
	case share > CriticalShareMedium:
		r.warn("%.1f%% of the missing cost is in critical formats", share)
		s.linef("Medium priority: consider re-exporting if these are key campaigns")
	default:
		s.linef("Low priority: only %.1f%% of the missing cost is in critical formats", share)
	}
	return r
}

func formatTable(s *Section, campaigns []domain.Campaign) {
	byFormat := make(map[string]*spend)
	for _, c := range campaigns {
		accumulate(byFormat, c.AdFormat, c.Cost)
	}
	g := s.grid("Format", "Count", "Total cost")
	for _, f := range ranked(byFormat) {
		g.add(f.label, count(f.n), eur(f.cost))
	}
}

func rollingQualityAudit(in *Input) *Report {
	r := newReport("rolling-quality", "")
	windows := in.Bundle.Rolling
	if len(windows) == 0 {
		windows = in.Rolling
	}
	if len(windows) == 0 {
		r.issue("rolling reach export is not available")
		return r
	}
	q := rolling.Quality(windows, in.Master)
	r.figure("score", float64(q.Score))

	s := r.section("Score")
	s.linef("Score: %d/100 (%s)", q.Score, q.Verdict)
	s.linef("Rows: %d, accounts: %d (master %d)", len(windows), q.RollingAccounts, q.MasterAccounts)
	s.linef("Zero reach with cost: %d, missing reach: %d, missing frequency: %d", q.ZeroReachWithCost, q.MissingReach, q.MissingFrequency)
	s.linef("Negative cost: %d, negative reach: %d", q.NegativeCost, q.NegativeReach)
	s.Lines = append(s.Lines, q.Issues...)

	s = r.section("Frequency by type")
	g := s.grid("Type", "Mean", "Median", "Min", "Max", "Rows")
	freq := make([]rolling.FrequencyStats, 0, len(q.FrequencyByType)+2)
	freq = append(freq, q.FrequencyByType...)
	for _, f := range append(freq, q.VideoFrequency, q.DisplayFrequency) {
		g.add(f.Type, fmt.Sprintf("%.2f", f.Mean), fmt.Sprintf("%.2f", f.Median), fmt.Sprintf("%.2f", f.Min), fmt.Sprintf("%.2f", f.Max), count(f.Count))
	}

	s = r.section("Totals")
	s.linef("Rolling cost: %s, impressions: %.0f, average CPM: %s", eur(q.RollingCost), q.RollingImpressions, eur(q.RollingAvgCPM))
	s.linef("Average peak reach: %.0f, average frequency: %.2f", q.RollingAvgReach, q.RollingAvgFrequency)
	s.linef("Master cost: %s, impressions: %.0f", eur(q.MasterCost), q.MasterImpressions)

	if q.Verdict == rolling.VerdictBad {
		r.Issues = append(r.Issues, q.Issues...)
	} else {
		r.Warnings = append(r.Warnings, q.Issues...)
	}
	return r
}
