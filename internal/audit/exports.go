package audit

import (
	"math"
	"sort"
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// CountryTolerance bounds the difference between the country export and the
// anchor total. Location reports drop a little spend, so it is wider than
// the anchor check.
const CountryTolerance = 300.0

// PreviousUniqueCampaigns is the campaign count of the previous segmented
// export, reported for comparison.
const PreviousUniqueCampaigns = 1522

func anchorTotal(anchor []domain.Campaign) float64 {
	var t dataprocessing.Total
	for _, c := range anchor {
		t.Add(c.Cost)
	}
	return t.Float()
}

func anchorByCost(anchor []domain.Campaign) []domain.Campaign {
	out := make([]domain.Campaign, len(anchor))
	copy(out, anchor)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost > out[j].Cost })
	return out
}

func integrityAudit(in *Input) *Report {
	r := newReport("integrity", "")
	b := in.Bundle

	grand := anchorTotal(b.Anchor)
	anchorIDs := idSet(b.Anchor, func(c domain.Campaign) string { return c.ID })
	r.figure("grand_total", grand)
	r.figure("expected_total", in.ExpectedTotal)

	s := r.section("Financial anchor")
	s.linef("Campaigns: %d (%d unique IDs)", len(b.Anchor), len(anchorIDs))
	s.linef("Grand total: %s", eur(grand))
	s.linef("Expected:    %s", eur(in.ExpectedTotal))
	s.linef("Difference:  %s", eur(math.Abs(grand-in.ExpectedTotal)))
	if !dataprocessing.WithinTolerance(grand, in.ExpectedTotal, in.Tolerance) {
		r.issue("grand total %s does not match the expected %s", eur(grand), eur(in.ExpectedTotal))
	}

	// Country coverage
	var countryTotal dataprocessing.Total
	for _, c := range b.Countries {
		countryTotal.Add(c.Cost)
	}
	country := countryTotal.Float()
	countryDiff := math.Abs(grand - country)
	r.figure("country_total", country)
	s = r.section("Coverage: country")
	s.linef("Rows: %d (%d unique IDs)", len(b.Countries), len(idSet(b.Countries, func(c domain.CountryRow) string { return c.CampaignID })))
	s.linef("Country total: %s, difference %s (tolerance %s)", eur(country), eur(countryDiff), eur(CountryTolerance))
	if !dataprocessing.WithinTolerance(grand, country, CountryTolerance) {
		r.issue("country spend difference %s is outside the tolerance %s", eur(countryDiff), eur(CountryTolerance))
	}

	// Age and gender gap
	var ageTotal dataprocessing.Total
	for _, d := range b.Demographics {
		ageTotal.Add(d.Cost)
	}
	ageGap := grand - ageTotal.Float()
	r.figure("age_gap", ageGap)
	s = r.section("Coverage: age and gender")
	ageIDs := idSet(b.Demographics, func(d domain.DemographicRow) string { return d.CampaignID })
	s.linef("Rows: %d (%d unique IDs)", len(b.Demographics), len(ageIDs))
	s.linef("Age-gender total: %s", eur(ageTotal.Float()))
	s.linef("Gap: %s (%s)", eur(ageGap), pctText(ageGap, grand))

	var missing []domain.Campaign
	var missingSpend dataprocessing.Total
	pmax := 0
	for _, c := range anchorByCost(b.Anchor) {
		if ageIDs[c.ID] {
			continue
		}
		missing = append(missing, c)
		missingSpend.Add(c.Cost)
		if standardize.CampaignType(c.Name) == "PMax" {
			pmax++
		}
	}
	if len(missing) > 0 {
		s.linef("Campaigns missing from age-gender: %d, spend %s, PMax by name: %d", len(missing), eur(missingSpend.Float()), pmax)
		g := s.grid("Campaign", "Cost")
		for _, c := range head(missing, 10) {
			g.add(clip(c.Name, 70), eur(c.Cost))
		}
		if math.Abs(missingSpend.Float()-ageGap) > 1.0 {
			r.warn("age-gender gap %s does not match the missing spend %s", eur(ageGap), eur(missingSpend.Float()))
		}
	}

	// Interests gap
	var interestTotal dataprocessing.Total
	for _, i := range b.Interests {
		interestTotal.Add(i.Cost)
	}
	interestGap := grand - interestTotal.Float()
	r.figure("interests_gap", interestGap)
	s = r.section("Coverage: interests")
	s.linef("Rows: %d (%d unique IDs)", len(b.Interests), len(idSet(b.Interests, func(i domain.InterestRow) string { return i.CampaignID })))
	s.linef("Interests total: %s, gap %s (%s)", eur(interestTotal.Float()), eur(interestGap), pctText(interestGap, grand))

	// Reach of the top campaigns
	reachIDs := idSet(b.Reach, func(rr domain.ReachRow) string { return rr.CampaignID })
	s = r.section("Reach cross-check: top 20")
	perQuarter := make(map[string]map[string]bool)
	for _, rr := range b.Reach {
		if perQuarter[rr.Quarter] == nil {
			perQuarter[rr.Quarter] = make(map[string]bool)
		}
		perQuarter[rr.Quarter][rr.CampaignID] = true
	}
	for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		s.linef("%s: %d campaigns", q, len(perQuarter[q]))
	}
	s.linef("Unique across quarters: %d", len(reachIDs))

	g := s.grid("Rank", "Campaign ID", "Cost", "Reach", "Type", "Campaign")
	missingReach := 0
	var missingReachSpend dataprocessing.Total
	for i, c := range head(anchorByCost(b.Anchor), 20) {
		typ := standardize.CampaignType(c.Name)
		has := reachIDs[c.ID]
		status := "YES"
		if !has {
			status = "NO"
			if typ != "PMax" && typ != "Demand Gen" {
				missingReach++
				missingReachSpend.Add(c.Cost)
			}
		}
		g.add(count(i+1), c.ID, eur(c.Cost), status, typ, clip(c.Name, 50))
	}
	if missingReach > 0 {
		r.warn("%d non-PMax campaigns in the top 20 have no reach data (%s)", missingReach, eur(missingReachSpend.Float()))
	}

	// Spend outside Croatia
	hr, nonHR := 0.0, 0.0
	byCountry := make(map[string]*spend)
	for _, c := range b.Countries {
		accumulate(byCountry, c.Country, c.Cost)
	}
	s = r.section("Location anomaly")
	g = s.grid("Country", "Spend", "Share", "Market")
	for _, c := range ranked(byCountry) {
		name := strings.ToLower(c.label)
		market := "NON-HR"
		if strings.Contains(name, "croatia") || strings.Contains(name, "hrvatska") {
			market = "HR"
			hr += c.cost
		} else {
			nonHR += c.cost
		}
		g.add(c.label, eur(c.cost), pctText(c.cost, country), market)
	}
	s.linef("Croatia: %s (%s)", eur(hr), pctText(hr, country))
	s.linef("Outside Croatia: %s (%s)", eur(nonHR), pctText(nonHR, country))
	r.figure("non_hr_spend", nonHR)
	if nonHR > 0 {
		r.warn("spend outside Croatia detected: %s (%s)", eur(nonHR), pctText(nonHR, country))
	}

	// Duration coverage
	durationIDs := idSet(b.Durations, func(d domain.DurationRow) string { return d.CampaignID })
	covered, extra := 0, 0
	for id := range durationIDs {
		if anchorIDs[id] {
			covered++
		} else {
			extra++
		}
	}
	s = r.section("Duration coverage")
	s.linef("Anchor: %d, duration export: %d", len(anchorIDs), len(durationIDs))
	s.linef("Covered: %d (%s), extra in duration: %d", covered, pctText(float64(covered), float64(len(anchorIDs))), extra)
	r.figure("duration_coverage_pct", pct(float64(covered), float64(len(anchorIDs))))

	var noDuration []domain.Campaign
	var noDurationSpend dataprocessing.Total
	for _, c := range anchorByCost(b.Anchor) {
		if !durationIDs[c.ID] {
			noDuration = append(noDuration, c)
			noDurationSpend.Add(c.Cost)
		}
	}
	if len(noDuration) > 0 {
		r.issue("%d campaigns have no duration data (%s)", len(noDuration), eur(noDurationSpend.Float()))
		g := s.grid("Campaign ID", "Campaign", "Cost")
		for _, c := range head(noDuration, 10) {
			g.add(c.ID, clip(c.Name, 70), eur(c.Cost))
		}
	}

	s = r.section("Summary")
	accounts := idSet(b.Anchor, func(c domain.Campaign) string { return c.Account })
	s.linef("Anchor: %s across %d campaigns and %d accounts", eur(grand), len(anchorIDs), len(accounts))
	return r
}

type campaignCost struct {
	id, name string
	cost     float64
}

func rawAudit(in *Input) *Report {
	r := newReport("raw", "")
	rows := in.Bundle.Segments

	s := r.section("Cost values")
	g := s.grid("Raw", "Parsed")
	for _, row := range head(rows, 10) {
		g.add(row.CostRaw, dataprocessing.FormatCost(row.Cost))
	}
	var long []string
	for _, row := range rows {
		if len(row.CostRaw) > 7 {
			long = append(long, row.CostRaw)
			if len(long) == 10 {
				break
			}
		}
	}
	if len(long) > 0 {
		s.linef("Long cost values: %s", strings.Join(long, ", "))
	}

	var problematic []domain.SegmentRow
	for _, row := range rows {
		if row.Cost == 0 && strings.TrimSpace(row.CostRaw) != "0" {
			problematic = append(problematic, row)
		}
	}
	r.figure("problematic_rows", float64(len(problematic)))
	if len(problematic) > 0 {
		r.warn("%d rows parsed to zero from a non-zero cost", len(problematic))
		s := r.section("Problematic rows")
		g := s.grid("Campaign ID", "Campaign", "Raw cost")
		for _, row := range head(problematic, 5) {
			g.add(row.CampaignID, clip(row.Campaign, 60), row.CostRaw)
		}
	}

	var total dataprocessing.Total
	type key struct{ id, name string }
	byCampaign := make(map[key]*spend)
	byFormat := make(map[string]*spend)
	formats := make(map[string]map[string]bool)
	zero := 0
	for _, row := range rows {
		total.Add(row.Cost)
		k := key{row.CampaignID, row.Campaign}
		if byCampaign[k] == nil {
			byCampaign[k] = &spend{label: row.CampaignID}
		}
		byCampaign[k].cost += row.Cost
		byCampaign[k].n++
		accumulate(byFormat, row.AdFormat, row.Cost)
		if formats[row.CampaignID] == nil {
			formats[row.CampaignID] = make(map[string]bool)
		}
		formats[row.CampaignID][row.AdFormat] = true
		if row.Cost == 0 {
			zero++
		}
	}
	grand := total.Float()
	r.figure("grand_total", grand)
	r.figure("unique_campaigns", float64(len(formats)))
	r.figure("zero_cost_rows", float64(zero))

	s = r.section("Totals")
	s.linef("Rows: %d", len(rows))
	s.linef("Grand total: %s", eur(grand))
	s.linef("Unique campaigns: %d (previous export: %d, difference %d)", len(formats), PreviousUniqueCampaigns, len(formats)-PreviousUniqueCampaigns)

	campaigns := make([]campaignCost, 0, len(byCampaign))
	for k, v := range byCampaign {
		campaigns = append(campaigns, campaignCost{id: k.id, name: k.name, cost: v.cost})
	}
	sort.Slice(campaigns, func(i, j int) bool {
		if campaigns[i].cost != campaigns[j].cost {
			return campaigns[i].cost > campaigns[j].cost
		}
		return campaigns[i].id < campaigns[j].id
	})
	s = r.section("Top 20 campaigns")
	g = s.grid("Campaign ID", "Campaign", "Cost", "Formats")
	for _, c := range head(campaigns, 20) {
		g.add(c.id, clip(c.name, 60), eur(c.cost), count(len(formats[c.id])))
	}

	s = r.section("Spend by format")
	if len(formats) > 0 {
		pairs := 0
		for _, f := range formats {
			pairs += len(f)
		}
		s.linef("Average formats per campaign: %.2f", float64(pairs)/float64(len(formats)))
	}
	g = s.grid("Format", "Spend", "Share")
	for _, f := range ranked(byFormat) {
		g.add(f.label, eur(f.cost), pctText(f.cost, grand))
	}
	s.linef("Zero-cost rows: %d (%s)", zero, pctText(float64(zero), float64(len(rows))))
	return r
}

func metricsAudit(in *Input) *Report {
	r := newReport("metrics", "")
	rows := in.Bundle.MetricsV2

	var total dataprocessing.Total
	for _, row := range rows {
		total.Add(row.Cost)
	}
	grand := total.Float()
	r.figure("grand_total", grand)

	s := r.section("Cost")
	s.linef("Rows: %d", len(rows))
	s.linef("Grand total, every format and status: %s", eur(grand))

	// Campaign order follows first appearance
	var order []string
	perCampaign := make(map[string][]domain.SegmentRow)
	for _, row := range rows {
		if _, ok := perCampaign[row.CampaignID]; !ok {
			order = append(order, row.CampaignID)
		}
		perCampaign[row.CampaignID] = append(perCampaign[row.CampaignID], row)
	}
	var multi []string
	for _, id := range order {
		if len(perCampaign[id]) > 1 {
			multi = append(multi, id)
		}
	}
	r.figure("multi_format_campaigns", float64(len(multi)))
	s = r.section("Campaigns with several ad formats")
	s.linef("Campaigns: %d", len(multi))
	if len(multi) > 0 {
		g := s.grid("Campaign ID", "Campaign", "Formats", "Cost")
		for _, id := range head(multi, 10) {
			seg := perCampaign[id]
			seen := make(map[string]bool)
			var fmts []string
			var cost dataprocessing.Total
			for _, row := range seg {
				if !seen[row.AdFormat] {
					seen[row.AdFormat] = true
					fmts = append(fmts, row.AdFormat)
				}
				cost.Add(row.Cost)
			}
			g.add(id, clip(seg[0].Campaign, 80), strings.Join(fmts, ", "), eur(cost.Float()))
		}
	}

	brands := make(map[string]*spend)
	formats := make(map[string]*spend)
	var formatOrder []string
	for _, row := range rows {
		accumulate(brands, standardize.StructuredBrand(row.Campaign), row.Cost)
		if _, ok := formats[row.AdFormat]; !ok {
			formatOrder = append(formatOrder, row.AdFormat)
		}
		accumulate(formats, row.AdFormat, row.Cost)
	}

	s = r.section("Top 10 brands")
	g := s.grid("#", "Brand", "Spend", "Share")
	for i, b := range head(ranked(brands), 10) {
		g.add(count(i+1), b.label, eur(b.cost), pctText(b.cost, grand))
	}

	s = r.section("Spend by ad format")
	s.linef("Unique campaigns: %d", len(order))
	s.linef("Ad formats (%d): %s", len(formatOrder), strings.Join(formatOrder, ", "))
	g = s.grid("Ad format", "Spend", "Share")
	for _, f := range ranked(formats) {
		g.add(f.label, eur(f.cost), pctText(f.cost, grand))
	}
	return r
}
