package audit

import (
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/internal/merge"
	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// Plausible range of the anchor total.
const (
	MinPlausibleTotal = 2_200_000.0
	MaxPlausibleTotal = 2_400_000.0
)

func croatiaAudit(in *Input) *Report {
	r := newReport("croatia", "")
	rows := in.Bundle.Countries

	var croatiaRows int
	var croatiaSpend dataprocessing.Total
	for _, row := range rows {
		if row.Country == merge.CroatiaCountry {
			croatiaRows++
			croatiaSpend.Add(row.Cost)
		}
	}

	var only, multi int
	var onlySpend, multiSpend dataprocessing.Total
	for _, m := range merge.MarketSplits(rows) {
		if !m.HasCroatia {
			continue
		}
		if len(m.Countries) == 1 {
			only++
			onlySpend.Add(m.CroatiaSpend)
		} else {
			multi++
			multiSpend.Add(m.CroatiaSpend)
		}
	}

	s := r.section("Country export")
	s.linef("Rows: %d (%d unique IDs)", len(rows), len(idSet(rows, func(c domain.CountryRow) string { return c.CampaignID })))
	s.linef("Croatia rows: %d (%d unique IDs)", croatiaRows, only+multi)
	s.linef("Croatia spend: %s", eur(croatiaSpend.Float()))

	s = r.section("Breakdown")
	g := s.grid("Campaigns", "Count", "Croatia spend")
	g.add("Croatia only", count(only), eur(onlySpend.Float()))
	g.add("Croatia and other markets", count(multi), eur(multiSpend.Float()))

	diff := croatiaSpend.Decimal().Sub(onlySpend.Decimal())
	d, _ := diff.Float64()
	s = r.section("Options")
	s.linef("Option 1, campaigns targeting only Croatia: %d campaigns, %s", only, eur(onlySpend.Float()))
	s.linef("Option 2, every campaign including Croatia: %d campaigns, %s", only+multi, eur(croatiaSpend.Float()))
	s.linef("Difference: %s", eur(d))

	r.figure("croatia_only", float64(only))
	r.figure("croatia_multi", float64(multi))
	r.figure("option1_spend", onlySpend.Float())
	r.figure("option2_spend", croatiaSpend.Float())
	r.figure("difference", d)
	return r
}

func youtubeCoverageAudit(in *Input) *Report {
	r := newReport("youtube-coverage", "")
	b := in.Bundle

	grand := anchorTotal(b.Anchor)
	r.figure("grand_total", grand)
	s := r.section("Anchor")
	s.linef("Campaigns: %d", len(b.Anchor))
	s.linef("Grand total: %s", eur(grand))
	if grand < MinPlausibleTotal || grand > MaxPlausibleTotal {
		r.warn("grand total %s is outside the expected range of %s to %s", eur(grand), eur(MinPlausibleTotal), eur(MaxPlausibleTotal))
	}

	segmented := idSet(b.Segments, func(row domain.SegmentRow) string { return row.CampaignID })
	var ytSpend, otherSpend dataprocessing.Total
	yt, other := 0, 0
	for _, c := range b.Anchor {
		if segmented[c.ID] {
			yt++
			ytSpend.Add(c.Cost)
		} else {
			other++
			otherSpend.Add(c.Cost)
		}
	}
	r.figure("youtube_spend", ytSpend.Float())
	r.figure("youtube_campaigns", float64(yt))

	s = r.section("YouTube segmentation")
	g := s.grid("Campaigns", "Count", "Share", "Spend", "Share")
	g.add("With YouTube formats", count(yt), pctText(float64(yt), float64(len(b.Anchor))), eur(ytSpend.Float()), pctText(ytSpend.Float(), grand))
	g.add(domain.NonYouTubeFormat, count(other), pctText(float64(other), float64(len(b.Anchor))), eur(otherSpend.Float()), pctText(otherSpend.Float(), grand))

	top := head(anchorByCost(b.Anchor), 20)
	s = r.section("Top 20 campaigns")
	g = s.grid("#", "Campaign", "Cost", "YouTube")
	brands := make(map[string]*spend)
	mcd, kaufland := false, false
	for i, c := range top {
		flag := "no"
		if segmented[c.ID] {
			flag = "yes"
		}
		g.add(count(i+1), clip(c.Name, 60), eur(c.Cost), flag)
		accumulate(brands, standardize.NameBrand(c.Name), c.Cost)
		name := strings.ToLower(c.Name)
		mcd = mcd || strings.Contains(name, "mcdonald")
		kaufland = kaufland || strings.Contains(name, "kaufland")
	}

	s = r.section("Brands in the top 20")
	g = s.grid("Brand", "Campaigns", "Spend")
	for _, br := range ranked(brands) {
		g.add(br.label, count(br.n), eur(br.cost))
	}
	s.linef("McDonald's in the top 20: %s", yesNo(mcd))
	s.linef("Kaufland in the top 20: %s", yesNo(kaufland))

	formats := make(map[string]*spend)
	var segTotal dataprocessing.Total
	for _, row := range b.Segments {
		accumulate(formats, row.AdFormat, row.Cost)
		segTotal.Add(row.Cost)
	}
	s = r.section("YouTube formats")
	g = s.grid("Format", "Rows", "Spend", "Share of YouTube")
	for _, f := range ranked(formats) {
		g.add(f.label, count(f.n), eur(f.cost), pctText(f.cost, segTotal.Float()))
	}
	return r
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
