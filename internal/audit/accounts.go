package audit

import (
	"sort"
	"strings"

	"adshub/internal/dataprocessing"
	"adshub/pkg/contracts/domain"
)

// SpendThresholds are the account spend levels counted by account-filters.
var SpendThresholds = []float64{0, 100, 500, 1000, 5000, 10000}

// nameYears are checked in order; the first token found wins
var nameYears = []string{"2026", "2025", "2024", "2023"}

type accountStats struct {
	name      string
	cost      dataprocessing.Total
	campaigns map[string]bool
	samples   []string
}

func groupAccounts(campaigns []domain.Campaign) []*accountStats {
	byName := make(map[string]*accountStats)
	var out []*accountStats
	for _, c := range campaigns {
		a := byName[c.Account]
		if a == nil {
			a = &accountStats{name: c.Account, campaigns: make(map[string]bool)}
			byName[c.Account] = a
			out = append(out, a)
		}
		a.cost.Add(c.Cost)
		if !a.campaigns[c.ID] && len(a.samples) < 3 {
			a.samples = append(a.samples, c.Name)
		}
		a.campaigns[c.ID] = true
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].cost.Decimal().GreaterThan(out[j].cost.Decimal())
	})
	return out
}

func accountsAudit(in *Input) *Report {
	r := newReport("accounts", "")
	b := in.Bundle

	accounts := groupAccounts(b.Anchor)
	grand := anchorTotal(b.Anchor)
	r.figure("accounts", float64(len(accounts)))
	r.figure("grand_total", grand)

	s := r.section("Accounts in the anchor export")
	s.linef("Accounts: %d, campaigns: %d, spend: %s", len(accounts), len(idSet(b.Anchor, func(c domain.Campaign) string { return c.ID })), eur(grand))
	g := s.grid("Account", "Campaigns", "Spend")
	for _, a := range accounts {
		g.add(a.name, count(len(a.campaigns)), eur(a.cost.Float()))
	}

	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.name)
	}
	sort.Strings(names)
	s = r.section("Account list")
	s.Lines = names

	s = r.section("Top 10 accounts")
	g = s.grid("#", "Account", "Spend", "Share", "Campaigns", "Sample campaigns")
	for i, a := range head(accounts, 10) {
		samples := make([]string, len(a.samples))
		for j, name := range a.samples {
			samples[j] = clip(name, 40)
		}
		g.add(count(i+1), a.name, eur(a.cost.Float()), pctText(a.cost.Float(), grand), count(len(a.campaigns)), strings.Join(samples, " | "))
	}

	anchorAccounts := idSet(b.Anchor, func(c domain.Campaign) string { return c.Account })
	segAccounts := idSet(b.Segments, func(row domain.SegmentRow) string { return row.Account })
	var unknown []string
	for a := range segAccounts {
		if !anchorAccounts[a] {
			unknown = append(unknown, a)
		}
	}
	sort.Strings(unknown)
	s = r.section("Segmented export accounts")
	s.linef("Accounts in the segmented export: %d", len(segAccounts))
	if len(unknown) > 0 {
		s.Lines = append(s.Lines, unknown...)
		r.warn("%d accounts of the segmented export are missing from the anchor", len(unknown))
	} else if len(segAccounts) > 0 {
		s.linef("Every segmented account is present in the anchor")
	}

	if len(in.Master) > 0 {
		masterAccounts := idSet(in.Master, func(c domain.Campaign) string { return c.Account })
		var removed []string
		for a := range anchorAccounts {
			if !masterAccounts[a] {
				removed = append(removed, a)
			}
		}
		sort.Strings(removed)
		r.figure("master_accounts", float64(len(masterAccounts)))
		s = r.section("Accounts removed by the Croatian cleanup")
		s.linef("Master accounts: %d of %d", len(masterAccounts), len(anchorAccounts))
		s.Lines = append(s.Lines, removed...)
	}
	return r
}

func nameYear(name string) string {
	for _, y := range nameYears {
		if strings.Contains(name, y) {
			return y
		}
	}
	return domain.Unknown
}

func accountFiltersAudit(in *Input) *Report {
	r := newReport("account-filters", "")
	anchor := in.Bundle.Anchor
	accounts := groupAccounts(anchor)

	s := r.section("Accounts with zero spend")
	var zeroAccounts []*accountStats
	for _, a := range accounts {
		if a.cost.Decimal().IsZero() {
			zeroAccounts = append(zeroAccounts, a)
		}
	}
	s.linef("Accounts: %d", len(zeroAccounts))
	for _, a := range zeroAccounts {
		s.linef("%s (%d campaigns)", a.name, len(a.campaigns))
	}
	r.figure("zero_spend_accounts", float64(len(zeroAccounts)))

	zeroCampaigns := 0
	withZero := make(map[string]bool)
	for _, c := range anchor {
		if c.Cost == 0 {
			zeroCampaigns++
			withZero[c.Account] = true
		}
	}
	r.figure("zero_spend_campaigns", float64(zeroCampaigns))
	s = r.section("Campaigns with zero spend")
	s.linef("Campaigns: %d (%s)", zeroCampaigns, pctText(float64(zeroCampaigns), float64(len(anchor))))
	s.linef("Accounts with at least one zero-spend campaign: %d", len(withZero))

	years := make(map[string]int)
	for _, c := range anchor {
		years[nameYear(c.Name)]++
	}
	s = r.section("Year in campaign name")
	g := s.grid("Year", "Campaigns")
	for _, y := range []string{"2023", "2024", "2025", "2026", domain.Unknown} {
		if n, ok := years[y]; ok {
			g.add(y, count(n))
		}
	}

	s = r.section("Accounts by spend threshold")
	g = s.grid("Spend above", "Accounts")
	for _, t := range SpendThresholds {
		n := 0
		for _, a := range accounts {
			if a.cost.Float() > t {
				n++
			}
		}
		g.add(eur(t), count(n))
	}

	s = r.section("10 smallest accounts")
	g = s.grid("Account", "Spend", "Campaigns")
	smallest := head(reversed(accounts), 10)
	for _, a := range smallest {
		g.add(clip(a.name, 50), eur(a.cost.Float()), count(len(a.campaigns)))
	}
	return r
}

func reversed[T any](s []T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
