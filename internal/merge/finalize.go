package merge

import (
	"adshub/internal/standardize"
	"adshub/pkg/contracts/domain"
)

// DefaultExpectedFixes is the size of the manually cleaned format list.
const DefaultExpectedFixes = 131

// FinalizeOptions configures Finalize
type FinalizeOptions struct {
	ExpectedFixes int
	YearToken     string
}

// FinalizeResult is the master dataset served by the estimator
type FinalizeResult struct {
	Campaigns []domain.Campaign `json:"-"`

	FormatsFixed  int      `json:"formats_fixed"`
	ExpectedFixes int      `json:"expected_fixes"`
	FixesMismatch bool     `json:"fixes_mismatch"`
	FixesNotFound []string `json:"fixes_not_found,omitempty"`

	HidraRenamed   int `json:"hidra_renamed"`
	UnknownDropped int `json:"unknown_dropped"`
}

// Finalize applies the manual format fixes, renames the "Croatia" brand,
// assigns quarters and drops campaigns outside every quarter. Fixes match
// on the exact campaign name.
func Finalize(std []domain.Campaign, fixes []domain.FormatFix, opts FinalizeOptions) *FinalizeResult {
	if opts.ExpectedFixes == 0 {
		opts.ExpectedFixes = DefaultExpectedFixes
	}

	fix := make(map[string]string, len(fixes))
	for _, f := range fixes {
		fix[f.Campaign] = f.CampaignType
	}

	res := &FinalizeResult{ExpectedFixes: opts.ExpectedFixes}
	used := make(map[string]bool)

	for _, c := range std {
		if format, ok := fix[c.Name]; ok {
			c.AdFormat = format
			used[c.Name] = true
			res.FormatsFixed++
		}
		if c.Brand == "Croatia" {
			c.Brand = "Hidra"
			res.HidraRenamed++
		}
		c.Quarter = standardize.Quarter(c.DateRange, opts.YearToken)
		if c.Quarter == domain.Unknown {
			res.UnknownDropped++
			continue
		}
		c.StandardizedName = NameOf(c)
		res.Campaigns = append(res.Campaigns, c)
	}

	res.FixesMismatch = res.FormatsFixed != opts.ExpectedFixes
	seen := make(map[string]bool)
	for _, f := range fixes {
		if !used[f.Campaign] && !seen[f.Campaign] {
			res.FixesNotFound = append(res.FixesNotFound, f.Campaign)
			seen[f.Campaign] = true
		}
	}
	return res
}
