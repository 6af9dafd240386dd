package audit

import (
	"errors"
	"fmt"

	"adshub/internal/demographics"
	"adshub/internal/merge"
	"adshub/internal/sources"
	"adshub/pkg/contracts/domain"
)

// ErrUnknownAudit is returned by Run for a name that is not registered
var ErrUnknownAudit = errors.New("unknown audit")

// Input is everything an audit may look at. Master and Rolling are the
// pipeline outputs; audits that need them report a missing dataset as an
// issue rather than failing.
type Input struct {
	Bundle  *sources.Bundle
	Master  []domain.Campaign
	Rolling []domain.RollingWindow

	ExpectedTotal         float64
	Tolerance             float64
	DemographicsThreshold float64
}

func (in *Input) withDefaults() *Input {
	out := *in
	if out.Bundle == nil {
		out.Bundle = &sources.Bundle{}
	}
	if out.ExpectedTotal == 0 {
		out.ExpectedTotal = merge.DefaultExpectedTotal
	}
	if out.Tolerance == 0 {
		out.Tolerance = merge.DefaultTotalTolerance
	}
	if out.DemographicsThreshold == 0 {
		out.DemographicsThreshold = demographics.DefaultThreshold
	}
	return &out
}

// Audit is a named report generator
type Audit struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`

	run func(*Input) *Report
}

var registry = []Audit{
	{Name: "integrity", Title: "Deep integrity audit", Description: "Anchor total, coverage gaps, reach and duration cross-checks", run: integrityAudit},
	{Name: "raw", Title: "Raw integrity audit", Description: "Cost parsing and format spend of the segmented export", run: rawAudit},
	{Name: "accounts", Title: "Account audit", Description: "Campaigns and spend per account", run: accountsAudit},
	{Name: "account-filters", Title: "Account filter audit", Description: "Zero spend, year tokens and spend thresholds", run: accountFiltersAudit},
	{Name: "croatia", Title: "Croatia spend audit", Description: "Croatia-only versus multi-market spend", run: croatiaAudit},
	{Name: "youtube-coverage", Title: "YouTube coverage audit", Description: "Anchor versus YouTube segmented spend", run: youtubeCoverageAudit},
	{Name: "metrics", Title: "Campaign metrics audit", Description: "Spend of the metrics v2 export by brand and format", run: metricsAudit},
	{Name: "demographics", Title: "Demographics integrity", Description: "Overlap, uniqueness and range logic of the demographics", run: demographicsAudit},
	{Name: "other-formats", Title: "Other formats audit", Description: "Campaigns left with the Other format", run: otherFormatsAudit},
	{Name: "missing-rolling", Title: "Missing rolling reach", Description: "Master campaigns absent from the rolling export", run: missingRollingAudit},
	{Name: "rolling-quality", Title: "Rolling reach quality", Description: "Quality score of the rolling reach export", run: rollingQualityAudit},
}

// List returns the registered audits in run order
func List() []Audit {
	out := make([]Audit, len(registry))
	copy(out, registry)
	return out
}

// Names returns the registered audit names
func Names() []string {
	names := make([]string, len(registry))
	for i, a := range registry {
		names[i] = a.Name
	}
	return names
}

// Lookup finds an audit by name
func Lookup(name string) (Audit, bool) {
	for _, a := range registry {
		if a.Name == name {
			return a, true
		}
	}
	return Audit{}, false
}

// Run executes one audit
func Run(name string, in *Input) (*Report, error) {
	a, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAudit, name)
	}
	if in == nil {
		in = &Input{}
	}
	r := a.run(in.withDefaults())
	r.Name, r.Title = a.Name, a.Title
	return r, nil
}

// RunAll executes every audit in registry order
func RunAll(in *Input) []*Report {
	out := make([]*Report, 0, len(registry))
	for _, a := range registry {
		r, _ := Run(a.Name, in)
		out = append(out, r)
	}
	return out
}
