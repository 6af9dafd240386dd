package domain

// SegmentRow is one row of the YouTube ad-format segmented export
type SegmentRow struct {
	CampaignID string  `json:"campaign_id"`
	Campaign   string  `json:"campaign"`
	Account    string  `json:"account"`
	AdFormat   string  `json:"ad_format"`
	CostRaw    string  `json:"cost_raw"`
	Cost       float64 `json:"cost"`
}

// CountryRow is one row of the user-location export
type CountryRow struct {
	CampaignID string  `json:"campaign_id"`
	Campaign   string  `json:"campaign"`
	Account    string  `json:"account"`
	Country    string  `json:"country"`
	Cost       float64 `json:"cost"`
}

// DemographicRow is one age × gender row of the demographics export
type DemographicRow struct {
	CampaignID string  `json:"campaign_id"`
	Campaign   string  `json:"campaign"`
	Age        string  `json:"age"`
	Gender     string  `json:"gender"`
	Cost       float64 `json:"cost"`
}

// InterestRow is one audience segment row
type InterestRow struct {
	CampaignID string  `json:"campaign_id"`
	Segment    string  `json:"segment"`
	Cost       float64 `json:"cost"`
}

// DurationRow carries the raw start and end date cells
type DurationRow struct {
	CampaignID string `json:"campaign_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// ReachRow is one row of a quarterly reach export
type ReachRow struct {
	CampaignID  string `json:"campaign_id"`
	Quarter     string `json:"quarter"`
	UniqueUsers int64  `json:"unique_users"`
}

// BiddingRow maps a campaign to its bid strategy type
type BiddingRow struct {
	CampaignID string `json:"campaign_id"`
	Strategy   string `json:"strategy"`
}

// FormatFix overrides the ad format of a campaign by name
type FormatFix struct {
	Campaign     string `json:"campaign"`
	CampaignType string `json:"campaign_type"`
}
