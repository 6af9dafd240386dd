package domain

import "time"

// Rolling export columns.
const (
	ColWindowStart  = "Window_Start"
	ColWindowEnd    = "Window_End"
	ColAccountID    = "Account_ID"
	ColRollAccount  = "Account_Name"
	ColRollCampID   = "Campaign_ID"
	ColType         = "Type"
	ColTypeOriginal = "Type_Original"
	ColBidStrategy  = "Bid_Strategy"
	ColRollImpr     = "Impressions"
	ColReach        = "Reach"
	ColAvgFrequency = "Avg_Frequency"
)

// RollingWindow is one 90 day reach window of a campaign
type RollingWindow struct {
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	CampaignID  string `json:"campaign_id"`
	Campaign    string `json:"campaign"`

	Type         string `json:"type"`
	TypeOriginal string `json:"type_original,omitempty"`
	Brand        string `json:"brand"`
	Target       string `json:"target"`
	BidStrategy  string `json:"bid_strategy"`

	Cost         Measure `json:"cost"`
	Impressions  Measure `json:"impressions"`
	Reach        Measure `json:"reach"`
	AvgFrequency Measure `json:"avg_frequency"`
}

var rollingHeader = []string{
	ColWindowStart, ColWindowEnd, ColAccountID, ColRollAccount,
	ColRollCampID, ColCampaign, ColBrand, ColType, ColTarget, ColBidStrategy,
	ColCost, ColRollImpr, ColReach, ColAvgFrequency,
}

// RollingHeader returns the final rolling CSV column order
func RollingHeader() []string {
	out := make([]string, len(rollingHeader))
	copy(out, rollingHeader)
	return out
}

// Record renders the window in RollingHeader order
func (w RollingWindow) Record() []string {
	return []string{
		w.WindowStart, w.WindowEnd, w.AccountID, w.AccountName,
		w.CampaignID, w.Campaign, w.Brand, w.Type, w.Target, w.BidStrategy,
		w.Cost.String(), w.Impressions.String(), w.Reach.String(), w.AvgFrequency.String(),
	}
}

// Start parses WindowStart, returning the zero time when it is malformed
func (w RollingWindow) Start() time.Time {
	return parseWindowDate(w.WindowStart)
}

// End parses WindowEnd, returning the zero time when it is malformed
func (w RollingWindow) End() time.Time {
	return parseWindowDate(w.WindowEnd)
}

var windowLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "1/2/2006"}

func parseWindowDate(s string) time.Time {
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
