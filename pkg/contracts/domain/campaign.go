package domain

import (
	"strconv"
	"strings"
)

// Master dataset columns.
const (
	ColCampaignID         = "Campaign ID"
	ColCampaign           = "Campaign"
	ColAccount            = "Account"
	ColAccountName        = "Account name"
	ColCostOriginal       = "Cost_Original"
	ColCost               = "Cost"
	ColCostOriginalGlobal = "Cost_Original_Global"
	ColImpressions        = "Impr."
	ColClicks             = "Clicks"
	ColCTR                = "CTR"
	ColAvgCPC             = "Avg. CPC"
	ColAvgCPM             = "Avg. CPM"
	ColViews              = "TrueView views"
	ColAvgCPV             = "TrueView avg. CPV"
	ColConversions        = "Conversions"
	ColConvRate           = "Conv. rate"
	ColCostPerConv        = "Cost / conv."
	ColYouTubeAdFormats   = "YouTube_Ad_Formats"
	ColTargetCountries    = "Target_Countries"
	ColNumberOfCountries  = "Number_of_Countries"
	ColHasDemographics    = "Has_Demographics"
	ColDemographicsCount  = "Demographics_Segments_Count"
	ColDemographicsLabel  = "Demographics_Label"
	ColHasInterests       = "Has_Interests"
	ColInterestsCount     = "Interest_Segments_Count"
	ColInterestsLabel     = "Interests_Label"
	ColStartDate          = "Start_Date"
	ColEndDate            = "End_Date"
	ColPeakReach          = "Peak_Reach"
	ColActiveQuarters     = "Active_Quarters"
	ColBrand              = "Brand"
	ColBidStrategyType    = "Campaign bid strategy type"
	ColAdFormat           = "Ad_Format"
	ColTarget             = "Target"
	ColDateRange          = "Date_Range"
	ColBidStrategyShort   = "Bid_Strategy_Short"
	ColGoal               = "Goal"
	ColStandardizedName   = "Standardized_Campaign_Name"
	ColQuarter            = "Quarter"
)

// Labels used when a source table has no row for a campaign.
const (
	NonYouTubeFormat   = "Non-YouTube Format"
	Unknown            = "Unknown"
	LabelAvailable     = "Available"
	LabelAutomaticPMax = "Automatic / PMax"
)

// Campaign is one row of the master dataset, keyed by campaign ID
type Campaign struct {
	ID      string `json:"campaign_id"`
	Name    string `json:"campaign"`
	Account string `json:"account"`

	CostOriginal       string  `json:"cost_original"`
	Cost               float64 `json:"cost"`
	CostOriginalGlobal float64 `json:"cost_original_global,omitempty"`
	CostGlobalSet      bool    `json:"-"`

	// Metric cells are kept as exported; the estimator parses them.
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	CTR         string `json:"ctr"`
	AvgCPC      string `json:"avg_cpc"`
	AvgCPM      string `json:"avg_cpm"`
	Views       string `json:"views"`
	AvgCPV      string `json:"avg_cpv"`
	Conversions string `json:"conversions"`
	ConvRate    string `json:"conv_rate"`
	CostPerConv string `json:"cost_per_conv"`

	YouTubeAdFormats          string `json:"youtube_ad_formats"`
	TargetCountries           string `json:"target_countries"`
	NumberOfCountries         int    `json:"number_of_countries"`
	HasDemographics           bool   `json:"has_demographics"`
	DemographicsSegmentsCount int    `json:"demographics_segments_count"`
	DemographicsLabel         string `json:"demographics_label"`
	HasInterests              bool   `json:"has_interests"`
	InterestSegmentsCount     int    `json:"interest_segments_count"`
	InterestsLabel            string `json:"interests_label"`
	StartDate                 string `json:"start_date"`
	EndDate                   string `json:"end_date"`
	PeakReach                 int64  `json:"peak_reach"`
	ActiveQuarters            string `json:"active_quarters"`
	Brand                     string `json:"brand"`

	BidStrategyType  string `json:"bid_strategy_type"`
	AdFormat         string `json:"ad_format"`
	Target           string `json:"target"`
	DateRange        string `json:"date_range"`
	BidStrategyShort string `json:"bid_strategy_short"`
	Goal             string `json:"goal"`
	StandardizedName string `json:"standardized_name"`
	Quarter          string `json:"quarter"`
}

var campaignHeader = []string{
	ColCampaignID, ColCampaign, ColAccount,
	ColCostOriginal, ColCost, ColCostOriginalGlobal,
	ColImpressions, ColClicks, ColCTR, ColAvgCPC, ColAvgCPM,
	ColViews, ColAvgCPV, ColConversions, ColConvRate, ColCostPerConv,
	ColYouTubeAdFormats, ColTargetCountries, ColNumberOfCountries,
	ColHasDemographics, ColDemographicsCount, ColDemographicsLabel,
	ColHasInterests, ColInterestsCount, ColInterestsLabel,
	ColStartDate, ColEndDate, ColPeakReach, ColActiveQuarters, ColBrand,
	ColBidStrategyType, ColAdFormat, ColTarget, ColDateRange,
	ColBidStrategyShort, ColGoal, ColStandardizedName, ColQuarter,
}

// CampaignHeader returns the master CSV column order
func CampaignHeader() []string {
	out := make([]string, len(campaignHeader))
	copy(out, campaignHeader)
	return out
}

// Record renders the campaign in CampaignHeader order
func (c Campaign) Record() []string {
	global := ""
	if c.CostGlobalSet {
		global = strconv.FormatFloat(c.CostOriginalGlobal, 'f', -1, 64)
	}
	return []string{
		c.ID, c.Name, c.Account,
		c.CostOriginal, strconv.FormatFloat(c.Cost, 'f', -1, 64), global,
		c.Impressions, c.Clicks, c.CTR, c.AvgCPC, c.AvgCPM,
		c.Views, c.AvgCPV, c.Conversions, c.ConvRate, c.CostPerConv,
		c.YouTubeAdFormats, c.TargetCountries, strconv.Itoa(c.NumberOfCountries),
		formatBool(c.HasDemographics), strconv.Itoa(c.DemographicsSegmentsCount), c.DemographicsLabel,
		formatBool(c.HasInterests), strconv.Itoa(c.InterestSegmentsCount), c.InterestsLabel,
		c.StartDate, c.EndDate, strconv.FormatInt(c.PeakReach, 10), c.ActiveQuarters, c.Brand,
		c.BidStrategyType, c.AdFormat, c.Target, c.DateRange,
		c.BidStrategyShort, c.Goal, c.StandardizedName, c.Quarter,
	}
}

// RecordReader is a header-indexed row source such as dataprocessing.Table
type RecordReader interface {
	Value(row int, col string) string
	Has(col string) bool
}

// CampaignFromRecord reads one master row. Columns absent from the source
// leave their zero value.
func CampaignFromRecord(t RecordReader, row int) Campaign {
	v := func(col string) string { return t.Value(row, col) }

	account := v(ColAccount)
	if account == "" && !t.Has(ColAccount) {
		account = v(ColAccountName)
	}

	c := Campaign{
		ID:      v(ColCampaignID),
		Name:    v(ColCampaign),
		Account: account,

		CostOriginal: v(ColCostOriginal),
		Cost:         parseAmount(v(ColCost)),

		Impressions: v(ColImpressions),
		Clicks:      v(ColClicks),
		CTR:         v(ColCTR),
		AvgCPC:      v(ColAvgCPC),
		AvgCPM:      v(ColAvgCPM),
		Views:       v(ColViews),
		AvgCPV:      v(ColAvgCPV),
		Conversions: v(ColConversions),
		ConvRate:    v(ColConvRate),
		CostPerConv: v(ColCostPerConv),

		YouTubeAdFormats:          v(ColYouTubeAdFormats),
		TargetCountries:           v(ColTargetCountries),
		NumberOfCountries:         int(parseAmount(v(ColNumberOfCountries))),
		HasDemographics:           parseBool(v(ColHasDemographics)),
		DemographicsSegmentsCount: int(parseAmount(v(ColDemographicsCount))),
		DemographicsLabel:         v(ColDemographicsLabel),
		HasInterests:              parseBool(v(ColHasInterests)),
		InterestSegmentsCount:     int(parseAmount(v(ColInterestsCount))),
		InterestsLabel:            v(ColInterestsLabel),
		StartDate:                 v(ColStartDate),
		EndDate:                   v(ColEndDate),
		PeakReach:                 int64(parseAmount(v(ColPeakReach))),
		ActiveQuarters:            v(ColActiveQuarters),
		Brand:                     v(ColBrand),

		BidStrategyType:  v(ColBidStrategyType),
		AdFormat:         v(ColAdFormat),
		Target:           v(ColTarget),
		DateRange:        v(ColDateRange),
		BidStrategyShort: v(ColBidStrategyShort),
		Goal:             v(ColGoal),
		StandardizedName: v(ColStandardizedName),
		Quarter:          v(ColQuarter),
	}
	if g := v(ColCostOriginalGlobal); g != "" {
		c.CostOriginalGlobal = parseAmount(g)
		c.CostGlobalSet = true
	}
	return c
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
