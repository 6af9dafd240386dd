package standardize

import "strings"

var bidStrategies = []struct{ key, short string }{
	{"viewable cpm", "vCPM"},
	{"maximize conversions", "MaxConv"},
	{"maximise conversions", "MaxConv"},
	{"maximize conversion value", "MaxConvValue"},
	{"maximise conversion value", "MaxConvValue"},
	{"target cpa", "tCPA"},
	{"target roas", "tROAS"},
	{"target cpm", "tCPM"},
	{"manual cpc", "CPC"},
	{"manual cpm", "CPM"},
	{"manual cpv", "CPV"},
	{"target cpv", "tCPV"},
	{"maximize clicks", "MaxClicks"},
	{"maximise clicks", "MaxClicks"},
}

// ShortenBidStrategy abbreviates a Google Ads bid strategy type. Unknown
// strategies keep their trimmed text.
func ShortenBidStrategy(s string) string {
	bid := strings.TrimSpace(s)
	if bid == "" {
		return "Unknown"
	}
	lower := strings.ToLower(bid)
	for _, b := range bidStrategies {
		if strings.Contains(lower, b.key) {
			return b.short
		}
	}
	return bid
}

// Goal derives the campaign goal from its bid strategy, then its format
func Goal(adFormat, bidShort string) string {
	bid := strings.ToLower(bidShort)
	format := strings.ToLower(adFormat)
	switch {
	case strings.Contains(bid, "vcpm") || strings.Contains(bid, "cpm"):
		return "Awareness"
	case strings.Contains(bid, "maxconv") || strings.Contains(bid, "tcpa") || strings.Contains(bid, "troas"):
		return "Action"
	case strings.Contains(bid, "cpv") || strings.Contains(bid, "tcpv"):
		return "Consideration"
	case strings.Contains(format, "bumper") || strings.Contains(format, "shorts"):
		return "Awareness"
	case strings.Contains(format, "pmax"):
		return "Action"
	}
	return "Consideration"
}
