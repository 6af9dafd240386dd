package standardize

import (
	"strings"

	"adshub/pkg/contracts/domain"
)

// Standardized ad formats.
const (
	FormatInStream  = "YouTube In-Stream"
	FormatBumper    = "YouTube Bumper"
	FormatShorts    = "YouTube Shorts"
	FormatInFeed    = "YouTube In-Feed"
	FormatNonSkip   = "YouTube Non-Skip"
	FormatYouTube   = "YouTube"
	FormatPMax      = "PMax"
	FormatDisplay   = "Display"
	FormatDemandGen = "Demand Gen"
	FormatOther     = "Other"
)

var youtubeFormats = []struct{ marker, format string }{
	{"Skippable in-stream", FormatInStream},
	{"Bumper", FormatBumper},
	{"Shorts", FormatShorts},
	{"In-feed", FormatInFeed},
	{"Non-skippable", FormatNonSkip},
}

// AdFormat maps the merged YouTube format list of a campaign to one
// standardized format. Campaigns without YouTube segmentation are
// classified by name.
func AdFormat(youtube, campaign string) string {
	if youtube == "" || youtube == domain.NonYouTubeFormat {
		name := strings.ToLower(campaign)
		switch {
		case strings.Contains(name, "pmax") || strings.Contains(name, "performance max"):
			return FormatPMax
		case strings.Contains(name, "gdn") || strings.Contains(name, "display"):
			return FormatDisplay
		case strings.Contains(name, "demand") || strings.Contains(name, "(dg)"):
			return FormatDemandGen
		}
		return FormatOther
	}
	for _, f := range youtubeFormats {
		if strings.Contains(youtube, f.marker) {
			return f.format
		}
	}
	return FormatYouTube
}

// CampaignType guesses the campaign type from its name for reach checks
func CampaignType(campaign string) string {
	name := strings.ToLower(campaign)
	switch {
	case strings.Contains(name, "pmax") || strings.Contains(name, "performance max"):
		return "PMax"
	case strings.Contains(name, "demand") || strings.Contains(name, "(dg)"):
		return "Demand Gen"
	case strings.Contains(name, "(gdn)") || strings.Contains(name, "display"):
		return "Display/GDN"
	case strings.Contains(name, "(yt)") || strings.Contains(name, "youtube"):
		return "YouTube"
	}
	return "Unknown"
}

// CriticalFormats are the formats whose reach must come from the rolling
// export.
var CriticalFormats = []string{FormatInStream, FormatBumper, FormatNonSkip, FormatShorts, FormatDisplay}

// IsCritical reports whether format is one of CriticalFormats
func IsCritical(format string) bool {
	for _, f := range CriticalFormats {
		if f == format {
			return true
		}
	}
	return false
}
