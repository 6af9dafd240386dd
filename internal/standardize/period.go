package standardize

import (
	"fmt"
	"strings"

	"adshub/internal/dataprocessing"
)

// UnknownPeriod is the date range of campaigns without usable dates.
const UnknownPeriod = "Unknown Period"

// DefaultYearToken is the two digit year that quarters are assigned to.
const DefaultYearToken = "25"

// DateRange formats a campaign flight as "Jan 25" or "Jan-Mar 25", using
// the year of the start date.
func DateRange(start, end string) string {
	s, ok := dataprocessing.ParseDayFirst(start)
	if !ok {
		return UnknownPeriod
	}
	e, ok := dataprocessing.ParseDayFirst(end)
	if !ok {
		return UnknownPeriod
	}
	sm, em := s.Format("Jan"), e.Format("Jan")
	year := s.Format("06")
	if sm == em {
		return sm + " " + year
	}
	return fmt.Sprintf("%s-%s %s", sm, em, year)
}

var quarterMonths = [4][3]string{
	{"jan", "feb", "mar"},
	{"apr", "may", "jun"},
	{"jul", "aug", "sep"},
	{"oct", "nov", "dec"},
}

// Quarter assigns a date range to the first quarter whose month appears in
// it, provided the range mentions yearToken. Anything else is "Unknown".
func Quarter(dateRange, yearToken string) string {
	if yearToken == "" {
		yearToken = DefaultYearToken
	}
	s := strings.ToLower(dateRange)
	if !strings.Contains(s, yearToken) {
		return "Unknown"
	}
	for i, months := range quarterMonths {
		for _, m := range months {
			if strings.Contains(s, m) {
				return fmt.Sprintf("Q%d 20%s", i+1, yearToken)
			}
		}
	}
	return "Unknown"
}
