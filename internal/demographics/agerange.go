package demographics

import (
	"strconv"
	"strings"
)

// ParseAgeRange parses an age label into its bounds. "65+" has an upper
// bound of 100. Unparseable labels give (0, 0).
func ParseAgeRange(label string) (lo, hi int) {
	s := strings.TrimSpace(label)
	if s == "Unknown" || s == "" || s == "N/A" {
		return 0, 0
	}
	s = strings.ReplaceAll(s, " ", "")

	var err error
	switch {
	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		if lo, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 0
		}
		upper := strings.ReplaceAll(parts[1], "+", "")
		if upper == "" {
			return lo, 100
		}
		if hi, err = strconv.Atoi(upper); err != nil {
			return 0, 0
		}
		return lo, hi
	case strings.Contains(s, "+"):
		if lo, err = strconv.Atoi(strings.ReplaceAll(s, "+", "")); err != nil {
			return 0, 0
		}
		return lo, 100
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0
	}
	return n, n
}

// combineAges spans the bounds of several age labels. ok is false when no
// label had usable bounds.
func combineAges(labels []string) (string, bool) {
	low, high := 999, 0
	for _, l := range labels {
		lo, hi := ParseAgeRange(l)
		if lo <= 0 {
			continue
		}
		if lo < low {
			low = lo
		}
		if hi < 100 && hi > high {
			high = hi
		} else if hi >= 100 {
			high = 65
		}
	}
	switch {
	case low == 999 || high == 0:
		return "", false
	case low == high:
		return strconv.Itoa(low), true
	case high >= 65:
		return strconv.Itoa(low) + "-65+", true
	}
	return strconv.Itoa(low) + "-" + strconv.Itoa(high), true
}
