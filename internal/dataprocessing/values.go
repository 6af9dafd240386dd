package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"adshub/pkg/contracts/domain"
)

func isNaNText(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "<na>", "nat":
		return true
	}
	return false
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseCost parses a currency cell such as "1,234.56", "EUR 12.00" or "€3.5"
func ParseCost(s string) float64 {
	s = strings.TrimSpace(s)
	if isNaNText(s) {
		return 0
	}
	s = strings.ReplaceAll(s, "EUR", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", "")
	v, _ := parseFinite(strings.TrimSpace(s))
	return v
}

// ParseEuropeanCost parses "1.234,56 €" style values where the comma is the
// decimal separator
func ParseEuropeanCost(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, "€", ""))
	if isNaNText(s) {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, _ := parseFinite(strings.TrimSpace(s))
	return v
}

// ParseNumber parses a count such as "12,345" and truncates fractions
func ParseNumber(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if isNaNText(s) {
		return 0
	}
	v, ok := parseFinite(s)
	if !ok {
		return 0
	}
	return int64(v)
}

// ParseFloat parses a ratio such as "3.25%" or "1,024.5"
func ParseFloat(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	if isNaNText(s) {
		return 0
	}
	v, _ := parseFinite(s)
	return v
}

// ParseReach parses a unique users cell. Only integral values are accepted.
func ParseReach(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseMeasure parses a plain numeric cell, marking anything else as missing
func ParseMeasure(s string) domain.Measure {
	s = strings.TrimSpace(s)
	if isNaNText(s) {
		return domain.Measure{}
	}
	v, ok := parseFinite(s)
	if !ok {
		return domain.Measure{}
	}
	return domain.Some(v)
}

var dayFirstLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.2006.",
	"2.1.2006.",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDayFirst parses a date, reading ambiguous numeric forms day first
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isNaNText(s) {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatCost renders a parsed amount with two decimals
func FormatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatFloat renders a float without trailing zeros
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
