package domain

import "strconv"

// Measure is a numeric value that may be missing from an export
type Measure struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Some wraps a present value
func Some(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// String formats the measure for CSV output, "" when missing
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Or returns the value, or def when missing
func (m Measure) Or(def float64) float64 {
	if !m.Valid {
		return def
	}
	return m.Value
}
