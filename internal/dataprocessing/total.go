package dataprocessing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Total accumulates currency amounts without float drift. The zero value
// is an empty total.
type Total struct {
	sum decimal.Decimal
}

// Add adds one amount
func (t *Total) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	t.sum = t.sum.Add(decimal.NewFromFloat(v))
}

// Decimal returns the exact sum
func (t Total) Decimal() decimal.Decimal {
	return t.sum
}

// Float returns the sum as a float64
func (t Total) Float() float64 {
	f, _ := t.sum.Float64()
	return f
}

// SumCosts adds the amounts in vals
func SumCosts(vals ...float64) float64 {
	var t Total
	for _, v := range vals {
		t.Add(v)
	}
	return t.Float()
}

// WithinTolerance reports whether |got-want| <= tol using exact arithmetic
func WithinTolerance(got, want, tol float64) bool {
	diff := decimal.NewFromFloat(got).Sub(decimal.NewFromFloat(want)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(tol))
}
