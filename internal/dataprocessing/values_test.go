package dataprocessing

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"adshub/pkg/contracts/domain"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234.56", 1234.56},
		{"EUR 12.00", 12},
		{"€3.5", 3.5},
		{"  42  ", 42},
		{"", 0},
		{"nan", 0},
		{"NaN", 0},
		{"--", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseCost(tt.in), 1e-9)
		})
	}
}

func TestParseEuropeanCost(t *testing.T) {
	assert.InDelta(t, 1234.5, ParseEuropeanCost("1234,50 €"), 1e-9)
	assert.InDelta(t, 0, ParseEuropeanCost("1.234,50"), 1e-9, "thousands separators are not supported")
	assert.InDelta(t, 0, ParseEuropeanCost(""), 1e-9)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(12345), ParseNumber("12,345"))
	assert.Equal(t, int64(3), ParseNumber("3.9"))
	assert.Equal(t, int64(-3), ParseNumber("-3.9"))
	assert.Equal(t, int64(0), ParseNumber("n/a"))
}

func TestParseFloat(t *testing.T) {
	assert.InDelta(t, 3.25, ParseFloat("3.25%"), 1e-9)
	assert.InDelta(t, 1024.5, ParseFloat("1,024.5"), 1e-9)
	assert.InDelta(t, 0, ParseFloat(" -- "), 1e-9)
}

func TestParseReach(t *testing.T) {
	assert.Equal(t, int64(150000), ParseReach("150,000"))
	assert.Equal(t, int64(0), ParseReach("1.5"))
	assert.Equal(t, int64(0), ParseReach(""))
}

func TestParseMeasure(t *testing.T) {
	assert.Equal(t, domain.Some(2.5), ParseMeasure("2.5"))
	assert.Equal(t, domain.Measure{}, ParseMeasure(""))
	assert.Equal(t, domain.Measure{}, ParseMeasure("abc"))
	assert.Equal(t, domain.Measure{}, ParseMeasure("1,000"))
}

func TestParseDayFirst(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"05.03.2025", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"5.3.2025", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"05.03.2025.", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"1/2/2025", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-10-01", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-10-01 00:00:00", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"Jan 7, 2025", time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDayFirst(tt.in)
			assert.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "nan", "soon", "32.13.2025"} {
		_, ok := ParseDayFirst(bad)
		assert.False(t, ok, bad)
	}
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "12.30", FormatCost(12.3))
	assert.Equal(t, "12.3", FormatFloat(12.3))
}

func TestTotal(t *testing.T) {
	var total Total
	for i := 0; i < 10; i++ {
		total.Add(0.1)
	}
	total.Add(math.NaN())
	assert.True(t, total.Decimal().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 1.0, total.Float())

	assert.Equal(t, 0.6, SumCosts(0.1, 0.2, 0.3))
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(2354918.77, 2354918.67, 0.10))
	assert.False(t, WithinTolerance(2354918.78, 2354918.67, 0.10))
	assert.True(t, WithinTolerance(100, 100, 0))
}
