package rolling

import (
	"math"
	"sort"
	"strconv"

	"adshub/pkg/contracts/domain"
)

// series collects the present values of a measure
type series []float64

func (s *series) add(m domain.Measure) {
	if m.Valid {
		*s = append(*s, m.Value)
	}
}

func (s series) sum() float64 {
	var t float64
	for _, v := range s {
		t += v
	}
	return t
}

func (s series) mean() float64 {
	if len(s) == 0 {
		return 0
	}
	return s.sum() / float64(len(s))
}

func (s series) median() float64 {
	if len(s) == 0 {
		return 0
	}
	c := make([]float64, len(s))
	copy(c, s)
	sort.Float64s(c)
	mid := len(c) / 2
	if len(c)%2 == 1 {
		return c[mid]
	}
	return (c[mid-1] + c[mid]) / 2
}

func (s series) min() float64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0]
	for _, v := range s[1:] {
		m = math.Min(m, v)
	}
	return m
}

func (s series) max() float64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0]
	for _, v := range s[1:] {
		m = math.Max(m, v)
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// lessID orders campaign IDs numerically when both are integers
func lessID(a, b string) bool {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}

// LabelCount is the number of windows carrying one label
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

func countLabels(windows []domain.RollingWindow, label func(domain.RollingWindow) string) []LabelCount {
	counts := make(map[string]int)
	for _, w := range windows {
		counts[label(w)]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
