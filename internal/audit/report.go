package audit

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Verdicts.
const (
	VerdictPass         = "PASS"
	VerdictPassWarnings = "PASS WITH WARNINGS"
	VerdictFail         = "FAIL"
)

// Report is the outcome of one audit
type Report struct {
	Name     string             `json:"name"`
	Title    string             `json:"title"`
	Sections []Section          `json:"sections"`
	Issues   []string           `json:"issues"`
	Warnings []string           `json:"warnings"`
	Figures  map[string]float64 `json:"figures"`

	// Exports are side outputs the audit wants written next to the data
	Exports []Export `json:"exports,omitempty"`
}

// Section is one headed block of a report
type Section struct {
	Heading string   `json:"heading"`
	Lines   []string `json:"lines,omitempty"`
	Table   *Grid    `json:"table,omitempty"`
}

// Grid is a small table rendered inside a section
type Grid struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Export is a CSV file produced by an audit
type Export struct {
	File      string     `json:"file"`
	Delimiter rune       `json:"-"`
	Header    []string   `json:"header"`
	Rows      [][]string `json:"-"`
}

// Verdict summarizes the issues and warnings of the report
func (r *Report) Verdict() string {
	switch {
	case len(r.Issues) > 0:
		return VerdictFail
	case len(r.Warnings) > 0:
		return VerdictPassWarnings
	}
	return VerdictPass
}

func newReport(name, title string) *Report {
	return &Report{
		Name:     name,
		Title:    title,
		Issues:   []string{},
		Warnings: []string{},
		Figures:  make(map[string]float64),
	}
}

// section starts a new section and returns it for appending
func (r *Report) section(heading string) *Section {
	r.Sections = append(r.Sections, Section{Heading: heading})
	return &r.Sections[len(r.Sections)-1]
}

func (r *Report) issue(format string, args ...any) {
	r.Issues = append(r.Issues, printer.Sprintf(format, args...))
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, printer.Sprintf(format, args...))
}

func (r *Report) figure(key string, v float64) {
	r.Figures[key] = v
}

func (s *Section) linef(format string, args ...any) {
	s.Lines = append(s.Lines, printer.Sprintf(format, args...))
}

func (s *Section) grid(header ...string) *Grid {
	s.Table = &Grid{Header: header}
	return s.Table
}

func (g *Grid) add(cells ...string) {
	g.Rows = append(g.Rows, cells)
}

// Figures print with English digit grouping, e.g. "EUR 2,354,918.67"
var printer = message.NewPrinter(language.English)

func eur(v float64) string {
	return printer.Sprintf("EUR %.2f", v)
}

func count(n int) string {
	return printer.Sprintf("%d", n)
}

func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func pctText(part, whole float64) string {
	return fmt.Sprintf("%.2f%%", pct(part, whole))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// spend is a labelled amount used for ranked breakdowns
type spend struct {
	label string
	cost  float64
	n     int
}

// ranked sorts by cost descending, then label
func ranked(m map[string]*spend) []spend {
	out := make([]spend, 0, len(m))
	for _, s := range m {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].cost != out[j].cost {
			return out[i].cost > out[j].cost
		}
		return out[i].label < out[j].label
	})
	return out
}

func accumulate(m map[string]*spend, label string, cost float64) *spend {
	s := m[label]
	if s == nil {
		s = &spend{label: label}
		m[label] = s
	}
	s.cost += cost
	s.n++
	return s
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func idSet[T any](rows []T, id func(T) string) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[id(r)] = true
	}
	return out
}
