package exporter

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"adshub/internal/audit"
)

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "integrity", SheetName("integrity", used))
	assert.Equal(t, "Integrity (2)", SheetName("Integrity", used))
	assert.Equal(t, "a_b_c", SheetName("a/b:c", used))
	assert.Equal(t, "Sheet", SheetName("  ", used))

	long := SheetName(strings.Repeat("x", 40), used)
	assert.Len(t, long, maxSheetName)
	again := SheetName(strings.Repeat("x", 40), used)
	assert.Len(t, again, maxSheetName)
	assert.True(t, strings.HasSuffix(again, " (2)"))
}

func TestWriteSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "master.xlsx")
	w := NewXLSXWriter(nil)

	require.NoError(t, w.WriteSheets(path,
		Sheet{Name: "Master", Header: []string{"Campaign ID", "Cost"}, Rows: [][]string{{"1", "10.50"}, {"2", "3"}}},
		Sheet{Name: "Rolling", Header: []string{"Campaign_ID"}},
	))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Master", "Rolling"}, f.GetSheetList())
	rows, err := f.GetRows("Master")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Campaign ID", "Cost"}, {"1", "10.50"}, {"2", "3"}}, rows)

	style, err := f.GetCellStyle("Master", "A1")
	require.NoError(t, err)
	assert.NotZero(t, style, "header row is styled")
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audits.xlsx")
	w := NewXLSXWriter(nil)

	r := &audit.Report{
		Name:  "croatia",
		Title: "Croatia spend audit",
		Sections: []audit.Section{
			{Heading: "Country export", Lines: []string{"Rows: 3"}},
			{Heading: "Breakdown", Table: &audit.Grid{Header: []string{"Campaigns", "Count"}, Rows: [][]string{{"Croatia only", "1"}}}},
		},
		Warnings: []string{"non-HR spend"},
	}
	require.NoError(t, w.WriteReport(path, r, &audit.Report{Name: "raw", Title: "Raw integrity audit"}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"croatia", "raw"}, f.GetSheetList())
	rows, err := f.GetRows("croatia")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 8)
	assert.Equal(t, []string{"Croatia spend audit"}, rows[0])
	assert.Equal(t, []string{"Verdict", audit.VerdictPassWarnings}, rows[1])
	assert.Equal(t, []string{"Country export"}, rows[3])
	assert.Equal(t, []string{"Rows: 3"}, rows[4])
	assert.Equal(t, []string{"Campaigns", "Count"}, rows[7])
	assert.Equal(t, []string{"WARNING", "non-HR spend"}, rows[len(rows)-1])
}
