package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyTable is returned when an export has no header row.
var ErrEmptyTable = errors.New("table has no header row")

// ReadOptions configures how a delimited export is decoded
type ReadOptions struct {
	Delimiter rune
}

// Table is a header-indexed view over the rows of an export
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table from a header and rows
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column or -1
func (t *Table) Index(col string) int {
	if t == nil {
		return -1
	}
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists
func (t *Table) Has(col string) bool {
	return t.Index(col) >= 0
}

// FirstOf returns the first column name present, or ""
func (t *Table) FirstOf(cols ...string) string {
	for _, c := range cols {
		if t.Has(c) {
			return c
		}
	}
	return ""
}

// Value returns the trimmed cell value, "" for missing columns or short rows
func (t *Table) Value(row int, col string) string {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// ReadTable decodes a delimited export
func ReadTable(r io.Reader, opts ReadOptions) (*Table, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}

	// BOMOverride switches to UTF-16 when a UTF-16 BOM is present and strips a
	// UTF-8 BOM otherwise.
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(r, decoder))
	reader.Comma = opts.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return NewTable(records[0], rows), nil
}

// ReadTableFile reads a delimited or workbook export from disk
func ReadTableFile(path string, opts ReadOptions) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" || ext == ".xlsm" {
		return readWorkbook(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	t, err := ReadTable(bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	slog.Debug("table loaded",
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Header)))
	return t, nil
}

// readWorkbook takes the first sheet that has a header and at least one row
func readWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		return NewTable(rows[0], rows[1:]), nil
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyTable)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
