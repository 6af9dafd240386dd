package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"adshub/internal/audit"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Sheet is one worksheet of a workbook
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// XLSXWriter writes workbooks of audit reports and datasets
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// SheetName makes name a valid, unique worksheet name
func SheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

type workbook struct {
	f     *excelize.File
	bold  int
	used  map[string]bool
	count int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &workbook{f: f, bold: bold, used: make(map[string]bool)}, nil
}

// sheet returns a new worksheet, reusing the default one first
func (wb *workbook) sheet(name string) (string, error) {
	name = SheetName(name, wb.used)
	wb.count++
	if wb.count == 1 {
		if err := wb.f.SetSheetName(wb.f.GetSheetName(0), name); err != nil {
			return "", fmt.Errorf("failed to name sheet %q: %w", name, err)
		}
		return name, nil
	}
	if _, err := wb.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("failed to add sheet %q: %w", name, err)
	}
	return name, nil
}

func (wb *workbook) row(sheet string, n int, cells []string, bold bool) error {
	if len(cells) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := wb.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", n, sheet, err)
	}
	if bold {
		last, err := excelize.CoordinatesToCellName(len(cells), n)
		if err != nil {
			return err
		}
		return wb.f.SetCellStyle(sheet, cell, last, wb.bold)
	}
	return nil
}

func (wb *workbook) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := wb.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// WriteSheets writes one worksheet per sheet with a bold header row
func (w *XLSXWriter) WriteSheets(path string, sheets ...Sheet) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	defer wb.f.Close()

	for _, s := range sheets {
		name, err := wb.sheet(s.Name)
		if err != nil {
			return err
		}
		if err := wb.row(name, 1, s.Header, true); err != nil {
			return err
		}
		for i, r := range s.Rows {
			if err := wb.row(name, i+2, r, false); err != nil {
				return err
			}
		}
		if err := wb.f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("failed to freeze header of %s: %w", name, err)
		}
	}
	if len(sheets) == 0 {
		if _, err := wb.sheet("Empty"); err != nil {
			return err
		}
	}

	w.logger.Info("xlsx_write", slog.String("file_path", path), slog.Int("sheets", len(sheets)))
	return wb.save(path)
}

// WriteSheet writes a single sheet workbook
func (w *XLSXWriter) WriteSheet(path, sheet string, header []string, rows [][]string) error {
	return w.WriteSheets(path, Sheet{Name: sheet, Header: header, Rows: rows})
}

// WriteReport writes one worksheet per audit report. Section headings and
// table headers are bold.
func (w *XLSXWriter) WriteReport(path string, reports ...*audit.Report) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	defer wb.f.Close()

	for _, r := range reports {
		name, err := wb.sheet(r.Name)
		if err != nil {
			return err
		}
		if err := writeReport(wb, name, r); err != nil {
			return err
		}
		if err := wb.f.SetColWidth(name, "A", "A", 48); err != nil {
			return err
		}
	}
	if len(reports) == 0 {
		if _, err := wb.sheet("Empty"); err != nil {
			return err
		}
	}

	w.logger.Info("xlsx_report_write", slog.String("file_path", path), slog.Int("reports", len(reports)))
	return wb.save(path)
}

func writeReport(wb *workbook, sheet string, r *audit.Report) error {
	n := 1
	emit := func(cells []string, bold bool) error {
		err := wb.row(sheet, n, cells, bold)
		n++
		return err
	}

	if err := emit([]string{r.Title}, true); err != nil {
		return err
	}
	if err := emit([]string{"Verdict", r.Verdict()}, true); err != nil {
		return err
	}
	n++

	for _, s := range r.Sections {
		if err := emit([]string{s.Heading}, true); err != nil {
			return err
		}
		for _, l := range s.Lines {
			if err := emit([]string{l}, false); err != nil {
				return err
			}
		}
		if s.Table != nil {
			if err := emit(s.Table.Header, true); err != nil {
				return err
			}
			for _, row := range s.Table.Rows {
				if err := emit(row, false); err != nil {
					return err
				}
			}
		}
		n++
	}

	for _, i := range r.Issues {
		if err := emit([]string{"ISSUE", i}, false); err != nil {
			return err
		}
	}
	for _, wn := range r.Warnings {
		if err := emit([]string{"WARNING", wn}, false); err != nil {
			return err
		}
	}
	return nil
}
