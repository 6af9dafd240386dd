package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultDelimiter separates fields of the hub's CSV outputs.
const DefaultDelimiter = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes CSV outputs below a base directory
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a writer resolving relative paths against baseDir
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior. The zero value writes
// DefaultOptions.
type WriteOptions struct {
	Delimiter rune
	BOM       bool // UTF-8 BOM for Excel
	Append    bool
}

// DefaultOptions is ";" separated with a UTF-8 BOM
func DefaultOptions() WriteOptions {
	return WriteOptions{Delimiter: DefaultDelimiter, BOM: true}
}

// Comma is the options of the comma separated side outputs
func Comma() WriteOptions {
	return WriteOptions{Delimiter: ',', BOM: true}
}

// Write writes header and records to path, creating its directory
func (w *CSVWriter) Write(path string, header []string, records [][]string, opts WriteOptions) error {
	if opts == (WriteOptions{}) {
		opts = DefaultOptions()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	full := w.Resolve(path)

	w.logger.Info("csv_write",
		slog.String("file_path", full),
		slog.Int("record_count", len(records)),
		slog.String("delimiter", string(opts.Delimiter)))

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if opts.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(full, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Appends never repeat the BOM or the header.
	if opts.BOM && !opts.Append {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	if err := encode(file, opts.Delimiter, header, records, !opts.Append); err != nil {
		return err
	}
	return file.Close()
}

func encode(out io.Writer, delimiter rune, header []string, records [][]string, withHeader bool) error {
	writer := csv.NewWriter(out)
	writer.Comma = delimiter

	if withHeader && len(header) > 0 {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Append adds records to an existing file without a header
func (w *CSVWriter) Append(path string, records [][]string, delimiter rune) error {
	return w.Write(path, nil, records, WriteOptions{Delimiter: delimiter, Append: true})
}

// Resolve returns path unchanged when absolute, else joined to the base
// directory
func (w *CSVWriter) Resolve(path string) string {
	if filepath.IsAbs(path) || w.baseDir == "" {
		return path
	}
	return filepath.Join(w.baseDir, path)
}

// CopyFile copies src to dst, creating the directory of dst
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return n, out.Close()
}
