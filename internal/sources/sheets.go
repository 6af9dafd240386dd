package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"adshub/internal/dataprocessing"
	"adshub/pkg/contracts/domain"
)

// DefaultSheetsRange is the tab the rolling reach script writes to
const DefaultSheetsRange = "Sheet1"

// SheetsRollingSource reads the rolling reach script output straight from
// its spreadsheet. The first row is the header.
type SheetsRollingSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *slog.Logger
}

// NewSheetsRollingSource creates a Sheets client. Callers pass credentials
// or endpoint overrides through opts.
func NewSheetsRollingSource(ctx context.Context, spreadsheetID, readRange string, logger *slog.Logger, opts ...option.ClientOption) (*SheetsRollingSource, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if readRange == "" {
		readRange = DefaultSheetsRange
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsRollingSource{
		service:       svc,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		logger:        logger.With(slog.String("component", "sheets")),
	}, nil
}

// CredentialsOption reads a service account file for NewSheetsRollingSource
func CredentialsOption(path string) (option.ClientOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return option.WithCredentialsJSON(data), nil
}

// Windows fetches and maps every row of the configured range
func (s *SheetsRollingSource) Windows(ctx context.Context) ([]domain.RollingWindow, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", s.readRange, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("sheet %s: %w", s.readRange, dataprocessing.ErrEmptyTable)
	}

	header := cells(resp.Values[0])
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, r := range resp.Values[1:] {
		rows = append(rows, cells(r))
	}

	windows := RollingFromTable(dataprocessing.NewTable(header, rows))
	s.logger.InfoContext(ctx, "rolling_sheet_loaded",
		slog.String("range", s.readRange),
		slog.Int("rows", len(windows)))
	return windows, nil
}

func cells(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
