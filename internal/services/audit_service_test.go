package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"adshub/internal/audit"
	apperrors "adshub/internal/errors"
	"adshub/internal/shared/testutil"
	"adshub/internal/sources"
)

func newAuditService(t *testing.T) (*AuditService, sources.Layout) {
	t.Helper()
	layout := testLayout(t)
	writeFile(t, layout.Anchor, "Campaign ID;Campaign;Account;Cost;Impr.\n"+
		"10;Kaufland Zagreb bumper;Kaufland HR;900;90000\n"+
		"11;Kaufland national in-stream;Kaufland HR;2100;300000\n"+
		"12;Nivea search;Beiersdorf;150;1000\n")
	writeMaster(t, layout, testCampaigns())
	writeRolling(t, layout, testWindows())

	logger, _ := testutil.NewLogger(t)
	loader := sources.NewLoader(layout, logger, nil)
	svc := NewAuditService(loader, AuditSettings{ExpectedTotal: 3150, Tolerance: 0.01}, nil, logger)
	return svc, layout
}

func TestAuditServiceList(t *testing.T) {
	svc, _ := newAuditService(t)
	assert.Equal(t, len(audit.Names()), len(svc.List()))
}

func TestAuditServiceRunWritesExports(t *testing.T) {
	metrics, reader := testMetrics(t)
	svc, layout := newAuditService(t)
	svc.metrics = metrics

	res, err := svc.Run(context.Background(), "other-formats")
	require.NoError(t, err)
	assert.Equal(t, "other-formats", res.Name)
	assert.Equal(t, res.Report.Verdict(), res.Verdict)
	assert.EqualValues(t, 1, res.Figures["other_campaigns"])

	want := filepath.Join(layout.OutputDir, audit.OtherFormatsFile)
	require.Equal(t, []string{want}, res.Written)
	raw, err := os.ReadFile(want)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Nivea search")

	assert.EqualValues(t, 1, counterTotal(t, reader, "audit_runs_total"))
}

func TestAuditServiceUnknownAudit(t *testing.T) {
	svc, _ := newAuditService(t)

	_, err := svc.Run(context.Background(), "nope")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)

	_, err = svc.RunAll(context.Background(), "integrity", "nope")
	require.True(t, errors.As(err, &appErr))
}

func TestAuditServiceRunAll(t *testing.T) {
	svc, _ := newAuditService(t)

	results, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(audit.Names()))
	for i, name := range audit.Names() {
		assert.Equal(t, name, results[i].Name)
		assert.Contains(t, []string{audit.VerdictPass, audit.VerdictPassWarnings, audit.VerdictFail}, results[i].Verdict)
	}
}

func TestAuditServiceRunAllHonorsCancellation(t *testing.T) {
	svc, _ := newAuditService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuditServiceExportXLSX(t *testing.T) {
	svc, _ := newAuditService(t)
	path := filepath.Join(t.TempDir(), "audits.xlsx")

	results, err := svc.ExportXLSX(context.Background(), path, "accounts", "missing-rolling")
	require.NoError(t, err)
	require.Len(t, results, 2)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"accounts", "missing-rolling"}, f.GetSheetList())
}
