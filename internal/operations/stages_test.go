package operations_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adshub/internal/exporter"
	"adshub/internal/operations"
	"adshub/internal/operations/testutil"
	"adshub/internal/sources"
	"adshub/internal/store"
	"adshub/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeExport(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seedExports(t *testing.T) sources.Layout {
	t.Helper()
	dir := t.TempDir()
	layout := sources.DefaultLayout(filepath.Join(dir, "data"), filepath.Join(dir, "out"))

	writeExport(t, layout.Anchor, "\ufeffCampaign ID;Campaign;Account;Cost;Impr.\n"+
		"1;VID_BR_X_Kaufland_Q1;Kaufland HR;1,200.50;10000\n"+
		"2;PMAX_Nivea;Beiersdorf;300;5000\n")
	writeExport(t, layout.Country, "Campaign ID;Campaign;Account name;Country/Territory (User location);Cost\n"+
		"1;VID_BR_X_Kaufland_Q1;Kaufland HR;Croatia;1,200.50\n"+
		"2;PMAX_Nivea;Beiersdorf;Slovenia;300\n")
	writeExport(t, layout.Duration, "Campaign ID;Campaign;Campaign start date;Campaign end date\n"+
		"1;VID_BR_X_Kaufland_Q1;06.01.2025;30.03.2025\n"+
		"2;PMAX_Nivea;01.02.2025;28.02.2025\n")
	writeExport(t, layout.Reach[0], "Campaign ID;Unique users\n1;12,000\n")
	writeExport(t, layout.Rolling, "Window_Start,Window_End,Campaign_ID,Campaign,Type,Cost,Impressions,Reach,Avg_Frequency\n"+
		"2025-01-06,2025-04-05,1,VID_BR_X_Kaufland_Q1,VIDEO,100,2000,900,2.2\n"+
		"2025-01-13,2025-04-12,1,VID_BR_X_Kaufland_Q1,VIDEO,110,2100,950,2.2\n")
	return layout
}

type fakeStore struct {
	mu        sync.Mutex
	campaigns []domain.Campaign
	windows   []domain.RollingWindow
	runs      []store.Run
	failures  int
}

func (s *fakeStore) ReplaceCampaigns(_ context.Context, c []domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("database is locked")
	}
	s.campaigns = c
	return nil
}

func (s *fakeStore) ReplaceRolling(_ context.Context, w []domain.RollingWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = w
	return nil
}

func (s *fakeStore) RecordRun(_ context.Context, run store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

type fakePublisher struct {
	files []string
}

func (p *fakePublisher) Bucket() string { return "ads-bucket" }

func (p *fakePublisher) PublishAll(_ context.Context, files []string) ([]*exporter.PublishResult, error) {
	p.files = files
	out := make([]*exporter.PublishResult, 0, len(files))
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			return out, err
		}
		out = append(out, &exporter.PublishResult{
			Key:      filepath.Base(f),
			Location: "s3://ads-bucket/" + filepath.Base(f),
			Size:     fi.Size(),
		})
	}
	return out, nil
}

func pipelineManager(t *testing.T, deps operations.StageDeps) *operations.Manager {
	t.Helper()
	r := operations.NewRegistry()
	require.NoError(t, operations.RegisterPipeline(r, deps))
	m := operations.NewManager(nil, r, testutil.CreateTestConfig(), quietLogger(), nil)
	t.Cleanup(m.Stop)
	return m
}

func TestPipelineEndToEnd(t *testing.T) {
	layout := seedExports(t)
	st := &fakeStore{failures: 1}
	pub := &fakePublisher{}
	m := pipelineManager(t, operations.StageDeps{
		Layout:    layout,
		Writer:    exporter.NewCSVWriter("", quietLogger()),
		Store:     st,
		Publisher: pub,
		Logger:    quietLogger(),
	})

	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "full"})
	require.NoError(t, err)
	require.Equal(t, operations.OperationStatusCompleted, resp.Status)

	state, err := m.GetOperation("full")
	require.NoError(t, err)
	assert.Equal(t, []string{
		operations.StageIDMerge, operations.StageIDHRExtract, operations.StageIDStandardize,
		operations.StageIDMaster, operations.StageIDRolling, operations.StageIDPersist, operations.StageIDPublish,
	}, state.Order)

	for _, p := range []string{layout.MasterBackup, layout.HRPrototype, layout.Standardized, layout.PreCleanupBackup, layout.Master, layout.RollingClean} {
		assert.FileExists(t, p)
	}

	rows, _ := state.GetContext(operations.ContextKeyMasterRows)
	assert.Equal(t, 2, rows)
	hrRows, _ := state.GetContext(operations.ContextKeyHRRows)
	assert.Equal(t, 1, hrRows)
	hrTotal, _ := state.GetContext(operations.ContextKeyHRTotal)
	assert.InDelta(t, 1200.50, hrTotal, 1e-9)
	strategy, _ := state.GetContext(operations.ContextKeyStrategy)
	assert.Equal(t, "croatia-spend", strategy)

	master, err := sources.ReadCampaigns(layout.Master)
	require.NoError(t, err)
	require.Len(t, master, 1)
	assert.Equal(t, "Q1 2025", master[0].Quarter)
	assert.Equal(t, "Kaufland", master[0].Brand)

	require.Len(t, st.campaigns, 1)
	windows, _ := state.GetContext(operations.ContextKeyRollingWindows)
	assert.Equal(t, windows, len(st.windows))
	require.Len(t, st.runs, 1)
	assert.Equal(t, "full", st.runs[0].ID)
	assert.Equal(t, "croatia-spend", st.runs[0].Strategy)
	assert.Equal(t, 1, st.runs[0].Campaigns)

	assert.Contains(t, pub.files, layout.Master)
	assert.Contains(t, pub.files, layout.RollingClean)
	assert.NotContains(t, pub.files, layout.MissingRolling)
	published, _ := state.GetContext(operations.ContextKeyPublished)
	assert.Len(t, published, len(pub.files))

	assert.Equal(t, "ads-bucket", state.GetStage(operations.StageIDPublish).MetadataCopy()["bucket"])
}

func TestRollingOutputUsesCommas(t *testing.T) {
	layout := seedExports(t)
	m := pipelineManager(t, operations.StageDeps{Layout: layout, Logger: quietLogger()})

	_, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	data, err := os.ReadFile(layout.RollingClean)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Window_Start,Window_End")

	w, err := sources.ReadRolling(layout.RollingClean)
	require.NoError(t, err)
	assert.NotEmpty(t, w)
}

func TestPipelineRejectsUnknownStrategy(t *testing.T) {
	layout := seedExports(t)
	m := pipelineManager(t, operations.StageDeps{Layout: layout, Logger: quietLogger()})

	_, err := m.Execute(context.Background(), operations.OperationRequest{
		ID:         "bad-strategy",
		Parameters: map[string]interface{}{operations.ParamStrategy: "everywhere"},
	})
	require.Error(t, err)

	state, _ := m.GetOperation("bad-strategy")
	testutil.RequireStageStatus(t, state, operations.StageIDMerge, operations.StepStatusCompleted)
	testutil.RequireStageStatus(t, state, operations.StageIDHRExtract, operations.StepStatusFailed)
	testutil.RequireStageStatus(t, state, operations.StageIDRolling, operations.StepStatusSkipped)
}

func TestSingleStageNeedsItsInputs(t *testing.T) {
	layout := seedExports(t)
	m := pipelineManager(t, operations.StageDeps{Layout: layout, Logger: quietLogger()})

	_, err := m.Execute(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: operations.StageIDMaster},
	})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.Contains(t, err.Error(), "STANDARDIZED")

	types, err := m.Stages()
	require.NoError(t, err)
	require.Len(t, types, 5)
	assert.True(t, types[0].CanRunAlone)
	assert.False(t, types[3].CanRunAlone)
	assert.NotEmpty(t, types[3].Description)
}

func TestRegisterPipelineOptionalStages(t *testing.T) {
	r := operations.NewRegistry()
	require.NoError(t, operations.RegisterPipeline(r, operations.StageDeps{Layout: sources.DefaultLayout(t.TempDir(), "")}))
	assert.False(t, r.Has(operations.StageIDPersist))
	assert.False(t, r.Has(operations.StageIDPublish))

	r = operations.NewRegistry()
	require.NoError(t, operations.RegisterPipeline(r, operations.StageDeps{
		Layout:    sources.DefaultLayout(t.TempDir(), ""),
		Store:     &fakeStore{},
		Publisher: &fakePublisher{},
	}))
	assert.Equal(t, 7, r.Count())
}

func TestPublishFilesSkipsMissingOutputs(t *testing.T) {
	layout := sources.DefaultLayout(t.TempDir(), "")
	writeExport(t, layout.Master, "x")
	writeExport(t, layout.HRPrototype, "x")

	s := operations.NewPublishStage(operations.StageDeps{Layout: layout, Publisher: &fakePublisher{}})
	assert.Equal(t, []string{layout.HRPrototype, layout.Master}, s.Files())
}

type stubRolling struct{}

func (stubRolling) Windows(context.Context) ([]domain.RollingWindow, error) {
	return []domain.RollingWindow{{
		WindowStart: "2025-02-01", WindowEnd: "2025-05-01",
		CampaignID: "1", Campaign: "VID_BR_X_Kaufland_Q1",
	}}, nil
}

func TestRollingStageReadsSheetSource(t *testing.T) {
	layout := seedExports(t)
	require.NoError(t, os.Remove(layout.Rolling))
	m := pipelineManager(t, operations.StageDeps{Layout: layout, Rolling: stubRolling{}, Logger: quietLogger()})

	_, err := m.Execute(context.Background(), operations.OperationRequest{ID: "sheets"})
	require.NoError(t, err)

	state, _ := m.GetOperation("sheets")
	assert.Equal(t, "sheets", state.GetStage(operations.StageIDRolling).MetadataCopy()["source"])
}
