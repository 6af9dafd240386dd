package operations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"adshub/internal/dataprocessing"
	"adshub/internal/exporter"
	"adshub/internal/merge"
	"adshub/internal/rolling"
	"adshub/internal/sources"
	"adshub/internal/store"
	"adshub/pkg/contracts/domain"
)

// PipelineSettings are the expectations the stages check their results
// against
type PipelineSettings struct {
	ExpectedTotal  float64
	TotalTolerance float64
	ExpectedFixes  int
	HRStrategy     string
	WorldwideLimit int
	ExcludedYear   int
	YearToken      string
}

// CampaignStore persists the pipeline results
type CampaignStore interface {
	ReplaceCampaigns(ctx context.Context, campaigns []domain.Campaign) error
	ReplaceRolling(ctx context.Context, windows []domain.RollingWindow) error
	RecordRun(ctx context.Context, run store.Run) error
}

// Publisher uploads output files
type Publisher interface {
	Bucket() string
	PublishAll(ctx context.Context, files []string) ([]*exporter.PublishResult, error)
}

// StageDeps are the collaborators shared by the pipeline stages. Store and
// Publisher are optional and enable the persist and publish stages.
type StageDeps struct {
	Layout    sources.Layout
	Settings  PipelineSettings
	Writer    *exporter.CSVWriter
	Rolling   sources.RollingSource
	Store     CampaignStore
	Publisher Publisher
	Logger    *slog.Logger
}

func (d StageDeps) withDefaults() StageDeps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Writer == nil {
		d.Writer = exporter.NewCSVWriter("", d.Logger)
	}
	return d
}

// RegisterPipeline registers every stage the deps support
func RegisterPipeline(r *Registry, deps StageDeps) error {
	deps = deps.withDefaults()
	stages := []Step{
		NewMergeStage(deps),
		NewHRExtractStage(deps),
		NewStandardizeStage(deps),
		NewMasterStage(deps),
		NewRollingStage(deps),
	}
	if deps.Store != nil {
		stages = append(stages, NewPersistStage(deps))
	}
	if deps.Publisher != nil {
		stages = append(stages, NewPublishStage(deps))
	}
	for _, s := range stages {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return r.ValidateDependencies()
}

func costTotal(campaigns []domain.Campaign) float64 {
	var t dataprocessing.Total
	for _, c := range campaigns {
		t.Add(c.Cost)
	}
	return t.Float()
}

func campaignRecords(campaigns []domain.Campaign) [][]string {
	out := make([][]string, len(campaigns))
	for i, c := range campaigns {
		out[i] = c.Record()
	}
	return out
}

func rollingRecords(windows []domain.RollingWindow) [][]string {
	out := make([][]string, len(windows))
	for i, w := range windows {
		out[i] = w.Record()
	}
	return out
}

// readOptional returns no rows when path does not exist
func readOptional[T any](path string, read func(string) ([]T, error)) ([]T, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return read(path)
}

func cancelled(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s cancelled: %w", stage, err)
	}
	return nil
}

func setFigures(step *StepState, figures map[string]interface{}) {
	for k, v := range figures {
		step.SetMetadata(k, v)
	}
}

// MergeStage builds the raw master backup from every export
type MergeStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewMergeStage creates the merge stage
func NewMergeStage(deps StageDeps) *MergeStage {
	deps = deps.withDefaults()
	return &MergeStage{
		BaseStage: NewBaseStage(StageIDMerge, StageNameMerge, nil),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDMerge)),
	}
}

// Description describes the stage
func (s *MergeStage) Description() string {
	return "Joins the anchor export with formats, countries, demographics, interests, durations and quarterly reach"
}

// Validate requires the anchor export
func (s *MergeStage) Validate(state *OperationState) error {
	return CheckInputs(s)
}

// RequiredInputs lists the exports merged into the master backup
func (s *MergeStage) RequiredInputs() []DataRequirement {
	l := s.deps.Layout
	reqs := []DataRequirement{
		{Name: "anchor", Path: l.Anchor},
		{Name: "segmented", Path: l.Segmented, Optional: true},
		{Name: "country", Path: l.Country, Optional: true},
		{Name: "age_gender", Path: l.AgeGender, Optional: true},
		{Name: "interests", Path: l.Interests, Optional: true},
		{Name: "duration", Path: l.Duration, Optional: true},
	}
	for i, p := range l.Reach {
		reqs = append(reqs, DataRequirement{Name: fmt.Sprintf("reach_q%d", i+1), Path: p, Optional: true})
	}
	return reqs
}

// ProducedOutputs is the master backup
func (s *MergeStage) ProducedOutputs() []DataOutput {
	return []DataOutput{{Name: "master_backup", Path: s.deps.Layout.MasterBackup}}
}

// Execute loads the exports and writes the master backup
func (s *MergeStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())
	ReportProgress(ctx, 10, "Loading exports")

	bundle, err := sources.NewLoader(s.deps.Layout, s.deps.Logger, nil).LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load exports: %w", err)
	}
	if err := cancelled(ctx, s.ID()); err != nil {
		return err
	}

	ReportProgress(ctx, 60, "Merging master dataset")
	res := merge.BuildMaster(bundle, merge.MasterOptions{
		ExpectedTotal: s.deps.Settings.ExpectedTotal,
		Tolerance:     s.deps.Settings.TotalTolerance,
	})
	if !res.TotalOK {
		s.logger.WarnContext(ctx, "grand_total_mismatch",
			slog.Float64("grand_total", res.GrandTotal),
			slog.Float64("expected_total", res.ExpectedTotal))
	}

	ReportProgress(ctx, 85, "Writing master backup")
	if err := s.deps.Writer.Write(s.deps.Layout.MasterBackup, domain.CampaignHeader(), campaignRecords(res.Campaigns), exporter.DefaultOptions()); err != nil {
		return fmt.Errorf("write master backup: %w", err)
	}

	setFigures(step, map[string]interface{}{
		"campaigns":         len(res.Campaigns),
		"grand_total":       res.GrandTotal,
		"expected_total":    res.ExpectedTotal,
		"total_ok":          res.TotalOK,
		"youtube_campaigns": res.YouTubeCampaigns,
		"with_demographics": res.WithDemographics,
		"with_interests":    res.WithInterests,
		"with_reach":        res.WithReach,
		"missing_exports":   len(bundle.Missing),
		"output_path":       s.deps.Layout.MasterBackup,
	})
	state.SetContext(ContextKeyMasterRows, len(res.Campaigns))
	state.SetContext(ContextKeyMasterTotal, res.GrandTotal)
	return nil
}

// HRExtractStage cuts the Croatian market out of the master backup
type HRExtractStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewHRExtractStage creates the hr-extract stage
func NewHRExtractStage(deps StageDeps) *HRExtractStage {
	deps = deps.withDefaults()
	return &HRExtractStage{
		BaseStage: NewBaseStage(StageIDHRExtract, StageNameHRExtract, []string{StageIDMerge}),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDHRExtract)),
	}
}

// Description describes the stage
func (s *HRExtractStage) Description() string {
	return "Restricts the master backup to Croatian spend and drops worldwide targeting errors"
}

func (s *HRExtractStage) strategy(state *OperationState) (merge.Strategy, error) {
	name := state.ConfigString(ParamStrategy)
	if name == "" {
		name = s.deps.Settings.HRStrategy
	}
	return merge.ParseStrategy(name)
}

// Validate checks the strategy parameter and the inputs
func (s *HRExtractStage) Validate(state *OperationState) error {
	if _, err := s.strategy(state); err != nil {
		return NewValidationError(s.ID(), err.Error())
	}
	return CheckInputs(s)
}

// RequiredInputs are the master backup and the country export
func (s *HRExtractStage) RequiredInputs() []DataRequirement {
	return []DataRequirement{
		{Name: "master_backup", Path: s.deps.Layout.MasterBackup},
		{Name: "country", Path: s.deps.Layout.Country},
	}
}

// ProducedOutputs is the HR prototype
func (s *HRExtractStage) ProducedOutputs() []DataOutput {
	return []DataOutput{{Name: "hr_prototype", Path: s.deps.Layout.HRPrototype}}
}

// Execute writes the Croatian dataset
func (s *HRExtractStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())
	strategy, err := s.strategy(state)
	if err != nil {
		return NewValidationError(s.ID(), err.Error())
	}

	ReportProgress(ctx, 10, "Reading master backup")
	master, err := sources.ReadCampaigns(s.deps.Layout.MasterBackup)
	if err != nil {
		return fmt.Errorf("read master backup: %w", err)
	}
	countries, err := sources.ReadCountries(s.deps.Layout.Country)
	if err != nil {
		return fmt.Errorf("read countries: %w", err)
	}
	if err := cancelled(ctx, s.ID()); err != nil {
		return err
	}

	ReportProgress(ctx, 50, fmt.Sprintf("Extracting Croatia (%s)", strategy))
	res, err := merge.CleanHR(master, countries, merge.HROptions{
		Strategy:       strategy,
		WorldwideLimit: s.deps.Settings.WorldwideLimit,
	})
	if err != nil {
		return fmt.Errorf("extract croatia: %w", err)
	}
	if !res.TotalOK {
		s.logger.WarnContext(ctx, "hr_total_mismatch",
			slog.Float64("hr_total", res.HRTotal),
			slog.Float64("expected_total", res.ExpectedTotal))
	}

	ReportProgress(ctx, 85, "Writing HR prototype")
	if err := s.deps.Writer.Write(s.deps.Layout.HRPrototype, domain.CampaignHeader(), campaignRecords(res.Campaigns), exporter.DefaultOptions()); err != nil {
		return fmt.Errorf("write hr prototype: %w", err)
	}

	setFigures(step, map[string]interface{}{
		"strategy":              string(res.Strategy),
		"campaigns":             len(res.Campaigns),
		"global_total":          res.GlobalTotal,
		"hr_total":              res.HRTotal,
		"total_ok":              res.TotalOK,
		"worldwide_errors":      len(res.WorldwideErrors),
		"worldwide_error_spend": res.WorldwideErrorSpend,
		"kaufland_anomalies":    len(res.KauflandAnomalies),
		"kaufland_non_hr_spend": res.KauflandNonHRSpend,
		"rejected":              len(res.Rejected),
		"rejected_spend":        res.RejectedSpend,
		"output_path":           s.deps.Layout.HRPrototype,
	})
	state.SetContext(ContextKeyStrategy, string(res.Strategy))
	state.SetContext(ContextKeyHRRows, len(res.Campaigns))
	state.SetContext(ContextKeyHRTotal, res.HRTotal)
	return nil
}

// StandardizeStage labels the Croatian campaigns
type StandardizeStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewStandardizeStage creates the standardize stage
func NewStandardizeStage(deps StageDeps) *StandardizeStage {
	deps = deps.withDefaults()
	return &StandardizeStage{
		BaseStage: NewBaseStage(StageIDStandardize, StageNameStandardize, []string{StageIDHRExtract}),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDStandardize)),
	}
}

// Description describes the stage
func (s *StandardizeStage) Description() string {
	return "Derives target, format, date range, bid strategy and goal and builds the standardized names"
}

// Validate requires the HR prototype
func (s *StandardizeStage) Validate(state *OperationState) error {
	return CheckInputs(s)
}

// RequiredInputs are the HR prototype and the optional label exports
func (s *StandardizeStage) RequiredInputs() []DataRequirement {
	return []DataRequirement{
		{Name: "hr_prototype", Path: s.deps.Layout.HRPrototype},
		{Name: "age_gender", Path: s.deps.Layout.AgeGender, Optional: true},
		{Name: "bidding", Path: s.deps.Layout.Bidding, Optional: true},
	}
}

// ProducedOutputs is the standardized dataset
func (s *StandardizeStage) ProducedOutputs() []DataOutput {
	return []DataOutput{{Name: "standardized", Path: s.deps.Layout.Standardized}}
}

// Execute writes the standardized dataset
func (s *StandardizeStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())
	l := s.deps.Layout

	ReportProgress(ctx, 10, "Reading HR prototype")
	hr, err := sources.ReadCampaigns(l.HRPrototype)
	if err != nil {
		return fmt.Errorf("read hr prototype: %w", err)
	}
	demo, err := readOptional(l.AgeGender, sources.ReadDemographics)
	if err != nil {
		return fmt.Errorf("read demographics: %w", err)
	}
	bids, err := readOptional(l.Bidding, sources.ReadBidding)
	if err != nil {
		return fmt.Errorf("read bidding: %w", err)
	}
	if err := cancelled(ctx, s.ID()); err != nil {
		return err
	}

	ReportProgress(ctx, 50, "Standardizing campaign names")
	res := merge.Standardize(hr, demo, bids)

	ReportProgress(ctx, 85, "Writing standardized dataset")
	if err := s.deps.Writer.Write(l.Standardized, domain.CampaignHeader(), campaignRecords(res.Campaigns), exporter.DefaultOptions()); err != nil {
		return fmt.Errorf("write standardized: %w", err)
	}

	setFigures(step, map[string]interface{}{
		"campaigns":   len(res.Campaigns),
		"brands":      len(res.Brands),
		"formats":     len(res.Formats),
		"bids":        len(res.Bids),
		"goals":       len(res.Goals),
		"total_cost":  costTotal(res.Campaigns),
		"output_path": l.Standardized,
	})
	state.SetContext(ContextKeyStandardized, len(res.Campaigns))
	return nil
}

// MasterStage applies the manual fixes and writes the final master file
type MasterStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewMasterStage creates the master stage
func NewMasterStage(deps StageDeps) *MasterStage {
	deps = deps.withDefaults()
	return &MasterStage{
		BaseStage: NewBaseStage(StageIDMaster, StageNameMaster, []string{StageIDStandardize}),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDMaster)),
	}
}

// Description describes the stage
func (s *MasterStage) Description() string {
	return "Backs up the standardized dataset, applies the format fixes and assigns quarters"
}

// Validate requires the standardized dataset
func (s *MasterStage) Validate(state *OperationState) error {
	return CheckInputs(s)
}

// RequiredInputs are the standardized dataset and the format fixes
func (s *MasterStage) RequiredInputs() []DataRequirement {
	return []DataRequirement{
		{Name: "standardized", Path: s.deps.Layout.Standardized},
		{Name: "format_fixes", Path: s.deps.Layout.FormatFixes, Optional: true},
	}
}

// ProducedOutputs are the backup and the final master
func (s *MasterStage) ProducedOutputs() []DataOutput {
	return []DataOutput{
		{Name: "pre_cleanup_backup", Path: s.deps.Layout.PreCleanupBackup},
		{Name: "master", Path: s.deps.Layout.Master},
	}
}

// Execute writes the final master dataset
func (s *MasterStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())
	l := s.deps.Layout

	ReportProgress(ctx, 10, "Backing up standardized dataset")
	if _, err := exporter.CopyFile(l.Standardized, l.PreCleanupBackup); err != nil {
		return fmt.Errorf("backup standardized: %w", err)
	}
	std, err := sources.ReadCampaigns(l.Standardized)
	if err != nil {
		return fmt.Errorf("read standardized: %w", err)
	}
	fixes, err := readOptional(l.FormatFixes, sources.ReadFormatFixes)
	if err != nil {
		return fmt.Errorf("read format fixes: %w", err)
	}
	if err := cancelled(ctx, s.ID()); err != nil {
		return err
	}

	ReportProgress(ctx, 50, "Applying format fixes")
	res := merge.Finalize(std, fixes, merge.FinalizeOptions{
		ExpectedFixes: s.deps.Settings.ExpectedFixes,
		YearToken:     s.deps.Settings.YearToken,
	})
	if res.FixesMismatch {
		s.logger.WarnContext(ctx, "format_fix_count_mismatch",
			slog.Int("fixed", res.FormatsFixed),
			slog.Int("expected", res.ExpectedFixes),
			slog.Int("not_found", len(res.FixesNotFound)))
	}

	ReportProgress(ctx, 85, "Writing master dataset")
	if err := s.deps.Writer.Write(l.Master, domain.CampaignHeader(), campaignRecords(res.Campaigns), exporter.DefaultOptions()); err != nil {
		return fmt.Errorf("write master: %w", err)
	}

	total := costTotal(res.Campaigns)
	setFigures(step, map[string]interface{}{
		"campaigns":       len(res.Campaigns),
		"formats_fixed":   res.FormatsFixed,
		"expected_fixes":  res.ExpectedFixes,
		"fixes_mismatch":  res.FixesMismatch,
		"fixes_not_found": len(res.FixesNotFound),
		"hidra_renamed":   res.HidraRenamed,
		"unknown_dropped": res.UnknownDropped,
		"total_cost":      total,
		"output_path":     l.Master,
	})
	state.SetContext(ContextKeyFinalRows, len(res.Campaigns))
	state.SetContext(ContextKeyFinalTotal, total)
	return nil
}

// RollingStage cleans the 90 day rolling reach windows against the master
type RollingStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewRollingStage creates the rolling stage
func NewRollingStage(deps StageDeps) *RollingStage {
	deps = deps.withDefaults()
	return &RollingStage{
		BaseStage: NewBaseStage(StageIDRolling, StageNameRolling, []string{StageIDMaster}),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDRolling)),
	}
}

// Description describes the stage
func (s *RollingStage) Description() string {
	return "Deduplicates the rolling reach windows and maps them onto the master labels"
}

// Validate requires the master and, without a sheet source, the export
func (s *RollingStage) Validate(state *OperationState) error {
	return CheckInputs(s)
}

// RequiredInputs are the master and the rolling export
func (s *RollingStage) RequiredInputs() []DataRequirement {
	return []DataRequirement{
		{Name: "master", Path: s.deps.Layout.Master},
		{Name: "rolling", Path: s.deps.Layout.Rolling, Optional: s.deps.Rolling != nil},
	}
}

// ProducedOutputs is the cleaned rolling dataset
func (s *RollingStage) ProducedOutputs() []DataOutput {
	return []DataOutput{{Name: "rolling_clean", Path: s.deps.Layout.RollingClean}}
}

func (s *RollingStage) windows(ctx context.Context) ([]domain.RollingWindow, string, error) {
	if s.deps.Rolling != nil {
		w, err := s.deps.Rolling.Windows(ctx)
		return w, "sheets", err
	}
	w, err := sources.ReadRolling(s.deps.Layout.Rolling)
	return w, "csv", err
}

// Execute writes the cleaned rolling dataset
func (s *RollingStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())

	ReportProgress(ctx, 10, "Loading rolling reach windows")
	windows, origin, err := s.windows(ctx)
	if err != nil {
		return fmt.Errorf("load rolling windows: %w", err)
	}
	master, err := sources.ReadCampaigns(s.deps.Layout.Master)
	if err != nil {
		return fmt.Errorf("read master: %w", err)
	}
	if err := cancelled(ctx, s.ID()); err != nil {
		return err
	}

	ReportProgress(ctx, 50, "Processing rolling reach")
	res := rolling.Process(windows, master, rolling.Options{ExcludedYear: s.deps.Settings.ExcludedYear})
	if res.Anomalies.Any() {
		s.logger.WarnContext(ctx, "rolling_anomalies",
			slog.Any("anomalies", res.Anomalies))
	}

	ReportProgress(ctx, 85, "Writing rolling dataset")
	if err := s.deps.Writer.Write(s.deps.Layout.RollingClean, domain.RollingHeader(), rollingRecords(res.Windows), exporter.Comma()); err != nil {
		return fmt.Errorf("write rolling: %w", err)
	}

	setFigures(step, map[string]interface{}{
		"source":         origin,
		"input":          res.Input,
		"excluded_year":  res.ExcludedYear,
		"duplicates":     res.Duplicates,
		"mapped":         res.Mapped,
		"unmapped":       res.Unmapped,
		"windows":        len(res.Windows),
		"saturated":      res.Saturated,
		"saturation_set": len(res.Saturation),
		"output_path":    s.deps.Layout.RollingClean,
	})
	state.SetContext(ContextKeyRollingWindows, len(res.Windows))
	return nil
}

// PersistStage loads the final datasets into the store
type PersistStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewPersistStage creates the persist stage
func NewPersistStage(deps StageDeps) *PersistStage {
	deps = deps.withDefaults()
	return &PersistStage{
		BaseStage: NewBaseStage(StageIDPersist, StageNamePersist, []string{StageIDRolling}),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDPersist)),
	}
}

// Description describes the stage
func (s *PersistStage) Description() string {
	return "Replaces the stored campaigns and rolling windows and records the run"
}

// Validate requires a store and both final datasets
func (s *PersistStage) Validate(state *OperationState) error {
	if s.deps.Store == nil {
		return NewValidationError(s.ID(), "no store configured")
	}
	return CheckInputs(s)
}

// RequiredInputs are the final datasets
func (s *PersistStage) RequiredInputs() []DataRequirement {
	return []DataRequirement{
		{Name: "master", Path: s.deps.Layout.Master},
		{Name: "rolling_clean", Path: s.deps.Layout.RollingClean},
	}
}

// Execute writes both datasets and the run record
func (s *PersistStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())

	ReportProgress(ctx, 10, "Reading final datasets")
	master, err := sources.ReadCampaigns(s.deps.Layout.Master)
	if err != nil {
		return fmt.Errorf("read master: %w", err)
	}
	windows, err := sources.ReadRolling(s.deps.Layout.RollingClean)
	if err != nil {
		return fmt.Errorf("read rolling: %w", err)
	}

	ReportProgress(ctx, 40, "Storing campaigns")
	if err := s.deps.Store.ReplaceCampaigns(ctx, master); err != nil {
		return NewExecutionError(s.ID(), err, true)
	}
	ReportProgress(ctx, 70, "Storing rolling windows")
	if err := s.deps.Store.ReplaceRolling(ctx, windows); err != nil {
		return NewExecutionError(s.ID(), err, true)
	}

	now := time.Now()
	total := costTotal(master)
	run := store.Run{
		ID:         state.ID,
		Status:     string(OperationStatusCompleted),
		Strategy:   state.ConfigString(ParamStrategy),
		StartedAt:  state.StartTime,
		FinishedAt: &now,
		Campaigns:  len(master),
		Windows:    len(windows),
		TotalCost:  total,
		Metadata:   map[string]string{},
	}
	if v, ok := state.GetContext(ContextKeyStrategy); ok {
		run.Strategy, _ = v.(string)
	}
	for _, done := range state.GetCompletedStages() {
		run.Metadata[done.ID] = string(done.GetStatus())
	}
	if err := s.deps.Store.RecordRun(ctx, run); err != nil {
		return NewExecutionError(s.ID(), err, true)
	}

	setFigures(step, map[string]interface{}{
		"campaigns":  len(master),
		"windows":    len(windows),
		"total_cost": total,
	})
	state.SetContext(ContextKeyRunID, run.ID)
	return nil
}

// PublishStage uploads the derived files to S3
type PublishStage struct {
	BaseStage
	deps   StageDeps
	logger *slog.Logger
}

// NewPublishStage creates the publish stage
func NewPublishStage(deps StageDeps) *PublishStage {
	deps = deps.withDefaults()
	return &PublishStage{
		BaseStage: NewBaseStage(StageIDPublish, StageNamePublish, []string{StageIDRolling}),
		deps:      deps,
		logger:    deps.Logger.With(slog.String("stage", StageIDPublish)),
	}
}

// Description describes the stage
func (s *PublishStage) Description() string {
	return "Uploads the derived CSV files to the configured S3 bucket"
}

// Validate requires a publisher and the master file
func (s *PublishStage) Validate(state *OperationState) error {
	if s.deps.Publisher == nil {
		return NewValidationError(s.ID(), "no bucket configured")
	}
	return CheckInputs(s)
}

// RequiredInputs is the master file
func (s *PublishStage) RequiredInputs() []DataRequirement {
	return []DataRequirement{{Name: "master", Path: s.deps.Layout.Master}}
}

// Files returns the derived files that exist, in name order
func (s *PublishStage) Files() []string {
	outputs := s.deps.Layout.Outputs()
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := os.Stat(outputs[name]); err == nil {
			files = append(files, outputs[name])
		}
	}
	return files
}

// Execute uploads the files
func (s *PublishStage) Execute(ctx context.Context, state *OperationState) error {
	step := state.GetStage(s.ID())
	files := s.Files()

	ReportProgress(ctx, 10, fmt.Sprintf("Uploading %d files", len(files)))
	results, err := s.deps.Publisher.PublishAll(ctx, files)
	if err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("published %d of %d files: %w", len(results), len(files), err), true)
	}

	var size int64
	locations := make([]string, 0, len(results))
	for _, r := range results {
		size += r.Size
		locations = append(locations, r.Location)
	}
	setFigures(step, map[string]interface{}{
		"bucket":    s.deps.Publisher.Bucket(),
		"published": len(results),
		"bytes":     size,
	})
	state.SetContext(ContextKeyPublished, locations)
	return nil
}

var (
	_ Step = (*MergeStage)(nil)
	_ Step = (*HRExtractStage)(nil)
	_ Step = (*StandardizeStage)(nil)
	_ Step = (*MasterStage)(nil)
	_ Step = (*RollingStage)(nil)
	_ Step = (*PersistStage)(nil)
	_ Step = (*PublishStage)(nil)
)
