package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager orchestrates pipeline runs
type Manager struct {
	registry    *Registry
	config      *Config
	broadcaster *StatusBroadcaster
	tracer      *OperationTracer
	logger      *slog.Logger

	mu         sync.RWMutex
	operations map[string]*OperationState
	plans      map[string][]Step
	cancels    map[string]context.CancelFunc
	finished   []string
}

// NewManager wires a manager. A nil registry, config, logger or tracer is
// replaced by an empty or no-op default.
func NewManager(hub WebSocketHub, registry *Registry, config *Config, logger *slog.Logger, tracer *OperationTracer) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	logger = logger.With(slog.String("component", "operations"))

	return &Manager{
		registry:    registry,
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		tracer:      tracer,
		logger:      logger,
		operations:  make(map[string]*OperationState),
		plans:       make(map[string][]Step),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// RegisterStage registers a stage with the pipeline
func (m *Manager) RegisterStage(s Step) error {
	return m.registry.Register(s)
}

// GetRegistry returns the stage registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetBroadcaster returns the status broadcaster
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Stop shuts the status broadcaster down
func (m *Manager) Stop() {
	m.broadcaster.Stop()
}

// Execute prepares and runs an operation synchronously
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	id, err := m.Prepare(req)
	if err != nil {
		return nil, err
	}
	return m.Run(ctx, id)
}

// Prepare resolves the stages of a request and registers a pending
// operation. A "step" parameter selects a single stage, otherwise every
// registered stage runs in dependency order.
func (m *Manager) Prepare(req OperationRequest) (string, error) {
	if req.ID == "" {
		req.ID = "op-" + uuid.NewString()
	}

	m.mu.RLock()
	existing, exists := m.operations[req.ID]
	m.mu.RUnlock()
	if exists && !existing.GetStatus().Terminal() {
		return "", NewValidationError("", fmt.Sprintf("operation %s is already running", req.ID))
	}

	steps, err := m.plan(req)
	if err != nil {
		return "", err
	}

	state := NewOperationState(req.ID)
	if req.Mode != "" {
		state.SetConfig("mode", req.Mode)
	}
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}
	for _, s := range steps {
		state.SetStage(s.ID(), NewStepState(s.ID(), s.Name()))
	}

	m.mu.Lock()
	m.operations[req.ID] = state
	m.plans[req.ID] = steps
	m.mu.Unlock()

	m.broadcaster.CreateOperation(req.ID, steps)
	return req.ID, nil
}

func (m *Manager) plan(req OperationRequest) ([]Step, error) {
	if step := req.Step(); step != "" && step != "full_pipeline" {
		s, err := m.registry.Get(step)
		if err != nil {
			return nil, NewValidationError(step, fmt.Sprintf("requested step not found: %s", step))
		}
		return []Step{s}, nil
	}
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("failed to get dependency order", err)
	}
	if len(steps) == 0 {
		return nil, NewValidationError("", "no stages registered")
	}
	return steps, nil
}

// Run executes a prepared operation. It blocks until every stage finished,
// failed, was skipped or the operation was cancelled.
func (m *Manager) Run(ctx context.Context, id string) (*OperationResponse, error) {
	m.mu.Lock()
	state, ok := m.operations[id]
	steps := m.plans[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	if state.GetStatus() != OperationStatusPending {
		m.mu.Unlock()
		if state.GetStatus() == OperationStatusCancelled {
			return m.createResponse(state), NewCancellationError("")
		}
		return nil, NewValidationError("", fmt.Sprintf("operation %s was already started", id))
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancels[id] = cancel
	state.Start()
	m.mu.Unlock()

	defer func() {
		cancel()
		m.finish(id)
	}()

	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	ctx, span := m.tracer.TraceOperation(ctx, id, ids)
	logger := m.logger.With(slog.String("operation_id", id))

	var manifest *RunManifest
	if m.config.ManifestPath != "" {
		manifest = NewRunManifest(id, state.Clone().Config)
		manifest.SetStatus(string(OperationStatusRunning), nil)
	}

	logger.InfoContext(ctx, "operation_start", slog.Any("stages", ids))
	m.broadcaster.StartOperation(id)

	err := m.executeSequential(ctx, logger, state, steps, manifest)

	switch {
	case state.GetStatus() == OperationStatusCancelled || GetErrorType(err) == ErrorTypeCancellation:
		if err == nil {
			err = NewCancellationError("")
		}
		if state.GetStatus() != OperationStatusCancelled {
			state.Cancel()
			m.broadcaster.CancelOperation(id)
		}
		logger.WarnContext(ctx, "operation_cancelled", slog.Duration("duration", state.Duration()))
	case err != nil:
		state.Fail(err)
		m.broadcaster.FailOperation(id, err)
		logger.ErrorContext(ctx, "operation_failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", state.Duration()))
	default:
		state.Complete()
		m.broadcaster.CompleteOperation(id, "Operation completed successfully")
		logger.InfoContext(ctx, "operation_complete", slog.Duration("duration", state.Duration()))
	}
	m.tracer.EndOperation(ctx, span, state.GetStatus(), err)

	if manifest != nil {
		manifest.SetStatus(string(state.GetStatus()), err)
		m.saveManifest(ctx, logger, manifest)
	}
	return m.createResponse(state), err
}

func (m *Manager) executeSequential(ctx context.Context, logger *slog.Logger, state *OperationState, steps []Step, manifest *RunManifest) error {
	var firstErr error
	for i, s := range steps {
		if ctx.Err() != nil {
			m.skipRemaining(ctx, state, steps[i:], manifest, "Operation cancelled")
			return NewCancellationError(s.ID())
		}

		stepState := state.GetStage(s.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			logger.InfoContext(ctx, "stage_skipped",
				slog.String("stage", s.ID()),
				slog.String("reason", stepState.Message))
			continue
		}

		logger.InfoContext(ctx, "stage_start",
			slog.String("stage", s.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		err := m.executeStage(ctx, logger, state, s, manifest)
		if manifest != nil {
			m.saveManifest(ctx, logger, manifest)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || GetErrorType(err) == ErrorTypeCancellation {
			m.skipRemaining(ctx, state, steps[i+1:], manifest, "Operation cancelled")
			return err
		}

		m.skipDependentStages(ctx, state, steps, s.ID(), manifest)
		if !m.config.ContinueOnError {
			m.skipRemaining(ctx, state, steps[i+1:], manifest, fmt.Sprintf("Stopped after %s failed", s.ID()))
			return err
		}
		logger.WarnContext(ctx, "stage_failed_continuing",
			slog.String("stage", s.ID()),
			slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// executeStage runs one stage with its timeout and retry policy
func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, state *OperationState, s Step, manifest *RunManifest) error {
	stepState := state.GetStage(s.ID())
	logger = logger.With(slog.String("stage", s.ID()))

	if err := m.checkDependencies(state, s); err != nil {
		m.skip(ctx, state, s, manifest, err.Error())
		return err
	}

	if err := s.Validate(state); err != nil {
		var verr *OperationError
		if !errors.As(err, &verr) {
			verr = NewValidationError(s.ID(), err.Error())
		}
		logger.WarnContext(ctx, "stage_validation_failed", slog.String("error", err.Error()))
		m.fail(state, s, manifest, verr)
		return verr
	}

	timeout := m.config.GetStageTimeout(s.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stageCtx = withProgress(stageCtx, &stageProgress{broadcaster: m.broadcaster, operationID: state.ID, step: stepState})

	retry := m.config.RetryConfig
	attempts := max(retry.MaxAttempts, 1)
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		stepState.Start()
		if manifest != nil {
			manifest.RecordStageStart(s.ID(), s.Name())
		}
		m.broadcaster.UpdateStepProgress(state.ID, s.ID(), 0, "Stage started")

		spanCtx, span := m.tracer.TraceStage(stageCtx, state.ID, s.ID(), attempt)
		start := time.Now()
		err := s.Execute(spanCtx, state)
		duration := time.Since(start)
		m.tracer.EndStage(spanCtx, span, s.ID(), duration, stepState.MetadataCopy(), err)

		if err == nil {
			stepState.Complete()
			metadata := stepState.MetadataCopy()
			if manifest != nil {
				manifest.RecordStageCompletion(s.ID(), s.ProducedOutputs(), metadata)
			}
			m.broadcaster.CompleteStep(state.ID, s.ID(), "Stage completed successfully", metadata)
			logger.InfoContext(ctx, "stage_complete",
				slog.Duration("duration", duration),
				slog.Int("attempt", attempt),
				slog.Any("metadata", metadata))
			return nil
		}

		logger.ErrorContext(ctx, "stage_execution_failed",
			slog.Int("attempt", attempt),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))

		switch {
		case ctx.Err() != nil:
			cerr := NewCancellationError(s.ID())
			m.fail(state, s, manifest, cerr)
			return cerr
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			terr := NewTimeoutError(s.ID(), timeout.String())
			m.fail(state, s, manifest, terr)
			return terr
		}

		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			break
		}

		delay := retry.Delay(attempt)
		logger.WarnContext(ctx, "stage_retry",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-stageCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				cerr := NewCancellationError(s.ID())
				m.fail(state, s, manifest, cerr)
				return cerr
			}
			terr := NewTimeoutError(s.ID(), timeout.String())
			m.fail(state, s, manifest, terr)
			return terr
		}
	}

	werr := WrapError(lastErr, s.ID(), "stage execution failed")
	m.fail(state, s, manifest, werr)
	return werr
}

func (m *Manager) fail(state *OperationState, s Step, manifest *RunManifest, err error) {
	state.GetStage(s.ID()).Fail(err)
	if manifest != nil {
		manifest.RecordStageFailure(s.ID(), err)
	}
	m.broadcaster.FailStep(state.ID, s.ID(), err)
}

func (m *Manager) skip(ctx context.Context, state *OperationState, s Step, manifest *RunManifest, reason string) {
	st := state.GetStage(s.ID())
	if st == nil || st.GetStatus() != StepStatusPending {
		return
	}
	st.Skip(reason)
	if manifest != nil {
		manifest.RecordStageSkip(s.ID(), s.Name(), reason)
	}
	m.broadcaster.SkipStep(state.ID, s.ID(), reason)
	m.tracer.RecordSkip(ctx, s.ID())
}

// skipDependentStages skips every pending stage that transitively depends
// on failedID
func (m *Manager) skipDependentStages(ctx context.Context, state *OperationState, steps []Step, failedID string, manifest *RunManifest) {
	for _, s := range steps {
		for _, dep := range s.GetDependencies() {
			if dep != failedID {
				continue
			}
			if st := state.GetStage(s.ID()); st != nil && st.GetStatus() == StepStatusPending {
				m.skip(ctx, state, s, manifest, fmt.Sprintf("Dependency %s failed", failedID))
				m.skipDependentStages(ctx, state, steps, s.ID(), manifest)
			}
			break
		}
	}
}

func (m *Manager) skipRemaining(ctx context.Context, state *OperationState, steps []Step, manifest *RunManifest, reason string) {
	for _, s := range steps {
		m.skip(ctx, state, s, manifest, reason)
	}
}

// checkDependencies requires every dependency taking part in this run to
// have completed. Dependencies outside the run, as with a single "step",
// are satisfied by the files they left on disk.
func (m *Manager) checkDependencies(state *OperationState, s Step) error {
	for _, dep := range s.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			continue
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(s.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

func (m *Manager) saveManifest(ctx context.Context, logger *slog.Logger, manifest *RunManifest) {
	if err := manifest.SaveToFile(m.config.ManifestPath); err != nil {
		logger.WarnContext(ctx, "manifest_write_failed",
			slog.String("path", m.config.ManifestPath),
			slog.String("error", err.Error()))
	}
}

// finish drops the cancel func and trims the history of finished runs
func (m *Manager) finish(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cancels, id)
	delete(m.plans, id)
	m.finished = append(m.finished, id)

	limit := m.config.History
	if limit <= 0 {
		limit = DefaultHistory
	}
	for len(m.finished) > limit {
		oldest := m.finished[0]
		m.finished = m.finished[1:]
		if st, ok := m.operations[oldest]; ok && st.GetStatus().Terminal() {
			delete(m.operations, oldest)
		}
	}
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	clone := state.Clone()
	resp := &OperationResponse{
		ID:       clone.ID,
		Status:   clone.Status,
		Duration: clone.Duration(),
		Steps:    clone.Steps,
	}
	if clone.Error != nil {
		resp.Error = clone.Error.Error()
	}
	return resp
}

// GetOperation returns a copy of a running or recently finished operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	return state.Clone(), nil
}

// ListOperations returns copies of the known operations, newest first
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	out := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		out = append(out, state.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

// CancelOperation cancels a pending or running operation. The running
// stage sees its context cancelled; the remaining stages are skipped.
func (m *Manager) CancelOperation(id string) error {
	m.mu.Lock()
	state, exists := m.operations[id]
	cancel := m.cancels[id]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	if state.GetStatus().Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrOperationNotRunning, id, state.GetStatus())
	}

	state.Cancel()
	if cancel != nil {
		cancel()
	}
	m.broadcaster.CancelOperation(id)
	m.logger.Info("operation_cancel_requested", slog.String("operation_id", id))
	return nil
}

// Stages describes the registered stages in dependency order
func (m *Manager) Stages() ([]OperationType, error) {
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, err
	}
	out := make([]OperationType, 0, len(steps))
	for _, s := range steps {
		t := OperationType{
			ID:           s.ID(),
			Name:         s.Name(),
			Dependencies: append([]string{}, s.GetDependencies()...),
			CanRunAlone:  len(MissingInputs(s)) == 0,
		}
		if d, ok := s.(interface{ Description() string }); ok {
			t.Description = d.Description()
		}
		out = append(out, t)
	}
	return out, nil
}

type progressKey struct{}

type stageProgress struct {
	broadcaster *StatusBroadcaster
	operationID string
	step        *StepState
}

func (p *stageProgress) ReportProgress(progress int, message string) error {
	p.step.UpdateProgress(float64(progress), message)
	p.broadcaster.UpdateStepProgress(p.operationID, p.step.ID, progress, message)
	return nil
}

func withProgress(ctx context.Context, r ProgressReporter) context.Context {
	return context.WithValue(ctx, progressKey{}, r)
}

// ReportProgress forwards stage progress to the reporter the manager put on
// ctx. It is a no-op outside a managed run.
func ReportProgress(ctx context.Context, progress int, message string) {
	if r, ok := ctx.Value(progressKey{}).(ProgressReporter); ok {
		_ = r.ReportProgress(progress, message)
	}
}
