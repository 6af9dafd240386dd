package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/api/option"

	"adshub/internal/config"
	apperrors "adshub/internal/errors"
	"adshub/internal/estimator"
	"adshub/internal/exporter"
	"adshub/internal/infrastructure"
	"adshub/internal/operations"
	"adshub/internal/services"
	"adshub/internal/sources"
	"adshub/internal/store"
	httptransport "adshub/internal/transport/http"
	ws "adshub/internal/websocket"
	"adshub/pkg/contracts"
)

// ManifestFile is the run manifest written next to the outputs.
const ManifestFile = "pipeline_manifest.json"

// jobQueueStopTimeout bounds how long Stop waits for a running pipeline.
const jobQueueStopTimeout = 30 * time.Second

// Options adjust how the application is assembled
type Options struct {
	// Logger replaces the logger built from the logging config
	Logger *slog.Logger
	// DisablePublish leaves the publish stage out even with a bucket set
	DisablePublish bool
	// Workers is the number of job queue workers, 1 when zero
	Workers int
}

// Application holds every wired component
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Layout    sources.Layout
	Logger    *slog.Logger
	OTel      *infrastructure.OTelProviders
	Metrics   *infrastructure.BusinessMetrics
	Store     *store.Store
	Publisher *exporter.S3Publisher
	Hub       *ws.Hub
	Manager   *operations.Manager
	JobQueue  *operations.JobQueue
	Services  *ServiceContainer
	Router    chi.Router
	Server    *http.Server

	queueCancel context.CancelFunc
	stopOnce    sync.Once
	stopErr     error
}

// ServiceContainer holds the application services
type ServiceContainer struct {
	Estimator  *services.EstimatorService
	Audit      *services.AuditService
	Operations *services.OperationsService
	Health     *services.HealthService
}

// New wires the application from cfg. Optional integrations (SQLite, Google
// Sheets, S3) are only built when configured. Callers must Stop the
// application to release them.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	logger.InfoContext(ctx, "application_starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}
	paths.LogPathResolution(logger)

	a := &Application{
		Config: cfg,
		Paths:  paths,
		Layout: sources.DefaultLayout(paths.DataDir, paths.OutputDir),
		Logger: logger,
	}
	if err := a.initialize(ctx, opts); err != nil {
		a.release(ctx)
		return nil, err
	}
	return a, nil
}

func (a *Application) initialize(ctx context.Context, opts Options) error {
	cfg := a.Config

	providers, err := infrastructure.InitializeOTel(cfg.OTel, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTel = providers
	if a.Metrics, err = infrastructure.CreateBusinessMetrics(providers.Meter); err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}

	if a.Paths.Database != "" {
		if a.Store, err = store.Open(ctx, a.Paths.Database); err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
	}

	rolling, err := a.rollingSource(ctx)
	if err != nil {
		return err
	}

	if cfg.S3.Enabled() && !opts.DisablePublish {
		a.Publisher, err = exporter.NewS3Publisher(ctx, exporter.S3Config{
			Bucket:   cfg.S3.Bucket,
			Prefix:   cfg.S3.Prefix,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Profile:  cfg.S3.Profile,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create s3 publisher: %w", err)
		}
	}

	wsMetrics, err := ws.NewMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.Hub = ws.NewHub(a.Logger, wsMetrics)
	a.Hub.Start()

	if err := a.initializePipeline(rolling, opts); err != nil {
		return err
	}
	a.initializeServices(rolling)
	a.setupRouter()
	return nil
}

// rollingSource returns the Sheets source when a spreadsheet is configured.
// A nil source makes the loader read the rolling CSV export.
func (a *Application) rollingSource(ctx context.Context) (sources.RollingSource, error) {
	sc := a.Config.Sheets
	if !sc.Enabled() {
		return nil, nil
	}
	var clientOpts []option.ClientOption
	if sc.CredentialsFile != "" {
		opt, err := sources.CredentialsOption(sc.CredentialsFile)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, opt)
	}
	src, err := sources.NewSheetsRollingSource(ctx, sc.SpreadsheetID, sc.Range, a.Logger, clientOpts...)
	if err != nil {
		return nil, err
	}
	a.Logger.InfoContext(ctx, "rolling_source_sheets", slog.String("spreadsheet_id", sc.SpreadsheetID))
	return src, nil
}

func (a *Application) initializePipeline(rolling sources.RollingSource, opts Options) error {
	cfg := a.Config

	deps := operations.StageDeps{
		Layout: a.Layout,
		Settings: operations.PipelineSettings{
			ExpectedTotal:  cfg.Pipeline.ExpectedTotal,
			TotalTolerance: cfg.Pipeline.TotalTolerance,
			ExpectedFixes:  cfg.Pipeline.ExpectedFixes,
			HRStrategy:     cfg.Pipeline.HRStrategy,
			WorldwideLimit: cfg.Pipeline.WorldwideLimit,
			ExcludedYear:   cfg.Pipeline.ExcludedYear,
			YearToken:      cfg.Pipeline.YearToken,
		},
		Writer:  exporter.NewCSVWriter("", a.Logger),
		Rolling: rolling,
		Logger:  a.Logger,
	}
	// Typed nils would register the optional stages.
	if a.Store != nil {
		deps.Store = a.Store
	}
	if a.Publisher != nil {
		deps.Publisher = a.Publisher
	}

	registry := operations.NewRegistry()
	if err := operations.RegisterPipeline(registry, deps); err != nil {
		return fmt.Errorf("failed to register pipeline stages: %w", err)
	}

	opCfg := operations.NewConfig()
	opCfg.ContinueOnError = cfg.Pipeline.ContinueOnError
	opCfg.ManifestPath = filepath.Join(a.Paths.OutputDir, ManifestFile)

	tracer := operations.NewOperationTracerWithMetrics(a.OTel.Tracer, a.Metrics)
	a.Manager = operations.NewManager(a.Hub, registry, opCfg, a.Logger, tracer)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	a.JobQueue = operations.NewJobQueue(workers, operations.NewMemoryJobStore(), a.Manager, a.Logger)
	return nil
}

func (a *Application) initializeServices(rolling sources.RollingSource) {
	cfg := a.Config
	loader := sources.NewLoader(a.Layout, a.Logger, rolling)

	estOpts := []services.EstimatorOption{
		services.WithMetrics(a.Metrics),
		services.WithBroadcaster(a.Hub),
	}
	var pinger services.Pinger
	if a.Store != nil {
		estOpts = append(estOpts, services.WithFallback(a.Store))
		pinger = a.Store
	}

	a.Services = &ServiceContainer{
		Estimator: services.NewEstimatorService(a.Layout, estimator.BuildOptions{
			Threshold: cfg.Pipeline.DemographicShare,
			YearToken: cfg.Pipeline.YearToken,
		}, a.Logger, estOpts...),
		Audit: services.NewAuditService(loader, services.AuditSettings{
			ExpectedTotal:         cfg.Pipeline.ExpectedTotal,
			Tolerance:             cfg.Pipeline.TotalTolerance,
			DemographicsThreshold: cfg.Pipeline.DemographicShare,
		}, a.Metrics, a.Logger),
		Operations: services.NewOperationsService(a.Manager, a.JobQueue, a.Logger),
		Health:     services.NewHealthService(contracts.Version, contracts.BuildTime, a.Layout, pinger, a.Hub, a.Logger),
	}
}

func (a *Application) setupRouter() {
	a.Router = httptransport.NewRouter(httptransport.RouterDeps{
		Config:       a.Config,
		Logger:       a.Logger,
		Providers:    a.OTel,
		Metrics:      a.Metrics,
		ErrorHandler: apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug"),
		Estimator:    a.Services.Estimator,
		Audits:       a.Services.Audit,
		Operations:   a.Services.Operations,
		Health:       a.Services.Health,
		WebSocket:    ws.Handler(a.Hub, a.Config, a.Logger),
	})
}

func (a *Application) createServer() {
	sc := a.Config.Server
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", sc.Port),
		Handler:        a.Router,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		MaxHeaderBytes: sc.MaxHeaderBytes,
	}
}

// StartQueue starts the job queue workers. Serve calls it; CLI commands
// that only run the pipeline synchronously do not need it.
func (a *Application) StartQueue(ctx context.Context) {
	if a.queueCancel != nil {
		return
	}
	qctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.queueCancel = cancel
	a.JobQueue.Start(qctx)
}

// Start begins serving HTTP on ln. Server errors are delivered on the
// returned channel.
func (a *Application) Start(ctx context.Context, ln net.Listener) <-chan error {
	a.StartQueue(ctx)
	a.createServer()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.Logger.InfoContext(ctx, "application_started",
		slog.String("address", ln.Addr().String()),
		slog.Int("stages", len(a.Manager.GetRegistry().List())),
		slog.Bool("store", a.Store != nil),
		slog.Bool("publish", a.Publisher != nil))
	return errCh
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the server
// fails, then shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.Config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	errCh := a.Start(ctx, ln)

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "shutdown_signal_received")
	case serveErr = <-errCh:
		a.Logger.ErrorContext(ctx, "server_error", slog.String("error", serveErr.Error()))
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return serveErr
}

// Stop shuts down the server, drains the job queue and releases every
// resource. It is safe to call more than once.
func (a *Application) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.Logger.InfoContext(ctx, "application_stopping")

		timeout := a.Config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = jobQueueStopTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if a.Server != nil {
			if err := a.Server.Shutdown(shutdownCtx); err != nil {
				a.stopErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}
		if a.queueCancel != nil {
			if err := a.JobQueue.Stop(jobQueueStopTimeout); err != nil {
				a.Logger.ErrorContext(ctx, "job_queue_stop_failed", slog.String("error", err.Error()))
			}
			a.queueCancel()
		}
		a.release(shutdownCtx)
		a.Logger.InfoContext(ctx, "application_stopped")
	})
	return a.stopErr
}

// release closes what initialize opened, tolerating a partial build
func (a *Application) release(ctx context.Context) {
	if a.Manager != nil {
		a.Manager.Stop()
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "store_close_failed", slog.String("error", err.Error()))
		}
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "otel_shutdown_failed", slog.String("error", err.Error()))
		}
	}
}
