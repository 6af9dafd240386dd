package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"adshub/internal/config"
	"adshub/internal/infrastructure"
	"adshub/internal/sources"
	"adshub/pkg/contracts"
)

// Pinger is a dependency whose reachability decides readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthStatus is the body of the health endpoints
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth is the state of one dependency
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthService reports liveness and readiness. The service is ready when
// the anchor export exists and, if configured, the store answers.
type HealthService struct {
	version   string
	buildTime string
	layout    sources.Layout
	store     Pinger
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

func NewHealthService(version, buildTime string, layout sources.Layout, store Pinger, clients ClientCounter, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		layout:    layout,
		store:     store,
		clients:   clients,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Status: "ok", Timestamp: time.Now(), Version: hs.version}
}

func fileHealth(path string) ServiceHealth {
	if config.FileExists(path) {
		return ServiceHealth{Status: "ready"}
	}
	return ServiceHealth{Status: "not_ready", Message: path + " not found"}
}

// ReadinessCheck checks the inputs and the store. A missing master only
// degrades readiness, since the pipeline can still produce it.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"exports": fileHealth(hs.layout.Anchor),
		},
	}

	master := fileHealth(hs.layout.Master)
	if master.Status != "ready" {
		master.Status = "degraded"
	}
	status.Services["master"] = master

	if hs.store != nil {
		sh := ServiceHealth{Status: "ready"}
		if err := hs.store.Ping(ctx); err != nil {
			sh = ServiceHealth{Status: "not_ready", Message: err.Error()}
		}
		status.Services["store"] = sh
	}

	for name, sh := range status.Services {
		if sh.Status == "not_ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness_failed", slog.String("service", name), slog.String("message", sh.Message))
		}
	}
	return status
}

func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.clients != nil {
		rt["websocket_clients"] = hs.clients.ClientCount()
	}
	return HealthStatus{Status: "alive", Timestamp: time.Now(), Version: hs.version, Runtime: rt}
}

// Version returns build and runtime information
func (hs *HealthService) Version() map[string]interface{} {
	host, _ := os.Hostname()
	return map[string]interface{}{
		"app":         config.AppName,
		"version":     hs.version,
		"build_time":  hs.buildTime,
		"git_commit":  contracts.GitCommit,
		"api":         contracts.APIVersion,
		"data_format": contracts.DataFormatVersion,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"hostname":    host,
		"start_time":  hs.startTime.Format(time.RFC3339),
		"uptime":      time.Since(hs.startTime).Seconds(),
	}
}
