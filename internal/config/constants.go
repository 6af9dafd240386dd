package config

import "time"

// Application info.
const (
	AppName    = "adshub"
	AppVersion = "1.0.0"
)

// Server defaults.
const (
	DefaultPort      = 8080
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)

// Path defaults.
const (
	DefaultDataDir = "data"
	DefaultLogsDir = "logs"
)

// Pipeline defaults. The figures are those of the 2025 export set.
const (
	DefaultExpectedTotal    = 2354918.67
	DefaultTotalTolerance   = 0.10
	DefaultExpectedFixes    = 131
	DefaultHRStrategy       = "croatia-spend"
	DefaultWorldwideLimit   = 10
	DefaultExcludedYear     = 2026
	DefaultYearToken        = "25"
	DefaultDemographicShare = 0.10
)
