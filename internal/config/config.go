package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. ADSHUB_SERVER_PORT.
const EnvPrefix = "ADSHUB"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	S3        S3Config        `yaml:"s3" envconfig:"S3"`
	OTel      OTelConfig      `yaml:"otel" envconfig:"OTEL"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// PipelineConfig holds the figures the cleaning pipeline checks against
type PipelineConfig struct {
	ExpectedTotal    float64 `yaml:"expected_total" envconfig:"EXPECTED_TOTAL"`
	TotalTolerance   float64 `yaml:"total_tolerance" envconfig:"TOTAL_TOLERANCE"`
	ExpectedFixes    int     `yaml:"expected_fixes" envconfig:"EXPECTED_FIXES"`
	HRStrategy       string  `yaml:"hr_strategy" envconfig:"HR_STRATEGY"`
	WorldwideLimit   int     `yaml:"worldwide_limit" envconfig:"WORLDWIDE_LIMIT"`
	ExcludedYear     int     `yaml:"excluded_year" envconfig:"EXCLUDED_YEAR"`
	YearToken        string  `yaml:"year_token" envconfig:"YEAR_TOKEN"`
	DemographicShare float64 `yaml:"demographic_share" envconfig:"DEMOGRAPHIC_SHARE"`
	ContinueOnError  bool    `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR"`
}

// StorageConfig locates the SQLite database; an empty path disables it
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// SheetsConfig selects the Google Sheets rolling reach source
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	Range           string `yaml:"range" envconfig:"RANGE"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// Enabled reports whether a spreadsheet is configured
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != ""
}

// S3Config selects the bucket outputs are published to
type S3Config struct {
	Bucket   string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix   string `yaml:"prefix" envconfig:"PREFIX"`
	Region   string `yaml:"region" envconfig:"REGION"`
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`
	Profile  string `yaml:"profile" envconfig:"PROFILE"`
}

// Enabled reports whether a bucket is configured
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// OTelConfig contains OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`   // stdout or none
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"` // prometheus or none
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/adshub.log",
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
		Pipeline: PipelineConfig{
			ExpectedTotal:    DefaultExpectedTotal,
			TotalTolerance:   DefaultTotalTolerance,
			ExpectedFixes:    DefaultExpectedFixes,
			HRStrategy:       DefaultHRStrategy,
			WorldwideLimit:   DefaultWorldwideLimit,
			ExcludedYear:     DefaultExcludedYear,
			YearToken:        DefaultYearToken,
			DemographicShare: DefaultDemographicShare,
		},
		Sheets: SheetsConfig{
			Range: "Sheet1",
		},
		OTel: OTelConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}

// Load builds the configuration from the defaults, then the YAML file at
// path (when path is non-empty, or a config.yaml is found in the usual
// places), then ADSHUB_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile returns the first config file found, or ""
func findConfigFile() string {
	for _, location := range []string{"adshub.yaml", "config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// validate checks ranges and normalizes the logging section
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("data directory must be set")
	}

	switch c.Pipeline.HRStrategy {
	case "croatia-spend", "croatia-only":
	default:
		return fmt.Errorf("unknown hr strategy %q", c.Pipeline.HRStrategy)
	}
	if c.Pipeline.TotalTolerance < 0 {
		return fmt.Errorf("total tolerance must not be negative")
	}
	if c.Pipeline.DemographicShare <= 0 || c.Pipeline.DemographicShare >= 1 {
		return fmt.Errorf("demographic share must be between 0 and 1, got %v", c.Pipeline.DemographicShare)
	}

	c.Logging.Format = "json"
	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
		c.Logging.Output = strings.ToLower(c.Logging.Output)
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "adshub.log")
	}
	return nil
}

// OutputDir returns the directory derived files are written to, which
// defaults to the data directory
func (c *Config) OutputDir() string {
	if c.Paths.OutputDir != "" {
		return c.Paths.OutputDir
	}
	return c.Paths.DataDir
}
