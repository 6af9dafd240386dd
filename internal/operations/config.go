package operations

import (
	"time"
)

// Config represents the pipeline execution configuration
type Config struct {
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Per-stage timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	RetryConfig RetryConfig `json:"retry_config"`

	// ContinueOnError lets stages after a failed one still run. Stages
	// depending on the failed stage are skipped either way.
	ContinueOnError bool `json:"continue_on_error"`

	// ManifestPath is where the run manifest is written; empty disables it
	ManifestPath string `json:"manifest_path"`

	// History is the number of finished operations kept for status queries
	History int `json:"history"`
}

// DefaultHistory is the number of finished operations kept in memory.
const DefaultHistory = 20

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		ExecutionMode: ExecutionModeSequential,
		StageTimeouts: map[string]time.Duration{
			StageIDMerge:       DefaultMergeTimeout,
			StageIDHRExtract:   DefaultHRExtractTimeout,
			StageIDStandardize: DefaultStandardizeTimeout,
			StageIDMaster:      DefaultMasterTimeout,
			StageIDRolling:     DefaultRollingTimeout,
			StageIDPersist:     DefaultPersistTimeout,
			StageIDPublish:     DefaultPublishTimeout,
		},
		RetryConfig: NewRetryConfig(),
		History:     DefaultHistory,
	}
}

// GetStageTimeout returns the timeout for a specific stage
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific stage
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}

// ConfigBuilder provides a fluent interface for building configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a builder seeded with NewConfig
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: NewConfig()}
}

// WithStageTimeout sets the timeout for a stage
func (b *ConfigBuilder) WithStageTimeout(stageID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStageTimeout(stageID, timeout)
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether to continue on errors
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithManifest sets the run manifest path
func (b *ConfigBuilder) WithManifest(path string) *ConfigBuilder {
	b.config.ManifestPath = path
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
