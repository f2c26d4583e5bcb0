package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	State    StateConfig    `mapstructure:"state" yaml:"state"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Research ResearchConfig `mapstructure:"research" yaml:"research"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=auto text json"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// StateConfig selects the persistence backend.
type StateConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=sqlite json memory"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	APIKey             string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url" validate:"url"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second" validate:"gte=0"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`
}

// LLMConfig configures the text generation provider.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider" validate:"oneof=gemini openai"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Model       string        `mapstructure:"model" yaml:"model" validate:"required"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ResearchConfig configures the researcher stage.
type ResearchConfig struct {
	Parallel        bool          `mapstructure:"parallel" yaml:"parallel"`
	ResultsPerQuery int           `mapstructure:"results_per_query" yaml:"results_per_query" validate:"gt=0"`
	Stagger         time.Duration `mapstructure:"stagger" yaml:"stagger"`
}

// WorkflowConfig configures pipeline execution.
type WorkflowConfig struct {
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=1"`
	QualityThreshold float64       `mapstructure:"quality_threshold" yaml:"quality_threshold" validate:"gte=0,lte=100"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	AutoCheckpoint   bool          `mapstructure:"auto_checkpoint" yaml:"auto_checkpoint"`
	MaxSteps         int           `mapstructure:"max_steps" yaml:"max_steps" validate:"gt=0"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Redacted returns a copy safe to print, with credentials masked.
func (c Config) Redacted() Config {
	c.Search.APIKey = mask(c.Search.APIKey)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
