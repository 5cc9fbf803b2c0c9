// Package config loads application configuration and initializes logging.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Airtable   AirtableConfig   `yaml:"airtable" mapstructure:"airtable"`
	ClickUp    ClickUpConfig    `yaml:"clickup" mapstructure:"clickup"`
	Slack      SlackConfig      `yaml:"slack" mapstructure:"slack"`
	Workflow   WorkflowConfig   `yaml:"workflow" mapstructure:"workflow"`
	Uploads    UploadsConfig    `yaml:"uploads" mapstructure:"uploads"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AirtableConfig holds the record-store credentials and table location.
type AirtableConfig struct {
	Key    string `yaml:"key" mapstructure:"key"`
	BaseID string `yaml:"base_id" mapstructure:"base_id"`
	Table  string `yaml:"table" mapstructure:"table"`

	// WriteCap truncates lead-list ingestion to the first N rows when > 0,
	// used to validate wiring before committing a full list.
	WriteCap int `yaml:"write_cap" mapstructure:"write_cap"`
}

// ClickUpConfig holds the task-tracker token.
type ClickUpConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// SlackConfig holds the notification webhook.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// WorkflowConfig configures the generation pipeline.
type WorkflowConfig struct {
	// Concurrency caps simultaneous provider calls across a batch.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`

	// TestRunLimit caps batch size when a test run is requested.
	TestRunLimit int `yaml:"test_run_limit" mapstructure:"test_run_limit"`

	// RetryMaxAttempts and RetryBaseDelay parametrize provider retries.
	RetryMaxAttempts int           `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
}

// UploadsConfig locates client lead lists and onboarding documents.
type UploadsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the review API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. A missing config file
// is fine; every knob has a default.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("airtable.table", "Client-Leads")
	v.SetDefault("airtable.write_cap", 0)
	v.SetDefault("workflow.concurrency", 5)
	v.SetDefault("workflow.test_run_limit", 10)
	v.SetDefault("workflow.retry_max_attempts", 5)
	v.SetDefault("workflow.retry_base_delay", 2*time.Second)
	v.SetDefault("uploads.dir", "uploads")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
