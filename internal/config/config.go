package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/placementwire/ingest/internal/store"
	"github.com/placementwire/ingest/pkg/mailbox"
	"github.com/placementwire/ingest/pkg/superset"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Feed      superset.Config `yaml:"feed" mapstructure:"feed"`
	Mailbox   mailbox.Config  `yaml:"mailbox" mapstructure:"mailbox"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds Anthropic API settings. Keys is a pool rotated on
// quota errors.
type AnthropicConfig struct {
	Keys      []string `yaml:"keys" mapstructure:"keys"`
	Model     string   `yaml:"model" mapstructure:"model"`
	MaxTokens int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures extraction and linking behavior.
type PipelineConfig struct {
	LinkerThreshold  int     `yaml:"linker_threshold" mapstructure:"linker_threshold"`
	MailThreshold    float64 `yaml:"mail_threshold" mapstructure:"mail_threshold"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	CallTimeoutSecs  int     `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	IntervalMinutes  int     `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	MailFetchEnabled bool    `yaml:"mail_fetch_enabled" mapstructure:"mail_fetch_enabled"`
}

// CallTimeout returns the per-model-call timeout as a duration.
func (p PipelineConfig) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSecs) * time.Second
}

// Interval returns the poll interval for watch mode.
func (p PipelineConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMinutes) * time.Minute
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "placement.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("feed.requests_per_second", 2)
	v.SetDefault("mailbox.host", "imap.gmail.com:993")
	v.SetDefault("mailbox.max_fetch", 50)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("pipeline.linker_threshold", 80)
	v.SetDefault("pipeline.mail_threshold", 0.6)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.call_timeout_secs", 60)
	v.SetDefault("pipeline.interval_minutes", 15)
	v.SetDefault("pipeline.mail_fetch_enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
