// Package config loads review-cli settings from config.yaml, a .env file and
// REVIEWS_* environment variables, and installs the global zap logger.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration.
type Config struct {
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pagination PaginationConfig `yaml:"pagination" mapstructure:"pagination"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AIConfig tunes the AI extractor's model choice and retry machine.
type AIConfig struct {
	PreferredModel      string `yaml:"preferred_model" mapstructure:"preferred_model"`
	MaxRetries          int    `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseMs       int    `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	BackoffMaxMs        int    `yaml:"backoff_max_ms" mapstructure:"backoff_max_ms"`
	JitterMs            int    `yaml:"jitter_ms" mapstructure:"jitter_ms"`
	FallbackToHeuristic bool   `yaml:"fallback_to_heuristic" mapstructure:"fallback_to_heuristic"`
	MaxTokens           int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxContentBytes     int    `yaml:"max_content_bytes" mapstructure:"max_content_bytes"`
}

// AnthropicConfig holds the API credential and endpoint.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FetchConfig tunes page fetching.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryMinDelayMs   int     `yaml:"retry_min_delay_ms" mapstructure:"retry_min_delay_ms"`
	RetryMaxDelayMs   int     `yaml:"retry_max_delay_ms" mapstructure:"retry_max_delay_ms"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	Browser           bool    `yaml:"browser" mapstructure:"browser"`
	BrowserWaitMs     int     `yaml:"browser_wait_ms" mapstructure:"browser_wait_ms"`
	CacheTTLMins      int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs  int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// PaginationConfig bounds the page loop.
type PaginationConfig struct {
	MaxPages      int `yaml:"max_pages" mapstructure:"max_pages"`
	MaxEmptyPages int `yaml:"max_empty_pages" mapstructure:"max_empty_pages"`
	MinDelayMs    int `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMs    int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// RedisConfig enables the page cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// StoreConfig selects the run store backend: sqlite, postgres or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig controls result files.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BatchConfig controls the batch command.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MetricsConfig enables the metrics server when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// MonitoringConfig configures run-health alerting.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	BlockedRunsThreshold  int     `yaml:"blocked_runs_threshold" mapstructure:"blocked_runs_threshold"`
	EmptyRunRateThreshold float64 `yaml:"empty_run_rate_threshold" mapstructure:"empty_run_rate_threshold"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads .env, config.yaml and the environment, in increasing order of
// precedence over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("config: no .env file loaded", zap.Error(err))
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVIEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("anthropic.key", "REVIEWS_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind anthropic key")
	}

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.preferred_model", "claude-haiku-4-5-20251001")
	v.SetDefault("ai.max_retries", 6)
	v.SetDefault("ai.backoff_base_ms", 5000)
	v.SetDefault("ai.backoff_max_ms", 60000)
	v.SetDefault("ai.jitter_ms", 1000)
	v.SetDefault("ai.fallback_to_heuristic", true)
	v.SetDefault("ai.max_tokens", 16000)
	v.SetDefault("ai.max_content_bytes", 500000)

	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.retry_min_delay_ms", 1000)
	v.SetDefault("fetch.retry_max_delay_ms", 3000)
	v.SetDefault("fetch.requests_per_second", 1.0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("fetch.browser", false)
	v.SetDefault("fetch.browser_wait_ms", 3000)
	v.SetDefault("fetch.cache_ttl_mins", 360)
	v.SetDefault("fetch.breaker_threshold", 3)
	v.SetDefault("fetch.breaker_reset_secs", 300)

	v.SetDefault("pagination.max_pages", 10)
	v.SetDefault("pagination.max_empty_pages", 2)
	v.SetDefault("pagination.min_delay_ms", 2000)
	v.SetDefault("pagination.max_delay_ms", 4000)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "reviews.db")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", "json")

	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("metrics.addr", "")

	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.blocked_runs_threshold", 3)
	v.SetDefault("monitoring.empty_run_rate_threshold", 0.5)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger builds a zap logger from cfg and installs it as the global
// logger.
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
