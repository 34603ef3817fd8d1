package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp switches to an empty temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("REVIEWS_ANTHROPIC_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.AI.PreferredModel)
	assert.Equal(t, 6, cfg.AI.MaxRetries)
	assert.Equal(t, 5000, cfg.AI.BackoffBaseMs)
	assert.Equal(t, 60000, cfg.AI.BackoffMaxMs)
	assert.Equal(t, 1000, cfg.AI.JitterMs)
	assert.True(t, cfg.AI.FallbackToHeuristic)
	assert.Equal(t, int64(16000), cfg.AI.MaxTokens)
	assert.Equal(t, 500000, cfg.AI.MaxContentBytes)
	assert.Empty(t, cfg.Anthropic.Key)

	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.False(t, cfg.Fetch.Browser)

	assert.Equal(t, 10, cfg.Pagination.MaxPages)
	assert.Equal(t, 2, cfg.Pagination.MaxEmptyPages)
	assert.Equal(t, 2000, cfg.Pagination.MinDelayMs)
	assert.Equal(t, 4000, cfg.Pagination.MaxDelayMs)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "reviews.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 0.25, cfg.Monitoring.FailureRateThreshold)
	assert.Equal(t, 3, cfg.Monitoring.BlockedRunsThreshold)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
ai:
  preferred_model: claude-sonnet-4-5-20250929
  fallback_to_heuristic: false
pagination:
  max_pages: 25
store:
  driver: postgres
  database_url: postgres://localhost/reviews
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.AI.PreferredModel)
	assert.False(t, cfg.AI.FallbackToHeuristic)
	assert.Equal(t, 25, cfg.Pagination.MaxPages)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/reviews", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Pagination.MaxEmptyPages)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("REVIEWS_STORE_DRIVER", "none")
	t.Setenv("REVIEWS_LOG_LEVEL", "warn")
	t.Setenv("REVIEWS_AI_MAX_RETRIES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.AI.MaxRetries)
}

func TestLoadAnthropicKey(t *testing.T) {
	chdirTemp(t)

	t.Setenv("REVIEWS_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-fallback")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-fallback", cfg.Anthropic.Key)

	t.Setenv("REVIEWS_ANTHROPIC_KEY", "sk-ant-primary")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-primary", cfg.Anthropic.Key)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REVIEWS_PAGINATION_MAX_EMPTY_PAGES=4\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("REVIEWS_PAGINATION_MAX_EMPTY_PAGES") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pagination.MaxEmptyPages)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.AI.MaxRetries = 6
	cfg.AI.BackoffBaseMs = 5000
	cfg.AI.BackoffMaxMs = 60000
	cfg.AI.MaxContentBytes = 500000
	cfg.Pagination.MaxPages = 10
	cfg.Pagination.MaxEmptyPages = 2
	cfg.Pagination.MinDelayMs = 2000
	cfg.Pagination.MaxDelayMs = 4000
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "reviews.db"
	cfg.Output.Format = "json"
	cfg.Batch.Concurrency = 1
	return cfg
}

func TestValidateScrape_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("scrape"))
	assert.NoError(t, cfg.Validate("batch"))
	assert.NoError(t, cfg.Validate("extract"))
	assert.NoError(t, cfg.Validate("runs"))
}

func TestValidateScrape_DoesNotRequireKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	assert.NoError(t, cfg.Validate("scrape"))
}

func TestValidateScrape_Invalid(t *testing.T) {
	cfg := validDefaults()
	cfg.Pagination.MaxPages = 0
	cfg.AI.MaxRetries = 0
	cfg.Output.Format = "csv"
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pagination.max_pages must be >= 1")
	assert.Contains(t, err.Error(), "ai.max_retries must be >= 1")
	assert.Contains(t, err.Error(), "output.format must be json or xlsx")
	assert.Contains(t, err.Error(), "store.driver must be sqlite, postgres or none")
}

func TestValidateBatchConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.Concurrency = 0
	err := cfg.Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.concurrency must be between 1 and 50")

	cfg.Batch.Concurrency = 51
	assert.Error(t, cfg.Validate("batch"))

	cfg.Batch.Concurrency = 50
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidateRuns_RequiresStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"
	err := cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must not be none")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
