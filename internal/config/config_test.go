package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

const testBrokers = "broker1:9092,broker2:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 2, cfg.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 2*time.Second, cfg.RetryMaxDelay)
	assert.Equal(t, 2.0, cfg.RetryMultiplier)
	assert.Equal(t, 50, cfg.DefaultK)
	assert.Equal(t, "./data/indices", cfg.IndicesDir)
	assert.Equal(t, "./data/embeddings", cfg.EmbeddingsDir)
	assert.Equal(t, []domain.Horizon{domain.Horizon6h, domain.Horizon12h, domain.Horizon24h, domain.Horizon48h}, cfg.Horizons)
	assert.Equal(t, 1.645, cfg.PercentileMultiplier)
	assert.Equal(t, 0.3, cfg.ConfidenceCeiling)
	assert.Equal(t, 10, cfg.MinAnalogs)
	assert.Equal(t, 0.5, cfg.RiskUncertaintyWeight)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "forecast-results", cfg.ForecastTopic)
	assert.False(t, cfg.PublishEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("POOL_SIZE", "4")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("RETRY_ATTEMPTS", "3")
	t.Setenv("RETRY_BASE_DELAY", "50ms")
	t.Setenv("RETRY_MAX_DELAY", "1s")
	t.Setenv("RETRY_MULTIPLIER", "1.5")
	t.Setenv("DEFAULT_K", "25")
	t.Setenv("INDICES_DIR", "/var/lib/analog/indices")
	t.Setenv("EMBEDDINGS_DIR", "/var/lib/analog/embeddings")
	t.Setenv("HORIZONS", "6h,24h")
	t.Setenv("PERCENTILE_MULTIPLIER", "2.0")
	t.Setenv("CONFIDENCE_CEILING", "0.5")
	t.Setenv("MIN_ANALOGS", "5")
	t.Setenv("RISK_UNCERTAINTY_WEIGHT", "0.25")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", testBrokers)
	t.Setenv("FORECAST_TOPIC", "custom-forecasts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 1*time.Second, cfg.RetryMaxDelay)
	assert.Equal(t, 1.5, cfg.RetryMultiplier)
	assert.Equal(t, 25, cfg.DefaultK)
	assert.Equal(t, "/var/lib/analog/indices", cfg.IndicesDir)
	assert.Equal(t, "/var/lib/analog/embeddings", cfg.EmbeddingsDir)
	assert.Equal(t, []domain.Horizon{domain.Horizon6h, domain.Horizon24h}, cfg.Horizons)
	assert.Equal(t, 2.0, cfg.PercentileMultiplier)
	assert.Equal(t, 0.5, cfg.ConfidenceCeiling)
	assert.Equal(t, 5, cfg.MinAnalogs)
	assert.Equal(t, 0.25, cfg.RiskUncertaintyWeight)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-forecasts", cfg.ForecastTopic)
	assert.True(t, cfg.PublishEnabled)
}

func TestLoad_InvalidPoolSize(t *testing.T) {
	t.Setenv("POOL_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POOL_SIZE")
}

func TestLoad_InvalidSearchTimeout(t *testing.T) {
	t.Setenv("SEARCH_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCH_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_RetryAttemptsOutOfRange(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "99")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_ATTEMPTS")
}

func TestLoad_ZeroRetryAttemptsAllowed(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RetryAttempts)
}

func TestLoad_RetryMultiplierBelowOne(t *testing.T) {
	t.Setenv("RETRY_MULTIPLIER", "0.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_MULTIPLIER")
}

func TestLoad_MaxDelayBelowBaseDelay(t *testing.T) {
	t.Setenv("RETRY_BASE_DELAY", "1s")
	t.Setenv("RETRY_MAX_DELAY", "100ms")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_MAX_DELAY")
}

func TestLoad_UnknownHorizonRejected(t *testing.T) {
	t.Setenv("HORIZONS", "6h,72h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HORIZONS")
}

func TestLoad_DuplicateHorizonsCollapse(t *testing.T) {
	t.Setenv("HORIZONS", "24h,24h,6h")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []domain.Horizon{domain.Horizon24h, domain.Horizon6h}, cfg.Horizons)
}

func TestLoad_InvalidConfidenceCeiling(t *testing.T) {
	t.Setenv("CONFIDENCE_CEILING", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIDENCE_CEILING")
}

func TestLoad_BrokersImplyPublishing(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBrokers)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.PublishEnabled)
}

func TestLoad_PublishingExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBrokers)
	t.Setenv("PUBLISH_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.PublishEnabled)
}

func TestLoad_PublishingWithoutBrokers(t *testing.T) {
	t.Setenv("PUBLISH_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
