package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Pool and search settings.
	PoolSize        int
	SearchTimeout   time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	RetryMultiplier float64
	DefaultK        int

	// Index artifact locations.
	IndicesDir    string
	EmbeddingsDir string
	Horizons      []domain.Horizon

	// Ensemble aggregation settings.
	PercentileMultiplier  float64
	ConfidenceCeiling     float64
	MinAnalogs            int
	RiskUncertaintyWeight float64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka result publishing configuration.
	KafkaBrokers   []string
	ForecastTopic  string
	PublishEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	poolSize, err := parseIntEnv("POOL_SIZE", 2, 1, 64)
	if err != nil {
		return nil, err
	}
	defaultK, err := parseIntEnv("DEFAULT_K", 50, 1, 10000)
	if err != nil {
		return nil, err
	}
	retryAttempts, err := parseIntEnv("RETRY_ATTEMPTS", 2, 0, 10)
	if err != nil {
		return nil, err
	}
	minAnalogs, err := parseIntEnv("MIN_ANALOGS", 10, 1, 10000)
	if err != nil {
		return nil, err
	}

	searchTimeout, err := parseDurationEnv("SEARCH_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, err
	}
	retryBaseDelay, err := parseDurationEnv("RETRY_BASE_DELAY", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	retryMaxDelay, err := parseDurationEnv("RETRY_MAX_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	percentileMultiplier, err := parseFloatEnv("PERCENTILE_MULTIPLIER", 1.645)
	if err != nil {
		return nil, err
	}
	confidenceCeiling, err := parseFloatEnv("CONFIDENCE_CEILING", 0.3)
	if err != nil {
		return nil, err
	}
	riskWeight, err := parseFloatEnv("RISK_UNCERTAINTY_WEIGHT", 0.5)
	if err != nil {
		return nil, err
	}
	retryMultiplier, err := parseFloatEnv("RETRY_MULTIPLIER", 2.0)
	if err != nil {
		return nil, err
	}

	horizons, err := parseHorizons(envOrDefault("HORIZONS", "6h,12h,24h,48h"))
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	publishEnabled := len(brokers) > 0
	if v := os.Getenv("PUBLISH_ENABLED"); v != "" {
		publishEnabled = v == "true"
	}

	cfg := &Config{
		PoolSize:        poolSize,
		SearchTimeout:   searchTimeout,
		RetryAttempts:   retryAttempts,
		RetryBaseDelay:  retryBaseDelay,
		RetryMaxDelay:   retryMaxDelay,
		RetryMultiplier: retryMultiplier,
		DefaultK:        defaultK,

		IndicesDir:    envOrDefault("INDICES_DIR", "./data/indices"),
		EmbeddingsDir: envOrDefault("EMBEDDINGS_DIR", "./data/embeddings"),
		Horizons:      horizons,

		PercentileMultiplier:  percentileMultiplier,
		ConfidenceCeiling:     confidenceCeiling,
		MinAnalogs:            minAnalogs,
		RiskUncertaintyWeight: riskWeight,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:   brokers,
		ForecastTopic:  envOrDefault("FORECAST_TOPIC", "forecast-results"),
		PublishEnabled: publishEnabled,
	}

	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		return nil, errors.New("RETRY_MAX_DELAY must be at least RETRY_BASE_DELAY")
	}
	if cfg.RetryMultiplier < 1 {
		return nil, errors.New("RETRY_MULTIPLIER must be at least 1")
	}
	if cfg.PercentileMultiplier <= 0 {
		return nil, errors.New("PERCENTILE_MULTIPLIER must be positive")
	}
	if cfg.ConfidenceCeiling <= 0 || cfg.ConfidenceCeiling > 1 {
		return nil, errors.New("CONFIDENCE_CEILING must be in (0, 1]")
	}
	if cfg.RiskUncertaintyWeight < 0 {
		return nil, errors.New("RISK_UNCERTAINTY_WEIGHT must not be negative")
	}
	if cfg.IndicesDir == "" {
		return nil, errors.New("INDICES_DIR is required")
	}
	if cfg.EmbeddingsDir == "" {
		return nil, errors.New("EMBEDDINGS_DIR is required")
	}
	if cfg.PublishEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("PUBLISH_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.PublishEnabled && cfg.ForecastTopic == "" {
		return nil, errors.New("FORECAST_TOPIC is required when publishing is enabled")
	}

	return cfg, nil
}

func parseHorizons(raw string) ([]domain.Horizon, error) {
	parts := strings.Split(raw, ",")
	horizons := make([]domain.Horizon, 0, len(parts))
	seen := make(map[domain.Horizon]bool)

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		h, err := domain.ParseHorizon(part)
		if err != nil {
			return nil, fmt.Errorf("HORIZONS: %w", err)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		horizons = append(horizons, h)
	}

	if len(horizons) == 0 {
		return nil, errors.New("HORIZONS must name at least one horizon")
	}
	return horizons, nil
}
