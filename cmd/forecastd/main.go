package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/analog-forecast/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/analog-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/analog-forecast/internal/config"
	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/ensemble"
	"github.com/couchcryptid/analog-forecast/internal/forecast"
	"github.com/couchcryptid/analog-forecast/internal/index"
	"github.com/couchcryptid/analog-forecast/internal/observability"
	"github.com/couchcryptid/analog-forecast/internal/pool"
	"github.com/couchcryptid/analog-forecast/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each slot loads its own read-only copy of the index artifacts, so a
	// corrupt file breaks that slot without taking down the pool.
	load := func(ctx context.Context, slot int) (pool.Backend, error) {
		handles, err := index.Load(ctx, cfg.IndicesDir, cfg.Horizons)
		if err != nil {
			return nil, err
		}
		return index.NewBackend(handles), nil
	}

	p, err := pool.New(ctx, cfg.PoolSize, load, pool.NewClimatology(), logger, metrics)
	if err != nil {
		logger.Error("failed to build backend pool", "error", err)
		os.Exit(1)
	}

	orchestrator := search.New(p, search.RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Multiplier:  cfg.RetryMultiplier,
	}, cfg.SearchTimeout, logger, metrics)

	mapper := domain.NewVariableMapper()
	aggregator := ensemble.New(ensemble.Config{
		PercentileMultiplier: cfg.PercentileMultiplier,
		DegradedCeiling:      cfg.ConfidenceCeiling,
		MinAnalogs:           cfg.MinAnalogs,
	}, mapper)
	provider := index.NewFileStateProvider(cfg.EmbeddingsDir)

	// Result publishing is feature-flagged via KAFKA_BROKERS / PUBLISH_ENABLED.
	var kafkaPublisher *kafkaadapter.Publisher
	var publisher forecast.Publisher
	if cfg.PublishEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		metrics.PublishEnabled.Set(1)
		logger.Info("forecast publishing enabled", "topic", cfg.ForecastTopic)
	} else {
		logger.Info("forecast publishing disabled")
	}

	svc := forecast.New(cfg, p, orchestrator, aggregator, mapper, provider, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	p.Shutdown()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
