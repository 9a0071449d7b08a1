//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/analog-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/analog-forecast/internal/config"
	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/ensemble"
	"github.com/couchcryptid/analog-forecast/internal/forecast"
	"github.com/couchcryptid/analog-forecast/internal/observability"
	"github.com/couchcryptid/analog-forecast/internal/pool"
	"github.com/couchcryptid/analog-forecast/internal/search"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testForecastTopic = "test-forecasts"

// publishedForecast holds a deserialized message read from the forecast topic.
type publishedForecast struct {
	Result  domain.ForecastResult
	Key     string
	Headers map[string]string
}

// readPublished reads a single message from the consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedForecast {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from forecast topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var result domain.ForecastResult
	require.NoError(t, json.Unmarshal(msg.Value, &result), "unmarshal forecast message")

	return publishedForecast{
		Result:  result,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testForecastTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestPublisherRoundTrip verifies the adapter layer: Publisher writes a
// ForecastResult that a plain consumer reads back with the same payload,
// key, and headers.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testForecastTopic)

	cfg := &config.Config{
		KafkaBrokers:  []string{broker},
		ForecastTopic: testForecastTopic,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	issued := time.Date(2025, time.March, 2, 6, 0, 0, 0, time.UTC)
	result := domain.ForecastResult{
		Horizon:       domain.Horizon24h,
		IssuedAt:      issued,
		CorrelationID: "round-trip-1",
		Variables: map[string]domain.ForecastVariableResult{
			"temperature_c": {Value: 14.2, P05: 11.9, P95: 16.5, Confidence: 0.62, Unit: "°C", Available: true},
		},
		Risk:          domain.RiskAssessment{Level: domain.RiskLow},
		AnalogSummary: domain.AnalogSummary{AnalogCount: 20, MeanDistance: 1.8, MinDistance: 0.4},
	}

	require.NoError(t, publisher.Publish(ctx, result))

	pf := readPublished(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "round-trip-1", pf.Key)
	assert.Equal(t, "24h", pf.Headers["horizon"])
	assert.Equal(t, "false", pf.Headers["degraded"])
	assert.Equal(t, issued.Format(time.RFC3339), pf.Headers["issued_at"])
	assert.Equal(t, result, pf.Result)
}

// staticBackend serves a fixed neighborhood for any query.
type staticBackend struct {
	hits []domain.AnalogHit
}

func (b *staticBackend) Query(context.Context, domain.Horizon, []float64, int) ([]domain.AnalogHit, error) {
	return b.hits, nil
}

func (b *staticBackend) Degraded() bool { return false }

// staticState serves a fixed query vector for any horizon.
type staticState struct {
	vector []float64
}

func (s *staticState) QueryVector(context.Context, domain.Horizon) ([]float64, error) {
	return s.vector, nil
}

// TestServicePublishesForecasts wires the full service (pool, orchestrator,
// aggregator, facade) with a real Kafka publisher and verifies the result
// returned to the caller is the one that lands on the topic.
func TestServicePublishesForecasts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testForecastTopic)

	cfg := &config.Config{
		PoolSize:              1,
		SearchTimeout:         5 * time.Second,
		RetryAttempts:         1,
		RetryBaseDelay:        10 * time.Millisecond,
		RetryMaxDelay:         100 * time.Millisecond,
		RetryMultiplier:       2,
		DefaultK:              20,
		PercentileMultiplier:  1.645,
		ConfidenceCeiling:     0.3,
		MinAnalogs:            10,
		RiskUncertaintyWeight: 0.5,
		KafkaBrokers:          []string{broker},
		ForecastTopic:         testForecastTopic,
		PublishEnabled:        true,
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	backend := &staticBackend{hits: domain.SyntheticEnsemble(cfg.DefaultK)}
	load := func(_ context.Context, _ int) (pool.Backend, error) { return backend, nil }
	p, err := pool.New(ctx, cfg.PoolSize, load, pool.NewClimatology(), logger, metrics)
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)

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

	publisher := kafkaadapter.NewPublisher(cfg, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	provider := &staticState{vector: []float64{0.2, -0.1, 0.4, 0.0}}
	svc := forecast.New(cfg, p, orchestrator, aggregator, mapper, provider, publisher, logger, metrics)

	res, err := svc.ForecastWithUncertainty(ctx, "24h", mapper.Externals())
	require.NoError(t, err)
	require.NotEmpty(t, res.CorrelationID)
	require.False(t, res.Degraded)

	pf := readPublished(ctx, t, newConsumer(t, broker))
	assert.Equal(t, res.CorrelationID, pf.Key)
	assert.Equal(t, "24h", pf.Headers["horizon"])
	assert.Equal(t, "false", pf.Headers["degraded"])

	assert.Equal(t, res.Horizon, pf.Result.Horizon)
	assert.False(t, pf.Result.Degraded)
	assert.Len(t, pf.Result.Variables, len(mapper.Externals()))
	for name, v := range pf.Result.Variables {
		assert.True(t, v.Available, name)
		assert.LessOrEqual(t, v.P05, v.Value, name)
		assert.LessOrEqual(t, v.Value, v.P95, name)
		assert.GreaterOrEqual(t, v.Confidence, 0.0, name)
		assert.LessOrEqual(t, v.Confidence, 1.0, name)
	}
	assert.Equal(t, res.AnalogSummary.AnalogCount, pf.Result.AnalogSummary.AnalogCount)
	assert.Equal(t, res.Risk.Level, pf.Result.Risk.Level)
}
