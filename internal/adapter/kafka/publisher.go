// Package kafka publishes completed forecasts to the results topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/analog-forecast/internal/config"
	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// Publisher produces forecast results to a Kafka topic.
// It implements forecast.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured results topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.ForecastTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes one forecast and writes it, keyed by correlation id so
// re-issued forecasts for the same request land in one partition.
func (p *Publisher) Publish(ctx context.Context, result domain.ForecastResult) error {
	msg, err := serializeForecast(result)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeForecast marshals a ForecastResult into a Kafka message.
func serializeForecast(result domain.ForecastResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.CorrelationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "horizon", Value: []byte(result.Horizon)},
			{Key: "degraded", Value: []byte(strconv.FormatBool(result.Degraded))},
			{Key: "issued_at", Value: []byte(result.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
