// Package kafka publishes appended hourly points to a sink topic. The sink
// is optional and feature-flagged on KAFKA_BROKERS; the file store stays
// the contract with the display client either way.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/geomag-dst-ingest/internal/config"
	"github.com/couchcryptid/geomag-dst-ingest/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces point messages to the configured sink topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishPoint serializes and publishes one hourly point, keyed by its
// timestamp so the topic compacts to one message per hour. The mode header
// records how the point reached the store ("append" or "rewrite").
func (w *Writer) PublishPoint(ctx context.Context, pt domain.Point, mode string) error {
	msg, err := serializeToMessage(pt, mode)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a point into a Kafka message.
func serializeToMessage(pt domain.Point, mode string) (kafkago.Message, error) {
	data, err := json.Marshal(pt)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize point: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(pt.Ts.UTC().Format(time.RFC3339)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "mode", Value: []byte(mode)},
		},
	}, nil
}
