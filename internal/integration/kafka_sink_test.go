//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/geomag-dst-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-dst-ingest/internal/config"
	"github.com/couchcryptid/geomag-dst-ingest/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSinkTopic = "test-dst-points"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker addresses")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPointSinkRoundTrip publishes hourly points through the adapter and reads
// them back from the sink topic, verifying key, payload, and mode header.
func TestPointSinkRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	// An append for the newest hour, then a rewrite of the same hour. The
	// shared key is what lets a compacted topic retain only the rewrite.
	anchor := time.Date(2026, time.August, 23, 9, 0, 0, 0, time.UTC)
	require.NoError(t, writer.PublishPoint(ctx, domain.Point{Ts: anchor, Value: -14}, "append"))
	require.NoError(t, writer.PublishPoint(ctx, domain.Point{Ts: anchor, Value: -15}, "rewrite"))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()

	first, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read first sink message")
	assert.Equal(t, "2026-08-23T09:00:00Z", string(first.Key))
	assert.JSONEq(t, `{"ts":"2026-08-23T09:00:00Z","value":-14}`, string(first.Value))
	require.Len(t, first.Headers, 1)
	assert.Equal(t, "mode", first.Headers[0].Key)
	assert.Equal(t, "append", string(first.Headers[0].Value))

	second, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read second sink message")
	assert.Equal(t, string(first.Key), string(second.Key), "both runs address the same hour")
	assert.JSONEq(t, `{"ts":"2026-08-23T09:00:00Z","value":-15}`, string(second.Value))
	assert.Equal(t, "rewrite", string(second.Headers[0].Value))
}
