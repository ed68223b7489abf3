package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes a JSON summary of each hydrograph to a Kafka topic.
// The sampled series is not included. It implements pipeline.Loader.
type Writer struct {
	writer  *kafkago.Writer
	timeout time.Duration
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, timeout time.Duration, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, timeout: timeout, logger: logger}
}

// Load publishes the summary of h, keyed by lake name so repeated runs for a
// lake land on the same partition.
func (w *Writer) Load(ctx context.Context, h domain.Hydrograph) error {
	msg, err := serializeToMessage(h)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish hydrograph summary: %w", err)
	}
	w.logger.Debug("hydrograph summary published", "lake", h.Lake.Name, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Hydrograph summary into a Kafka message.
func serializeToMessage(h domain.Hydrograph) (kafkago.Message, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize hydrograph summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(h.Lake.Name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "lake", Value: []byte(h.Lake.Name)},
			{Key: "run_id", Value: []byte(h.RunID)},
			{Key: "processed_at", Value: []byte(h.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
