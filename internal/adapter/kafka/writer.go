package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tide-data-etl/internal/config"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes tide readings to a Kafka topic, one message per reading.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured readings topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// LoadBatch serializes and publishes every reading in the batch in a single
// WriteMessages call. Readings are keyed by timestamp and pair so a
// compacted topic keeps the latest value per tide event.
func (w *Writer) LoadBatch(ctx context.Context, batch domain.ReadingBatch) error {
	if len(batch.Readings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Readings))
	for i := range batch.Readings {
		msg, err := serializeToMessage(batch, batch.Readings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish readings: %w", err)
	}
	w.metrics.ReadingsPublished.Add(float64(len(msgs)))
	w.logger.Debug("published readings", "count", len(msgs), "run_id", batch.RunID)
	return nil
}

// Name identifies the loader in logs.
func (w *Writer) Name() string { return "kafka" }

func (w *Writer) Close() error {
	return w.writer.Close()
}

// messageKey identifies a tide event independent of the run that produced it.
func messageKey(r domain.Reading) string {
	return fmt.Sprintf("%s#%d", r.DateTime.Format("2006-01-02T15:04"), r.Pair)
}

// serializeToMessage marshals a Reading into a Kafka message.
func serializeToMessage(batch domain.ReadingBatch, r domain.Reading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize tide reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(r)),
		Value: data,
		Time:  batch.ReshapedAt,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(batch.RunID)},
			{Key: "reshaped_at", Value: []byte(batch.ReshapedAt.Format(time.RFC3339))},
		},
	}, nil
}
