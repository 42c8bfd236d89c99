// Package kafka publishes dataset lineage records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/config"
	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces dataset manifests to a Kafka topic.
// It implements pipeline.ManifestPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured manifest topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaManifestTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishManifest serializes and publishes one manifest. Messages are keyed
// by stage so consumers see the latest fit and test manifests per partition.
func (w *Writer) PublishManifest(ctx context.Context, manifest domain.DatasetManifest) error {
	msg, err := serializeToMessage(manifest)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a manifest into a Kafka message.
func serializeToMessage(manifest domain.DatasetManifest) (kafkago.Message, error) {
	data, err := json.Marshal(manifest)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize manifest: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(manifest.Stage),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "stage", Value: []byte(manifest.Stage)},
			{Key: "prepared_at", Value: []byte(manifest.PreparedAt.Format(time.RFC3339))},
		},
	}, nil
}
