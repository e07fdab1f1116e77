package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ice-news-geomap/internal/config"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes resolved articles to a Kafka topic, one message per article.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
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

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// LoadBatch serializes every article of the run and publishes them in a
// single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, tl domain.Timeline) error {
	articles := tl.Articles()
	if len(articles) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(articles))
	for i := range articles {
		msg, err := serializeToMessage(articles[i], tl.RunID, tl.GeneratedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("published resolved articles", "count", len(msgs), "run_id", tl.RunID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ResolvedArticle into a Kafka message keyed by URL.
func serializeToMessage(a domain.ResolvedArticle, runID string, resolvedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolved article: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.URL),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location_alias", Value: []byte(a.LocationAlias)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "resolved_at", Value: []byte(resolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
