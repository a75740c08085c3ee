package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/jmehdipour/event-stream/internal/metrics"
	"github.com/jmehdipour/event-stream/internal/model"
)

// Firehose mirrors every broadcast message to a Kafka topic for durable
// external consumers. Messages are keyed by event id so updates to one
// event stay in one partition, in order.
type Firehose struct {
	w *kafka.Writer
}

func NewFirehose(brokers []string, topic string) *Firehose {
	return &Firehose{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (f *Firehose) Publish(ctx context.Context, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal firehose message: %w", err)
	}
	if err := f.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ID),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	metrics.BroadcastPublishedTotal.WithLabelValues("kafka").Inc()
	return nil
}

func (f *Firehose) Close() error {
	return f.w.Close()
}
