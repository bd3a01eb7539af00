package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

// Pipeline event topics
const (
	TopicDisruptionReceived = "skymarshal.disruptions.received"
	TopicDisruptionAssessed = "skymarshal.disruptions.assessed"
	TopicEscalations        = "skymarshal.disruptions.escalations"
)

// Producer publishes JSON events to Kafka. Publishing is best-effort
// from the request path's perspective: a broker failure is logged, never
// surfaced to the caller.
type Producer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer creates a Kafka producer for the given brokers
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}

	return &Producer{
		writer: writer,
		log:    logger.Get().With("component", "kafka_producer"),
	}
}

// Publish sends one JSON-encoded event keyed for partition affinity
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal event for %s", topic)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrapf(err, "write message to %s", topic)
	}

	return nil
}

// PublishAsync publishes on a detached goroutine with its own timeout,
// logging failures instead of returning them.
func (p *Producer) PublishAsync(topic, key string, payload interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := p.Publish(ctx, topic, key, payload); err != nil {
			p.log.Warnf("Event publish failed: %v", err)
		}
	}()
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
