// Package producer publishes login events to the events topic.
package producer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/victorlap/suspicious-login/internal/events"
	kafkautil "github.com/victorlap/suspicious-login/pkg/kafka"
)

// Header keys set on every published message.
const (
	HeaderEventName = "event_name"
	HeaderEventID   = "event_id"
)

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) (string, error)
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer encodes events and writes them keyed by uid, so all events of one
// user land on the same partition.
type Producer struct {
	writer MessageWriter
	topic  string
	now    func() time.Time
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a producer for topic and makes sure the topic exists.
func NewProducer(brokers, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}
	brokerList := kafkautil.ParseBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}

	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)
	kafkautil.EnsureTopic(brokerList[0], topic, 3)

	return NewWithWriter(kafkautil.NewWriter(brokerList, topic), topic), nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(writer MessageWriter, topic string) *Producer {
	return &Producer{writer: writer, topic: topic, now: time.Now}
}

// Publish encodes ev and writes it synchronously. It returns the generated
// event id carried in the event_id header.
func (p *Producer) Publish(ctx context.Context, ev events.Event) (string, error) {
	payload, err := events.Encode(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}

	eventID := uuid.NewString()
	msg := kafka.Message{
		Key:   []byte(events.UIDOf(ev)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventName, Value: []byte(ev.EventName())},
			{Key: HeaderEventID, Value: []byte(eventID)},
		},
		Time: p.now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write message to Kafka",
			"event_id", eventID,
			"event_name", ev.EventName(),
			"topic", p.topic,
			"error", err,
		)
		return "", fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	slog.Debug("Published event",
		"event_id", eventID,
		"event_name", ev.EventName(),
		"topic", p.topic,
	)
	return eventID, nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	slog.Info("Kafka producer closed successfully")
	return nil
}
