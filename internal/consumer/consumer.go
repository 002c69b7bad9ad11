// Package consumer reads login events from the events topic.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/victorlap/suspicious-login/internal/events"
	kafkautil "github.com/victorlap/suspicious-login/pkg/kafka"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fetches and decodes events. Offsets are committed explicitly with
// CommitMessage once the event has been handled.
type Consumer struct {
	reader MessageReader
	topic  string
}

// NewConsumer creates a consumer in group groupID.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}

	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	cfg := kafkautil.NewReaderConfig(brokerList, topic, groupID)
	kafkautil.LogReaderConfig(cfg)

	return NewWithReader(kafka.NewReader(cfg), topic), nil
}

// NewWithReader wraps an existing reader.
func NewWithReader(reader MessageReader, topic string) *Consumer {
	return &Consumer{reader: reader, topic: topic}
}

// ReadMessage fetches the next message and decodes it. When decoding fails
// the raw message is still returned so the caller can commit past it.
func (c *Consumer) ReadMessage(ctx context.Context) (events.Event, *kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	ev, err := events.Decode(msg.Value)
	if err != nil {
		return nil, &msg, fmt.Errorf("failed to decode event at offset %d: %w", msg.Offset, err)
	}
	return ev, &msg, nil
}

// CommitMessage commits the offset of msg.
func (c *Consumer) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	return c.reader.CommitMessages(ctx, *msg)
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing Kafka consumer", "error", err)
		return err
	}
	slog.Info("Kafka consumer closed successfully")
	return nil
}
