package producer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/victorlap/suspicious-login/internal/events"
)

// MockProducer logs events instead of publishing them.
type MockProducer struct {
	topic string
}

var _ Publisher = (*MockProducer)(nil)

// NewMock creates a producer that only logs.
func NewMock(topic string) *MockProducer {
	slog.Info("Using mock producer (no Kafka connection)", "topic", topic)
	return &MockProducer{topic: topic}
}

// Publish encodes ev to validate it and logs the result.
func (p *MockProducer) Publish(ctx context.Context, ev events.Event) (string, error) {
	payload, err := events.Encode(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}
	eventID := uuid.NewString()
	slog.Info("Mock publish (event logged, not sent to Kafka)",
		"topic", p.topic,
		"event_id", eventID,
		"event_name", ev.EventName(),
		"uid", events.UIDOf(ev),
		"bytes", len(payload),
	)
	return eventID, nil
}

func (p *MockProducer) Close() error {
	slog.Info("Mock producer closed", "topic", p.topic)
	return nil
}
