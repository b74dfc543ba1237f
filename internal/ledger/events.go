package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vc-gateway/internal/platform/kafka/producer"
)

// Event types emitted on ledger mutations.
const (
	EventAppended = "appended"
	EventUpdated  = "updated"
	EventRemoved  = "removed"
	EventCleared  = "cleared"
)

// Event describes one ledger mutation for downstream consumers.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	At     time.Time `json:"at"`
	Record *Record   `json:"record,omitempty"`
	// Count is the ledger size after the mutation.
	Count int `json:"count"`
}

// EventSink receives ledger mutation events. Publishing is best-effort;
// mutations never fail because a sink did.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// KafkaSink publishes ledger events to a Kafka topic, keyed by credential
// identity so per-credential ordering survives partitioning.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaSink wires a producer to a topic.
func NewKafkaSink(p *producer.Producer, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic, logger: logger}
}

// Publish sends one event. The record's CID, then transaction id, then the
// event id serves as the partition key.
func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	key := event.ID
	if event.Record != nil {
		if event.Record.CID != "" {
			key = event.Record.CID
		} else if event.Record.TransactionID != "" {
			key = event.Record.TransactionID
		}
	}

	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: map[string]string{
			"event-type": event.Type,
		},
	})
}

func newEvent(eventType string, rec *Record, count int) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		At:     time.Now().UTC(),
		Record: rec,
		Count:  count,
	}
}
