package kafkarepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"csc-ledger/internal/models"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type EventRepository struct {
	writer MessageWriter
}

func NewEventRepository(writer MessageWriter) *EventRepository {
	return &EventRepository{
		writer: writer,
	}
}

// Publish sends a committed ledger event to Kafka
func (r *EventRepository) Publish(ctx context.Context, event models.LedgerEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}

	// The owner id is the key so events of one owner stay ordered on a single partition
	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(string(event.OwnerKind) + ":" + event.OwnerID),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}
