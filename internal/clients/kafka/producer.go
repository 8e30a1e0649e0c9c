package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callbridge/internal/observability"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Call lifecycle event types
const (
	EventCallCreated         = "call.created"
	EventTranscriptCompleted = "call.transcript.completed"
)

// Producer handles publishing call events to Kafka
type Producer struct {
	writer *kafka.Writer
	logger *observability.Logger
}

// ProducerConfig contains configuration for Kafka producer
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger *observability.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Snappy,
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// EventMessage is the envelope of every call event
type EventMessage struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	CallSID   string                 `json:"call_sid"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"`
}

// NewEvent fills in the id and timestamp of an event
func NewEvent(eventType, callSID string, data map[string]interface{}) EventMessage {
	return EventMessage{
		ID:        uuid.NewString(),
		Type:      eventType,
		CallSID:   callSID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// PublishEvent publishes an event to Kafka, keyed by call sid so events of
// one call stay ordered on a partition.
func (p *Producer) PublishEvent(ctx context.Context, event EventMessage) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "event_type", Value: event.Type},
		observability.Field{Key: "event_id", Value: event.ID},
	)

	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal event", err)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CallSID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "call_sid", Value: []byte(event.CallSID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(ctx, "failed to write message to kafka", err)
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Info(ctx, fmt.Sprintf("published event %s to kafka", event.Type))
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
