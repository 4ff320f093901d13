package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by Kafka.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer that hashes on the message key, so every
// event for one record lands on the same partition in commit order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Kafka publishes events to a Kafka topic keyed by record ID.
type Kafka struct {
	w MessageWriter
}

// NewKafka wraps a writer.
func NewKafka(w MessageWriter) *Kafka {
	return &Kafka{w: w}
}

// Notify implements Notifier.
func (k *Kafka) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.RecordID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "type", Value: []byte(ev.Type)},
		},
		Time: ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (k *Kafka) Close() error { return k.w.Close() }
