// Package stream forwards domain events to an external Kafka topic so
// out-of-process consumers (notification fan-out, analytics) see status
// changes. The relay is an ordinary bus subscriber: write failures are
// logged by the bus and never reach the publishing business operation.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/seatgrid/reservation/internal/domain"
)

const writeTimeout = 5 * time.Second

// Writer is the slice of kafka.Writer the relay needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter builds the production Kafka writer for the given brokers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
}

type Relay struct {
	writer Writer
}

func NewRelay(writer Writer) *Relay {
	return &Relay{writer: writer}
}

func (r *Relay) Name() string { return "kafka-relay" }

// Handle publishes the event keyed by its parent event id, so all changes
// for one event land in the same partition in order.
func (r *Relay) Handle(event domain.StatusChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.EventID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(event.Reason)},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write status change: %w", err)
	}
	return nil
}
