package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/seatgrid/reservation/internal/domain"
)

type capturingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *capturingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestRelay_EncodesAndKeysByParentEvent(t *testing.T) {
	t.Parallel()

	writer := &capturingWriter{}
	relay := NewRelay(writer)

	event := domain.StatusChanged{
		UnitID:     "unit-1",
		EventID:    "event-p",
		OldStatus:  domain.UnitStatusAvailable,
		NewStatus:  domain.UnitStatusHeld,
		HolderID:   "alice",
		Reason:     domain.ReasonHoldCreated,
		OccurredAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := relay.Handle(event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(writer.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if string(msg.Key) != "event-p" {
		t.Fatalf("expected key event-p, got %s", msg.Key)
	}

	var decoded domain.StatusChanged
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded != event {
		t.Fatalf("round-tripped event %+v, want %+v", decoded, event)
	}
}

func TestRelay_ReturnsWriteErrors(t *testing.T) {
	t.Parallel()

	relay := NewRelay(&capturingWriter{err: errors.New("broker down")})
	if err := relay.Handle(domain.StatusChanged{EventID: "event-p"}); err == nil {
		t.Fatal("expected write error to surface for bus logging")
	}
}
