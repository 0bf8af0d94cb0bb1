package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"classcaptain/internal/domain"
	"classcaptain/internal/queue"
)

// MessageType tags unsynced reports on the queue.
const MessageType = "unsynced"

// UnsyncedEvent describes a write that was applied locally but not remotely.
// Nothing retries it; it exists for operators.
type UnsyncedEvent struct {
	SessionID  string            `json:"session_id"`
	AcademyID  string            `json:"academy_id"`
	Collection domain.Collection `json:"collection"`
	RecordID   string            `json:"record_id"`
	Op         string            `json:"op"`
	Reason     string            `json:"reason,omitempty"`
	At         time.Time         `json:"at"`
}

// Reporter receives unsynced events.
type Reporter interface {
	ReportUnsynced(ctx context.Context, ev UnsyncedEvent) error
}

// QueueReporter publishes unsynced events to a queue for the worker.
type QueueReporter struct {
	q queue.Queue
}

func NewQueueReporter(q queue.Queue) *QueueReporter {
	return &QueueReporter{q: q}
}

func (r *QueueReporter) ReportUnsynced(ctx context.Context, ev UnsyncedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode unsynced event: %w", err)
	}
	return r.q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}

// DecodeUnsynced parses a queue message produced by QueueReporter.
func DecodeUnsynced(msg queue.Message) (UnsyncedEvent, error) {
	var ev UnsyncedEvent
	if msg.Type != MessageType {
		return ev, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return ev, fmt.Errorf("decode unsynced event: %w", err)
	}
	return ev, nil
}
