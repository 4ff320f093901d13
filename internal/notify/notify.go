// Package notify publishes record events to external sinks after the workflow
// has committed them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/nalog/internal/model"
)

// Event types.
const (
	EventCreated      = "record.created"
	EventTransitioned = "record.transitioned"
	EventEdited       = "record.edited"
	EventDeleted      = "record.deleted"
)

// Event describes a committed change to a record.
type Event struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	RecordID   int64        `json:"record_id"`
	Kind       model.Kind   `json:"kind"`
	FromStatus model.Status `json:"from_status,omitempty"`
	ToStatus   model.Status `json:"to_status"`
	ActorID    int64        `json:"actor_id"`
	Version    int          `json:"version"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewEvent builds an event for r with a fresh ID. from is empty unless the
// event is a status change.
func NewEvent(typ string, r *model.Record, from model.Status, actorID int64, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		RecordID:   r.ID,
		Kind:       r.Kind,
		FromStatus: from,
		ToStatus:   r.Status,
		ActorID:    actorID,
		Version:    r.Version,
		OccurredAt: at.UTC(),
	}
}

// Notifier receives committed record events. Implementations must not assume
// the caller retries.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Log writes events to a structured logger.
type Log struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l Log) Notify(ctx context.Context, ev Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "record event",
		"event_id", ev.ID,
		"type", ev.Type,
		"record_id", ev.RecordID,
		"kind", ev.Kind,
		"from", ev.FromStatus,
		"to", ev.ToStatus,
		"actor_id", ev.ActorID,
		"version", ev.Version,
	)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
