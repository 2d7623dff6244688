// Package notify carries booking and sync events to whoever is listening:
// connected admin dashboards, a Kafka topic, or both.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	EntityBooking = "booking"
	EntitySync    = "sync"

	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
	ActionFailed    = "failed"
)

// Event is one change notification. Type is "<entity>_<action>".
type Event struct {
	Type      string         `json:"type"`
	Entity    string         `json:"entity"`
	Action    string         `json:"action"`
	ID        int64          `json:"id,omitempty"`
	ListingID int64          `json:"listing_id,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	At        time.Time      `json:"at"`
}

func NewEvent(entity, action string, listingID, id int64, extra map[string]any) Event {
	return Event{
		Type:      fmt.Sprintf("%s_%s", entity, action),
		Entity:    entity,
		Action:    action,
		ID:        id,
		ListingID: listingID,
		Extra:     extra,
		At:        time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Multi fans events out to every publisher. A failing publisher does not
// stop the others; the errors are joined.
type Multi struct {
	publishers []Publisher
	logger     *slog.Logger
}

func NewMulti(logger *slog.Logger, publishers ...Publisher) *Multi {
	return &Multi{publishers: publishers, logger: logger}
}

func (m *Multi) Add(p Publisher) {
	m.publishers = append(m.publishers, p)
}

func (m *Multi) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, events...); err != nil {
			m.logger.Warn("publish events", "publisher", fmt.Sprintf("%T", p), "count", len(events), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) error { return nil }
