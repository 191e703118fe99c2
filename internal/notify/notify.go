// Package notify delivers post-commit order events to interested consumers
// (kitchen displays, cashier screens). The engine calls its Sink exactly
// once per successful mutating commit with the authoritative post-commit
// snapshot; delivery is best effort.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Event is one post-commit notification.
type Event struct {
	Type         string    `json:"type"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	OutletID     uuid.UUID `json:"outlet_id"`
	Payload      any       `json:"payload"`
}

// Sink receives events. Implementations must not block the publisher for
// long; the engine publishes on the request path after commit.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every sink, collecting nothing: a failing sink must
// not starve the others.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var firstErr error
	for _, s := range f {
		if err := s.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Discard drops all events. Used where no consumer is wired (tests, seed).
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
