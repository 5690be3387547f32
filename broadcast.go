package pokersync

import (
	"context"
	"errors"
)

var (
	ErrBroadcastClosed = errors.New("broadcast: closed")
)

// Broadcast is the shared medium game events travel over. Delivery is
// at-least-once and unordered; ordering is imposed by whoever consumes the
// log (see Replicator). A Broadcast is an explicit long-lived component:
// construct it, hand it to whatever needs it, and Close it on teardown.
//
// Publish is best-effort across however many endpoints back the medium.
// FetchHistory returns every known event for a game, deduplicated but in
// no particular order. Subscribe delivers future events for a game; the
// same event may be delivered more than once.
type Broadcast interface {
	Publish(ctx context.Context, event *GameEvent) error
	FetchHistory(ctx context.Context, gameID string) ([]*GameEvent, error)
	Subscribe(ctx context.Context, gameID string, fn func(*GameEvent)) (Subscription, error)
	Close() error
}

// Subscription is a live delivery handle. Unsubscribe stops delivery; no
// events arrive afterwards.
type Subscription interface {
	Unsubscribe()
}
