package pokersync

import (
	"context"
	"sync"
)

// MemoryBroadcast is an in-process Broadcast. It backs local practice
// games (no network, no relays) and the test suite. Events are retained
// for the life of the process, so late subscribers replay the full log the
// same way they would against a real relay set.
type MemoryBroadcast struct {
	mu      sync.Mutex
	closed  bool
	history map[string][]*GameEvent
	subs    map[string]map[int]func(*GameEvent)
	nextSub int
}

func NewMemoryBroadcast() *MemoryBroadcast {
	return &MemoryBroadcast{
		history: make(map[string][]*GameEvent),
		subs:    make(map[string]map[int]func(*GameEvent)),
	}
}

func (b *MemoryBroadcast) Publish(ctx context.Context, event *GameEvent) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBroadcastClosed
	}

	// Store a decoded copy so later mutation by the caller cannot leak in.
	payload, err := EncodeGameEvent(event)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	stored, err := DecodeGameEvent(payload)
	if err != nil {
		b.mu.Unlock()
		return err
	}

	b.history[stored.GameID] = append(b.history[stored.GameID], stored)

	fns := make([]func(*GameEvent), 0, len(b.subs[stored.GameID]))
	for _, fn := range b.subs[stored.GameID] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(stored)
	}
	return nil
}

func (b *MemoryBroadcast) FetchHistory(ctx context.Context, gameID string) ([]*GameEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBroadcastClosed
	}

	events := make([]*GameEvent, len(b.history[gameID]))
	copy(events, b.history[gameID])
	return events, nil
}

func (b *MemoryBroadcast) Subscribe(ctx context.Context, gameID string, fn func(*GameEvent)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBroadcastClosed
	}

	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[int]func(*GameEvent))
	}
	id := b.nextSub
	b.nextSub++
	b.subs[gameID][id] = fn

	return &memorySubscription{broadcast: b, gameID: gameID, id: id}, nil
}

func (b *MemoryBroadcast) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subs = make(map[string]map[int]func(*GameEvent))
	return nil
}

type memorySubscription struct {
	broadcast *MemoryBroadcast
	gameID    string
	id        int
}

func (s *memorySubscription) Unsubscribe() {
	s.broadcast.mu.Lock()
	defer s.broadcast.mu.Unlock()

	delete(s.broadcast.subs[s.gameID], s.id)
}
