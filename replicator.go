package pokersync

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrReplicatorStarted = errors.New("replicator: already started")
	ErrReplicatorStopped = errors.New("replicator: stopped")
)

type ReplicatorOpt func(*Replicator)

// Replicator reconstructs a game's state on a peer by replaying the
// historical event log, then keeps it current from live deliveries.
//
// Start runs the two phases in a fixed order so there is never a gap or a
// reordering between them: the live subscription opens first, but every
// delivery is buffered; then the complete history is fetched, deduplicated,
// sorted ascending by timestamp, and replayed through the reducer; only
// then is the buffer flushed (again in timestamp order) and live delivery
// applied directly. Duplicates between history and live, or between two
// endpoints, are absorbed by reducer idempotence rather than rejected.
type Replicator struct {
	mu             sync.Mutex
	broadcast      Broadcast
	gameID         string
	state          *GameState
	logger         *zap.Logger
	sub            Subscription
	started        bool
	stopped        bool
	historyLoaded  bool
	buffer         []*GameEvent
	onStateUpdated func(*GameState)
	onHistory      func(*GameState)
	onErrorUpdated func(error)
}

// NewReplicator wires a replicator for one game. The initial state is the
// empty waiting-stage projection the log replays over; it carries the seat
// identities and buy-in supplied by the lobby.
func NewReplicator(broadcast Broadcast, initial *GameState, opts ...ReplicatorOpt) *Replicator {
	r := &Replicator{
		broadcast:      broadcast,
		gameID:         initial.GameID,
		state:          CloneGameState(initial),
		logger:         zap.NewNop(),
		buffer:         make([]*GameEvent, 0),
		onStateUpdated: func(*GameState) {},
		onHistory:      func(*GameState) {},
		onErrorUpdated: func(error) {},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func WithReplicatorLogger(logger *zap.Logger) ReplicatorOpt {
	return func(r *Replicator) {
		r.logger = logger
	}
}

func (r *Replicator) OnStateUpdated(fn func(*GameState)) {
	r.onStateUpdated = fn
}

func (r *Replicator) OnHistoryLoaded(fn func(*GameState)) {
	r.onHistory = fn
}

func (r *Replicator) OnErrorUpdated(fn func(error)) {
	r.onErrorUpdated = fn
}

// GetState returns the current projection.
func (r *Replicator) GetState() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start brings the peer to current state and begins live consumption. It
// blocks until the historical replay has completed or conclusively failed.
func (r *Replicator) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrReplicatorStarted
	}
	if r.stopped {
		r.mu.Unlock()
		return ErrReplicatorStopped
	}
	r.started = true
	r.mu.Unlock()

	// Open the live subscription before fetching history so nothing can
	// slip between the two phases. Deliveries buffer until replay is done.
	sub, err := r.broadcast.Subscribe(ctx, r.gameID, r.deliver)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()

	history, err := r.broadcast.FetchHistory(ctx, r.gameID)
	if err != nil {
		r.Stop()
		return err
	}

	r.mu.Lock()
	events := sortEvents(dedupEvents(history))
	for _, event := range events {
		r.state = ApplyGameEvent(r.state, event)
	}
	r.logger.Info("history replayed",
		zap.String("game_id", r.gameID),
		zap.Int("events", len(events)),
		zap.String("stage", r.state.Stage),
	)
	r.historyLoaded = true

	buffered := sortEvents(r.buffer)
	r.buffer = nil
	for _, event := range buffered {
		r.state = ApplyGameEvent(r.state, event)
	}
	state := r.state
	r.mu.Unlock()

	r.onHistory(state)
	r.onStateUpdated(state)
	return nil
}

// Stop tears down the live subscription. No events are delivered after it
// returns; there is no cancellation of an in-flight history fetch beyond
// the caller's context.
func (r *Replicator) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.stopped = true
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// deliver is the live-subscription callback. It may run concurrently with
// an in-progress historical replay; in that window events are deferred.
func (r *Replicator) deliver(event *GameEvent) {
	if event == nil || event.GameID != r.gameID {
		return
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	if !r.historyLoaded {
		r.buffer = append(r.buffer, event)
		r.mu.Unlock()
		return
	}

	prev := r.state
	r.state = ApplyGameEvent(r.state, event)
	changed := r.state != prev
	state := r.state
	r.mu.Unlock()

	if changed {
		r.onStateUpdated(state)
	}
}

func dedupEvents(events []*GameEvent) []*GameEvent {
	seen := make(map[string]bool, len(events))
	deduped := make([]*GameEvent, 0, len(events))
	for _, event := range events {
		if event == nil || seen[event.DedupKey()] {
			continue
		}
		seen[event.DedupKey()] = true
		deduped = append(deduped, event)
	}
	return deduped
}

func sortEvents(events []*GameEvent) []*GameEvent {
	sorted := make([]*GameEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return sorted
}
