package pokersync

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/weedbox/syncsaga"
	"go.uber.org/zap"

	"github.com/lightning-poker/pokersync/deck"
)

var (
	ErrGamePlayerNotFound  = errors.New("game: player not found")
	ErrGamePlayersNotReady = errors.New("game: players not ready")
	ErrGameInvalidStage    = errors.New("game: invalid stage for this action")
	ErrGameEventRejected   = errors.New("game: event rejected by reducer")
	ErrGameMissingSeed     = errors.New("game: deck seed not set")
)

type GameEngineOpt func(*gameEngine)

// GameEngine is the dealer-side driver of a game. It decides stage
// advances, derives the payload for each one from the shared seed, applies
// the same reducer every peer runs to its own projection, and publishes
// the event describing the transition.
//
// The local projection is only ever advanced through the reducer, so it
// can never diverge from what the log replays to. If a publish fails on
// every endpoint the projection is rolled back and the error surfaced;
// per-endpoint failures inside the broadcast stay non-fatal.
//
// Callbacks fire after the engine lock is released, so they may call back
// into the engine (read the state, advance the next stage).
type GameEngine interface {
	// Events
	OnGameStateUpdated(fn func(*GameState))
	OnGameErrorUpdated(fn func(*GameState, error))
	OnGameReady(fn func(*GameState))

	// State
	GetGameState() *GameState

	// Seat readiness
	PlayerReady(pubkey string) error

	// Dealer actions
	StartGame(ctx context.Context) error
	DealFlop(ctx context.Context) error
	DealTurn(ctx context.Context) error
	DealRiver(ctx context.Context) error
}

type gameEngine struct {
	lock               sync.Mutex
	state              *GameState
	broadcast          Broadcast
	rg                 *syncsaga.ReadyGroup
	logger             *zap.Logger
	playersReady       bool
	lastTimestamp      int64
	newSeed            func() string
	now                func() int64
	onGameStateUpdated func(*GameState)
	onGameErrorUpdated func(*GameState, error)
	onGameReady        func(*GameState)
}

// NewGameEngine creates the dealer's engine for one game. Both seats must
// signal ready (or time out into auto-ready) before StartGame is allowed.
func NewGameEngine(state *GameState, broadcast Broadcast, opts ...GameEngineOpt) GameEngine {
	e := &gameEngine{
		state:              CloneGameState(state),
		broadcast:          broadcast,
		rg:                 syncsaga.NewReadyGroup(),
		logger:             zap.NewNop(),
		newSeed:            generateSeed,
		now:                func() int64 { return time.Now().UnixMilli() },
		onGameStateUpdated: func(*GameState) {},
		onGameErrorUpdated: func(*GameState, error) {},
		onGameReady:        func(*GameState) {},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.rg.SetTimeoutInterval(10)
	e.rg.OnTimeout(func(rg *syncsaga.ReadyGroup) {
		// Auto ready by default
		for seatIdx, isReady := range rg.GetParticipantStates() {
			if !isReady {
				rg.Ready(seatIdx)
			}
		}
	})
	e.rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		e.lock.Lock()
		e.playersReady = true
		state := e.state
		e.lock.Unlock()

		e.onGameReady(state)
	})

	e.rg.ResetParticipants()
	e.rg.Add(0, false) // challenger
	e.rg.Add(1, false) // challenged
	e.rg.Start()

	return e
}

func WithGameEngineLogger(logger *zap.Logger) GameEngineOpt {
	return func(e *gameEngine) {
		e.logger = logger
	}
}

// WithSeedSource overrides seed generation. Tests use it to pin the
// permutation.
func WithSeedSource(fn func() string) GameEngineOpt {
	return func(e *gameEngine) {
		e.newSeed = fn
	}
}

// WithClock overrides event timestamping.
func WithClock(fn func() int64) GameEngineOpt {
	return func(e *gameEngine) {
		e.now = fn
	}
}

func (e *gameEngine) OnGameStateUpdated(fn func(*GameState)) {
	e.onGameStateUpdated = fn
}

func (e *gameEngine) OnGameErrorUpdated(fn func(*GameState, error)) {
	e.onGameErrorUpdated = fn
}

func (e *gameEngine) OnGameReady(fn func(*GameState)) {
	e.onGameReady = fn
}

func (e *gameEngine) GetGameState() *GameState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state
}

func (e *gameEngine) PlayerReady(pubkey string) error {
	e.lock.Lock()
	var seatIdx int64
	switch pubkey {
	case e.state.Challenger.Pubkey:
		seatIdx = 0
	case e.state.Challenged.Pubkey:
		seatIdx = 1
	default:
		e.lock.Unlock()
		return ErrGamePlayerNotFound
	}
	e.lock.Unlock()

	// Ready outside the engine lock: completing the group fires
	// OnCompleted, which takes the lock itself.
	e.rg.Ready(seatIdx)
	return nil
}

func (e *gameEngine) StartGame(ctx context.Context) error {
	e.lock.Lock()

	if !e.playersReady {
		e.lock.Unlock()
		return ErrGamePlayersNotReady
	}
	if e.state.Stage != GameStage_Waiting {
		e.lock.Unlock()
		return ErrGameInvalidStage
	}

	event := e.newEvent(GameEventType_GameStart, &EventData{
		Seed:     e.newSeed(),
		NewStage: GameStage_Preflop,
	})

	notify, err := e.applyAndPublish(ctx, event)
	e.lock.Unlock()

	notify()
	return err
}

func (e *gameEngine) DealFlop(ctx context.Context) error {
	e.lock.Lock()

	if e.state.Stage != GameStage_Preflop {
		e.lock.Unlock()
		return ErrGameInvalidStage
	}
	if e.state.DeckSeed == "" {
		e.lock.Unlock()
		return ErrGameMissingSeed
	}

	flop, err := deck.FlopFromSeed(e.state.DeckSeed, NumPlayers)
	if err != nil {
		e.lock.Unlock()
		return err
	}

	event := e.newEvent(GameEventType_DealFlop, &EventData{
		Cards:    deck.IDs(flop),
		NewStage: GameStage_Postflop,
	})

	notify, err := e.applyAndPublish(ctx, event)
	e.lock.Unlock()

	notify()
	return err
}

func (e *gameEngine) DealTurn(ctx context.Context) error {
	e.lock.Lock()

	if e.state.Stage != GameStage_Postflop {
		e.lock.Unlock()
		return ErrGameInvalidStage
	}
	if e.state.DeckSeed == "" {
		e.lock.Unlock()
		return ErrGameMissingSeed
	}

	turn, err := deck.TurnFromSeed(e.state.DeckSeed, NumPlayers)
	if err != nil {
		e.lock.Unlock()
		return err
	}

	event := e.newEvent(GameEventType_DealTurn, &EventData{
		Cards:    []string{turn.ID},
		NewStage: GameStage_Postturn,
	})

	notify, err := e.applyAndPublish(ctx, event)
	e.lock.Unlock()

	notify()
	return err
}

func (e *gameEngine) DealRiver(ctx context.Context) error {
	e.lock.Lock()

	if e.state.Stage != GameStage_Postturn {
		e.lock.Unlock()
		return ErrGameInvalidStage
	}
	if e.state.DeckSeed == "" {
		e.lock.Unlock()
		return ErrGameMissingSeed
	}

	river, err := deck.RiverFromSeed(e.state.DeckSeed, NumPlayers)
	if err != nil {
		e.lock.Unlock()
		return err
	}

	event := e.newEvent(GameEventType_DealRiver, &EventData{
		Cards:    []string{river.ID},
		NewStage: GameStage_Postriver,
	})

	notify, err := e.applyAndPublish(ctx, event)
	e.lock.Unlock()

	notify()
	return err
}

// newEvent stamps an event with the dealer identity and a strictly
// increasing timestamp, so events of one game never tie in the total
// order.
func (e *gameEngine) newEvent(eventType string, data *EventData) *GameEvent {
	ts := e.now()
	if ts <= e.lastTimestamp {
		ts = e.lastTimestamp + 1
	}
	e.lastTimestamp = ts

	return &GameEvent{
		Type:      eventType,
		GameID:    e.state.GameID,
		Pubkey:    e.state.DealerPubkey(),
		Timestamp: ts,
		Data:      data,
	}
}

// applyAndPublish runs with the engine lock held. Callbacks may re-enter
// the engine, so they must not fire under the lock; the notification is
// returned as a closure for the caller to run after unlocking.
func (e *gameEngine) applyAndPublish(ctx context.Context, event *GameEvent) (func(), error) {
	prev := e.state

	next := ApplyGameEvent(prev, event)
	if next == prev {
		return func() {}, ErrGameEventRejected
	}
	e.state = next

	if err := e.broadcast.Publish(ctx, event); err != nil {
		// Roll the projection back so it stays derivable from the log.
		e.state = prev
		e.logger.Warn("publish failed, projection rolled back",
			zap.String("game_id", event.GameID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return func() { e.onGameErrorUpdated(prev, err) }, err
	}

	e.logger.Info("event published",
		zap.String("game_id", event.GameID),
		zap.String("event_type", event.Type),
		zap.Int64("timestamp", event.Timestamp),
	)
	return func() { e.onGameStateUpdated(next) }, nil
}

func generateSeed() string {
	return strconv.FormatUint(rand.Uint64(), 36) + strconv.FormatInt(time.Now().UnixMilli(), 36)
}
