package pokersync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func readyEngine(t *testing.T, broadcast Broadcast, opts ...GameEngineOpt) GameEngine {
	t.Helper()

	engine := NewGameEngine(testGameState(), broadcast, opts...)

	ready := make(chan struct{})
	engine.OnGameReady(func(*GameState) {
		close(ready)
	})

	assert.Nil(t, engine.PlayerReady("dealer-pubkey"))
	assert.Nil(t, engine.PlayerReady("guest-pubkey"))

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("ready group did not complete")
	}

	return engine
}

func Test_GameEngine_StartRequiresReady(t *testing.T) {
	broadcast := NewMemoryBroadcast()
	defer broadcast.Close()

	engine := NewGameEngine(testGameState(), broadcast)

	assert.ErrorIs(t, engine.StartGame(context.Background()), ErrGamePlayersNotReady)
}

func Test_GameEngine_PlayerReady_UnknownPubkey(t *testing.T) {
	broadcast := NewMemoryBroadcast()
	defer broadcast.Close()

	engine := NewGameEngine(testGameState(), broadcast)

	assert.ErrorIs(t, engine.PlayerReady("nobody"), ErrGamePlayerNotFound)
}

func Test_GameEngine_FullDealSequence(t *testing.T) {
	broadcast := NewMemoryBroadcast()
	defer broadcast.Close()

	ctx := context.Background()

	var ts int64
	engine := readyEngine(t, broadcast,
		WithSeedSource(func() string { return "abc" }),
		WithClock(func() int64 { ts += 100; return ts }),
	)

	assert.Nil(t, engine.StartGame(ctx))
	state := engine.GetGameState()
	assert.Equal(t, GameStage_Preflop, state.Stage)
	assert.Equal(t, "abc", state.DeckSeed)
	assert.Equal(t, []string{"AC", "7C"}, state.Challenger.Cards)
	assert.Equal(t, []string{"AH", "8H"}, state.Challenged.Cards)

	// Each deal is gated on its stage.
	assert.ErrorIs(t, engine.StartGame(ctx), ErrGameInvalidStage)
	assert.ErrorIs(t, engine.DealTurn(ctx), ErrGameInvalidStage)
	assert.ErrorIs(t, engine.DealRiver(ctx), ErrGameInvalidStage)

	assert.Nil(t, engine.DealFlop(ctx))
	assert.Equal(t, []string{"5S", "KS", "2D"}, engine.GetGameState().CommunityCards.Flop)

	assert.Nil(t, engine.DealTurn(ctx))
	assert.Equal(t, "6C", engine.GetGameState().CommunityCards.Turn)

	assert.Nil(t, engine.DealRiver(ctx))
	state = engine.GetGameState()
	assert.Equal(t, "JD", state.CommunityCards.River)
	assert.Equal(t, GameStage_Postriver, state.Stage)

	// Every transition ended up in the log, strictly ordered.
	history, err := broadcast.FetchHistory(ctx, "game-1")
	assert.Nil(t, err)
	assert.Equal(t, 4, len(history))
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Timestamp, history[i-1].Timestamp)
	}
}

func Test_GameEngine_ConvergesWithReplicator(t *testing.T) {
	broadcast := NewMemoryBroadcast()
	defer broadcast.Close()

	ctx := context.Background()

	engine := readyEngine(t, broadcast, WithSeedSource(func() string { return "abc" }))

	observer := NewReplicator(broadcast, testGameState())
	defer observer.Stop()
	assert.Nil(t, observer.Start(ctx))

	assert.Nil(t, engine.StartGame(ctx))
	assert.Nil(t, engine.DealFlop(ctx))
	assert.Nil(t, engine.DealTurn(ctx))
	assert.Nil(t, engine.DealRiver(ctx))

	dealer := engine.GetGameState()
	peer := observer.GetState()

	assert.Equal(t, dealer.Stage, peer.Stage)
	assert.Equal(t, dealer.DeckSeed, peer.DeckSeed)
	assert.Equal(t, dealer.CommunityCards, peer.CommunityCards)
	assert.Equal(t, dealer.Challenger.Cards, peer.Challenger.Cards)
	assert.Equal(t, dealer.Challenged.Cards, peer.Challenged.Cards)

	// A peer joining after the fact replays to the same place.
	late := NewReplicator(broadcast, testGameState())
	defer late.Stop()
	assert.Nil(t, late.Start(ctx))
	assert.Equal(t, dealer.CommunityCards, late.GetState().CommunityCards)
}

func Test_GameEngine_CallbacksReenterEngine(t *testing.T) {
	broadcast := NewMemoryBroadcast()
	defer broadcast.Close()

	ctx := context.Background()

	engine := readyEngine(t, broadcast, WithSeedSource(func() string { return "abc" }))

	// The callback reads the engine's state and advances the next stage
	// from inside the notification, which must not deadlock.
	var nested []error
	engine.OnGameStateUpdated(func(gs *GameState) {
		assert.Equal(t, gs.Stage, engine.GetGameState().Stage)

		switch gs.Stage {
		case GameStage_Preflop:
			nested = append(nested, engine.DealFlop(ctx))
		case GameStage_Postflop:
			nested = append(nested, engine.DealTurn(ctx))
		case GameStage_Postturn:
			nested = append(nested, engine.DealRiver(ctx))
		}
	})

	assert.Nil(t, engine.StartGame(ctx))
	assert.Equal(t, 3, len(nested))
	for _, err := range nested {
		assert.Nil(t, err)
	}
	assert.Equal(t, GameStage_Postriver, engine.GetGameState().Stage)
}

// failingBroadcast rejects every publish, simulating all endpoints down.
type failingBroadcast struct {
	*MemoryBroadcast
	err error
}

func (b *failingBroadcast) Publish(ctx context.Context, event *GameEvent) error {
	return b.err
}

func Test_GameEngine_RollsBackOnPublishFailure(t *testing.T) {
	errDown := errors.New("all endpoints down")
	broadcast := &failingBroadcast{MemoryBroadcast: NewMemoryBroadcast(), err: errDown}
	defer broadcast.Close()

	engine := readyEngine(t, broadcast, WithSeedSource(func() string { return "abc" }))

	var gotErr error
	engine.OnGameErrorUpdated(func(_ *GameState, err error) {
		gotErr = err
	})

	assert.ErrorIs(t, engine.StartGame(context.Background()), errDown)
	assert.ErrorIs(t, gotErr, errDown)

	// The projection stays derivable from the (empty) log.
	state := engine.GetGameState()
	assert.Equal(t, GameStage_Waiting, state.Stage)
	assert.Equal(t, "", state.DeckSeed)
}
