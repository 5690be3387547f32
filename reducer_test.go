package pokersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGameState() *GameState {
	return NewGameState("game-1",
		PlayerInfo{Pubkey: "dealer-pubkey", Name: "Alice"},
		PlayerInfo{Pubkey: "guest-pubkey", Name: "Bob"},
		10000,
	)
}

func dealerEvent(eventType string, ts int64, data *EventData) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameID:    "game-1",
		Pubkey:    "dealer-pubkey",
		Timestamp: ts,
		Data:      data,
	}
}

func Test_ApplyGameEvent_GameStart(t *testing.T) {
	state := testGameState()

	next := ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, &EventData{
		Seed: "abc",
	}))

	assert.NotSame(t, state, next)
	assert.Equal(t, GameStage_Preflop, next.Stage)
	assert.Equal(t, "abc", next.DeckSeed)
	assert.Equal(t, []string{"AC", "7C"}, next.Challenger.Cards)
	assert.Equal(t, []string{"AH", "8H"}, next.Challenged.Cards)
	assert.Equal(t, int64(100), next.LastUpdate)

	// The input state is untouched.
	assert.Equal(t, GameStage_Waiting, state.Stage)
	assert.Equal(t, []string{}, state.Challenger.Cards)
}

func Test_ApplyGameEvent_FullDealSequence(t *testing.T) {
	state := testGameState()

	state = ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, &EventData{Seed: "abc"}))
	state = ApplyGameEvent(state, dealerEvent(GameEventType_DealFlop, 200, &EventData{Cards: []string{"5S", "KS", "2D"}}))
	assert.Equal(t, GameStage_Postflop, state.Stage)
	assert.Equal(t, []string{"5S", "KS", "2D"}, state.CommunityCards.Flop)

	state = ApplyGameEvent(state, dealerEvent(GameEventType_DealTurn, 300, &EventData{Cards: []string{"6C"}}))
	assert.Equal(t, GameStage_Postturn, state.Stage)
	assert.Equal(t, "6C", state.CommunityCards.Turn)

	state = ApplyGameEvent(state, dealerEvent(GameEventType_DealRiver, 400, &EventData{Cards: []string{"JD"}}))
	assert.Equal(t, GameStage_Postriver, state.Stage)
	assert.Equal(t, "JD", state.CommunityCards.River)

	assert.Equal(t, []string{"5S", "KS", "2D", "6C", "JD"}, state.BoardIDs())
}

func Test_ApplyGameEvent_DuplicateIsNoOp(t *testing.T) {
	state := testGameState()
	start := dealerEvent(GameEventType_GameStart, 100, &EventData{Seed: "abc"})

	once := ApplyGameEvent(state, start)
	twice := ApplyGameEvent(once, start)

	// The second delivery does not advance anything: same pointer back.
	assert.Same(t, once, twice)
}

func Test_ApplyGameEvent_StageNeverRegresses(t *testing.T) {
	state := testGameState()
	state = ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, &EventData{Seed: "abc"}))
	state = ApplyGameEvent(state, dealerEvent(GameEventType_DealFlop, 200, &EventData{Cards: []string{"5S", "KS", "2D"}}))
	state = ApplyGameEvent(state, dealerEvent(GameEventType_DealTurn, 300, &EventData{Cards: []string{"6C"}}))

	// A stale flop replayed after the turn must not pull the stage back.
	next := ApplyGameEvent(state, dealerEvent(GameEventType_DealFlop, 200, &EventData{Cards: []string{"5S", "KS", "2D"}}))
	assert.Same(t, state, next)
	assert.Equal(t, GameStage_Postturn, next.Stage)
}

func Test_ApplyGameEvent_UnauthorizedPubkey(t *testing.T) {
	state := testGameState()

	forged := &GameEvent{
		Type:      GameEventType_GameStart,
		GameID:    "game-1",
		Pubkey:    "guest-pubkey",
		Timestamp: 100,
		Data:      &EventData{Seed: "abc"},
	}

	next := ApplyGameEvent(state, forged)
	assert.Same(t, state, next)
	assert.Equal(t, GameStage_Waiting, next.Stage)
}

func Test_ApplyGameEvent_MissingData(t *testing.T) {
	state := testGameState()

	assert.Same(t, state, ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, nil)))
	assert.Same(t, state, ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, &EventData{})))

	started := ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, &EventData{Seed: "abc"}))
	assert.Same(t, started, ApplyGameEvent(started, dealerEvent(GameEventType_DealFlop, 200, &EventData{Cards: []string{"5S"}})))
	assert.Same(t, started, ApplyGameEvent(started, dealerEvent(GameEventType_DealTurn, 200, &EventData{})))
}

func Test_ApplyGameEvent_UnknownTypeIsNoOp(t *testing.T) {
	state := testGameState()

	next := ApplyGameEvent(state, dealerEvent("SOME_FUTURE_EVENT", 100, &EventData{}))
	assert.Same(t, state, next)
}

func Test_ApplyGameEvent_DealResetsBets(t *testing.T) {
	state := testGameState()
	state = ApplyGameEvent(state, dealerEvent(GameEventType_GameStart, 100, &EventData{Seed: "abc"}))

	state.CurrentBet = 500
	state.Challenger.Bet = 500
	state.Challenged.Bet = 200

	state = ApplyGameEvent(state, dealerEvent(GameEventType_DealFlop, 200, &EventData{Cards: []string{"5S", "KS", "2D"}}))
	assert.Equal(t, int64(0), state.CurrentBet)
	assert.Equal(t, int64(0), state.Challenger.Bet)
	assert.Equal(t, int64(0), state.Challenged.Bet)
}

func Test_ReplayGameEvents_ConvergesWithDuplicates(t *testing.T) {
	start := dealerEvent(GameEventType_GameStart, 100, &EventData{Seed: "abc"})
	flop := dealerEvent(GameEventType_DealFlop, 200, &EventData{Cards: []string{"5S", "KS", "2D"}})
	turn := dealerEvent(GameEventType_DealTurn, 300, &EventData{Cards: []string{"6C"}})

	clean := ReplayGameEvents(testGameState(), []*GameEvent{start, flop, turn})

	// Redundant endpoints deliver duplicates; replay must still converge.
	noisy := ReplayGameEvents(testGameState(), []*GameEvent{start, start, flop, start, flop, turn, turn})

	assert.Equal(t, clean.Stage, noisy.Stage)
	assert.Equal(t, clean.DeckSeed, noisy.DeckSeed)
	assert.Equal(t, clean.CommunityCards, noisy.CommunityCards)
	assert.Equal(t, clean.Challenger.Cards, noisy.Challenger.Cards)
	assert.Equal(t, clean.Challenged.Cards, noisy.Challenged.Cards)
}
