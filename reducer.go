package pokersync

import (
	"github.com/lightning-poker/pokersync/deck"
)

// ApplyGameEvent is the reduction every peer runs over the event log:
// a pure function (state, event) -> state. State is rebuilt from the log,
// never trusted from the peer that pushed it, so the dealer and every
// observer converge by running the exact same reductions.
//
// Policy, in order:
//   - events of unknown type return the state unchanged (forward
//     compatibility: old peers ignore what they do not understand)
//   - events missing their required data fields return the state
//     unchanged (the medium is open and untrusted; garbage is dropped,
//     not fatal)
//   - game-advancing events not issued by the game's dealer pubkey
//     return the state unchanged
//   - an event whose target stage does not advance the current stage
//     returns the state unchanged, which keeps the stage strictly
//     monotonic under replay and makes duplicate delivery a no-op
func ApplyGameEvent(state *GameState, event *GameEvent) *GameState {
	if state == nil || event == nil {
		return state
	}

	switch event.Type {
	case GameEventType_GameStart:
		return reduceGameStart(state, event)
	case GameEventType_DealFlop:
		return reduceDealFlop(state, event)
	case GameEventType_DealTurn:
		return reduceDealTurn(state, event)
	case GameEventType_DealRiver:
		return reduceDealRiver(state, event)
	default:
		return state
	}
}

// ReplayGameEvents folds an already-ordered event slice over a state.
func ReplayGameEvents(state *GameState, events []*GameEvent) *GameState {
	for _, event := range events {
		state = ApplyGameEvent(state, event)
	}
	return state
}

func authorized(state *GameState, event *GameEvent) bool {
	return event.Pubkey == state.DealerPubkey()
}

func advances(state *GameState, targetStage string) bool {
	return StageIndex(targetStage) > StageIndex(state.Stage)
}

func reduceGameStart(state *GameState, event *GameEvent) *GameState {
	if event.Data == nil || event.Data.Seed == "" {
		return state
	}
	if !authorized(state, event) {
		return state
	}
	if !advances(state, GameStage_Preflop) {
		return state
	}

	hands, err := deck.HoleCardsFromSeed(event.Data.Seed, NumPlayers)
	if err != nil {
		return state
	}

	next := CloneGameState(state)
	next.DeckSeed = event.Data.Seed
	next.Stage = GameStage_Preflop
	next.Challenger.Cards = deck.IDs(hands[0])
	next.Challenged.Cards = deck.IDs(hands[1])
	next.LastUpdate = event.Timestamp
	return next
}

func reduceDealFlop(state *GameState, event *GameEvent) *GameState {
	if event.Data == nil || len(event.Data.Cards) != 3 {
		return state
	}
	if !authorized(state, event) {
		return state
	}
	if !advances(state, GameStage_Postflop) {
		return state
	}

	next := CloneGameState(state)
	next.Stage = GameStage_Postflop
	next.CommunityCards = CommunityCards{Flop: event.Data.Cards}
	resetBets(next)
	next.LastUpdate = event.Timestamp
	return next
}

func reduceDealTurn(state *GameState, event *GameEvent) *GameState {
	if event.Data == nil || len(event.Data.Cards) != 1 {
		return state
	}
	if !authorized(state, event) {
		return state
	}
	if !advances(state, GameStage_Postturn) {
		return state
	}

	next := CloneGameState(state)
	next.Stage = GameStage_Postturn
	next.CommunityCards.Turn = event.Data.Cards[0]
	resetBets(next)
	next.LastUpdate = event.Timestamp
	return next
}

func reduceDealRiver(state *GameState, event *GameEvent) *GameState {
	if event.Data == nil || len(event.Data.Cards) != 1 {
		return state
	}
	if !authorized(state, event) {
		return state
	}
	if !advances(state, GameStage_Postriver) {
		return state
	}

	next := CloneGameState(state)
	next.Stage = GameStage_Postriver
	next.CommunityCards.River = event.Data.Cards[0]
	resetBets(next)
	next.LastUpdate = event.Timestamp
	return next
}

// resetBets opens a new betting round: the round bet and both players'
// live wagers return to zero.
func resetBets(state *GameState) {
	state.CurrentBet = 0
	state.Challenger.Bet = 0
	state.Challenged.Bet = 0
}
