// Package actor provides automated participants for practice games: a bot
// opponent that reacts to game state with a simple heuristic, and a dealer
// runner that advances the stages on a timer.
package actor

import (
	"math/rand"
	"time"

	"github.com/weedbox/timebank"

	"github.com/lightning-poker/pokersync"
)

// BotPubkey identifies the built-in practice opponent.
const BotPubkey = "ai-opponent"

// BotPlayer is the seat metadata for the built-in opponent.
func BotPlayer() pokersync.PlayerInfo {
	return pokersync.PlayerInfo{
		Pubkey:  BotPubkey,
		Name:    "AI Opponent",
		Picture: "https://api.dicebear.com/7.x/bottts/svg?seed=ai-poker",
	}
}

// Decision is the bot's chosen betting action.
type Decision struct {
	Action string
	Amount int64
}

type probability struct {
	action string
	weight float64
}

// Facing a bet: mostly call, sometimes fold, occasionally raise. With
// nothing to call: mostly check, otherwise open small.
var (
	facingBetProbabilities = []probability{
		{action: pokersync.BettingAction_Call, weight: 0.7},
		{action: pokersync.BettingAction_Fold, weight: 0.2},
		{action: pokersync.BettingAction_Raise, weight: 0.1},
	}
	noBetProbabilities = []probability{
		{action: pokersync.BettingAction_Check, weight: 0.6},
		{action: pokersync.BettingAction_Raise, weight: 0.4},
	}
)

type BotRunner struct {
	pubkey         string
	isHumanized    bool
	thinkTime      time.Duration
	tb             *timebank.TimeBank
	rnd            *rand.Rand
	onDecisionMade func(*pokersync.GameState, Decision)
}

func NewBotRunner(pubkey string) *BotRunner {
	return &BotRunner{
		pubkey:         pubkey,
		thinkTime:      1500 * time.Millisecond,
		tb:             timebank.NewTimeBank(),
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
		onDecisionMade: func(*pokersync.GameState, Decision) {},
	}
}

// Humanized adds a thinking delay before each decision.
func (br *BotRunner) Humanized(enabled bool) {
	br.isHumanized = enabled
}

func (br *BotRunner) OnDecisionMade(fn func(*pokersync.GameState, Decision)) {
	br.onDecisionMade = fn
}

// UpdateGameState feeds the bot a new projection. When it is the bot's
// turn in a betting stage, a decision is emitted (after the humanized
// delay, if enabled).
func (br *BotRunner) UpdateGameState(state *pokersync.GameState) error {
	if state == nil || state.Player(br.pubkey) == nil {
		return pokersync.ErrGamePlayerNotFound
	}
	if state.CurrentPlayer != br.pubkey {
		return nil
	}
	if pokersync.StageIndex(state.Stage) < pokersync.StageIndex(pokersync.GameStage_Preflop) {
		return nil
	}

	decide := func() {
		br.onDecisionMade(state, Decide(state, br.pubkey, br.rnd))
	}

	if !br.isHumanized {
		decide()
		return nil
	}

	br.tb.Cancel()
	return br.tb.NewTask(br.thinkTime, func(isCancelled bool) {
		if isCancelled {
			return
		}
		decide()
	})
}

// Decide picks a betting action for the given seat. Pure apart from the
// supplied randomness source, so tests can pin it.
func Decide(state *pokersync.GameState, pubkey string, rnd *rand.Rand) Decision {
	player := state.Player(pubkey)
	opponent := state.Opponent(pubkey)
	if player == nil || opponent == nil {
		return Decision{Action: pokersync.BettingAction_Check}
	}

	if opponent.Bet > player.Bet {
		callAmount := opponent.Bet - player.Bet
		switch pick(facingBetProbabilities, rnd) {
		case pokersync.BettingAction_Call:
			return Decision{Action: pokersync.BettingAction_Call, Amount: callAmount}
		case pokersync.BettingAction_Fold:
			return Decision{Action: pokersync.BettingAction_Fold}
		default:
			return Decision{Action: pokersync.BettingAction_Raise, Amount: callAmount * 3}
		}
	}

	if pick(noBetProbabilities, rnd) == pokersync.BettingAction_Check {
		return Decision{Action: pokersync.BettingAction_Check}
	}
	return Decision{Action: pokersync.BettingAction_Raise, Amount: player.Chips / 10}
}

func pick(probabilities []probability, rnd *rand.Rand) string {
	r := rnd.Float64()
	acc := 0.0
	for _, p := range probabilities {
		acc += p.weight
		if r < acc {
			return p.action
		}
	}
	return probabilities[len(probabilities)-1].action
}
