package pokersync

import (
	"encoding/json"
	"time"

	"github.com/thoas/go-funk"
)

// GamePlayer is one of the two seats in a heads-up game.
type GamePlayer struct {
	Pubkey  string   `json:"pubkey"`
	Name    string   `json:"name"`
	Picture string   `json:"picture,omitempty"`
	Chips   int64    `json:"chips"`
	Bet     int64    `json:"bet"`
	Folded  bool     `json:"folded"`
	AllIn   bool     `json:"allIn"`
	Cards   []string `json:"cards"` // hole card ids
}

// PlayerAction is a single betting action record.
type PlayerAction struct {
	Pubkey    string `json:"pubkey"`
	Action    string `json:"action"`
	Amount    int64  `json:"amount,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// CommunityCards holds the shared board by card id.
type CommunityCards struct {
	Flop  []string `json:"flop,omitempty"`
	Turn  string   `json:"turn,omitempty"`
	River string   `json:"river,omitempty"`
}

// GameState is the authoritative per-game state. It is not owned by any
// single peer: it is a purely functional projection of the game's event
// log, and any peer can rebuild it at any time by replaying that log from
// a fresh waiting state.
type GameState struct {
	GameID         string         `json:"gameId"`
	Stage          string         `json:"stage"`
	Challenger     GamePlayer     `json:"challenger"`
	Challenged     GamePlayer     `json:"challenged"`
	DeckSeed       string         `json:"deckSeed"`
	CommunityCards CommunityCards `json:"communityCards"`
	Pot            int64          `json:"pot"`
	CurrentBet     int64          `json:"currentBet"`
	CurrentPlayer  string         `json:"currentPlayer"`
	Actions        []PlayerAction `json:"actions"`
	BuyIn          int64          `json:"buyIn"`
	CreatedAt      int64          `json:"createdAt"`
	LastUpdate     int64          `json:"lastUpdate"`
}

// PlayerInfo carries seat identity and display metadata from the lobby.
type PlayerInfo struct {
	Pubkey  string `json:"pubkey"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// NewGameState initializes a fresh waiting-stage game between two players.
// The challenger is the dealer by convention and acts first.
func NewGameState(gameID string, challenger, challenged PlayerInfo, buyIn int64) *GameState {
	now := time.Now().UnixMilli()
	return &GameState{
		GameID: gameID,
		Stage:  GameStage_Waiting,
		Challenger: GamePlayer{
			Pubkey:  challenger.Pubkey,
			Name:    challenger.Name,
			Picture: challenger.Picture,
			Chips:   buyIn,
			Cards:   []string{},
		},
		Challenged: GamePlayer{
			Pubkey:  challenged.Pubkey,
			Name:    challenged.Name,
			Picture: challenged.Picture,
			Chips:   buyIn,
			Cards:   []string{},
		},
		DeckSeed:       "",
		CommunityCards: CommunityCards{},
		CurrentPlayer:  challenger.Pubkey,
		Actions:        make([]PlayerAction, 0),
		BuyIn:          buyIn,
		CreatedAt:      now,
		LastUpdate:     now,
	}
}

// CloneGameState deep-copies a state so reductions never alias a caller's
// structure.
func CloneGameState(gs *GameState) *GameState {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil
	}

	var state GameState
	err = json.Unmarshal(data, &state)
	if err != nil {
		return nil
	}

	return &state
}

// DealerPubkey returns the identity allowed to emit game-advancing events.
func (gs *GameState) DealerPubkey() string {
	return gs.Challenger.Pubkey
}

// Player returns the seat with the given pubkey, or nil.
func (gs *GameState) Player(pubkey string) *GamePlayer {
	switch pubkey {
	case gs.Challenger.Pubkey:
		return &gs.Challenger
	case gs.Challenged.Pubkey:
		return &gs.Challenged
	}
	return nil
}

// Opponent returns the other seat, or nil if pubkey is not seated.
func (gs *GameState) Opponent(pubkey string) *GamePlayer {
	switch pubkey {
	case gs.Challenger.Pubkey:
		return &gs.Challenged
	case gs.Challenged.Pubkey:
		return &gs.Challenger
	}
	return nil
}

// BoardIDs returns the community card ids dealt so far, in board order.
func (gs *GameState) BoardIDs() []string {
	board := make([]string, 0, 5)
	board = append(board, gs.CommunityCards.Flop...)
	if gs.CommunityCards.Turn != "" {
		board = append(board, gs.CommunityCards.Turn)
	}
	if gs.CommunityCards.River != "" {
		board = append(board, gs.CommunityCards.River)
	}
	return board
}

// ActionsByPlayer filters the action history down to one seat.
func (gs *GameState) ActionsByPlayer(pubkey string) []PlayerAction {
	return funk.Filter(gs.Actions, func(a PlayerAction) bool {
		return a.Pubkey == pubkey
	}).([]PlayerAction)
}
