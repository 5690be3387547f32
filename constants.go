package pokersync

const (
	// General
	UnsetValue = -1

	// GameStage
	GameStage_Waiting   = "waiting"
	GameStage_Preflop   = "preflop"
	GameStage_Postflop  = "postflop"
	GameStage_Postturn  = "postturn"
	GameStage_Postriver = "postriver"
	GameStage_Showdown  = "showdown"
	GameStage_Finished  = "finished"

	// GameEventType
	GameEventType_GameStart   = "GAME_START"
	GameEventType_DealFlop    = "DEAL_FLOP"
	GameEventType_DealTurn    = "DEAL_TURN"
	GameEventType_DealRiver   = "DEAL_RIVER"
	GameEventType_PlayerCheck = "PLAYER_CHECK"
	GameEventType_PlayerRaise = "PLAYER_RAISE"
	GameEventType_PlayerFold  = "PLAYER_FOLD"
	GameEventType_PlayerCall  = "PLAYER_CALL"
	GameEventType_PlayerAllIn = "PLAYER_ALL_IN"
	GameEventType_RoundEnd    = "ROUND_END"
	GameEventType_GameEnd     = "GAME_END"

	// BettingAction
	BettingAction_Check = "check"
	BettingAction_Raise = "raise"
	BettingAction_Fold  = "fold"
	BettingAction_Call  = "call"
	BettingAction_AllIn = "all-in"

	// Heads-up: exactly two seats, challenger and challenged
	NumPlayers = 2

	// Topic marks every event this system publishes on the shared medium
	Topic = "lightning-poker"
)

// stageOrder is the total order deal events advance through. Showdown and
// finished are defined but have no reduction; only an out-of-scope
// settlement component reaches them.
var stageOrder = map[string]int{
	GameStage_Waiting:   0,
	GameStage_Preflop:   1,
	GameStage_Postflop:  2,
	GameStage_Postturn:  3,
	GameStage_Postriver: 4,
	GameStage_Showdown:  5,
	GameStage_Finished:  6,
}

// StageIndex returns the position of a stage in the progression order, or
// UnsetValue for an unknown stage.
func StageIndex(stage string) int {
	if idx, ok := stageOrder[stage]; ok {
		return idx
	}
	return UnsetValue
}
