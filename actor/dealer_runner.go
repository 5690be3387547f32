package actor

import (
	"context"
	"time"

	"github.com/weedbox/timebank"

	"github.com/lightning-poker/pokersync"
)

// DealerRunner drives a GameEngine through its stages on a timer. It
// exists for practice games, where there is no second human to wait for:
// once both seats are ready it starts the game, then deals the flop, turn
// and river with a fixed pause between stages.
type DealerRunner struct {
	engine   pokersync.GameEngine
	interval time.Duration
	tb       *timebank.TimeBank
	onError  func(error)
}

func NewDealerRunner(engine pokersync.GameEngine, interval time.Duration) *DealerRunner {
	return &DealerRunner{
		engine:   engine,
		interval: interval,
		tb:       timebank.NewTimeBank(),
		onError:  func(error) {},
	}
}

func (dr *DealerRunner) OnError(fn func(error)) {
	dr.onError = fn
}

// Run attaches to the engine and begins advancing. It returns immediately;
// the advancing happens from engine callbacks and timer tasks.
func (dr *DealerRunner) Run(ctx context.Context) {
	dr.engine.OnGameReady(func(state *pokersync.GameState) {
		if err := dr.engine.StartGame(ctx); err != nil {
			dr.onError(err)
		}
	})

	dr.engine.OnGameStateUpdated(func(state *pokersync.GameState) {
		dr.scheduleNext(ctx, state.Stage)
	})
}

func (dr *DealerRunner) scheduleNext(ctx context.Context, stage string) {
	var advance func(context.Context) error
	switch stage {
	case pokersync.GameStage_Preflop:
		advance = dr.engine.DealFlop
	case pokersync.GameStage_Postflop:
		advance = dr.engine.DealTurn
	case pokersync.GameStage_Postturn:
		advance = dr.engine.DealRiver
	default:
		return
	}

	dr.tb.Cancel()
	err := dr.tb.NewTask(dr.interval, func(isCancelled bool) {
		if isCancelled || ctx.Err() != nil {
			return
		}
		if err := advance(ctx); err != nil {
			dr.onError(err)
		}
	})
	if err != nil {
		dr.onError(err)
	}
}
