package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/cobra"

	"github.com/lightning-poker/pokersync"
	"github.com/lightning-poker/pokersync/actor"
	"github.com/lightning-poker/pokersync/deck"
	"github.com/lightning-poker/pokersync/natsrelay"
	"github.com/lightning-poker/pokersync/relay"
)

func main() {
	root := &cobra.Command{
		Use:   "pokersync",
		Short: "Heads-up poker state sync over relay event logs",
	}

	root.AddCommand(newKeygenCmd())
	root.AddCommand(newPracticeCmd())
	root.AddCommand(newWatchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new identity keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			sk := nostr.GeneratePrivateKey()
			pk, err := nostr.GetPublicKey(sk)
			if err != nil {
				return err
			}
			fmt.Printf("private key: %s\n", sk)
			fmt.Printf("public key:  %s\n", pk)
			return nil
		},
	}
}

func newPracticeCmd() *cobra.Command {
	var buyIn int64
	var pause time.Duration

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Play one auto-dealt practice hand against the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			broadcast := pokersync.NewMemoryBroadcast()
			defer broadcast.Close()

			you := pokersync.PlayerInfo{Pubkey: "you", Name: "You"}
			state := pokersync.NewGameState(
				fmt.Sprintf("practice-%d", time.Now().UnixMilli()),
				you,
				actor.BotPlayer(),
				buyIn,
			)

			engine := pokersync.NewGameEngine(state, broadcast)

			// Observe the game the way a remote peer would: through the
			// replicated log, not through the dealer's local state.
			replicator := pokersync.NewReplicator(broadcast, state)
			done := make(chan struct{})
			replicator.OnStateUpdated(func(gs *pokersync.GameState) {
				printStage(gs)
				if gs.Stage == pokersync.GameStage_Postriver {
					close(done)
				}
			})
			if err := replicator.Start(ctx); err != nil {
				return err
			}
			defer replicator.Stop()

			dealer := actor.NewDealerRunner(engine, pause)
			dealer.OnError(func(err error) {
				fmt.Fprintln(os.Stderr, "dealer:", err)
			})
			dealer.Run(ctx)

			engine.PlayerReady(you.Pubkey)
			engine.PlayerReady(actor.BotPubkey)

			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().Int64Var(&buyIn, "buy-in", 10000, "chips per seat")
	cmd.Flags().DurationVar(&pause, "pause", 2*time.Second, "pause between stages")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var configPath, backend, challenger, challenged string
	var buyIn int64

	cmd := &cobra.Command{
		Use:   "watch <game-id>",
		Short: "Replicate a game from the event log and print its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if challenger == "" {
				return fmt.Errorf("--challenger pubkey is required")
			}

			settings, err := loadSettings(configPath)
			if err != nil {
				return err
			}

			broadcast, err := openBroadcast(backend, settings)
			if err != nil {
				return err
			}
			defer broadcast.Close()

			state := pokersync.NewGameState(args[0],
				pokersync.PlayerInfo{Pubkey: challenger},
				pokersync.PlayerInfo{Pubkey: challenged},
				buyIn,
			)

			replicator := pokersync.NewReplicator(broadcast, state)
			replicator.OnStateUpdated(printStage)
			if err := replicator.Start(cmd.Context()); err != nil {
				return err
			}
			defer replicator.Stop()

			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "TOML settings file (defaults apply when empty)")
	cmd.Flags().StringVar(&backend, "backend", "nostr", "broadcast backend: nostr or nats")
	cmd.Flags().StringVar(&challenger, "challenger", "", "challenger (dealer) pubkey")
	cmd.Flags().StringVar(&challenged, "challenged", "", "challenged pubkey")
	cmd.Flags().Int64Var(&buyIn, "buy-in", 10000, "chips per seat")
	return cmd
}

func loadSettings(path string) (pokersync.Settings, error) {
	if path == "" {
		return pokersync.DefaultSettings(), nil
	}
	return pokersync.LoadSettings(path)
}

func openBroadcast(backend string, settings pokersync.Settings) (pokersync.Broadcast, error) {
	switch backend {
	case "nostr":
		return relay.NewPool(settings.Relays), nil
	case "nats":
		broker, err := natsrelay.Connect(settings.NATS.URL, settings.NATS.Stream)
		if err != nil {
			return nil, err
		}
		return broker, nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func printStage(gs *pokersync.GameState) {
	switch gs.Stage {
	case pokersync.GameStage_Preflop:
		hand, err := deck.FromIDs(gs.Challenger.Cards)
		if err != nil {
			return
		}
		fmt.Printf("hole cards: %s %s\n", hand[0].Symbol(), hand[1].Symbol())
	case pokersync.GameStage_Postflop, pokersync.GameStage_Postturn, pokersync.GameStage_Postriver:
		board, err := deck.FromIDs(gs.BoardIDs())
		if err != nil {
			return
		}
		fmt.Printf("board:")
		for _, card := range board {
			fmt.Printf(" %s", card.Symbol())
		}
		fmt.Println()
	}
}
