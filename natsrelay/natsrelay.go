// Package natsrelay implements the broadcast medium over a NATS JetStream
// stream. Each game publishes to its own subject under one stream; stored
// messages provide the historical log and a deliver-new subscription
// provides the live feed.
package natsrelay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/lightning-poker/pokersync"
)

const (
	subjectPrefix = "poker.games"

	// historyPollTimeout bounds each stored-message read. Hitting it on
	// the first read means the game has no history yet.
	historyPollTimeout = 5 * time.Second
)

type BrokerOpt func(*Broker)

// Broker is a pokersync.Broadcast backed by one JetStream stream.
type Broker struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *zap.Logger
}

// Connect dials the NATS server and ensures the stream exists.
func Connect(url, stream string, opts ...BrokerOpt) (*Broker, error) {
	nc, err := nats.Connect(url, nats.Name("pokersync"))
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	b := &Broker{
		nc:     nc,
		js:     js,
		stream: stream,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, err
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subjectPrefix + ".>"},
		})
		if err != nil {
			nc.Close()
			return nil, err
		}
	}

	return b, nil
}

func WithLogger(logger *zap.Logger) BrokerOpt {
	return func(b *Broker) {
		b.logger = logger
	}
}

func (b *Broker) Publish(ctx context.Context, event *pokersync.GameEvent) error {
	payload, err := pokersync.EncodeGameEvent(event)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subject(event.GameID), payload, nats.Context(ctx))
	if err != nil {
		return err
	}

	b.logger.Debug("event published",
		zap.String("game_id", event.GameID),
		zap.String("event_type", event.Type),
	)
	return nil
}

// FetchHistory drains every stored message on the game's subject. The
// per-message metadata says how many remain pending, so the drain stops
// exactly at the end of stored history with no arbitrary sleep.
func (b *Broker) FetchHistory(ctx context.Context, gameID string) ([]*pokersync.GameEvent, error) {
	sub, err := b.js.SubscribeSync(subject(gameID), nats.DeliverAll())
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	events := make([]*pokersync.GameEvent, 0)
	for {
		pollCtx, cancel := context.WithTimeout(ctx, historyPollTimeout)
		msg, err := sub.NextMsgWithContext(pollCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
				// No stored messages (or none left): empty history.
				return events, nil
			}
			return nil, err
		}

		if event := b.decode(msg.Data); event != nil {
			events = append(events, event)
		}

		meta, err := msg.Metadata()
		if err != nil {
			return nil, err
		}
		if meta.NumPending == 0 {
			return events, nil
		}
	}
}

func (b *Broker) Subscribe(ctx context.Context, gameID string, fn func(*pokersync.GameEvent)) (pokersync.Subscription, error) {
	sub, err := b.js.Subscribe(subject(gameID), func(msg *nats.Msg) {
		if event := b.decode(msg.Data); event != nil {
			fn(event)
		}
	}, nats.DeliverNew())
	if err != nil {
		return nil, err
	}

	return &brokerSubscription{sub: sub}, nil
}

func (b *Broker) Close() error {
	b.nc.Close()
	return nil
}

// decode drops malformed payloads: the subject is writable by any peer
// with broker access, so garbage is logged and skipped, never fatal.
func (b *Broker) decode(payload []byte) *pokersync.GameEvent {
	event, err := pokersync.DecodeGameEvent(payload)
	if err != nil {
		b.logger.Warn("dropping malformed event payload", zap.Error(err))
		return nil
	}
	return event
}

func subject(gameID string) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, gameID)
}

type brokerSubscription struct {
	sub *nats.Subscription
}

func (s *brokerSubscription) Unsubscribe() {
	s.sub.Unsubscribe()
}
