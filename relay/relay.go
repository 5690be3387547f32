// Package relay implements the broadcast medium over a set of Nostr
// relays. Game events ride kind-30001 events tagged with the game id, the
// event type, and a fixed topic marker; the relays' stored-event replay
// provides the historical log and their live push provides the
// subscription feed.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/lightning-poker/pokersync"
)

var (
	ErrAllRelaysFailed = errors.New("relay: publish failed on every relay")
	ErrPoolClosed      = errors.New("relay: pool closed")
)

const (
	// KindGameEvent carries serialized GameEvents.
	KindGameEvent = 30001

	publishTimeout = 10 * time.Second
)

type PoolOpt func(*Pool)

// Pool is a pokersync.Broadcast over multiple independent relays. Each
// relay is best-effort: a publish is attempted on all of them, a history
// fetch merges and deduplicates whatever each returns, and one failing
// endpoint never fails the operation as a whole.
type Pool struct {
	urls   []string
	signer Signer
	logger *zap.Logger

	mu     sync.Mutex
	relays map[string]*nostr.Relay
	closed bool
}

func NewPool(urls []string, opts ...PoolOpt) *Pool {
	p := &Pool{
		urls:   urls,
		logger: zap.NewNop(),
		relays: make(map[string]*nostr.Relay),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func WithSigner(signer Signer) PoolOpt {
	return func(p *Pool) {
		p.signer = signer
	}
}

func WithLogger(logger *zap.Logger) PoolOpt {
	return func(p *Pool) {
		p.logger = logger
	}
}

// Publish signs and broadcasts one game event. Signing failure (or a
// missing signer) is fatal to the attempt; per-relay failures are logged
// and isolated. The publish errors only if no relay accepted it at all.
func (p *Pool) Publish(ctx context.Context, event *pokersync.GameEvent) error {
	if p.signer == nil {
		return ErrNoSigner
	}

	payload, err := pokersync.EncodeGameEvent(event)
	if err != nil {
		return err
	}

	nostrEvent := nostr.Event{
		Kind:      KindGameEvent,
		CreatedAt: nostr.Timestamp(event.Timestamp / 1000),
		Tags: nostr.Tags{
			nostr.Tag{"game", event.GameID},
			nostr.Tag{"event_type", event.Type},
			nostr.Tag{"t", pokersync.Topic},
		},
		Content: string(payload),
	}

	if err := p.signer.Sign(&nostrEvent); err != nil {
		return err
	}

	published := 0
	for _, url := range p.urls {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := p.publishTo(pubCtx, url, nostrEvent)
		cancel()

		if err != nil {
			p.logger.Warn("relay publish failed",
				zap.String("relay", url),
				zap.String("event_type", event.Type),
				zap.Error(err),
			)
			continue
		}

		published++
		p.logger.Debug("relay publish ok",
			zap.String("relay", url),
			zap.String("event_type", event.Type),
		)
	}

	if published == 0 {
		return ErrAllRelaysFailed
	}
	return nil
}

// FetchHistory gathers every stored event for the game from every relay,
// bounded by each relay's end-of-stored-events marker, deduplicates by
// event id, and drops anything unverifiable or malformed.
func (p *Pool) FetchHistory(ctx context.Context, gameID string) ([]*pokersync.GameEvent, error) {
	filters := nostr.Filters{{
		Kinds: []int{KindGameEvent},
		Tags: nostr.TagMap{
			"game": []string{gameID},
			"t":    []string{pokersync.Topic},
		},
	}}

	seen := make(map[string]bool)
	events := make([]*pokersync.GameEvent, 0)
	reached := 0

	for _, url := range p.urls {
		relay, err := p.ensureRelay(ctx, url)
		if err != nil {
			p.logger.Warn("relay unreachable for history",
				zap.String("relay", url),
				zap.Error(err),
			)
			continue
		}

		sub, err := relay.Subscribe(ctx, filters)
		if err != nil {
			p.logger.Warn("relay history subscribe failed",
				zap.String("relay", url),
				zap.Error(err),
			)
			continue
		}

		reached++

	gather:
		for {
			select {
			case nostrEvent, ok := <-sub.Events:
				if !ok {
					break gather
				}
				if nostrEvent == nil || seen[nostrEvent.ID] {
					continue
				}
				seen[nostrEvent.ID] = true
				if event := p.decodeVerified(nostrEvent); event != nil {
					events = append(events, event)
				}
			case <-sub.EndOfStoredEvents:
				break gather
			case <-ctx.Done():
				sub.Unsub()
				return nil, ctx.Err()
			}
		}
		sub.Unsub()
	}

	if reached == 0 {
		return nil, ErrAllRelaysFailed
	}

	p.logger.Info("history fetched",
		zap.String("game_id", gameID),
		zap.Int("events", len(events)),
		zap.Int("relays", reached),
	)
	return events, nil
}

// Subscribe pushes all future events for the game through fn. Redundant
// deliveries across relays are possible; callers absorb them through
// reducer idempotence.
func (p *Pool) Subscribe(ctx context.Context, gameID string, fn func(*pokersync.GameEvent)) (pokersync.Subscription, error) {
	since := nostr.Now()
	filters := nostr.Filters{{
		Kinds: []int{KindGameEvent},
		Tags: nostr.TagMap{
			"game": []string{gameID},
			"t":    []string{pokersync.Topic},
		},
		Since: &since,
	}}

	subCtx, cancel := context.WithCancel(ctx)
	handle := &poolSubscription{cancel: cancel}
	attached := 0

	for _, url := range p.urls {
		relay, err := p.ensureRelay(subCtx, url)
		if err != nil {
			p.logger.Warn("relay unreachable for subscription",
				zap.String("relay", url),
				zap.Error(err),
			)
			continue
		}

		sub, err := relay.Subscribe(subCtx, filters)
		if err != nil {
			p.logger.Warn("relay subscribe failed",
				zap.String("relay", url),
				zap.Error(err),
			)
			continue
		}

		attached++
		handle.subs = append(handle.subs, sub)

		go func(url string, sub *nostr.Subscription) {
			for {
				select {
				case nostrEvent, ok := <-sub.Events:
					if !ok {
						return
					}
					if nostrEvent == nil {
						continue
					}
					if event := p.decodeVerified(nostrEvent); event != nil {
						fn(event)
					}
				case <-subCtx.Done():
					return
				}
			}
		}(url, sub)
	}

	if attached == 0 {
		cancel()
		return nil, ErrAllRelaysFailed
	}

	return handle, nil
}

// Close tears down every relay connection. No deliveries happen after it
// returns.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for url, relay := range p.relays {
		if err := relay.Close(); err != nil {
			p.logger.Warn("relay close failed",
				zap.String("relay", url),
				zap.Error(err),
			)
		}
	}
	p.relays = make(map[string]*nostr.Relay)
	return nil
}

// decodeVerified turns a transport event into a GameEvent, or nil if it
// fails signature verification, identity binding, or parsing. The medium
// is open and untrusted, so all of these are dropped, not raised.
func (p *Pool) decodeVerified(nostrEvent *nostr.Event) *pokersync.GameEvent {
	if ok, err := nostrEvent.CheckSignature(); !ok || err != nil {
		p.logger.Warn("dropping event with bad signature",
			zap.String("event_id", nostrEvent.ID),
			zap.Error(err),
		)
		return nil
	}

	event, err := pokersync.DecodeGameEvent([]byte(nostrEvent.Content))
	if err != nil {
		p.logger.Warn("dropping malformed event payload",
			zap.String("event_id", nostrEvent.ID),
			zap.Error(err),
		)
		return nil
	}

	// The self-reported publisher must be the key that signed the
	// envelope; otherwise any peer could impersonate the dealer.
	if event.Pubkey != nostrEvent.PubKey {
		p.logger.Warn("dropping event with mismatched pubkey",
			zap.String("event_id", nostrEvent.ID),
			zap.String("claimed", event.Pubkey),
			zap.String("signed_by", nostrEvent.PubKey),
		)
		return nil
	}

	return event
}

func (p *Pool) publishTo(ctx context.Context, url string, event nostr.Event) error {
	relay, err := p.ensureRelay(ctx, url)
	if err != nil {
		return err
	}
	return relay.Publish(ctx, event)
}

func (p *Pool) ensureRelay(ctx context.Context, url string) (*nostr.Relay, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if relay, ok := p.relays[url]; ok {
		p.mu.Unlock()
		return relay, nil
	}
	p.mu.Unlock()

	relay, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		relay.Close()
		return nil, ErrPoolClosed
	}
	if existing, ok := p.relays[url]; ok {
		relay.Close()
		return existing, nil
	}
	p.relays[url] = relay
	return relay, nil
}

type poolSubscription struct {
	cancel context.CancelFunc
	subs   []*nostr.Subscription
}

func (s *poolSubscription) Unsubscribe() {
	s.cancel()
	for _, sub := range s.subs {
		sub.Unsub()
	}
}
