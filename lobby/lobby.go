// Package lobby handles everything that happens before a game exists:
// issuing and discovering challenges, and looking up player identities
// (profiles and contact lists) on the relay set.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/lightning-poker/pokersync"
	"github.com/lightning-poker/pokersync/relay"
)

var (
	ErrNoRelayReached = errors.New("lobby: no relay reached")
)

const (
	// KindChallenge carries game challenges.
	KindChallenge = 30000

	// KindProfile and KindContacts are standard Nostr metadata kinds.
	KindProfile  = 0
	KindContacts = 3

	// contactsCap bounds how many contacts a single fetch resolves.
	contactsCap = 100
	profilesCap = 50

	queryTimeout = 10 * time.Second
)

const (
	ChallengeStatus_Pending  = "pending"
	ChallengeStatus_Accepted = "accepted"
	ChallengeStatus_Declined = "declined"
	ChallengeStatus_Active   = "active"
)

// Challenge is an invitation from one player to another to open a game
// with the given buy-in.
type Challenge struct {
	Type        string `json:"type"`
	ChallengeID string `json:"challengeId"`
	Challenger  string `json:"challenger"`
	Challenged  string `json:"challenged"`
	BuyIn       int64  `json:"buyIn"`
	Timestamp   int64  `json:"timestamp"`
	Status      string `json:"status,omitempty"`
}

// Profile is a player's display metadata.
type Profile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	About       string `json:"about,omitempty"`
}

// Contact is an entry of a player's contact list, with its profile when
// one could be resolved.
type Contact struct {
	Pubkey  string
	Profile Profile
}

type ServiceOpt func(*Service)

// Service queries and publishes lobby traffic over a set of relays.
type Service struct {
	urls   []string
	signer relay.Signer
	logger *zap.Logger

	mu     sync.Mutex
	relays map[string]*nostr.Relay
}

func NewService(urls []string, opts ...ServiceOpt) *Service {
	s := &Service{
		urls:   urls,
		logger: zap.NewNop(),
		relays: make(map[string]*nostr.Relay),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func WithSigner(signer relay.Signer) ServiceOpt {
	return func(s *Service) {
		s.signer = signer
	}
}

func WithLogger(logger *zap.Logger) ServiceOpt {
	return func(s *Service) {
		s.logger = logger
	}
}

// CreateChallenge publishes a challenge to the given player and returns
// the challenge id, which doubles as the game id once accepted.
func (s *Service) CreateChallenge(ctx context.Context, challengedPubkey string, buyIn int64) (string, error) {
	if s.signer == nil {
		return "", relay.ErrNoSigner
	}

	challenge := Challenge{
		Type:        "CHALLENGE",
		ChallengeID: fmt.Sprintf("game-%s", uuid.New().String()),
		Challenger:  s.signer.PublicKey(),
		Challenged:  challengedPubkey,
		BuyIn:       buyIn,
		Timestamp:   time.Now().UnixMilli(),
	}

	content, err := json.Marshal(challenge)
	if err != nil {
		return "", err
	}

	event := nostr.Event{
		Kind:      KindChallenge,
		CreatedAt: nostr.Now(),
		Tags: nostr.Tags{
			nostr.Tag{"t", pokersync.Topic},
			nostr.Tag{"challenge", challenge.ChallengeID},
			nostr.Tag{"p", challengedPubkey},
			nostr.Tag{"buyin", fmt.Sprintf("%d", buyIn)},
		},
		Content: string(content),
	}

	if err := s.signer.Sign(&event); err != nil {
		return "", err
	}

	published := 0
	for _, url := range s.urls {
		r, err := s.ensureRelay(ctx, url)
		if err != nil {
			s.logger.Warn("relay unreachable", zap.String("relay", url), zap.Error(err))
			continue
		}
		if err := r.Publish(ctx, event); err != nil {
			s.logger.Warn("challenge publish failed", zap.String("relay", url), zap.Error(err))
			continue
		}
		published++
	}
	if published == 0 {
		return "", ErrNoRelayReached
	}

	s.logger.Info("challenge created",
		zap.String("challenge_id", challenge.ChallengeID),
		zap.String("challenged", challengedPubkey),
		zap.Int64("buy_in", buyIn),
	)
	return challenge.ChallengeID, nil
}

// FetchIncomingChallenges returns pending challenges addressed to pubkey.
func (s *Service) FetchIncomingChallenges(ctx context.Context, pubkey string) ([]Challenge, error) {
	events, err := s.querySync(ctx, nostr.Filter{
		Kinds: []int{KindChallenge},
		Tags: nostr.TagMap{
			"p": []string{pubkey},
			"t": []string{pokersync.Topic},
		},
		Limit: 20,
	})
	if err != nil {
		return nil, err
	}

	challenges := make([]Challenge, 0, len(events))
	for _, event := range events {
		challenge, err := parseChallenge(event)
		if err != nil {
			s.logger.Warn("dropping malformed challenge", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		challenges = append(challenges, challenge)
	}
	return challenges, nil
}

// SubscribeChallenges pushes future challenges addressed to pubkey
// through fn.
func (s *Service) SubscribeChallenges(ctx context.Context, pubkey string, fn func(Challenge)) (pokersync.Subscription, error) {
	since := nostr.Now()
	filters := nostr.Filters{{
		Kinds: []int{KindChallenge},
		Tags: nostr.TagMap{
			"p": []string{pubkey},
			"t": []string{pokersync.Topic},
		},
		Since: &since,
	}}

	subCtx, cancel := context.WithCancel(ctx)
	handle := &lobbySubscription{cancel: cancel}
	attached := 0

	for _, url := range s.urls {
		r, err := s.ensureRelay(subCtx, url)
		if err != nil {
			s.logger.Warn("relay unreachable", zap.String("relay", url), zap.Error(err))
			continue
		}
		sub, err := r.Subscribe(subCtx, filters)
		if err != nil {
			s.logger.Warn("challenge subscribe failed", zap.String("relay", url), zap.Error(err))
			continue
		}

		attached++
		handle.subs = append(handle.subs, sub)

		go func(sub *nostr.Subscription) {
			for {
				select {
				case event, ok := <-sub.Events:
					if !ok {
						return
					}
					if event == nil {
						continue
					}
					challenge, err := parseChallenge(event)
					if err != nil {
						s.logger.Warn("dropping malformed challenge", zap.Error(err))
						continue
					}
					fn(challenge)
				case <-subCtx.Done():
					return
				}
			}
		}(sub)
	}

	if attached == 0 {
		cancel()
		return nil, ErrNoRelayReached
	}
	return handle, nil
}

// FetchProfile resolves a player's profile, falling back to a generated
// placeholder when none is published.
func (s *Service) FetchProfile(ctx context.Context, pubkey string) Profile {
	events, err := s.querySync(ctx, nostr.Filter{
		Kinds:   []int{KindProfile},
		Authors: []string{pubkey},
		Limit:   1,
	})
	if err != nil || len(events) == 0 {
		return FallbackProfile(pubkey)
	}

	var profile Profile
	if err := json.Unmarshal([]byte(events[0].Content), &profile); err != nil {
		s.logger.Warn("dropping malformed profile", zap.String("pubkey", pubkey), zap.Error(err))
		return FallbackProfile(pubkey)
	}
	return profile
}

// FetchContacts resolves a player's contact list with profiles attached.
func (s *Service) FetchContacts(ctx context.Context, pubkey string) ([]Contact, error) {
	events, err := s.querySync(ctx, nostr.Filter{
		Kinds:   []int{KindContacts},
		Authors: []string{pubkey},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []Contact{}, nil
	}

	pubkeys := make([]string, 0)
	for _, tag := range events[0].Tags {
		if len(tag) >= 2 && tag[0] == "p" {
			pubkeys = append(pubkeys, tag[1])
		}
	}
	if len(pubkeys) > contactsCap {
		pubkeys = pubkeys[:contactsCap]
	}

	authors := pubkeys
	if len(authors) > profilesCap {
		authors = authors[:profilesCap]
	}
	profileEvents, err := s.querySync(ctx, nostr.Filter{
		Kinds:   []int{KindProfile},
		Authors: authors,
	})
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]Profile, len(profileEvents))
	for _, event := range profileEvents {
		var profile Profile
		if err := json.Unmarshal([]byte(event.Content), &profile); err != nil {
			continue
		}
		profiles[event.PubKey] = profile
	}

	contacts := make([]Contact, 0, len(pubkeys))
	for _, pk := range pubkeys {
		profile, ok := profiles[pk]
		if !ok {
			profile = FallbackProfile(pk)
		}
		contacts = append(contacts, Contact{Pubkey: pk, Profile: profile})
	}
	return contacts, nil
}

// Close tears down every relay connection.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for url, r := range s.relays {
		if err := r.Close(); err != nil {
			s.logger.Warn("relay close failed", zap.String("relay", url), zap.Error(err))
		}
	}
	s.relays = make(map[string]*nostr.Relay)
	return nil
}

// FallbackProfile generates display metadata for players with no
// published profile.
func FallbackProfile(pubkey string) Profile {
	short := pubkey
	if len(short) > 8 {
		short = short[:8]
	}
	return Profile{
		Name:    fmt.Sprintf("User %s", short),
		Picture: fmt.Sprintf("https://api.dicebear.com/7.x/shapes/svg?seed=%s", pubkey),
	}
}

func parseChallenge(event *nostr.Event) (Challenge, error) {
	var challenge Challenge
	if err := json.Unmarshal([]byte(event.Content), &challenge); err != nil {
		return Challenge{}, err
	}
	if challenge.Type != "CHALLENGE" || challenge.ChallengeID == "" {
		return Challenge{}, fmt.Errorf("lobby: not a challenge event")
	}
	challenge.Status = ChallengeStatus_Pending
	return challenge, nil
}

// querySync gathers stored events matching the filter from every relay,
// bounded by each relay's end-of-stored-events marker, deduplicated by
// event id.
func (s *Service) querySync(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	seen := make(map[string]bool)
	events := make([]*nostr.Event, 0)
	reached := 0

	for _, url := range s.urls {
		r, err := s.ensureRelay(queryCtx, url)
		if err != nil {
			s.logger.Warn("relay unreachable", zap.String("relay", url), zap.Error(err))
			continue
		}
		sub, err := r.Subscribe(queryCtx, nostr.Filters{filter})
		if err != nil {
			s.logger.Warn("query subscribe failed", zap.String("relay", url), zap.Error(err))
			continue
		}

		reached++

	gather:
		for {
			select {
			case event, ok := <-sub.Events:
				if !ok {
					break gather
				}
				if event == nil || seen[event.ID] {
					continue
				}
				seen[event.ID] = true
				events = append(events, event)
			case <-sub.EndOfStoredEvents:
				break gather
			case <-queryCtx.Done():
				sub.Unsub()
				return events, nil
			}
		}
		sub.Unsub()
	}

	if reached == 0 {
		return nil, ErrNoRelayReached
	}
	return events, nil
}

func (s *Service) ensureRelay(ctx context.Context, url string) (*nostr.Relay, error) {
	s.mu.Lock()
	if r, ok := s.relays[url]; ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	r, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.relays[url]; ok {
		r.Close()
		return existing, nil
	}
	s.relays[url] = r
	return r, nil
}

type lobbySubscription struct {
	cancel context.CancelFunc
	subs   []*nostr.Subscription
}

func (s *lobbySubscription) Unsubscribe() {
	s.cancel()
	for _, sub := range s.subs {
		sub.Unsub()
	}
}
