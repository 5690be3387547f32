package pokersync

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedEvent = errors.New("event: malformed payload")
)

// EventData carries the type-specific payload of a GameEvent.
type EventData struct {
	Seed     string   `json:"seed,omitempty"`     // GAME_START
	Cards    []string `json:"cards,omitempty"`    // DEAL_* card ids
	Amount   int64    `json:"amount,omitempty"`   // betting actions
	NewStage string   `json:"newStage,omitempty"` // stage transitions
	Winner   string   `json:"winner,omitempty"`   // GAME_END
}

// GameEvent is one immutable entry of a game's event log. Its identity for
// ordering is (GameID, Timestamp); events of the same game form a single
// total order by ascending timestamp. An event is created once by the
// dealer, published, and never changes; the transport may deliver it any
// number of times, so every reduction of it must be idempotent.
type GameEvent struct {
	Type      string     `json:"type"`
	GameID    string     `json:"gameId"`
	Pubkey    string     `json:"pubkey"`
	Timestamp int64      `json:"timestamp"` // milliseconds since epoch
	Data      *EventData `json:"data,omitempty"`
}

// EncodeGameEvent serializes an event for the wire.
func EncodeGameEvent(event *GameEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeGameEvent parses a wire payload. Payloads that do not parse, or
// that lack the identity fields, are malformed; the broadcast medium is an
// open channel, so callers drop these rather than failing.
func DecodeGameEvent(payload []byte) (*GameEvent, error) {
	var event GameEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Type == "" || event.GameID == "" {
		return nil, fmt.Errorf("%w: missing type or gameId", ErrMalformedEvent)
	}
	return &event, nil
}

// DedupKey identifies an event for history deduplication. Two deliveries
// of the same logical event carry the same key regardless of which
// endpoint they arrived from.
func (e *GameEvent) DedupKey() string {
	return fmt.Sprintf("%s/%s/%d/%s", e.GameID, e.Type, e.Timestamp, e.Pubkey)
}
