package lobby

import (
	"context"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
)

func Test_ParseChallenge(t *testing.T) {
	event := &nostr.Event{
		Kind:    KindChallenge,
		Content: `{"type":"CHALLENGE","challengeId":"game-123","challenger":"alice","challenged":"bob","buyIn":10000,"timestamp":1700000000000}`,
	}

	challenge, err := parseChallenge(event)
	assert.Nil(t, err)
	assert.Equal(t, "game-123", challenge.ChallengeID)
	assert.Equal(t, "alice", challenge.Challenger)
	assert.Equal(t, "bob", challenge.Challenged)
	assert.Equal(t, int64(10000), challenge.BuyIn)
	assert.Equal(t, ChallengeStatus_Pending, challenge.Status)
}

func Test_ParseChallenge_Malformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{}`,
		`{"type":"SOMETHING_ELSE","challengeId":"game-123"}`,
		`{"type":"CHALLENGE"}`,
	}

	for _, content := range cases {
		_, err := parseChallenge(&nostr.Event{Kind: KindChallenge, Content: content})
		assert.NotNil(t, err, "content: %s", content)
	}
}

func Test_FallbackProfile(t *testing.T) {
	profile := FallbackProfile("deadbeefcafe0123")
	assert.Equal(t, "User deadbeef", profile.Name)
	assert.True(t, strings.Contains(profile.Picture, "deadbeefcafe0123"))

	// Short pubkeys are used whole.
	short := FallbackProfile("abc")
	assert.Equal(t, "User abc", short.Name)
}

func Test_CreateChallenge_RequiresSigner(t *testing.T) {
	s := NewService([]string{"wss://example.invalid"})

	_, err := s.CreateChallenge(context.Background(), "bob", 10000)
	assert.NotNil(t, err)
}
