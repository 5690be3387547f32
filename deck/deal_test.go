package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DealHoleCards(t *testing.T) {
	shuffled := ShuffleWithSeed(New(), "abc")

	hands, remaining, err := DealHoleCards(shuffled, 2)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(hands))
	assert.Equal(t, 48, len(remaining))

	// Two consecutive cards per player, in player order.
	assert.Equal(t, IDs(shuffled[0:2]), IDs(hands[0]))
	assert.Equal(t, IDs(shuffled[2:4]), IDs(hands[1]))
}

func Test_DealFlop_BurnsOne(t *testing.T) {
	shuffled := ShuffleWithSeed(New(), "abc")
	rest := shuffled[4:]

	flop, remaining, err := DealFlop(rest)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(flop))
	// rest[0] is burned; the flop is rest[1:4].
	assert.Equal(t, IDs(rest[1:4]), IDs(flop))
	assert.Equal(t, len(rest)-4, len(remaining))
}

func Test_Deal_Underflow(t *testing.T) {
	short := New()[:3]

	_, _, err := DealFlop(short) // burn + 3 needs 4
	assert.ErrorIs(t, err, ErrNotEnoughCards)

	_, _, err = DealTurn(New()[:1]) // burn + 1 needs 2
	assert.ErrorIs(t, err, ErrNotEnoughCards)

	_, err = Burn(nil)
	assert.ErrorIs(t, err, ErrNotEnoughCards)

	_, _, err = Deal(New()[:2], 3)
	assert.ErrorIs(t, err, ErrNotEnoughCards)
}

func Test_FixedOffsets_MatchContinuousDeal(t *testing.T) {
	const seed = "local-1700000000000"
	const numPlayers = 2

	// One peer deals continuously off a single shuffle...
	shuffled := ShuffleWithSeed(New(), seed)
	hands, rest, err := DealHoleCards(shuffled, numPlayers)
	assert.Nil(t, err)
	flop, rest, err := DealFlop(rest)
	assert.Nil(t, err)
	turn, rest, err := DealTurn(rest)
	assert.Nil(t, err)
	river, _, err := DealRiver(rest)
	assert.Nil(t, err)

	// ...while another re-derives each step from the seed alone.
	rederivedHands, err := HoleCardsFromSeed(seed, numPlayers)
	assert.Nil(t, err)
	rederivedFlop, err := FlopFromSeed(seed, numPlayers)
	assert.Nil(t, err)
	rederivedTurn, err := TurnFromSeed(seed, numPlayers)
	assert.Nil(t, err)
	rederivedRiver, err := RiverFromSeed(seed, numPlayers)
	assert.Nil(t, err)

	assert.Equal(t, IDs(hands[0]), IDs(rederivedHands[0]))
	assert.Equal(t, IDs(hands[1]), IDs(rederivedHands[1]))
	assert.Equal(t, IDs(flop), IDs(rederivedFlop))
	assert.Equal(t, turn.ID, rederivedTurn.ID)
	assert.Equal(t, river.ID, rederivedRiver.ID)
}

func Test_FixedOffsets_KnownSeed(t *testing.T) {
	const seed = "local-1700000000000"

	hands, err := HoleCardsFromSeed(seed, 2)
	assert.Nil(t, err)
	assert.Equal(t, []string{"4C", "2S"}, IDs(hands[0]))
	assert.Equal(t, []string{"AC", "AS"}, IDs(hands[1]))

	flop, err := FlopFromSeed(seed, 2)
	assert.Nil(t, err)
	assert.Equal(t, []string{"9C", "6D", "6C"}, IDs(flop)) // KS burned

	turn, err := TurnFromSeed(seed, 2)
	assert.Nil(t, err)
	assert.Equal(t, "8S", turn.ID) // 3C burned

	river, err := RiverFromSeed(seed, 2)
	assert.Nil(t, err)
	assert.Equal(t, "4D", river.ID) // QS burned
}

func Test_FixedOffsets_NoOverlap(t *testing.T) {
	const seed = "abc"

	hands, _ := HoleCardsFromSeed(seed, 2)
	flop, _ := FlopFromSeed(seed, 2)
	turn, _ := TurnFromSeed(seed, 2)
	river, _ := RiverFromSeed(seed, 2)

	seen := make(map[string]bool)
	for _, id := range append(append(IDs(hands[0]), IDs(hands[1])...), IDs(flop)...) {
		assert.False(t, seen[id], "card %s dealt twice", id)
		seen[id] = true
	}
	assert.False(t, seen[turn.ID])
	seen[turn.ID] = true
	assert.False(t, seen[river.ID])
}
