package deck

import (
	"errors"
	"fmt"
)

var (
	ErrNotEnoughCards = errors.New("deck: not enough cards to deal")
)

// HoleCardsPerPlayer is fixed by Texas Hold'em.
const HoleCardsPerPlayer = 2

// Deal takes count cards off the top of the deck.
func Deal(cards []Card, count int) (dealt []Card, remaining []Card, err error) {
	if count > len(cards) {
		return nil, nil, fmt.Errorf("%w: requested %d of %d", ErrNotEnoughCards, count, len(cards))
	}
	return cards[:count], cards[count:], nil
}

// Burn discards one card off the top, per standard poker convention.
func Burn(cards []Card) ([]Card, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: cannot burn from empty deck", ErrNotEnoughCards)
	}
	return cards[1:], nil
}

// DealHoleCards deals two consecutive cards to each of numPlayers players
// in player order, consuming 2*numPlayers cards from the front.
func DealHoleCards(cards []Card, numPlayers int) (hands [][]Card, remaining []Card, err error) {
	hands = make([][]Card, 0, numPlayers)
	remaining = cards

	for i := 0; i < numPlayers; i++ {
		var hand []Card
		hand, remaining, err = Deal(remaining, HoleCardsPerPlayer)
		if err != nil {
			return nil, nil, err
		}
		hands = append(hands, hand)
	}

	return hands, remaining, nil
}

// DealFlop burns one card, then deals exactly three.
func DealFlop(cards []Card) (flop []Card, remaining []Card, err error) {
	afterBurn, err := Burn(cards)
	if err != nil {
		return nil, nil, err
	}
	return Deal(afterBurn, 3)
}

// DealTurn burns one card, then deals exactly one.
func DealTurn(cards []Card) (turn Card, remaining []Card, err error) {
	afterBurn, err := Burn(cards)
	if err != nil {
		return Card{}, nil, err
	}
	dealt, remaining, err := Deal(afterBurn, 1)
	if err != nil {
		return Card{}, nil, err
	}
	return dealt[0], remaining, nil
}

// DealRiver burns one card, then deals exactly one.
func DealRiver(cards []Card) (river Card, remaining []Card, err error) {
	return DealTurn(cards)
}

// The seed is the only transport for the deck between peers, so every
// derivation step below reshuffles the full deck from scratch and slices
// at fixed, protocol-known offsets rather than threading a deck value
// through calls. For n players the layout of the shuffled deck is:
//
//	[0, 2n)       hole cards, two per player in player order
//	[2n, 2n+4)    flop burn + 3
//	[2n+4, 2n+6)  turn burn + 1
//	[2n+6, 2n+8)  river burn + 1
//
// A peer that re-derives the turn without having kept any intermediate
// state gets the same card as one that dealt continuously.

// HoleCardsFromSeed re-derives every player's hole cards from the seed.
func HoleCardsFromSeed(seed string, numPlayers int) ([][]Card, error) {
	shuffled := ShuffleWithSeed(New(), seed)
	hands, _, err := DealHoleCards(shuffled, numPlayers)
	return hands, err
}

// FlopFromSeed re-derives the three flop cards from the seed.
func FlopFromSeed(seed string, numPlayers int) ([]Card, error) {
	shuffled := ShuffleWithSeed(New(), seed)
	flop, _, err := DealFlop(shuffled[HoleCardsPerPlayer*numPlayers:])
	return flop, err
}

// TurnFromSeed re-derives the turn card from the seed.
func TurnFromSeed(seed string, numPlayers int) (Card, error) {
	shuffled := ShuffleWithSeed(New(), seed)
	turn, _, err := DealTurn(shuffled[HoleCardsPerPlayer*numPlayers+4:])
	return turn, err
}

// RiverFromSeed re-derives the river card from the seed.
func RiverFromSeed(seed string, numPlayers int) (Card, error) {
	shuffled := ShuffleWithSeed(New(), seed)
	river, _, err := DealRiver(shuffled[HoleCardsPerPlayer*numPlayers+6:])
	return river, err
}
