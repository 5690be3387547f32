package deck

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCardID = errors.New("deck: invalid card id")
)

type Suit string

const (
	Suit_Hearts   Suit = "H"
	Suit_Diamonds Suit = "D"
	Suit_Clubs    Suit = "C"
	Suit_Spades   Suit = "S"
)

type Rank string

const (
	Rank_Two   Rank = "2"
	Rank_Three Rank = "3"
	Rank_Four  Rank = "4"
	Rank_Five  Rank = "5"
	Rank_Six   Rank = "6"
	Rank_Seven Rank = "7"
	Rank_Eight Rank = "8"
	Rank_Nine  Rank = "9"
	Rank_Ten   Rank = "10"
	Rank_Jack  Rank = "J"
	Rank_Queen Rank = "Q"
	Rank_King  Rank = "K"
	Rank_Ace   Rank = "A"
)

var suits = []Suit{Suit_Hearts, Suit_Diamonds, Suit_Clubs, Suit_Spades}

var ranks = []Rank{
	Rank_Two, Rank_Three, Rank_Four, Rank_Five, Rank_Six, Rank_Seven,
	Rank_Eight, Rank_Nine, Rank_Ten, Rank_Jack, Rank_Queen, Rank_King,
	Rank_Ace,
}

var rankValues = map[Rank]int{
	Rank_Two:   2,
	Rank_Three: 3,
	Rank_Four:  4,
	Rank_Five:  5,
	Rank_Six:   6,
	Rank_Seven: 7,
	Rank_Eight: 8,
	Rank_Nine:  9,
	Rank_Ten:   10,
	Rank_Jack:  11,
	Rank_Queen: 12,
	Rank_King:  13,
	Rank_Ace:   14,
}

var rankNames = map[Rank]string{
	Rank_Two:   "Two",
	Rank_Three: "Three",
	Rank_Four:  "Four",
	Rank_Five:  "Five",
	Rank_Six:   "Six",
	Rank_Seven: "Seven",
	Rank_Eight: "Eight",
	Rank_Nine:  "Nine",
	Rank_Ten:   "Ten",
	Rank_Jack:  "Jack",
	Rank_Queen: "Queen",
	Rank_King:  "King",
	Rank_Ace:   "Ace",
}

var suitNames = map[Suit]string{
	Suit_Hearts:   "Hearts",
	Suit_Diamonds: "Diamonds",
	Suit_Clubs:    "Clubs",
	Suit_Spades:   "Spades",
}

// Card is a single playing card. ID is the canonical string encoding of
// (rank, suit) and is the only identity that travels on the wire, e.g.
// "JH", "AS", "10D".
type Card struct {
	Rank Rank   `json:"rank"`
	Suit Suit   `json:"suit"`
	ID   string `json:"id"`
}

// FromID parses a canonical card id back into a Card. The id round-trips
// losslessly: FromID(c.ID).ID == c.ID for every card of a standard deck.
func FromID(id string) (Card, error) {
	if len(id) < 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardID, id)
	}

	suit := Suit(id[len(id)-1:])
	rank := Rank(id[:len(id)-1])

	if _, ok := suitNames[suit]; !ok {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardID, id)
	}
	if _, ok := rankValues[rank]; !ok {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardID, id)
	}

	return Card{
		Rank: rank,
		Suit: suit,
		ID:   id,
	}, nil
}

// New returns a full 52-card deck in canonical (unshuffled) order:
// hearts, diamonds, clubs, spades, each running from two up to ace.
func New() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range suits {
		for _, rank := range ranks {
			id := string(rank) + string(suit)
			cards = append(cards, Card{Rank: rank, Suit: suit, ID: id})
		}
	}
	return cards
}

// IDs converts cards to their wire ids, preserving order.
func IDs(cards []Card) []string {
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	return ids
}

// FromIDs converts wire ids back to cards. Fails on the first unknown id.
func FromIDs(ids []string) ([]Card, error) {
	cards := make([]Card, 0, len(ids))
	for _, id := range ids {
		card, err := FromID(id)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// RankValue returns the numeric rank for comparison, ace high.
func (c Card) RankValue() int {
	return rankValues[c.Rank]
}

// IsRed reports whether the card belongs to a red suit.
func (c Card) IsRed() bool {
	return c.Suit == Suit_Hearts || c.Suit == Suit_Diamonds
}

// DisplayName returns a human-readable name like "Jack of Hearts".
func (c Card) DisplayName() string {
	return fmt.Sprintf("%s of %s", rankNames[c.Rank], suitNames[c.Suit])
}

// Symbol returns a short display form like "10♦".
func (c Card) Symbol() string {
	symbols := map[Suit]string{
		Suit_Hearts:   "♥",
		Suit_Diamonds: "♦",
		Suit_Clubs:    "♣",
		Suit_Spades:   "♠",
	}
	return string(c.Rank) + symbols[c.Suit]
}
