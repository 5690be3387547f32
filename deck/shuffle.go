package deck

import (
	"math/rand"
	"unicode/utf16"
)

// lcg draw parameters, fixed by the wire protocol. Every peer derives the
// same permutation from the same seed, so none of these may ever change.
const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280
)

// seedAccumulator folds the seed's UTF-16 code units into a 32-bit signed
// accumulator with a wrapping multiply-add (h*31 + c at each step).
func seedAccumulator(seed string) int32 {
	var h int32
	for _, cu := range utf16.Encode([]rune(seed)) {
		h = (h << 5) - h + int32(cu)
	}
	return h
}

// ShuffleWithSeed returns a seeded permutation of cards. It is a pure
// function of (card order, seed): the same inputs produce byte-identical
// output on any peer at any time, which is what lets two peers derive the
// same hands from a shared seed without ever exchanging the deck itself.
// The permutation is a Fisher-Yates walk driven by a linear-congruential
// generator stepped once per draw. Not unpredictable, not meant to be:
// the dealer chooses the seed, so this is honest-dealer territory.
func ShuffleWithSeed(cards []Card, seed string) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)

	state := uint64(uint32(seedAccumulator(seed)))
	for i := len(shuffled) - 1; i > 0; i-- {
		state = (state*lcgMultiplier + lcgIncrement) % lcgModulus
		j := int(state * uint64(i+1) / lcgModulus)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// Shuffle returns a uniformly random permutation of cards. Only for local
// practice games; multi-peer games always go through ShuffleWithSeed.
func Shuffle(cards []Card) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)

	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}
