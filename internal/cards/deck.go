package cards

import (
	"fmt"
	"math/rand"
)

// Deck is an ordered stack of cards; Draw takes from the front.
type Deck struct {
	cards []Card
}

// NewDeck returns the 52 cards in a fixed order (clubs..spades, deuce..ace).
func NewDeck() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			d.cards = append(d.cards, Card{Rank: r, Suit: s})
		}
	}
	return d
}

// NewShuffledDeck returns a full deck shuffled by a generator seeded with seed.
// The same seed always yields the same order.
func NewShuffledDeck(seed int64) *Deck {
	d := NewDeck()
	d.Shuffle(rand.New(rand.NewSource(seed)))
	return d
}

// NewStackedDeck returns a deck that deals cs in order.
func NewStackedDeck(cs []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cs...)}
}

// Shuffle performs a Fisher-Yates shuffle driven by rng.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the next n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("draw %d cards: %d remaining", n, len(d.cards))
	}
	out := append([]Card(nil), d.cards[:n]...)
	d.cards = d.cards[n:]
	return out, nil
}

// Remaining returns a copy of the undealt cards.
func (d *Deck) Remaining() []Card {
	return append([]Card(nil), d.cards...)
}

func (d *Deck) Len() int { return len(d.cards) }
