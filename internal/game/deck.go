// internal/game/deck.go
package game

import (
	"math/rand"
)

const (
	// copiesPerColorCard is how many of each colored card (0-9, skip, reverse, +2) a full deck holds.
	copiesPerColorCard = 2
	// wildDrawFourCount is the number of wild +4 cards in a full deck.
	wildDrawFourCount = 4
	// FullDeckSize is 4 colors x 13 faces x 2 copies + 4 wild +4 cards.
	FullDeckSize = 4*13*copiesPerColorCard + wildDrawFourCount
)

// Deck is a stack of cards; the top of the deck is the end of the slice.
type Deck struct {
	cards []*Card
}

// BuildCards returns a full, unshuffled set of cards.
func BuildCards() []*Card {
	cards := make([]*Card, 0, FullDeckSize)
	for _, color := range Colors {
		for i := 0; i < copiesPerColorCard; i++ {
			for _, number := range NumberValues {
				cards = append(cards, NewCard(color, number))
			}
			for _, special := range SpecialValues {
				cards = append(cards, NewCard(color, special))
			}
		}
	}
	for i := 0; i < wildDrawFourCount; i++ {
		cards = append(cards, NewCard(ColorWild, ValueDrawFour))
	}
	return cards
}

// NewDeck builds a full deck and shuffles it with r.
func NewDeck(r *rand.Rand) *Deck {
	d := &Deck{cards: BuildCards()}
	d.Shuffle(r)
	return d
}

// Shuffle applies a uniform Fisher-Yates shuffle.
func (d *Deck) Shuffle(r *rand.Rand) {
	r.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Len returns the number of cards left.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Draw pops the top card. ok is false when the deck is empty.
func (d *Deck) Draw() (card *Card, ok bool) {
	if len(d.cards) == 0 {
		return nil, false
	}
	idx := len(d.cards) - 1
	card = d.cards[idx]
	d.cards[idx] = nil
	d.cards = d.cards[:idx]
	return card, true
}

// DrawStartingCard pops cards until it finds one that is not wild. Wild cards popped on the
// way are discarded from play. If the deck runs out first, a red 0 is returned instead.
func (d *Deck) DrawStartingCard() (card *Card, fallback bool) {
	for {
		c, ok := d.Draw()
		if !ok {
			return NewCard(ColorRed, "0"), true
		}
		if c.Color != ColorWild {
			return c, false
		}
	}
}
