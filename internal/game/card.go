// internal/game/card.go
package game

import (
	"fmt"

	"github.com/google/uuid"
)

// Color is the color of a card. Wild cards carry ColorWild until a color is chosen after play.
type Color string

const (
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorWild   Color = "wild"
)

// Colors lists the four concrete colors in deck order.
var Colors = []Color{ColorRed, ColorGreen, ColorBlue, ColorYellow}

// Valid reports whether c is one of the four concrete colors a player may choose.
func (c Color) Valid() bool {
	for _, col := range Colors {
		if c == col {
			return true
		}
	}
	return false
}

// Value is the face value of a card: "0".."9" or one of the special values.
type Value string

const (
	ValueSkip     Value = "skip"
	ValueReverse  Value = "reverse"
	ValueDrawTwo  Value = "+2"
	ValueDrawFour Value = "+4"
)

// NumberValues are the ten number faces in deck order.
var NumberValues = []Value{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// SpecialValues are the colored action faces.
var SpecialValues = []Value{ValueSkip, ValueReverse, ValueDrawTwo}

// IsNumber reports whether v is one of "0".."9".
func (v Value) IsNumber() bool {
	return len(v) == 1 && v[0] >= '0' && v[0] <= '9'
}

// IsSpecial reports whether v is skip, reverse or +2.
func (v Value) IsSpecial() bool {
	return v == ValueSkip || v == ValueReverse || v == ValueDrawTwo
}

// CardKind is the display classification of a card.
type CardKind string

const (
	KindNumber  CardKind = "Number"
	KindSpecial CardKind = "Special"
	KindWild    CardKind = "Wild"
)

// Card is a single card. Its Color is mutated once, when a wild card is played and a color chosen.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Color Color     `json:"color"`
	Value Value     `json:"value"`
}

// NewCard builds a card with a fresh id.
func NewCard(color Color, value Value) *Card {
	return &Card{ID: uuid.New(), Color: color, Value: value}
}

// IsPlayable reports whether c may be played on top of other.
// It is not symmetric: a wild card plays on anything, but not everything plays on a wild card.
func (c *Card) IsPlayable(other *Card) bool {
	if other == nil {
		return true
	}
	return c.Color == ColorWild ||
		c.Color == other.Color ||
		c.Value == other.Value
}

// IsWild reports whether the card is a wild +4, whether or not its color has been chosen.
func (c *Card) IsWild() bool {
	return c.Value == ValueDrawFour
}

// Kind classifies the card for display. It is derived from the value, so a wild +4 stays
// KindWild after its color is chosen.
func (c *Card) Kind() CardKind {
	switch {
	case c.Value.IsSpecial():
		return KindSpecial
	case c.Value.IsNumber():
		return KindNumber
	default:
		return KindWild
	}
}

func (c *Card) String() string {
	return fmt.Sprintf("%s %s", c.Color, c.Value)
}
