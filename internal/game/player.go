// internal/game/player.go
package game

import "github.com/google/uuid"

// Player is one seat at the table.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Hand []*Card   `json:"hand"`
}

// NewPlayer returns a player with an empty hand.
func NewPlayer(name string) *Player {
	return &Player{ID: uuid.New(), Name: name, Hand: []*Card{}}
}

// Draw moves the top card of d into the hand. It reports false, and changes nothing, when d is empty.
func (p *Player) Draw(d *Deck) bool {
	card, ok := d.Draw()
	if !ok {
		return false
	}
	p.Hand = append(p.Hand, card)
	return true
}

// PlayAt removes and returns the card at index, keeping the order of the remaining cards.
func (p *Player) PlayAt(index int) (*Card, error) {
	if index < 0 || index >= len(p.Hand) {
		return nil, ErrInvalidCardIndex
	}
	card := p.Hand[index]
	p.Hand = append(p.Hand[:index], p.Hand[index+1:]...)
	return card, nil
}
