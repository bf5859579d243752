// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
)

// CardView is a card as rendered by a client.
type CardView struct {
	ID    uuid.UUID `json:"id"`
	Color Color     `json:"color"`
	Value Value     `json:"value"`
	Kind  CardKind  `json:"kind"`
	Label string    `json:"label"`
}

// PlayerView is one seat as rendered by a client. Play is hot-seat, so both hands are visible.
type PlayerView struct {
	PlayerID      uuid.UUID  `json:"player_id"`
	Name          string     `json:"name"`
	HandSize      int        `json:"hand_size"`
	Hand          []CardView `json:"hand"`
	IsCurrentTurn bool       `json:"isCurrentTurn"`
}

// GameState is the read-only render surface returned by Snapshot.
type GameState struct {
	GameID             uuid.UUID    `json:"game_id"`
	CurrentCard        *CardView    `json:"currentCard,omitempty"`
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	Direction          string       `json:"direction"`
	Players            []PlayerView `json:"players"`
	DeckSize           int          `json:"deckSize"`
	Log                []string     `json:"log"`
	Phase              ClockPhase   `json:"phase"`
	Countdown          int          `json:"countdown"`
	LastAction         string       `json:"lastAction,omitempty"`
	TurnMessage        string       `json:"turnMessage,omitempty"`
	ColorChoicePending bool         `json:"colorChoicePending"`
	Winner             *uuid.UUID   `json:"winner,omitempty"`
	WinnerName         string       `json:"winnerName,omitempty"`
	GameOver           bool         `json:"gameOver"`
	TurnID             int          `json:"turnId"`
}

func newCardView(c *Card) CardView {
	return CardView{
		ID:    c.ID,
		Color: c.Color,
		Value: c.Value,
		Kind:  c.Kind(),
		Label: c.String(),
	}
}

// Snapshot copies the state a client needs to render the table.
// Assumes lock is held by caller.
func (g *UnoGame) Snapshot() GameState {
	st := GameState{
		GameID:             g.ID,
		CurrentPlayerIndex: g.CurrentPlayerIndex,
		Direction:          g.Direction.String(),
		DeckSize:           g.Deck.Len(),
		Log:                g.Log.Entries(),
		Phase:              g.Clock.Phase(),
		Countdown:          g.Clock.Countdown(),
		LastAction:         g.Clock.LastAction(),
		TurnMessage:        g.Clock.TurnMessage(),
		ColorChoicePending: g.ColorChoicePending,
		GameOver:           g.Winner != nil,
		TurnID:             g.TurnID,
	}
	if g.CurrentCard != nil {
		cv := newCardView(g.CurrentCard)
		st.CurrentCard = &cv
	}
	if g.Winner != nil {
		id := g.Winner.ID
		st.Winner = &id
		st.WinnerName = g.Winner.Name
	}

	for i, pl := range g.Players {
		pv := PlayerView{
			PlayerID:      pl.ID,
			Name:          pl.Name,
			HandSize:      len(pl.Hand),
			Hand:          make([]CardView, len(pl.Hand)),
			IsCurrentTurn: i == g.CurrentPlayerIndex,
		}
		for j, c := range pl.Hand {
			pv.Hand[j] = newCardView(c)
		}
		st.Players = append(st.Players, pv)
	}
	return st
}
