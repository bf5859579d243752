// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/sirupsen/logrus"
)

// WelcomeMessage seeds the log of every fresh game.
const WelcomeMessage = "Welcome to UNO!"

const msgNotPlayable = "Card not playable. Try again."

// Action types published to the historian.
const (
	ActionGameReset        = "game_reset"
	ActionPlayCard         = "action_play_card"
	ActionPlayRejected     = "action_play_rejected"
	ActionDrawCard         = "action_draw_card"
	ActionChooseColor      = "action_choose_color"
	ActionSpecialEffect    = "special_effect"
	ActionTransitionStart  = "turn_transition_start"
	ActionTurnComplete     = "turn_complete"
	ActionGameEnd          = "game_end"
	ActionStartingFallback = "starting_card_fallback"
)

// Direction is the order in which turns pass around the table.
type Direction int

const (
	DirectionForward Direction = 1
	DirectionReverse Direction = -1
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == DirectionReverse {
		return DirectionForward
	}
	return DirectionReverse
}

func (d Direction) String() string {
	if d == DirectionReverse {
		return "reverse"
	}
	return "forward"
}

// OnGameEndFunc handles a finished game, e.g. archiving the result. It is invoked with the game lock held.
type OnGameEndFunc func(gameID uuid.UUID, winner *Player, turns int)

// RecordFunc receives every action the game takes. It must not block.
type RecordFunc func(rec cache.GameActionRecord)

// UnoGame holds the entire state for a single two-player game instance in memory.
//
// The engine is synchronous: no method blocks or spawns goroutines, and time only moves
// when Tick is called. Callers that share a game across goroutines must hold Mu.
type UnoGame struct {
	ID         uuid.UUID
	HouseRules HouseRules

	Players     []*Player
	Deck        *Deck
	CurrentCard *Card

	// Turn logic
	CurrentPlayerIndex int
	Direction          Direction
	TurnID             int // increments for each completed play or draw
	actionIndex        int // increments for each recorded action, never reset

	Winner             *Player
	ColorChoicePending bool
	PendingAction      string // +4 description held until a color is chosen

	Log   *MessageLog
	Clock *TurnClock

	StartedAt time.Time

	Mu sync.Mutex

	// RecordFn receives each action for the historian. If nil, nothing is recorded.
	RecordFn RecordFunc

	// OnGameEnd is invoked once when a player empties their hand.
	OnGameEnd OnGameEndFunc

	now    func() time.Time
	rng    *rand.Rand
	logger *logrus.Entry
}

// Option configures an UnoGame at construction.
type Option func(*UnoGame)

// WithHouseRules overrides the default rules.
func WithHouseRules(rules HouseRules) Option {
	return func(g *UnoGame) { g.HouseRules = rules }
}

// WithRand sets the source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(g *UnoGame) { g.rng = r }
}

// WithNow sets the clock used to timestamp actions and to start transitions.
func WithNow(now func() time.Time) Option {
	return func(g *UnoGame) { g.now = now }
}

// WithLogger sets the parent logger; the game adds its own game_id field.
func WithLogger(l *logrus.Logger) Option {
	return func(g *UnoGame) { g.logger = logrus.NewEntry(l) }
}

// WithRecorder sets RecordFn before the first deal, so the initial reset is recorded too.
func WithRecorder(fn RecordFunc) Option {
	return func(g *UnoGame) { g.RecordFn = fn }
}

// NewUnoGame seats two players and deals the first hand.
func NewUnoGame(names [2]string, opts ...Option) *UnoGame {
	g := &UnoGame{
		ID:         uuid.New(),
		HouseRules: DefaultHouseRules(),
		Players:    []*Player{NewPlayer(names[0]), NewPlayer(names[1])},
		now:        time.Now,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g.logger = g.logger.WithField("game_id", g.ID)
	g.Log = NewMessageLog(g.HouseRules.MaxLogEntries)
	g.Clock = NewTurnClock(g.HouseRules.PreTransitionDuration(), g.HouseRules.TransitionDuration())
	g.Reset()
	return g
}

// Reset rebuilds the deck, the starting card and both hands, and clears the log and the clock.
// The players, the log and the clock themselves are kept.
// It is accepted at any time, discarding any running transition and pending color choice.
// Assumes lock is held by caller.
func (g *UnoGame) Reset() {
	g.Deck = NewDeck(g.rng)

	start, fallback := g.Deck.DrawStartingCard()
	g.CurrentCard = start
	if fallback {
		g.logger.Infof("deck exhausted while seeking a starting card, using %s", start)
		g.logAction(uuid.Nil, ActionStartingFallback, nil)
	}

	for _, p := range g.Players {
		p.Hand = make([]*Card, 0, g.HouseRules.InitialHandSize)
		for i := 0; i < g.HouseRules.InitialHandSize; i++ {
			p.Draw(g.Deck)
		}
	}

	g.CurrentPlayerIndex = 0
	g.Direction = DirectionForward
	g.TurnID = 0
	g.Winner = nil
	g.ColorChoicePending = false
	g.PendingAction = ""

	g.Log.Clear()
	g.Log.Add(WelcomeMessage)
	g.Clock.Reset()
	g.StartedAt = g.now()

	g.logAction(uuid.Nil, ActionGameReset, map[string]interface{}{
		"startingCard": start.String(),
		"deckSize":     g.Deck.Len(),
		"players":      []string{g.Players[0].Name, g.Players[1].Name},
	})
	g.logger.Debug("game reset")
}

// PlayCard plays the card at index from the current player's hand.
// Assumes lock is held by caller.
func (g *UnoGame) PlayCard(index int) error {
	if err := g.checkCanAct(); err != nil {
		return err
	}
	player := g.CurrentPlayer()
	if index < 0 || index >= len(player.Hand) {
		return ErrInvalidCardIndex
	}

	card := player.Hand[index]
	if !card.IsPlayable(g.CurrentCard) {
		g.Log.Add(msgNotPlayable)
		g.logAction(player.ID, ActionPlayRejected, map[string]interface{}{
			"index": index, "card": card.String(), "currentCard": g.CurrentCard.String(),
		})
		return ErrCardNotPlayable
	}

	if _, err := player.PlayAt(index); err != nil {
		return err
	}
	g.CurrentCard = card
	g.TurnID++

	action := fmt.Sprintf("%s played %s.", player.Name, card)
	g.Log.Add(action)
	g.logAction(player.ID, ActionPlayCard, map[string]interface{}{
		"index": index, "cardId": card.ID, "card": card.String(), "handSize": len(player.Hand),
	})

	if card.Value.IsSpecial() || card.IsWild() {
		action = g.resolveSpecial(player, card)
	}

	if len(player.Hand) == 0 {
		g.declareWinner(player)
		return nil
	}
	if g.ColorChoicePending {
		return nil
	}
	g.startTransition(action)
	return nil
}

// DrawCard draws one card for the current player and ends their turn. An empty deck yields nothing.
// Assumes lock is held by caller.
func (g *UnoGame) DrawCard() error {
	if err := g.checkCanAct(); err != nil {
		return err
	}
	player := g.CurrentPlayer()
	g.TurnID++

	var action string
	drew := player.Draw(g.Deck)
	if drew {
		action = fmt.Sprintf("%s drew a card.", player.Name)
	} else {
		action = fmt.Sprintf("The deck is empty, %s could not draw.", player.Name)
	}
	g.Log.Add(action)
	g.logAction(player.ID, ActionDrawCard, map[string]interface{}{
		"drew": drew, "handSize": len(player.Hand), "deckSize": g.Deck.Len(),
	})

	g.startTransition(action)
	return nil
}

// ChooseColor assigns the color of a just-played wild +4 and starts the turn transition.
// Assumes lock is held by caller.
func (g *UnoGame) ChooseColor(color Color) error {
	if g.Winner != nil {
		return ErrGameOver
	}
	if !g.ColorChoicePending {
		return ErrNoColorChoicePending
	}
	if !color.Valid() {
		return ErrInvalidColor
	}

	player := g.CurrentPlayer()
	g.CurrentCard.Color = color
	g.ColorChoicePending = false

	msg := fmt.Sprintf("%s changed color to %s.", player.Name, color)
	g.Log.Add(msg)
	g.logAction(player.ID, ActionChooseColor, map[string]interface{}{"color": color})

	action := g.PendingAction
	if action == "" {
		action = msg
	}
	g.PendingAction = ""
	g.startTransition(action)
	return nil
}

// Tick advances the turn clock to now, moving the turn pointer when a transition completes.
// Assumes lock is held by caller.
func (g *UnoGame) Tick(now time.Time) {
	if g.Winner != nil {
		return
	}
	res := g.Clock.Tick(now)
	if !res.Completed {
		return
	}
	if res.Advance {
		g.CurrentPlayerIndex = g.nextIndex()
	}
	g.logAction(uuid.Nil, ActionTurnComplete, map[string]interface{}{
		"advanced": res.Advance, "currentPlayer": g.CurrentPlayerIndex,
	})
}

// CurrentPlayer returns the player whose turn it is.
func (g *UnoGame) CurrentPlayer() *Player {
	return g.Players[g.CurrentPlayerIndex]
}

// nextIndex is the index of the successor under the current direction.
func (g *UnoGame) nextIndex() int {
	n := len(g.Players)
	return ((g.CurrentPlayerIndex+int(g.Direction))%n + n) % n
}

// checkCanAct validates the preconditions shared by PlayCard and DrawCard.
func (g *UnoGame) checkCanAct() error {
	switch {
	case g.Winner != nil:
		return ErrGameOver
	case g.Clock.Active():
		return ErrTransitionActive
	case g.ColorChoicePending:
		return ErrColorChoicePending
	}
	return nil
}

// resolveSpecial applies the effect of skip, reverse, +2 or +4 and returns the description
// shown during the transition. Assumes lock is held by caller.
func (g *UnoGame) resolveSpecial(player *Player, card *Card) string {
	var desc string
	drawn := 0

	switch card.Value {
	case ValueSkip:
		g.Clock.SkipNextAdvance()
		desc = fmt.Sprintf("%s was skipped!", g.Players[g.nextIndex()].Name)

	case ValueReverse:
		g.Direction = g.Direction.Flip()
		if g.HouseRules.ReverseSkipsPlayer {
			g.Clock.SkipNextAdvance()
			desc = fmt.Sprintf("%s was skipped!", g.Players[g.nextIndex()].Name)
		} else {
			desc = fmt.Sprintf("%s reversed the direction of play!", player.Name)
		}

	case ValueDrawTwo:
		g.Clock.SkipNextAdvance()
		next := g.Players[g.nextIndex()]
		drawn = g.drawN(next, 2)
		desc = fmt.Sprintf("%s draws 2 cards!", next.Name)

	case ValueDrawFour:
		g.Clock.SkipNextAdvance()
		next := g.Players[g.nextIndex()]
		drawn = g.drawN(next, 4)
		desc = fmt.Sprintf("%s draws 4 cards and %s changes color!", next.Name, player.Name)
		g.ColorChoicePending = true
		g.PendingAction = desc

	default:
		return ""
	}

	g.Log.Add(desc)
	g.logAction(player.ID, ActionSpecialEffect, map[string]interface{}{
		"value": card.Value, "direction": g.Direction.String(), "drawn": drawn,
	})
	return desc
}

// drawN moves up to n cards from the deck into p's hand and returns how many moved.
func (g *UnoGame) drawN(p *Player, n int) int {
	drawn := 0
	for i := 0; i < n; i++ {
		if !p.Draw(g.Deck) {
			break
		}
		drawn++
	}
	return drawn
}

// startTransition begins the pre-transition, naming the player who will act once it completes.
func (g *UnoGame) startTransition(action string) {
	upcoming := g.nextIndex()
	if g.Clock.SkipPending() {
		upcoming = g.CurrentPlayerIndex
	}
	turnMsg := fmt.Sprintf("%s's turn", g.Players[upcoming].Name)
	g.Clock.StartPreTransition(g.now(), action, turnMsg)
	g.logAction(uuid.Nil, ActionTransitionStart, map[string]interface{}{"lastAction": action})
}

// declareWinner ends the game. Assumes lock is held by caller.
func (g *UnoGame) declareWinner(p *Player) {
	g.Winner = p
	g.ColorChoicePending = false
	g.PendingAction = ""
	g.Clock.Reset()
	g.Log.Add(fmt.Sprintf("%s wins! Game Over!", p.Name))
	g.logAction(p.ID, ActionGameEnd, map[string]interface{}{
		"winner": p.Name, "turns": g.TurnID,
	})
	g.logger.WithField("winner", p.Name).Infof("game over after %d turns", g.TurnID)

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, p, g.TurnID)
	}
}

// logAction hands the action details to RecordFn for the historian.
// Assumes lock is held by caller.
func (g *UnoGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.RecordFn == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	g.RecordFn(cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     g.now().UnixMilli(),
	})
}
