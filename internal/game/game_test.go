// internal/game/game_test.go
package game

import (
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for the engine.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// mockRecorder collects recorded actions instead of sending them to Redis.
type mockRecorder struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (m *mockRecorder) record(rec cache.GameActionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *mockRecorder) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.ActionType
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// setupTestGame builds a seeded game for Alice and Bob with a fake clock and a recorder.
func setupTestGame(t *testing.T, opts ...Option) (*UnoGame, *fakeClock, *mockRecorder) {
	t.Helper()
	clk := &fakeClock{now: t0}
	rec := &mockRecorder{}
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithNow(clk.Now),
		WithLogger(quietLogger()),
		WithRecorder(rec.record),
	}
	g := NewUnoGame([2]string{"Alice", "Bob"}, append(base, opts...)...)
	return g, clk, rec
}

// finishTransition ticks the game through a full pre-transition and transition.
func finishTransition(t *testing.T, g *UnoGame, clk *fakeClock) {
	t.Helper()
	g.Tick(clk.Now())
	require.Equal(t, PhaseTransition, g.Clock.Phase())
	clk.Advance(g.HouseRules.TransitionDuration())
	g.Tick(clk.Now())
	require.Equal(t, PhaseIdle, g.Clock.Phase())
}

func TestNewGameDeal(t *testing.T) {
	g, _, rec := setupTestGame(t)

	require.Len(t, g.Players, 2)
	for _, p := range g.Players {
		assert.Len(t, p.Hand, 7)
	}
	require.NotNil(t, g.CurrentCard)
	assert.NotEqual(t, ColorWild, g.CurrentCard.Color)

	// 108 minus 14 dealt and the starting card, minus any wild cards skipped to find it.
	assert.LessOrEqual(t, g.Deck.Len(), 108-15)
	assert.GreaterOrEqual(t, g.Deck.Len(), 108-15-4)

	assert.Equal(t, []string{WelcomeMessage}, g.Log.Entries())
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
	assert.Equal(t, DirectionForward, g.Direction)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.Nil(t, g.Winner)
	assert.Contains(t, rec.types(), ActionGameReset)
}

func TestPlayCardNotPlayable(t *testing.T) {
	g, _, _ := setupTestGame(t)
	current := NewCard(ColorRed, "5")
	g.CurrentCard = current
	g.Players[0].Hand = []*Card{NewCard(ColorBlue, "7"), NewCard(ColorGreen, "1")}
	logLen := g.Log.Len()

	err := g.PlayCard(0)
	assert.ErrorIs(t, err, ErrCardNotPlayable)
	assert.Same(t, current, g.CurrentCard)
	assert.Len(t, g.Players[0].Hand, 2)
	assert.Equal(t, logLen+1, g.Log.Len())
	assert.Equal(t, "Card not playable. Try again.", g.Log.Latest())
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
}

func TestPlayCardInvalidIndex(t *testing.T) {
	g, _, _ := setupTestGame(t)
	logLen := g.Log.Len()

	assert.ErrorIs(t, g.PlayCard(7), ErrInvalidCardIndex)
	assert.ErrorIs(t, g.PlayCard(-1), ErrInvalidCardIndex)
	assert.Len(t, g.Players[0].Hand, 7)
	assert.Equal(t, logLen, g.Log.Len())
}

func TestPlayCardAdvancesTurnAfterTransition(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	red7 := NewCard(ColorRed, "7")
	g.Players[0].Hand = []*Card{red7, NewCard(ColorBlue, "1")}

	require.NoError(t, g.PlayCard(0))
	assert.Same(t, red7, g.CurrentCard)
	assert.Len(t, g.Players[0].Hand, 1)
	assert.Equal(t, "Alice played red 7.", g.Log.Latest())
	assert.Equal(t, PhasePreTransition, g.Clock.Phase())
	assert.Equal(t, "Alice played red 7.", g.Clock.LastAction())
	assert.Equal(t, "Bob's turn", g.Clock.TurnMessage())

	assert.ErrorIs(t, g.PlayCard(0), ErrTransitionActive)
	assert.ErrorIs(t, g.DrawCard(), ErrTransitionActive)

	g.Tick(clk.Now())
	assert.Equal(t, PhaseTransition, g.Clock.Phase())
	assert.Equal(t, 8, g.Clock.Countdown())
	assert.Equal(t, 0, g.CurrentPlayerIndex)

	clk.Advance(3 * time.Second)
	g.Tick(clk.Now())
	assert.Equal(t, 5, g.Clock.Countdown())
	assert.ErrorIs(t, g.DrawCard(), ErrTransitionActive)

	clk.Advance(5 * time.Second)
	g.Tick(clk.Now())
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
	assert.Equal(t, 1, g.CurrentPlayerIndex)
	assert.Equal(t, 1, g.TurnID)
}

func TestSkipConsumesOpponentTurn(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorRed, ValueSkip), NewCard(ColorBlue, "1")}
	bobHand := len(g.Players[1].Hand)

	require.NoError(t, g.PlayCard(0))
	assert.Equal(t, "Bob was skipped!", g.Log.Latest())
	assert.Equal(t, "Bob was skipped!", g.Clock.LastAction())
	assert.Equal(t, "Alice's turn", g.Clock.TurnMessage())
	assert.Len(t, g.Players[1].Hand, bobHand)

	finishTransition(t, g, clk)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.False(t, g.Clock.SkipPending())
}

func TestReverseFlipsDirectionOncePerPlay(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{
		NewCard(ColorRed, ValueReverse),
		NewCard(ColorBlue, ValueReverse),
		NewCard(ColorGreen, "1"),
	}
	bobHand := len(g.Players[1].Hand)

	require.NoError(t, g.PlayCard(0))
	assert.Equal(t, DirectionReverse, g.Direction)
	assert.Len(t, g.Players[0].Hand, 2)
	assert.Len(t, g.Players[1].Hand, bobHand)
	assert.Equal(t, "Bob was skipped!", g.Log.Latest())

	finishTransition(t, g, clk)
	assert.Equal(t, 0, g.CurrentPlayerIndex, "with two players reverse acts as a skip")

	require.NoError(t, g.PlayCard(0))
	assert.Equal(t, DirectionForward, g.Direction)
}

func TestReverseWithoutSkipRule(t *testing.T) {
	rules := DefaultHouseRules()
	rules.ReverseSkipsPlayer = false
	g, clk, _ := setupTestGame(t, WithHouseRules(rules))
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorRed, ValueReverse), NewCard(ColorGreen, "1")}

	require.NoError(t, g.PlayCard(0))
	assert.Equal(t, DirectionReverse, g.Direction)
	assert.Equal(t, "Alice reversed the direction of play!", g.Log.Latest())

	finishTransition(t, g, clk)
	assert.Equal(t, 1, g.CurrentPlayerIndex)
}

func TestDrawTwo(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorYellow, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorYellow, ValueDrawTwo), NewCard(ColorBlue, "1")}
	bobHand := len(g.Players[1].Hand)
	deck := g.Deck.Len()

	require.NoError(t, g.PlayCard(0))
	assert.Len(t, g.Players[0].Hand, 1)
	assert.Len(t, g.Players[1].Hand, bobHand+2)
	assert.Equal(t, deck-2, g.Deck.Len())
	assert.Equal(t, "Bob draws 2 cards!", g.Log.Latest())
	assert.Equal(t, []string{"Bob draws 2 cards!", "Alice played yellow +2."}, g.Log.Entries()[:2])

	finishTransition(t, g, clk)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
}

func TestDrawFourDefersTransitionUntilColorChosen(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	wild := NewCard(ColorWild, ValueDrawFour)
	g.Players[0].Hand = []*Card{wild, NewCard(ColorBlue, "1")}
	bobHand := len(g.Players[1].Hand)

	require.NoError(t, g.PlayCard(0))
	assert.Same(t, wild, g.CurrentCard)
	assert.True(t, g.ColorChoicePending)
	assert.Equal(t, PhaseIdle, g.Clock.Phase(), "no transition until a color is chosen")
	assert.Len(t, g.Players[0].Hand, 1)
	assert.Len(t, g.Players[1].Hand, bobHand+4)
	assert.Equal(t, "Bob draws 4 cards and Alice changes color!", g.Log.Latest())

	assert.ErrorIs(t, g.PlayCard(0), ErrColorChoicePending)
	assert.ErrorIs(t, g.DrawCard(), ErrColorChoicePending)
	assert.ErrorIs(t, g.ChooseColor(ColorWild), ErrInvalidColor)
	assert.ErrorIs(t, g.ChooseColor(Color("purple")), ErrInvalidColor)
	assert.True(t, g.ColorChoicePending)

	g.Tick(clk.Now())
	assert.Equal(t, PhaseIdle, g.Clock.Phase())

	require.NoError(t, g.ChooseColor(ColorGreen))
	assert.Equal(t, ColorGreen, g.CurrentCard.Color)
	assert.Equal(t, KindWild, g.CurrentCard.Kind())
	assert.False(t, g.ColorChoicePending)
	assert.Empty(t, g.PendingAction)
	assert.Equal(t, "Alice changed color to green.", g.Log.Latest())
	assert.Equal(t, PhasePreTransition, g.Clock.Phase())
	assert.Equal(t, "Bob draws 4 cards and Alice changes color!", g.Clock.LastAction())

	assert.ErrorIs(t, g.ChooseColor(ColorRed), ErrNoColorChoicePending)

	finishTransition(t, g, clk)
	assert.Equal(t, 0, g.CurrentPlayerIndex)

	g.Players[0].Hand = []*Card{NewCard(ColorGreen, "3"), NewCard(ColorRed, "3")}
	assert.ErrorIs(t, g.PlayCard(1), ErrCardNotPlayable)
	assert.NoError(t, g.PlayCard(0))
}

func TestChooseColorWithoutPendingChoice(t *testing.T) {
	g, _, _ := setupTestGame(t)
	assert.ErrorIs(t, g.ChooseColor(ColorRed), ErrNoColorChoicePending)
}

func TestWinningPlayFreezesGame(t *testing.T) {
	g, clk, _ := setupTestGame(t)

	var ended []int
	var endedWinner *Player
	var endedID uuid.UUID
	g.OnGameEnd = func(gameID uuid.UUID, winner *Player, turns int) {
		endedID = gameID
		endedWinner = winner
		ended = append(ended, turns)
	}

	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorRed, "9")}

	require.NoError(t, g.PlayCard(0))
	assert.Same(t, g.Players[0], g.Winner)
	assert.Equal(t, "Alice wins! Game Over!", g.Log.Latest())
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
	assert.Equal(t, []int{1}, ended)
	assert.Same(t, g.Players[0], endedWinner)
	assert.Equal(t, g.ID, endedID)

	bobHand := len(g.Players[1].Hand)
	assert.ErrorIs(t, g.PlayCard(0), ErrGameOver)
	assert.ErrorIs(t, g.DrawCard(), ErrGameOver)
	assert.ErrorIs(t, g.ChooseColor(ColorRed), ErrGameOver)
	g.Tick(clk.Now().Add(time.Minute))
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.Len(t, g.Players[1].Hand, bobHand)
	assert.Len(t, ended, 1)
}

func TestWinningWithDrawFourClearsPendingChoice(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorWild, ValueDrawFour)}
	bobHand := len(g.Players[1].Hand)

	require.NoError(t, g.PlayCard(0))
	assert.Same(t, g.Players[0], g.Winner)
	assert.False(t, g.ColorChoicePending)
	assert.Empty(t, g.PendingAction)
	assert.Len(t, g.Players[1].Hand, bobHand+4)
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
}

func TestDrawCard(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	deck := g.Deck.Len()

	require.NoError(t, g.DrawCard())
	assert.Len(t, g.Players[0].Hand, 8)
	assert.Equal(t, deck-1, g.Deck.Len())
	assert.Equal(t, "Alice drew a card.", g.Log.Latest())
	assert.Equal(t, PhasePreTransition, g.Clock.Phase())

	finishTransition(t, g, clk)
	assert.Equal(t, 1, g.CurrentPlayerIndex)
	assert.Equal(t, "Bob", g.CurrentPlayer().Name)
}

func TestDrawCardFromEmptyDeck(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.Deck = &Deck{}

	require.NoError(t, g.DrawCard())
	assert.Len(t, g.Players[0].Hand, 7)
	assert.Equal(t, "The deck is empty, Alice could not draw.", g.Log.Latest())
	assert.Equal(t, PhasePreTransition, g.Clock.Phase())
}

func TestDrawTwoFromShortDeck(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.Deck = &Deck{cards: []*Card{NewCard(ColorBlue, "2")}}
	g.CurrentCard = NewCard(ColorBlue, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorBlue, ValueDrawTwo), NewCard(ColorRed, "1")}
	bobHand := len(g.Players[1].Hand)

	require.NoError(t, g.PlayCard(0))
	assert.Len(t, g.Players[1].Hand, bobHand+1)
	assert.Equal(t, 0, g.Deck.Len())
}

func TestResetRestoresFreshGame(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	ids := []uuid.UUID{g.Players[0].ID, g.Players[1].ID}

	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorRed, ValueReverse), NewCard(ColorRed, "1")}
	require.NoError(t, g.PlayCard(0))
	finishTransition(t, g, clk)
	require.NoError(t, g.PlayCard(0))
	require.NotNil(t, g.Winner)

	g.Reset()
	assert.Nil(t, g.Winner)
	assert.Equal(t, DirectionForward, g.Direction)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.False(t, g.ColorChoicePending)
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
	assert.False(t, g.Clock.SkipPending())
	assert.Equal(t, []string{WelcomeMessage}, g.Log.Entries())
	assert.Equal(t, ids, []uuid.UUID{g.Players[0].ID, g.Players[1].ID})
	for _, p := range g.Players {
		assert.Len(t, p.Hand, 7)
	}
	assert.LessOrEqual(t, g.Deck.Len(), 108-15)
	assert.NoError(t, g.DrawCard())
}

func TestResetDiscardsRunningTransitionAndPendingChoice(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorWild, ValueDrawFour), NewCard(ColorRed, "1")}
	require.NoError(t, g.PlayCard(0))
	require.True(t, g.ColorChoicePending)

	g.Reset()
	assert.False(t, g.ColorChoicePending)
	assert.Empty(t, g.PendingAction)
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
}

func TestResetReusesClockAndLog(t *testing.T) {
	g, clk, _ := setupTestGame(t)
	clock, msgs := g.Clock, g.Log

	require.NoError(t, g.DrawCard())
	g.Tick(clk.Now())
	require.Equal(t, PhaseTransition, g.Clock.Phase())

	g.Reset()
	assert.Same(t, clock, g.Clock)
	assert.Same(t, msgs, g.Log)
	assert.Equal(t, PhaseIdle, g.Clock.Phase())
	assert.Empty(t, g.Clock.LastAction())
	assert.Equal(t, []string{WelcomeMessage}, g.Log.Entries())

	require.NoError(t, g.DrawCard())
	g.Tick(clk.Now())
	assert.Equal(t, int(DefaultTransitionDuration/time.Second), g.Clock.Countdown())
}

func TestMessageLogNeverExceedsCap(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorBlue, "7")}

	for i := 0; i < 25; i++ {
		assert.ErrorIs(t, g.PlayCard(0), ErrCardNotPlayable)
	}
	assert.Equal(t, 10, g.Log.Len())
}

func TestHouseRulesApplyToDeal(t *testing.T) {
	rules := DefaultHouseRules()
	rules.InitialHandSize = 3
	rules.TransitionSec = 2
	g, clk, _ := setupTestGame(t, WithHouseRules(rules))

	assert.Len(t, g.Players[0].Hand, 3)
	require.NoError(t, g.DrawCard())
	g.Tick(clk.Now())
	assert.Equal(t, 2, g.Clock.Countdown())
	clk.Advance(2 * time.Second)
	g.Tick(clk.Now())
	assert.Equal(t, 1, g.CurrentPlayerIndex)
}

func TestActionsAreRecordedInOrder(t *testing.T) {
	g, clk, rec := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorRed, ValueSkip), NewCard(ColorBlue, "1")}

	require.NoError(t, g.PlayCard(0))
	finishTransition(t, g, clk)

	types := rec.types()
	assert.Equal(t, ActionGameReset, types[0])
	assert.Equal(t, []string{ActionPlayCard, ActionSpecialEffect, ActionTransitionStart, ActionTurnComplete}, types[len(types)-4:])

	for i, r := range rec.records {
		assert.Equal(t, g.ID, r.GameID)
		assert.Equal(t, i+1, r.ActionIndex)
		assert.GreaterOrEqual(t, r.Timestamp, t0.UnixMilli())
		assert.NotNil(t, r.ActionPayload)
	}
	assert.Equal(t, g.Players[0].ID, rec.records[len(rec.records)-4].ActorID)
	assert.Equal(t, uuid.Nil, rec.records[len(rec.records)-1].ActorID)
}

func TestSnapshot(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorWild, ValueDrawFour), NewCard(ColorBlue, "1")}
	require.NoError(t, g.PlayCard(0))

	st := g.Snapshot()
	assert.Equal(t, g.ID, st.GameID)
	require.NotNil(t, st.CurrentCard)
	assert.Equal(t, KindWild, st.CurrentCard.Kind)
	assert.Equal(t, "wild +4", st.CurrentCard.Label)
	assert.True(t, st.ColorChoicePending)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "forward", st.Direction)
	assert.Equal(t, g.Deck.Len(), st.DeckSize)
	assert.Equal(t, g.Log.Entries(), st.Log)
	assert.False(t, st.GameOver)
	assert.Nil(t, st.Winner)

	require.Len(t, st.Players, 2)
	assert.Equal(t, "Alice", st.Players[0].Name)
	assert.True(t, st.Players[0].IsCurrentTurn)
	assert.Equal(t, 1, st.Players[0].HandSize)
	assert.Equal(t, KindNumber, st.Players[0].Hand[0].Kind)
	assert.Equal(t, 11, st.Players[1].HandSize)
	assert.Len(t, st.Players[1].Hand, 11)
}

func TestSnapshotAfterWin(t *testing.T) {
	g, _, _ := setupTestGame(t)
	g.CurrentCard = NewCard(ColorRed, "5")
	g.Players[0].Hand = []*Card{NewCard(ColorRed, "2")}
	require.NoError(t, g.PlayCard(0))

	st := g.Snapshot()
	assert.True(t, st.GameOver)
	require.NotNil(t, st.Winner)
	assert.Equal(t, g.Players[0].ID, *st.Winner)
	assert.Equal(t, "Alice", st.WinnerName)
	assert.Empty(t, st.Players[0].Hand)
}
