// internal/game/clock.go
package game

import (
	"math"
	"time"
)

// ClockPhase is the state of the TurnClock.
type ClockPhase string

const (
	PhaseIdle          ClockPhase = "idle"
	PhasePreTransition ClockPhase = "pre-transition"
	PhaseTransition    ClockPhase = "transition"
)

const (
	DefaultTransitionDuration    = 8 * time.Second
	DefaultPreTransitionDuration = time.Duration(0)
)

// TickResult reports what a call to TurnClock.Tick did.
type TickResult struct {
	// Completed is true on the tick that ends a transition.
	Completed bool
	// Advance is true when the turn pointer should move. Only meaningful when Completed.
	Advance bool
}

// TurnClock gates when the next player becomes active. An action starts a pre-transition;
// the first tick at or after its deadline begins the transition countdown; the tick that
// reaches the transition deadline returns the clock to idle and reports completion.
// Time is always passed in, so the clock never reads the wall clock itself.
type TurnClock struct {
	phase           ClockPhase
	deadline        time.Time
	countdown       int
	skipNextAdvance bool
	lastAction      string
	turnMessage     string
	preTransition   time.Duration
	transition      time.Duration
}

// NewTurnClock returns an idle clock. A negative pre-transition delay or a non-positive
// transition duration falls back to the default.
func NewTurnClock(preTransition, transition time.Duration) *TurnClock {
	if preTransition < 0 {
		preTransition = DefaultPreTransitionDuration
	}
	if transition <= 0 {
		transition = DefaultTransitionDuration
	}
	return &TurnClock{
		phase:         PhaseIdle,
		preTransition: preTransition,
		transition:    transition,
	}
}

// StartPreTransition marks that an action just resolved. The overlay shows action and turnMessage
// until the transition completes.
func (c *TurnClock) StartPreTransition(now time.Time, action, turnMessage string) {
	c.phase = PhasePreTransition
	c.deadline = now.Add(c.preTransition)
	c.countdown = 0
	c.lastAction = action
	c.turnMessage = turnMessage
}

// Tick advances the state machine to now.
func (c *TurnClock) Tick(now time.Time) TickResult {
	switch c.phase {
	case PhasePreTransition:
		if now.Before(c.deadline) {
			return TickResult{}
		}
		c.phase = PhaseTransition
		c.deadline = now.Add(c.transition)
		c.countdown = wholeSeconds(c.transition)
		return TickResult{}

	case PhaseTransition:
		if now.Before(c.deadline) {
			c.countdown = wholeSeconds(c.deadline.Sub(now))
			return TickResult{}
		}
		advance := !c.skipNextAdvance
		c.skipNextAdvance = false
		c.phase = PhaseIdle
		c.countdown = 0
		c.lastAction = ""
		c.turnMessage = ""
		return TickResult{Completed: true, Advance: advance}
	}
	return TickResult{}
}

// SkipNextAdvance makes the next completed transition leave the turn pointer where it is.
func (c *TurnClock) SkipNextAdvance() {
	c.skipNextAdvance = true
}

// Reset discards any running phase, the skip flag and the overlay texts.
func (c *TurnClock) Reset() {
	c.phase = PhaseIdle
	c.deadline = time.Time{}
	c.countdown = 0
	c.skipNextAdvance = false
	c.lastAction = ""
	c.turnMessage = ""
}

func (c *TurnClock) Phase() ClockPhase { return c.phase }

// Countdown is the whole seconds left in the transition, 0 outside it.
func (c *TurnClock) Countdown() int { return c.countdown }

func (c *TurnClock) Deadline() time.Time { return c.deadline }

func (c *TurnClock) LastAction() string { return c.lastAction }

func (c *TurnClock) TurnMessage() string { return c.turnMessage }

// SkipPending reports whether the next completed transition will leave the turn pointer in place.
func (c *TurnClock) SkipPending() bool { return c.skipNextAdvance }

// Active reports whether a pre-transition or transition is running.
func (c *TurnClock) Active() bool {
	return c.phase != PhaseIdle
}

// wholeSeconds floors d to whole seconds, never below zero.
func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Seconds()))
}
