// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// HouseRules holds the tunable constants of a game. The zero value is not usable; start from DefaultHouseRules.
type HouseRules struct {
	InitialHandSize    int  `json:"initialHandSize"`    // cards dealt to each player on reset
	TransitionSec      int  `json:"transitionSec"`      // length of the turn transition countdown
	PreTransitionMs    int  `json:"preTransitionMs"`    // delay between an action and the start of the countdown
	MaxLogEntries      int  `json:"maxLogEntries"`      // messages kept in the game log, at most DefaultMaxLogEntries
	ReverseSkipsPlayer bool `json:"reverseSkipsPlayer"` // reverse also consumes the successor's turn, as in two-player play
}

// DefaultHouseRules returns the standard rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		InitialHandSize:    7,
		TransitionSec:      int(DefaultTransitionDuration / time.Second),
		PreTransitionMs:    int(DefaultPreTransitionDuration / time.Millisecond),
		MaxLogEntries:      DefaultMaxLogEntries,
		ReverseSkipsPlayer: true,
	}
}

// TransitionDuration converts TransitionSec for the TurnClock.
func (rules HouseRules) TransitionDuration() time.Duration {
	return time.Duration(rules.TransitionSec) * time.Second
}

// PreTransitionDuration converts PreTransitionMs for the TurnClock.
func (rules HouseRules) PreTransitionDuration() time.Duration {
	return time.Duration(rules.PreTransitionMs) * time.Millisecond
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		// JSON numbers decode as float64
		switch v := val.(type) {
		case float64:
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal || n > maxVal {
			return fmt.Errorf("%s must be between %d and %d", key, minVal, maxVal)
		}
		*field = n
		return nil
	}

	if err := assignInt(&rules.InitialHandSize, "initialHandSize", 1, 20); err != nil {
		return err
	}
	if err := assignInt(&rules.TransitionSec, "transitionSec", 1, 60); err != nil {
		return err
	}
	if err := assignInt(&rules.PreTransitionMs, "preTransitionMs", 0, 10000); err != nil {
		return err
	}
	if err := assignInt(&rules.MaxLogEntries, "maxLogEntries", 1, DefaultMaxLogEntries); err != nil {
		return err
	}
	if err := assignBool(&rules.ReverseSkipsPlayer, "reverseSkipsPlayer"); err != nil {
		return err
	}
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
