package game

import "errors"

// Errors returned by the action API. Every one is returned before any state is touched.
var (
	ErrGameOver             = errors.New("game is over, reset to play again")
	ErrTransitionActive     = errors.New("turn transition in progress")
	ErrColorChoicePending   = errors.New("a color must be chosen first")
	ErrNoColorChoicePending = errors.New("no color choice is pending")
	ErrInvalidColor         = errors.New("color must be one of red, green, blue, yellow")
	ErrInvalidCardIndex     = errors.New("card index out of range")
	ErrCardNotPlayable      = errors.New("card not playable")
)
