// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrWrongGame is returned when a valid token was issued for another game.
var ErrWrongGame = errors.New("token was issued for a different game")

// GameTokens signs and verifies game access tokens. A token is a JWT with "sub" = game id,
// so whoever created a game can hand its table to a client without accounts.
type GameTokens struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration // 0 => never expires
	now        func() time.Time
}

// NewGameTokens generates a fresh ed25519 key pair. Tokens do not survive a restart, and neither do games.
func NewGameTokens(ttl time.Duration) (*GameTokens, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &GameTokens{
		privateKey: priv,
		publicKey:  pub,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token for gameID.
func (gt *GameTokens) Issue(gameID uuid.UUID) (string, error) {
	now := gt.now()
	claims := jwt.RegisteredClaims{
		Subject:  gameID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if gt.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(gt.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(gt.privateKey)
}

// Verify checks the signature and expiry of tokenString and that it grants access to gameID.
func (gt *GameTokens) Verify(tokenString string, gameID uuid.UUID) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return gt.publicKey, nil
	})
	if err != nil {
		return fmt.Errorf("jwt parse error: %w", err)
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return fmt.Errorf("invalid sub in jwt: %w", err)
	}
	if sub != gameID {
		return ErrWrongGame
	}
	return nil
}
