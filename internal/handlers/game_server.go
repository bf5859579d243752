// internal/handlers/game_server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
)

// DefaultTickRate is how often a websocket session advances its game clock.
const DefaultTickRate = 100 * time.Millisecond

// ResultArchive stores finished games. database.Archive is the Postgres implementation.
type ResultArchive interface {
	SaveResult(ctx context.Context, res database.GameResult) error
	RecentResults(ctx context.Context, limit int) ([]database.GameResult, error)
}

// ActionPublisher hands action records to the historian. cache.Publisher is the Redis implementation.
type ActionPublisher interface {
	PublishAsync(rec cache.GameActionRecord, onErr func(error))
}

// GameServer is a high-level struct that holds a reference to a GameStore
// and wires new games to the archive and the historian queue.
type GameServer struct {
	GameStore *game.GameStore
	Logger    *logrus.Logger

	// Archive is nil when no database is configured.
	Archive ResultArchive
	// Publisher is nil when no Redis is configured.
	Publisher ActionPublisher
	// Tokens is nil when games are open to anyone holding the id.
	Tokens *auth.GameTokens
	// AllowedOrigins are the browser origins that may open a game websocket, as in ALLOWED_ORIGINS.
	AllowedOrigins []string

	TickRate time.Duration

	lastActivity sync.Map // map[uuid.UUID]time.Time, read by the idle reaper
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	return &GameServer{
		GameStore:      game.NewGameStore(),
		Logger:         logger,
		TickRate:       DefaultTickRate,
		AllowedOrigins: []string{"*"},
	}
}

// NewUnoGame creates a game for the two named players, registers it and wires its callbacks.
func (gs *GameServer) NewUnoGame(names [2]string, rules game.HouseRules) *game.UnoGame {
	g := game.NewUnoGame(names,
		game.WithHouseRules(rules),
		game.WithLogger(gs.Logger),
		game.WithRecorder(gs.recordAction),
	)
	g.OnGameEnd = gs.onGameEnd(g)

	gs.GameStore.AddGame(g)
	gs.Touch(g.ID)
	gs.Logger.WithFields(logrus.Fields{
		"game_id": g.ID,
		"players": names,
	}).Info("game created")
	return g
}

// recordAction publishes a game action for the historian without blocking the game.
func (gs *GameServer) recordAction(rec cache.GameActionRecord) {
	if gs.Publisher == nil {
		return
	}
	gs.Publisher.PublishAsync(rec, func(err error) {
		gs.Logger.WithError(err).WithFields(logrus.Fields{
			"game_id":      rec.GameID,
			"action_index": rec.ActionIndex,
		}).Warn("failed to publish game action")
	})
}

// onGameEnd returns the OnGameEnd callback for g. It runs with the game lock held,
// so it copies what it needs and archives in the background.
func (gs *GameServer) onGameEnd(g *game.UnoGame) game.OnGameEndFunc {
	return func(gameID uuid.UUID, winner *game.Player, turns int) {
		if gs.Archive == nil {
			return
		}
		var loser *game.Player
		for _, p := range g.Players {
			if p != winner {
				loser = p
			}
		}
		if loser == nil {
			return
		}
		res := database.GameResult{
			GameID:         gameID,
			WinnerID:       winner.ID,
			WinnerName:     winner.Name,
			LoserID:        loser.ID,
			LoserName:      loser.Name,
			LoserCardsLeft: len(loser.Hand),
			Turns:          turns,
			StartedAt:      g.StartedAt,
			EndedAt:        time.Now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := gs.Archive.SaveResult(ctx, res); err != nil {
				gs.Logger.WithError(err).WithField("game_id", gameID).Error("failed to archive game result")
				return
			}
			gs.Logger.WithField("game_id", gameID).Info("game result archived")
		}()
	}
}

// Touch records activity on a game so the idle reaper keeps it.
func (gs *GameServer) Touch(id uuid.UUID) {
	gs.lastActivity.Store(id, time.Now())
}

// ReapIdleGames periodically removes games nobody has touched for longer than idle.
// It blocks until ctx is done.
func (gs *GameServer) ReapIdleGames(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := gs.reapIdle(now, idle); n > 0 {
				gs.Logger.Infof("reaped %d idle games, %d remain", n, gs.GameStore.Len())
			}
		}
	}
}

// reapIdle deletes every game whose last activity is older than idle and returns how many it removed.
func (gs *GameServer) reapIdle(now time.Time, idle time.Duration) int {
	removed := 0
	gs.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > idle {
			gs.GameStore.DeleteGame(gameID)
			gs.lastActivity.Delete(gameID)
			removed++
		}
		return true
	})
	return removed
}
