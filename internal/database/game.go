// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
)

// ErrNotConnected is returned when the global pool has not been opened.
var ErrNotConnected = errors.New("database not connected")

// GameResult is one archived finished game.
type GameResult struct {
	ID             int64     `json:"id"`
	GameID         uuid.UUID `json:"game_id"`
	WinnerID       uuid.UUID `json:"winner_id"`
	WinnerName     string    `json:"winner_name"`
	LoserID        uuid.UUID `json:"loser_id"`
	LoserName      string    `json:"loser_name"`
	LoserCardsLeft int       `json:"loser_cards_left"`
	Turns          int       `json:"turns"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// InsertGameResult marks the game completed and stores its result in one transaction.
func InsertGameResult(ctx context.Context, res GameResult) error {
	if DB == nil {
		return ErrNotConnected
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, status, start_time, end_time)
			VALUES ($1, 'completed', $2, $3)
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = $3
		`
		if _, e := tx.Exec(ctx, upsertGame, res.GameID, res.StartedAt, res.EndedAt); e != nil {
			return e
		}

		q := `
			INSERT INTO game_results (
				game_id, winner_id, winner_name, loser_id, loser_name,
				loser_cards_left, turns, started_at, ended_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, e := tx.Exec(ctx, q,
			res.GameID, res.WinnerID, res.WinnerName, res.LoserID, res.LoserName,
			res.LoserCardsLeft, res.Turns, res.StartedAt, res.EndedAt,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx insert game result: %w", err)
	}
	return nil
}

// ListRecentResults returns up to limit results, most recently finished first.
func ListRecentResults(ctx context.Context, limit int) ([]GameResult, error) {
	if DB == nil {
		return nil, ErrNotConnected
	}
	q := `
		SELECT id, game_id, winner_id, winner_name, loser_id, loser_name,
		       loser_cards_left, turns, started_at, ended_at
		FROM game_results
		ORDER BY ended_at DESC, id DESC
		LIMIT $1
	`
	rows, err := DB.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent results: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameResult, error) {
		var r GameResult
		err := row.Scan(
			&r.ID, &r.GameID, &r.WinnerID, &r.WinnerName, &r.LoserID, &r.LoserName,
			&r.LoserCardsLeft, &r.Turns, &r.StartedAt, &r.EndedAt,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent results: %w", err)
	}
	return results, nil
}

// InsertGameActions writes a batch of action records in a single transaction, upserting each
// game row. A game_end action marks its game completed.
func InsertGameActions(ctx context.Context, recs []cache.GameActionRecord) error {
	if DB == nil {
		return ErrNotConnected
	}
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
}

// insertGameActionTx inserts a single action record into the game_actions table and
// upserts the game row if necessary. If the action indicates game end, finalizes the game.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id)
		DO UPDATE SET status = 'in_progress', end_time = NULL
		WHERE games.status <> 'completed' OR $3
	`
	ts := time.UnixMilli(rec.Timestamp)
	restarted := rec.ActionType == game.ActionGameReset
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, ts, restarted); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if rec.ActorID != uuid.Nil {
		actor = &rec.ActorID
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, actor, rec.ActionType, jsonPayload, ts,
	); err != nil {
		return err
	}

	if rec.ActionType == game.ActionGameEnd {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = $2
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, ts); err != nil {
			return err
		}
	}
	return nil
}

// MarkGameAbandoned marks a game as 'abandoned' if it was still marked as 'in_progress'.
// It reports whether a row changed.
func MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	if DB == nil {
		return false, ErrNotConnected
	}
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	tag, err := DB.Exec(ctx, q, gameID)
	if err != nil {
		return false, fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Archive adapts the package functions to an interface-friendly value for the HTTP layer and the historian.
type Archive struct{}

func (Archive) SaveResult(ctx context.Context, res GameResult) error {
	return InsertGameResult(ctx, res)
}

func (Archive) RecentResults(ctx context.Context, limit int) ([]GameResult, error) {
	return ListRecentResults(ctx, limit)
}

func (Archive) InsertGameActions(ctx context.Context, recs []cache.GameActionRecord) error {
	return InsertGameActions(ctx, recs)
}

func (Archive) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	return MarkGameAbandoned(ctx, gameID)
}
