// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/sirupsen/logrus"
)

// DB is the global connection pool. It is nil until ConnectDB succeeds.
var DB *pgxpool.Pool

// ConnStringFromEnv builds the Postgres URL from PG_USER, PG_PASSWORD, PG_HOST, PG_PORT and PG_DATABASE.
func ConnStringFromEnv() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		config.GetEnv("PG_USER", "postgres"),
		config.GetEnv("PG_PASSWORD", "postgres"),
		config.GetEnv("PG_HOST", "localhost"),
		config.GetEnv("PG_PORT", "5432"),
		config.GetEnv("PG_DATABASE", "uno"),
	)
}

// ConnectDB opens the global pool and pings it.
func ConnectDB(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(ConnStringFromEnv())
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	logrus.WithFields(logrus.Fields{
		"host":     cfg.ConnConfig.Host,
		"database": cfg.ConnConfig.Database,
	}).Info("connected to database")
	return nil
}

// Close releases the global pool if it was opened.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS game_actions (
	id             BIGSERIAL PRIMARY KEY,
	game_id        UUID NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	action_index   INT NOT NULL,
	actor_id       UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (game_id, action_index)
);

CREATE TABLE IF NOT EXISTS game_results (
	id               BIGSERIAL PRIMARY KEY,
	game_id          UUID NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	winner_id        UUID NOT NULL,
	winner_name      TEXT NOT NULL,
	loser_id         UUID NOT NULL,
	loser_name       TEXT NOT NULL,
	loser_cards_left INT NOT NULL,
	turns            INT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	ended_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS game_results_ended_at_idx ON game_results (ended_at DESC);
`

// EnsureSchema creates the tables used by the server and the historian if they do not exist.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return ErrNotConnected
	}
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
