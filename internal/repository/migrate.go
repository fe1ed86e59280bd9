package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id BIGINT PRIMARY KEY,
		username VARCHAR(255) NOT NULL DEFAULT '',
		score BIGINT NOT NULL DEFAULT 0,
		streak BIGINT NOT NULL DEFAULT 0 CHECK (streak >= 0),
		highest_streak BIGINT NOT NULL DEFAULT 0,
		games_played BIGINT NOT NULL DEFAULT 0,
		games_won BIGINT NOT NULL DEFAULT 0,
		games_lost BIGINT NOT NULL DEFAULT 0,
		badges TEXT[] NOT NULL DEFAULT '{}',
		beta_tester BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (highest_streak >= streak),
		CHECK (games_played = games_won + games_lost)
	);
	CREATE INDEX IF NOT EXISTS idx_players_score ON players(score DESC, id ASC);`,

	`CREATE TABLE IF NOT EXISTS rounds (
		id BIGSERIAL PRIMARY KEY,
		player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		level VARCHAR(16) NOT NULL,
		won BOOLEAN NOT NULL,
		delta BIGINT NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_rounds_player_time ON rounds(player_id, created_at DESC);`,
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0 CHECK (streak >= 0),
		highest_streak INTEGER NOT NULL DEFAULT 0,
		games_played INTEGER NOT NULL DEFAULT 0,
		games_won INTEGER NOT NULL DEFAULT 0,
		games_lost INTEGER NOT NULL DEFAULT 0,
		badges TEXT NOT NULL DEFAULT '[]',
		beta_tester INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		CHECK (highest_streak >= streak),
		CHECK (games_played = games_won + games_lost)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_players_score ON players(score DESC, id ASC)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		level TEXT NOT NULL,
		won INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rounds_player_time ON rounds(player_id, created_at DESC)`,
}

// MigratePostgres applies the PostgreSQL schema.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, stmt := range postgresMigrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Info().Int("migrations", len(postgresMigrations)).Msg("Database migrations completed")
	return nil
}

// MigrateSQLite applies the SQLite schema.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	log.Info().Msg("Running database migrations...")

	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Info().Int("migrations", len(sqliteMigrations)).Msg("Database migrations completed")
	return nil
}
