// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/face-hh/spotai/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

const playerColumns = `id, username, score, streak, highest_streak, games_played, games_won, games_lost, badges, beta_tester, created_at, updated_at`

// PlayerRepository stores player records in PostgreSQL.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func scanPlayer(row pgx.Row) (*model.PlayerRecord, error) {
	var p model.PlayerRecord
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Score,
		&p.Streak,
		&p.HighestStreak,
		&p.GamesPlayed,
		&p.GamesWon,
		&p.GamesLost,
		&p.Badges,
		&p.BetaTester,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a zeroed record for the player.
func (r *PlayerRepository) Create(ctx context.Context, id int64, username string) (*model.PlayerRecord, error) {
	query := `
		INSERT INTO players (id, username, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return p, nil
}

// GetByID retrieves a player by Telegram ID.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*model.PlayerRecord, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetOrCreate retrieves a player, creating a zeroed record on first sight.
// The boolean reports whether the record was created.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, id int64, username string) (*model.PlayerRecord, bool, error) {
	p, err := r.GetByID(ctx, id)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	p, err = r.Create(ctx, id, username)
	if err != nil {
		// Another request may have created the player concurrently
		p, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return p, false, nil
	}

	return p, true, nil
}

// UpdateUsername stores the player's current Telegram username.
func (r *PlayerRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	const query = `
		UPDATE players
		SET username = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ApplyOutcome applies one round result in a single statement: score moves
// by delta, the streak grows or resets, highest_streak follows it upwards and
// exactly one of games_won/games_lost is incremented.
func (r *PlayerRepository) ApplyOutcome(ctx context.Context, id int64, delta int64, won bool) (*model.PlayerRecord, error) {
	query := `
		UPDATE players
		SET score = score + $2,
			streak = CASE WHEN $3::boolean THEN streak + 1 ELSE 0 END,
			highest_streak = GREATEST(highest_streak, CASE WHEN $3::boolean THEN streak + 1 ELSE 0 END),
			games_played = games_played + 1,
			games_won = games_won + CASE WHEN $3::boolean THEN 1 ELSE 0 END,
			games_lost = games_lost + CASE WHEN $3::boolean THEN 0 ELSE 1 END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id, delta, won))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to apply outcome: %w", err)
	}
	return p, nil
}

// AddBadges appends the titles the player does not hold yet.
func (r *PlayerRepository) AddBadges(ctx context.Context, id int64, titles []string) (*model.PlayerRecord, error) {
	query := `
		UPDATE players
		SET badges = badges || ARRAY(
				SELECT t FROM unnest($2::text[]) WITH ORDINALITY AS n(t, i)
				WHERE NOT (t = ANY(badges))
				ORDER BY i
			),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id, titles))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to add badges: %w", err)
	}
	return p, nil
}

// SetBetaTester sets the beta tester flag.
func (r *PlayerRepository) SetBetaTester(ctx context.Context, id int64, beta bool) (*model.PlayerRecord, error) {
	query := `
		UPDATE players
		SET beta_tester = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id, beta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to set beta tester: %w", err)
	}
	return p, nil
}

// TopByScore retrieves the top players by score. Equal scores are ordered
// by id so the ranking is stable.
func (r *PlayerRepository) TopByScore(ctx context.Context, limit int) ([]*model.PlayerRecord, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		ORDER BY score DESC, id ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.PlayerRecord
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}
