package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/face-hh/spotai/internal/model"
)

// RoundRepository is the PostgreSQL round log.
type RoundRepository struct {
	pool *pgxpool.Pool
}

// NewRoundRepository creates a new RoundRepository instance.
func NewRoundRepository(pool *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{pool: pool}
}

// Record appends one resolved round.
func (r *RoundRepository) Record(ctx context.Context, res *model.RoundResult) (*model.RoundResult, error) {
	const query = `
		INSERT INTO rounds (player_id, level, won, delta, prompt, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, player_id, level, won, delta, prompt, created_at
	`

	var out model.RoundResult
	err := r.pool.QueryRow(ctx, query, res.PlayerID, res.Level, res.Won, res.Delta, res.Prompt).Scan(
		&out.ID,
		&out.PlayerID,
		&out.Level,
		&out.Won,
		&out.Delta,
		&out.Prompt,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record round: %w", err)
	}

	return &out, nil
}

// RecentByPlayer retrieves a player's latest rounds, newest first.
func (r *RoundRepository) RecentByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.RoundResult, error) {
	const query = `
		SELECT id, player_id, level, won, delta, prompt, created_at
		FROM rounds
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rounds: %w", err)
	}
	defer rows.Close()

	var results []*model.RoundResult
	for rows.Next() {
		var res model.RoundResult
		err := rows.Scan(
			&res.ID,
			&res.PlayerID,
			&res.Level,
			&res.Won,
			&res.Delta,
			&res.Prompt,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		results = append(results, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}

	return results, nil
}
