package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/face-hh/spotai/internal/model"
)

// SQLitePlayerRepository stores player records in an embedded SQLite file.
// Badges are kept as a JSON array.
type SQLitePlayerRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLitePlayerRepository creates a new SQLitePlayerRepository instance.
func NewSQLitePlayerRepository(db *sql.DB) *SQLitePlayerRepository {
	return &SQLitePlayerRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlayer(row rowScanner) (*model.PlayerRecord, error) {
	var (
		p         model.PlayerRecord
		badges    string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Score,
		&p.Streak,
		&p.HighestStreak,
		&p.GamesPlayed,
		&p.GamesWon,
		&p.GamesLost,
		&badges,
		&p.BetaTester,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(badges), &p.Badges); err != nil {
		return nil, fmt.Errorf("failed to decode badges: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

func (r *SQLitePlayerRepository) one(ctx context.Context, op, query string, args ...any) (*model.PlayerRecord, error) {
	p, err := scanSQLitePlayer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return p, nil
}

// Create creates a zeroed record for the player.
func (r *SQLitePlayerRepository) Create(ctx context.Context, id int64, username string) (*model.PlayerRecord, error) {
	now := r.now().Unix()
	query := `
		INSERT INTO players (id, username, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?3)
		RETURNING ` + playerColumns

	p, err := scanSQLitePlayer(r.db.QueryRowContext(ctx, query, id, username, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return p, nil
}

// GetByID retrieves a player by Telegram ID.
func (r *SQLitePlayerRepository) GetByID(ctx context.Context, id int64) (*model.PlayerRecord, error) {
	return r.one(ctx, "get player", `SELECT `+playerColumns+` FROM players WHERE id = ?1`, id)
}

// GetOrCreate retrieves a player, creating a zeroed record on first sight.
func (r *SQLitePlayerRepository) GetOrCreate(ctx context.Context, id int64, username string) (*model.PlayerRecord, bool, error) {
	now := r.now().Unix()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO players (id, username, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?3)
		ON CONFLICT(id) DO NOTHING`, id, username, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create player: %w", err)
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return p, n == 1, nil
}

// UpdateUsername stores the player's current Telegram username.
func (r *SQLitePlayerRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE players SET username = ?2, updated_at = ?3 WHERE id = ?1`,
		id, username, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ApplyOutcome applies one round result in a single statement.
func (r *SQLitePlayerRepository) ApplyOutcome(ctx context.Context, id int64, delta int64, won bool) (*model.PlayerRecord, error) {
	query := `
		UPDATE players
		SET score = score + ?2,
			streak = CASE WHEN ?3 THEN streak + 1 ELSE 0 END,
			highest_streak = MAX(highest_streak, CASE WHEN ?3 THEN streak + 1 ELSE 0 END),
			games_played = games_played + 1,
			games_won = games_won + CASE WHEN ?3 THEN 1 ELSE 0 END,
			games_lost = games_lost + CASE WHEN ?3 THEN 0 ELSE 1 END,
			updated_at = ?4
		WHERE id = ?1
		RETURNING ` + playerColumns

	return r.one(ctx, "apply outcome", query, id, delta, won, r.now().Unix())
}

// AddBadges appends the titles the player does not hold yet. The read and
// the write share one transaction.
func (r *SQLitePlayerRepository) AddBadges(ctx context.Context, id int64, titles []string) (*model.PlayerRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT badges FROM players WHERE id = ?1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to read badges: %w", err)
	}

	var badges []string
	if err := json.Unmarshal([]byte(raw), &badges); err != nil {
		return nil, fmt.Errorf("failed to decode badges: %w", err)
	}
	for _, title := range titles {
		if !contains(badges, title) {
			badges = append(badges, title)
		}
	}
	encoded, err := json.Marshal(badges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode badges: %w", err)
	}

	p, err := scanSQLitePlayer(tx.QueryRowContext(ctx, `
		UPDATE players SET badges = ?2, updated_at = ?3
		WHERE id = ?1
		RETURNING `+playerColumns, id, string(encoded), r.now().Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to add badges: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit badges: %w", err)
	}
	return p, nil
}

// SetBetaTester sets the beta tester flag.
func (r *SQLitePlayerRepository) SetBetaTester(ctx context.Context, id int64, beta bool) (*model.PlayerRecord, error) {
	query := `
		UPDATE players SET beta_tester = ?2, updated_at = ?3
		WHERE id = ?1
		RETURNING ` + playerColumns

	return r.one(ctx, "set beta tester", query, id, beta, r.now().Unix())
}

// TopByScore retrieves the top players by score, ties ordered by id.
func (r *SQLitePlayerRepository) TopByScore(ctx context.Context, limit int) ([]*model.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+playerColumns+`
		FROM players
		ORDER BY score DESC, id ASC
		LIMIT ?1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.PlayerRecord
	for rows.Next() {
		p, err := scanSQLitePlayer(rows)
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

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SQLiteRoundRepository is the SQLite round log.
type SQLiteRoundRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRoundRepository creates a new SQLiteRoundRepository instance.
func NewSQLiteRoundRepository(db *sql.DB) *SQLiteRoundRepository {
	return &SQLiteRoundRepository{db: db, now: time.Now}
}

func scanSQLiteRound(row rowScanner) (*model.RoundResult, error) {
	var (
		res       model.RoundResult
		createdAt int64
	)
	err := row.Scan(
		&res.ID,
		&res.PlayerID,
		&res.Level,
		&res.Won,
		&res.Delta,
		&res.Prompt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	res.CreatedAt = time.Unix(createdAt, 0)
	return &res, nil
}

// Record appends one resolved round.
func (r *SQLiteRoundRepository) Record(ctx context.Context, res *model.RoundResult) (*model.RoundResult, error) {
	out, err := scanSQLiteRound(r.db.QueryRowContext(ctx, `
		INSERT INTO rounds (player_id, level, won, delta, prompt, created_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6)
		RETURNING id, player_id, level, won, delta, prompt, created_at`,
		res.PlayerID, res.Level, res.Won, res.Delta, res.Prompt, r.now().Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to record round: %w", err)
	}
	return out, nil
}

// RecentByPlayer retrieves a player's latest rounds, newest first.
func (r *SQLiteRoundRepository) RecentByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.RoundResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, player_id, level, won, delta, prompt, created_at
		FROM rounds
		WHERE player_id = ?1
		ORDER BY created_at DESC, id DESC
		LIMIT ?2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rounds: %w", err)
	}
	defer rows.Close()

	var results []*model.RoundResult
	for rows.Next() {
		res, err := scanSQLiteRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}

	return results, nil
}
