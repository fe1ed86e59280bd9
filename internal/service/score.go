package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/model"
	"github.com/face-hh/spotai/internal/pkg/lock"
)

// DefaultStoreTimeout bounds every store call made by a service.
const DefaultStoreTimeout = 5 * time.Second

// ScoreResult is the persisted effect of one resolved round.
type ScoreResult struct {
	Record    *model.PlayerRecord
	Delta     int64
	NewBadges []string
}

// ScoreService applies round outcomes to player records.
type ScoreService struct {
	players PlayerStore
	rounds  RoundLog
	badges  badgeEvaluator
	timeout time.Duration
}

// NewScoreService creates a new ScoreService instance.
func NewScoreService(
	players PlayerStore,
	rounds RoundLog,
	table score.Table,
	userLock *lock.UserLock,
	timeout time.Duration,
) *ScoreService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &ScoreService{
		players: players,
		rounds:  rounds,
		badges:  badgeEvaluator{players: players, table: table, userLock: userLock, timeout: timeout},
		timeout: timeout,
	}
}

// ApplyOutcome records a resolved round for playerID. The score, streak and
// counters move in one atomic store update; newly unlocked badges are
// written afterwards under the player's lock. A non-numeric level returns
// score.ErrInvalidLevel and touches nothing.
func (s *ScoreService) ApplyOutcome(ctx context.Context, playerID int64, username, level, prompt string, won bool) (*ScoreResult, error) {
	delta, err := score.Delta(level, won)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := s.players.GetOrCreate(storeCtx, playerID, username); err != nil {
		return nil, fmt.Errorf("failed to ensure player: %w", err)
	}

	rec, err := s.players.ApplyOutcome(storeCtx, playerID, delta, won)
	if err != nil {
		return nil, fmt.Errorf("failed to apply outcome: %w", err)
	}

	if _, err := s.rounds.Record(storeCtx, &model.RoundResult{
		PlayerID: playerID,
		Level:    level,
		Won:      won,
		Delta:    delta,
		Prompt:   prompt,
	}); err != nil {
		// The score is already committed; a missing log line only affects /stats.
		log.Error().Err(err).Int64("user_id", playerID).Msg("Failed to record round")
	}

	result := &ScoreResult{Record: rec, Delta: delta}

	updated, unlocked, err := s.badges.evaluate(ctx, rec)
	if err != nil {
		// Badges are re-evaluated on the next outcome.
		log.Warn().Err(err).Int64("user_id", playerID).Msg("Failed to persist badges")
		return result, nil
	}
	result.Record = updated
	result.NewBadges = unlocked

	log.Info().
		Int64("user_id", playerID).
		Str("level", level).
		Bool("won", won).
		Int64("delta", delta).
		Int64("score", updated.Score).
		Int64("streak", updated.Streak).
		Msg("Round outcome applied")

	return result, nil
}

// badgeEvaluator unlocks badges for a freshly read record.
type badgeEvaluator struct {
	players  PlayerStore
	table    score.Table
	userLock *lock.UserLock
	timeout  time.Duration
}

// evaluate persists the titles of rec's newly true predicates and returns
// the updated record together with them. The record is read again under the
// player's lock so a badge is reported once.
func (e badgeEvaluator) evaluate(ctx context.Context, rec *model.PlayerRecord) (*model.PlayerRecord, []string, error) {
	if len(score.Evaluate(e.table, rec)) == 0 {
		return rec, nil, nil
	}

	updated := rec
	var unlocked []string
	err := e.userLock.WithLockContext(ctx, rec.ID, e.timeout, func() error {
		storeCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		current, err := e.players.GetByID(storeCtx, rec.ID)
		if err != nil {
			return err
		}
		unlocked = score.Evaluate(e.table, current)
		if len(unlocked) == 0 {
			return nil
		}
		updated, err = e.players.AddBadges(storeCtx, rec.ID, unlocked)
		return err
	})
	if err != nil {
		return rec, nil, err
	}

	if len(unlocked) > 0 {
		log.Info().
			Int64("user_id", rec.ID).
			Strs("badges", unlocked).
			Msg("Badges unlocked")
	}

	return updated, unlocked, nil
}
