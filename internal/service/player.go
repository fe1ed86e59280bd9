// Package service provides business logic implementations.
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

// RecentRounds is how many round log entries a profile shows.
const RecentRounds = 5

// Profile is a player's record with their latest rounds.
type Profile struct {
	Record *model.PlayerRecord
	Recent []*model.RoundResult
}

// PlayerService handles player records outside of round resolution.
type PlayerService struct {
	players PlayerStore
	rounds  RoundLog
	badges  badgeEvaluator
	timeout time.Duration
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(
	players PlayerStore,
	rounds RoundLog,
	table score.Table,
	userLock *lock.UserLock,
	timeout time.Duration,
) *PlayerService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &PlayerService{
		players: players,
		rounds:  rounds,
		badges:  badgeEvaluator{players: players, table: table, userLock: userLock, timeout: timeout},
		timeout: timeout,
	}
}

// EnsurePlayer ensures a player exists, creating a zeroed record if
// necessary, and keeps the stored username current.
func (s *PlayerService) EnsurePlayer(ctx context.Context, id int64, username string) (*model.PlayerRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, created, err := s.players.GetOrCreate(ctx, id, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure player: %w", err)
	}

	if !created && p.Username != username && username != "" {
		if err := s.players.UpdateUsername(ctx, id, username); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to update username")
		} else {
			p.Username = username
		}
	}

	if created {
		log.Info().Int64("user_id", id).Str("username", username).Msg("New player created")
	}

	return p, created, nil
}

// Profile returns the player's record and latest rounds.
func (s *PlayerService) Profile(ctx context.Context, id int64, username string) (*Profile, error) {
	p, _, err := s.EnsurePlayer(ctx, id, username)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	recent, err := s.rounds.RecentByPlayer(ctx, id, RecentRounds)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent rounds: %w", err)
	}

	return &Profile{Record: p, Recent: recent}, nil
}

// SetBetaTester flags a player as beta tester and evaluates badges right
// away. It returns the updated record and the newly unlocked titles.
func (s *PlayerService) SetBetaTester(ctx context.Context, id int64, beta bool) (*model.PlayerRecord, []string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := s.players.GetOrCreate(storeCtx, id, ""); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure player: %w", err)
	}

	p, err := s.players.SetBetaTester(storeCtx, id, beta)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set beta tester: %w", err)
	}

	log.Info().Int64("user_id", id).Bool("beta_tester", beta).Msg("Beta tester flag updated")

	updated, unlocked, err := s.badges.evaluate(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to evaluate badges: %w", err)
	}
	return updated, unlocked, nil
}
