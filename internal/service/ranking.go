package service

import (
	"context"
	"fmt"
	"time"

	"github.com/face-hh/spotai/internal/model"
)

// DefaultLeaderboardSize is the number of entries /leaderboard shows.
const DefaultLeaderboardSize = 10

// RankingService builds the leaderboard. It never writes.
type RankingService struct {
	players PlayerStore
	timeout time.Duration
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(players PlayerStore, timeout time.Duration) *RankingService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &RankingService{
		players: players,
		timeout: timeout,
	}
}

// TopN returns at most n players by score descending. Rank is the 1-based
// position; equal scores keep the store order, which is ascending player id.
func (s *RankingService) TopN(ctx context.Context, n int) ([]model.RankEntry, error) {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	players, err := s.players.TopByScore(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	return rankPlayers(players, n), nil
}

func rankPlayers(players []*model.PlayerRecord, n int) []model.RankEntry {
	if len(players) > n {
		players = players[:n]
	}
	entries := make([]model.RankEntry, 0, len(players))
	for i, p := range players {
		entries = append(entries, model.RankEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Username: p.Username,
			Score:    p.Score,
		})
	}
	return entries
}
