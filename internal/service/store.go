package service

import (
	"context"

	"github.com/face-hh/spotai/internal/model"
)

// PlayerStore persists player records. Implementations must apply
// ApplyOutcome as a single store-side update.
type PlayerStore interface {
	GetByID(ctx context.Context, id int64) (*model.PlayerRecord, error)
	GetOrCreate(ctx context.Context, id int64, username string) (*model.PlayerRecord, bool, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
	ApplyOutcome(ctx context.Context, id int64, delta int64, won bool) (*model.PlayerRecord, error)
	AddBadges(ctx context.Context, id int64, titles []string) (*model.PlayerRecord, error)
	SetBetaTester(ctx context.Context, id int64, beta bool) (*model.PlayerRecord, error)
	TopByScore(ctx context.Context, limit int) ([]*model.PlayerRecord, error)
}

// RoundLog records resolved rounds.
type RoundLog interface {
	Record(ctx context.Context, res *model.RoundResult) (*model.RoundResult, error)
	RecentByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.RoundResult, error)
}
