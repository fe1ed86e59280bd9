package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/model"
	"github.com/face-hh/spotai/internal/pkg/lock"
)

func newPlayerService(store *memStore) *PlayerService {
	return NewPlayerService(store, store, score.DefaultBadges(), lock.NewUserLock(), time.Second)
}

func TestPlayerService_EnsurePlayer(t *testing.T) {
	store := newMemStore()
	svc := newPlayerService(store)
	ctx := context.Background()

	p, created, err := svc.EnsurePlayer(ctx, 1, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), p.Score)
	assert.Empty(t, p.Badges)
	assert.False(t, p.BetaTester)

	p, created, err = svc.EnsurePlayer(ctx, 1, "alice2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice2", p.Username)

	stored, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice2", stored.Username)

	// An empty username keeps the stored one.
	p, _, err = svc.EnsurePlayer(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "alice2", p.Username)
}

func TestPlayerService_Profile(t *testing.T) {
	store := newMemStore()
	svc := newPlayerService(store)
	scoreSvc := newScoreService(store)
	ctx := context.Background()

	for i := 0; i < RecentRounds+2; i++ {
		_, err := scoreSvc.ApplyOutcome(ctx, 1, "bob", "2", "prompt", i%2 == 0)
		require.NoError(t, err)
	}

	prof, err := svc.Profile(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(RecentRounds+2), prof.Record.GamesPlayed)
	require.Len(t, prof.Recent, RecentRounds)
	// Newest first: the last outcome was a win (i == 6).
	assert.True(t, prof.Recent[0].Won)
	assert.False(t, prof.Recent[1].Won)
}

func TestPlayerService_SetBetaTester(t *testing.T) {
	store := newMemStore()
	svc := newPlayerService(store)
	ctx := context.Background()

	p, unlocked, err := svc.SetBetaTester(ctx, 5, true)
	require.NoError(t, err)
	assert.True(t, p.BetaTester)
	assert.Equal(t, []string{"Beta Tester"}, unlocked)
	assert.True(t, p.HasBadge("Beta Tester"))

	_, unlocked, err = svc.SetBetaTester(ctx, 5, true)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	// Clearing the flag keeps the badge.
	p, _, err = svc.SetBetaTester(ctx, 5, false)
	require.NoError(t, err)
	assert.False(t, p.BetaTester)
	assert.Equal(t, []string{"Beta Tester"}, p.Badges)
}

func TestPlayerService_ProfileNewPlayer(t *testing.T) {
	svc := newPlayerService(newMemStore())

	prof, err := svc.Profile(context.Background(), 3, "carol")
	require.NoError(t, err)
	assert.Equal(t, &model.PlayerRecord{ID: 3, Username: "carol", Badges: []string{}}, prof.Record)
	assert.Empty(t, prof.Recent)
}
