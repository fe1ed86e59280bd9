package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/face-hh/spotai/internal/model"
)

// playerStore is the method set both player repositories share.
type playerStore interface {
	Create(ctx context.Context, id int64, username string) (*model.PlayerRecord, error)
	GetByID(ctx context.Context, id int64) (*model.PlayerRecord, error)
	GetOrCreate(ctx context.Context, id int64, username string) (*model.PlayerRecord, bool, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
	ApplyOutcome(ctx context.Context, id int64, delta int64, won bool) (*model.PlayerRecord, error)
	AddBadges(ctx context.Context, id int64, titles []string) (*model.PlayerRecord, error)
	SetBetaTester(ctx context.Context, id int64, beta bool) (*model.PlayerRecord, error)
	TopByScore(ctx context.Context, limit int) ([]*model.PlayerRecord, error)
}

type roundLog interface {
	Record(ctx context.Context, res *model.RoundResult) (*model.RoundResult, error)
	RecentByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.RoundResult, error)
}

// runPlayerStoreTests exercises a fresh, empty store.
func runPlayerStoreTests(t *testing.T, newStore func(t *testing.T) playerStore) {
	t.Run("GetOrCreate", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		p, created, err := repo.GetOrCreate(ctx, 12345, "alice")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(12345), p.ID)
		assert.Equal(t, "alice", p.Username)
		assert.Equal(t, int64(0), p.Score)
		assert.Equal(t, int64(0), p.GamesPlayed)
		assert.Empty(t, p.Badges)
		assert.False(t, p.BetaTester)
		assert.False(t, p.CreatedAt.IsZero())

		p, created, err = repo.GetOrCreate(ctx, 12345, "alice")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(12345), p.ID)

		_, err = repo.GetByID(ctx, 99999)
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("UpdateUsername", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, 1, "old")
		require.NoError(t, err)
		require.NoError(t, repo.UpdateUsername(ctx, 1, "new"))

		p, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "new", p.Username)

		assert.ErrorIs(t, repo.UpdateUsername(ctx, 2, "x"), ErrPlayerNotFound)
	})

	t.Run("ApplyOutcome", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, 1, "bob")
		require.NoError(t, err)

		p, err := repo.ApplyOutcome(ctx, 1, 3, true)
		require.NoError(t, err)
		p, err = repo.ApplyOutcome(ctx, 1, 2, true)
		require.NoError(t, err)
		assert.Equal(t, int64(5), p.Score)
		assert.Equal(t, int64(2), p.Streak)
		assert.Equal(t, int64(2), p.HighestStreak)
		assert.Equal(t, int64(2), p.GamesWon)

		p, err = repo.ApplyOutcome(ctx, 1, -4, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.Score)
		assert.Equal(t, int64(0), p.Streak)
		assert.Equal(t, int64(2), p.HighestStreak)
		assert.Equal(t, int64(3), p.GamesPlayed)
		assert.Equal(t, int64(2), p.GamesWon)
		assert.Equal(t, int64(1), p.GamesLost)

		p, err = repo.ApplyOutcome(ctx, 1, -5, false)
		require.NoError(t, err)
		assert.Equal(t, int64(-4), p.Score)

		_, err = repo.ApplyOutcome(ctx, 2, 1, true)
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("ApplyOutcomeConcurrent", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, 1, "carol")
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.ApplyOutcome(ctx, 1, 2, true)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		p, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2*n), p.Score)
		assert.Equal(t, int64(n), p.Streak)
		assert.Equal(t, int64(n), p.HighestStreak)
		assert.Equal(t, int64(n), p.GamesPlayed)
	})

	t.Run("AddBadges", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, 1, "dave")
		require.NoError(t, err)

		p, err := repo.AddBadges(ctx, 1, []string{"Beta Tester"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Beta Tester"}, p.Badges)

		p, err = repo.AddBadges(ctx, 1, []string{"Beta Tester", "100 Streaks"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Beta Tester", "100 Streaks"}, p.Badges)

		_, err = repo.AddBadges(ctx, 2, []string{"x"})
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("SetBetaTester", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, 1, "erin")
		require.NoError(t, err)

		p, err := repo.SetBetaTester(ctx, 1, true)
		require.NoError(t, err)
		assert.True(t, p.BetaTester)

		_, err = repo.SetBetaTester(ctx, 2, true)
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("TopByScore", func(t *testing.T) {
		repo := newStore(t)
		ctx := context.Background()

		scores := map[int64]int64{3: 50, 1: 50, 2: 30, 4: -10}
		for id, score := range scores {
			_, err := repo.Create(ctx, id, "p")
			require.NoError(t, err)
			_, err = repo.ApplyOutcome(ctx, id, score, score > 0)
			require.NoError(t, err)
		}

		top, err := repo.TopByScore(ctx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, int64(1), top[0].ID)
		assert.Equal(t, int64(3), top[1].ID)
		assert.Equal(t, int64(2), top[2].ID)
		assert.Equal(t, int64(30), top[2].Score)
	})
}

func runRoundLogTests(t *testing.T, newStores func(t *testing.T) (playerStore, roundLog)) {
	t.Run("RecordAndRecent", func(t *testing.T) {
		players, rounds := newStores(t)
		ctx := context.Background()

		_, err := players.Create(ctx, 1, "frank")
		require.NoError(t, err)
		_, err = players.Create(ctx, 2, "gina")
		require.NoError(t, err)

		for i, won := range []bool{true, false, true} {
			res, err := rounds.Record(ctx, &model.RoundResult{
				PlayerID: 1,
				Level:    "3",
				Won:      won,
				Delta:    int64(i + 1),
				Prompt:   "cat",
			})
			require.NoError(t, err)
			assert.NotZero(t, res.ID)
			assert.False(t, res.CreatedAt.IsZero())
		}
		_, err = rounds.Record(ctx, &model.RoundResult{PlayerID: 2, Level: "1", Won: true, Delta: 1})
		require.NoError(t, err)

		recent, err := rounds.RecentByPlayer(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, int64(3), recent[0].Delta)
		assert.True(t, recent[0].Won)
		assert.Equal(t, int64(2), recent[1].Delta)
		assert.False(t, recent[1].Won)

		none, err := rounds.RecentByPlayer(ctx, 99, 5)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
