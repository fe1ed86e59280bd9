package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/face-hh/spotai/internal/game/score"
	"github.com/face-hh/spotai/internal/model"
	"github.com/face-hh/spotai/internal/repository"
)

// memStore is an in-memory PlayerStore and RoundLog. Every method is atomic
// with respect to the others, like a single SQL statement.
type memStore struct {
	mu        sync.Mutex
	players   map[int64]*model.PlayerRecord
	rounds    []*model.RoundResult
	calls     int
	recordErr error
}

func newMemStore() *memStore {
	return &memStore{players: make(map[int64]*model.PlayerRecord)}
}

func clone(p *model.PlayerRecord) *model.PlayerRecord {
	c := *p
	c.Badges = append([]string{}, p.Badges...)
	return &c
}

func (m *memStore) put(p *model.PlayerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = clone(p)
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	return clone(p), nil
}

func (m *memStore) GetOrCreate(ctx context.Context, id int64, username string) (*model.PlayerRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if p, ok := m.players[id]; ok {
		return clone(p), false, nil
	}
	p := &model.PlayerRecord{ID: id, Username: username, Badges: []string{}}
	m.players[id] = p
	return clone(p), true, nil
}

func (m *memStore) UpdateUsername(ctx context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.players[id]
	if !ok {
		return repository.ErrPlayerNotFound
	}
	p.Username = username
	return nil
}

func (m *memStore) ApplyOutcome(ctx context.Context, id int64, delta int64, won bool) (*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.Score += delta
	p.GamesPlayed++
	if won {
		p.Streak++
		p.GamesWon++
	} else {
		p.Streak = 0
		p.GamesLost++
	}
	if p.Streak > p.HighestStreak {
		p.HighestStreak = p.Streak
	}
	return clone(p), nil
}

func (m *memStore) AddBadges(ctx context.Context, id int64, titles []string) (*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.Badges = score.Merge(p.Badges, titles...)
	return clone(p), nil
}

func (m *memStore) SetBetaTester(ctx context.Context, id int64, beta bool) (*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.BetaTester = beta
	return clone(p), nil
}

func (m *memStore) TopByScore(ctx context.Context, limit int) ([]*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	all := make([]*model.PlayerRecord, 0, len(m.players))
	for _, p := range m.players {
		all = append(all, clone(p))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memStore) Record(ctx context.Context, res *model.RoundResult) (*model.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	c := *res
	c.ID = int64(len(m.rounds) + 1)
	m.rounds = append(m.rounds, &c)
	return &c, nil
}

func (m *memStore) RecentByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []*model.RoundResult
	for i := len(m.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rounds[i].PlayerID == playerID {
			c := *m.rounds[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var errStoreDown = errors.New("store down")
