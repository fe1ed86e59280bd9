package round

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/face-hh/spotai/internal/model"
)

// DefaultIdleTimeout is how long a round waits for an interaction.
const DefaultIdleTimeout = 60 * time.Second

// Drawer produces the artifact for a new round or generation.
type Drawer interface {
	Deal(ctx context.Context, level string) (*model.Artifact, error)
}

// Outcome is the result of an accepted choice.
type Outcome struct {
	Won        bool
	ChosenSlot int
	Artifact   *model.Artifact
	Round      Snapshot
}

// Manager issues rounds and routes tokens to them.
type Manager struct {
	drawer      Drawer
	idleTimeout time.Duration
	registry    *registry
}

// NewManager creates a manager. A non-positive idleTimeout selects
// DefaultIdleTimeout.
func NewManager(drawer Drawer, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		drawer:      drawer,
		idleTimeout: idleTimeout,
		registry:    newRegistry(),
	}
}

// IdleTimeout returns the per-round idle timeout.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Arm deals an artifact for level and opens a round for ownerID. onExpire
// runs on the timer goroutine once the round expires; it may be nil.
// Rounds of the same owner are independent of each other.
func (m *Manager) Arm(ctx context.Context, ownerID int64, level string, onExpire func(Snapshot)) (*Round, error) {
	art, err := m.drawer.Deal(ctx, level)
	if err != nil {
		return nil, err
	}

	r := &Round{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Level:    level,
		onExpire: onExpire,
		manager:  m,
	}

	r.mu.Lock()
	r.armLocked(art)
	r.mu.Unlock()

	log.Debug().
		Str("round_id", r.ID).
		Int64("user_id", ownerID).
		Str("level", art.Level).
		Msg("Round armed")

	return r, nil
}

// SubmitChoice resolves the round behind a choice token. Only the first
// choice of a generation is accepted.
func (m *Manager) SubmitChoice(token string, actorID int64) (*Outcome, error) {
	b, ok := m.registry.Get(token)
	if !ok || b.kind != kindChoice {
		return nil, ErrUnknownToken
	}

	r := b.round
	r.mu.Lock()
	defer r.mu.Unlock()

	if actorID != r.OwnerID {
		return nil, ErrForbidden
	}
	switch r.state {
	case StateExpired:
		return nil, ErrExpired
	case StateResolved:
		return nil, ErrUnknownToken
	}
	if r.choices[b.slot] != token {
		return nil, ErrUnknownToken
	}

	art := r.artifact
	won := r.resolveLocked(b.slot)

	return &Outcome{
		Won:        won,
		ChosenSlot: b.slot,
		Artifact:   art,
		Round:      r.snapshotLocked(),
	}, nil
}

// Restart deals a new artifact into the round behind a restart token and
// re-arms it. The restart token itself stays valid.
func (m *Manager) Restart(ctx context.Context, token string, actorID int64) (Snapshot, error) {
	b, ok := m.registry.Get(token)
	if !ok || b.kind != kindRestart {
		return Snapshot{}, ErrUnknownToken
	}

	r := b.round
	r.mu.Lock()
	defer r.mu.Unlock()

	if actorID != r.OwnerID {
		return Snapshot{}, ErrForbidden
	}
	if r.state == StateExpired {
		return Snapshot{}, ErrNotArmed
	}

	art, err := m.drawer.Deal(ctx, r.Level)
	if err != nil {
		return Snapshot{}, err
	}
	r.armLocked(art)

	log.Debug().
		Str("round_id", r.ID).
		Int("generation", r.generation).
		Msg("Round restarted")

	return r.snapshotLocked(), nil
}

// Active returns the number of rounds that are not expired.
func (m *Manager) Active() int {
	n := 0
	for _, r := range m.registry.Rounds() {
		if r.State() != StateExpired {
			n++
		}
	}
	return n
}

// Shutdown cancels every live round without running expiry hooks.
func (m *Manager) Shutdown() {
	rounds := m.registry.Rounds()
	for _, r := range rounds {
		r.mu.Lock()
		r.stopLocked()
		r.mu.Unlock()
	}
	log.Info().Int("rounds", len(rounds)).Msg("Round manager stopped")
}

func (m *Manager) newToken() string {
	return uuid.NewString()
}

// forgetLater drops token after one more idle period.
func (m *Manager) forgetLater(token string) {
	time.AfterFunc(m.idleTimeout, func() {
		m.registry.Unregister(token)
	})
}
