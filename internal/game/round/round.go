// Package round implements the lifecycle of a SpotAI round: issuing an
// artifact with its choice tokens, accepting one answer, idle expiry and
// "play again" restarts within the same session.
package round

import (
	"errors"
	"sync"
	"time"

	"github.com/face-hh/spotai/internal/model"
)

// State is the lifecycle state of a round.
type State int

const (
	StateArmed State = iota
	StateResolved
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateResolved:
		return "resolved"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	ErrForbidden    = errors.New("round belongs to another player")
	ErrUnknownToken = errors.New("unknown or stale round token")
	ErrNotArmed     = errors.New("round is not armed")
	ErrExpired      = errors.New("round has expired")
)

// Snapshot is a consistent copy of a round's observable state.
type Snapshot struct {
	RoundID    string
	OwnerID    int64
	State      State
	Generation int
	Artifact   *model.Artifact
	Choices    [2]string // token per slot
	Restart    string    // empty until the first resolution
	Deadline   time.Time
}

// Round is one interactive session owned by a single player. All state is
// guarded by mu; the idle timer is owned by the round and always rescheduled
// under mu.
type Round struct {
	ID      string
	OwnerID int64
	Level   string

	mu         sync.Mutex
	state      State
	generation int
	artifact   *model.Artifact
	choices    [2]string
	restart    string
	timer      *time.Timer
	epoch      uint64
	deadline   time.Time
	onExpire   func(Snapshot)

	manager *Manager
}

// Snapshot returns the current state of the round.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// State returns the current lifecycle state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Round) snapshotLocked() Snapshot {
	return Snapshot{
		RoundID:    r.ID,
		OwnerID:    r.OwnerID,
		State:      r.state,
		Generation: r.generation,
		Artifact:   r.artifact,
		Choices:    r.choices,
		Restart:    r.restart,
		Deadline:   r.deadline,
	}
}

// armLocked installs a fresh artifact with new choice tokens. Tokens of the
// previous generation stop being honored.
func (r *Round) armLocked(art *model.Artifact) {
	reg := r.manager.registry
	r.unregisterChoicesLocked()

	r.generation++
	r.artifact = art
	for slot := range r.choices {
		tok := r.manager.newToken()
		r.choices[slot] = tok
		reg.Register(tok, binding{round: r, kind: kindChoice, slot: slot})
	}
	r.state = StateArmed
	r.scheduleLocked()
}

// resolveLocked consumes the current generation and returns whether slot was
// the AI slot.
func (r *Round) resolveLocked(slot int) bool {
	reg := r.manager.registry
	r.unregisterChoicesLocked()
	if r.restart == "" {
		r.restart = r.manager.newToken()
		reg.Register(r.restart, binding{round: r, kind: kindRestart})
	}
	r.state = StateResolved
	r.scheduleLocked()
	return slot == r.artifact.AISlot
}

// scheduleLocked cancels the running idle timer and starts a new one. A
// callback from an earlier epoch is a no-op even if Stop lost the race.
func (r *Round) scheduleLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.epoch++
	epoch := r.epoch
	idle := r.manager.idleTimeout
	r.deadline = time.Now().Add(idle)
	r.timer = time.AfterFunc(idle, func() { r.expire(epoch) })
}

func (r *Round) expire(epoch uint64) {
	r.mu.Lock()
	if epoch != r.epoch || r.state == StateExpired {
		r.mu.Unlock()
		return
	}
	r.state = StateExpired
	r.timer = nil
	r.unregisterChoicesLocked()
	// The restart token answers ErrNotArmed for one more idle period.
	if r.restart != "" {
		r.manager.forgetLater(r.restart)
	}
	snap := r.snapshotLocked()
	hook := r.onExpire
	r.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
}

// stopLocked cancels the timer without running the expiry hook.
func (r *Round) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.epoch++
	r.state = StateExpired
	r.unregisterLocked()
}

func (r *Round) unregisterLocked() {
	r.unregisterChoicesLocked()
	if r.restart != "" {
		r.manager.registry.Unregister(r.restart)
	}
}

func (r *Round) unregisterChoicesLocked() {
	reg := r.manager.registry
	for i, tok := range r.choices {
		if tok != "" {
			reg.Unregister(tok)
		}
		r.choices[i] = ""
	}
}
