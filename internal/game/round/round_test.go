package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/face-hh/spotai/internal/model"
)

// fakeDrawer deals artifacts with a fixed AI slot.
type fakeDrawer struct {
	mu     sync.Mutex
	aiSlot int
	calls  int
	err    error
}

func (d *fakeDrawer) Deal(ctx context.Context, level string) (*model.Artifact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.calls++
	if level == "" {
		level = "3"
	}
	return &model.Artifact{
		Image:  []byte{0xff, 0xd8},
		Level:  level,
		AISlot: d.aiSlot,
		Prompt: fmt.Sprintf("prompt %d", d.calls),
	}, nil
}

func (d *fakeDrawer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

const owner int64 = 42

func armRound(t *testing.T, m *Manager, hook func(Snapshot)) *Round {
	t.Helper()
	r, err := m.Arm(context.Background(), owner, "2", hook)
	require.NoError(t, err)
	return r
}

func TestArm_IssuesTokens(t *testing.T) {
	m := NewManager(&fakeDrawer{aiSlot: model.SlotRight}, time.Minute)
	r := armRound(t, m, nil)
	defer m.Shutdown()

	s := r.Snapshot()
	assert.Equal(t, StateArmed, s.State)
	assert.Equal(t, 1, s.Generation)
	assert.Equal(t, owner, s.OwnerID)
	assert.Equal(t, "2", s.Artifact.Level)
	assert.NotEmpty(t, s.Choices[0])
	assert.NotEmpty(t, s.Choices[1])
	assert.NotEqual(t, s.Choices[0], s.Choices[1])
	assert.Empty(t, s.Restart)
	assert.True(t, s.Deadline.After(time.Now()))
	assert.Equal(t, 1, m.Active())
}

func TestArm_DrawError(t *testing.T) {
	drawErr := errors.New("no pairs")
	m := NewManager(&fakeDrawer{err: drawErr}, time.Minute)

	_, err := m.Arm(context.Background(), owner, "5", nil)
	assert.ErrorIs(t, err, drawErr)
	assert.Equal(t, 0, m.Active())
}

func TestNewManager_DefaultTimeout(t *testing.T) {
	m := NewManager(&fakeDrawer{}, 0)
	assert.Equal(t, DefaultIdleTimeout, m.IdleTimeout())
}

func TestSubmitChoice_WinAndLoss(t *testing.T) {
	m := NewManager(&fakeDrawer{aiSlot: model.SlotRight}, time.Minute)
	defer m.Shutdown()

	r := armRound(t, m, nil)
	out, err := m.SubmitChoice(r.Snapshot().Choices[model.SlotRight], owner)
	require.NoError(t, err)
	assert.True(t, out.Won)
	assert.Equal(t, model.SlotRight, out.ChosenSlot)
	assert.Equal(t, "2", out.Artifact.Level)
	assert.Equal(t, StateResolved, out.Round.State)
	assert.NotEmpty(t, out.Round.Restart)

	r2 := armRound(t, m, nil)
	out, err = m.SubmitChoice(r2.Snapshot().Choices[model.SlotLeft], owner)
	require.NoError(t, err)
	assert.False(t, out.Won)
}

func TestSubmitChoice_Forbidden(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)
	tok := r.Snapshot().Choices[0]

	_, err := m.SubmitChoice(tok, owner+1)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, StateArmed, r.State())

	_, err = m.SubmitChoice(tok, owner)
	assert.NoError(t, err)

	// Still forbidden after resolution; ownership is checked before state.
	_, err = m.Restart(context.Background(), r.Snapshot().Restart, owner+1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitChoice_UnknownToken(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)

	_, err := m.SubmitChoice("nope", owner)
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = m.SubmitChoice(r.Snapshot().Choices[0], owner)
	require.NoError(t, err)

	// A restart token is not a choice.
	_, err = m.SubmitChoice(r.Snapshot().Restart, owner)
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = m.Restart(context.Background(), "nope", owner)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestSubmitChoice_OnlyFirstChoiceCounts(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)
	choices := r.Snapshot().Choices

	_, err := m.SubmitChoice(choices[0], owner)
	require.NoError(t, err)

	for _, tok := range choices {
		_, err := m.SubmitChoice(tok, owner)
		assert.ErrorIs(t, err, ErrUnknownToken)
	}
	assert.Equal(t, StateResolved, r.State())
}

func TestSubmitChoice_ConcurrentClicks(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)
	choices := r.Snapshot().Choices

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := m.SubmitChoice(choices[i%2], owner); err == nil {
				accepted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestRestart_FromResolved(t *testing.T) {
	d := &fakeDrawer{}
	m := NewManager(d, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)
	first := r.Snapshot()

	out, err := m.SubmitChoice(first.Choices[0], owner)
	require.NoError(t, err)
	restart := out.Round.Restart

	s, err := m.Restart(context.Background(), restart, owner)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, s.State)
	assert.Equal(t, 2, s.Generation)
	assert.Equal(t, r.ID, s.RoundID)
	assert.Equal(t, restart, s.Restart)
	assert.Equal(t, "prompt 2", s.Artifact.Prompt)
	assert.NotContains(t, s.Choices, first.Choices[0])
	assert.NotContains(t, s.Choices, first.Choices[1])

	// Tokens of the first generation are gone.
	_, err = m.SubmitChoice(first.Choices[1], owner)
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = m.SubmitChoice(s.Choices[0], owner)
	assert.NoError(t, err)
}

func TestRestart_FromArmed(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)

	out, err := m.SubmitChoice(r.Snapshot().Choices[0], owner)
	require.NoError(t, err)

	s, err := m.Restart(context.Background(), out.Round.Restart, owner)
	require.NoError(t, err)
	s2, err := m.Restart(context.Background(), out.Round.Restart, owner)
	require.NoError(t, err)

	assert.Equal(t, 3, s2.Generation)
	_, err = m.SubmitChoice(s.Choices[0], owner)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRestart_DrawErrorKeepsRound(t *testing.T) {
	d := &fakeDrawer{}
	m := NewManager(d, time.Minute)
	defer m.Shutdown()
	r := armRound(t, m, nil)

	out, err := m.SubmitChoice(r.Snapshot().Choices[0], owner)
	require.NoError(t, err)

	drawErr := errors.New("render failed")
	d.setErr(drawErr)
	_, err = m.Restart(context.Background(), out.Round.Restart, owner)
	assert.ErrorIs(t, err, drawErr)
	assert.Equal(t, StateResolved, r.State())

	d.setErr(nil)
	_, err = m.Restart(context.Background(), out.Round.Restart, owner)
	assert.NoError(t, err)
}

func TestExpiry_RunsHookOnce(t *testing.T) {
	m := NewManager(&fakeDrawer{}, 30*time.Millisecond)
	expired := make(chan Snapshot, 4)
	r := armRound(t, m, func(s Snapshot) { expired <- s })
	tok := r.Snapshot().Choices[0]

	select {
	case s := <-expired:
		assert.Equal(t, StateExpired, s.State)
		assert.Equal(t, r.ID, s.RoundID)
	case <-time.After(2 * time.Second):
		t.Fatal("round did not expire")
	}

	_, err := m.SubmitChoice(tok, owner)
	assert.ErrorIs(t, err, ErrUnknownToken)
	assert.Equal(t, 0, m.Active())

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, expired, 0)
}

func TestExpiry_AfterResolutionRejectsRestart(t *testing.T) {
	m := NewManager(&fakeDrawer{}, 200*time.Millisecond)
	expired := make(chan Snapshot, 1)
	r := armRound(t, m, func(s Snapshot) { expired <- s })

	out, err := m.SubmitChoice(r.Snapshot().Choices[0], owner)
	require.NoError(t, err)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("round did not expire")
	}

	_, err = m.Restart(context.Background(), out.Round.Restart, owner)
	assert.ErrorIs(t, err, ErrNotArmed)

	// The restart token is dropped once the grace period is over.
	require.Eventually(t, func() bool {
		_, err := m.Restart(context.Background(), out.Round.Restart, owner)
		return errors.Is(err, ErrUnknownToken)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStaleTimerIsNoop(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()

	var hookCalls atomic.Int32
	r := armRound(t, m, func(Snapshot) { hookCalls.Add(1) })

	r.mu.Lock()
	stale := r.epoch
	r.mu.Unlock()

	_, err := m.SubmitChoice(r.Snapshot().Choices[0], owner)
	require.NoError(t, err)

	// Simulates the first timer firing after Stop lost the race.
	r.expire(stale)

	assert.Equal(t, StateResolved, r.State())
	assert.Equal(t, int32(0), hookCalls.Load())
}

func TestShutdown(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)

	var hookCalls atomic.Int32
	hook := func(Snapshot) { hookCalls.Add(1) }
	r1 := armRound(t, m, hook)
	r2 := armRound(t, m, hook)
	tok := r1.Snapshot().Choices[0]
	require.Equal(t, 2, m.Active())

	m.Shutdown()

	assert.Equal(t, 0, m.Active())
	assert.Equal(t, StateExpired, r2.State())
	_, err := m.SubmitChoice(tok, owner)
	assert.ErrorIs(t, err, ErrUnknownToken)
	assert.Equal(t, int32(0), hookCalls.Load())
}

func TestConcurrentRoundsPerPlayerAreIndependent(t *testing.T) {
	m := NewManager(&fakeDrawer{}, time.Minute)
	defer m.Shutdown()

	r1 := armRound(t, m, nil)
	r2 := armRound(t, m, nil)
	assert.NotEqual(t, r1.ID, r2.ID)

	_, err := m.SubmitChoice(r1.Snapshot().Choices[0], owner)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, r2.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "armed", StateArmed.String())
	assert.Equal(t, "resolved", StateResolved.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "unknown", State(9).String())
}
