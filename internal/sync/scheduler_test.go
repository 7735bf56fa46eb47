package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitionLog struct {
	mu    sync.Mutex
	steps []State
}

func (l *transitionLog) record(_, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, to)
}

func (l *transitionLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.steps...)
}

func TestScheduler_Lifecycle(t *testing.T) {
	f := newFixture(t, 10)
	s := NewScheduler(f.svc, 10*time.Millisecond, 20*time.Millisecond)
	log := &transitionLog{}
	s.onTransition = log.record

	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	require.Eventually(t, func() bool {
		return len(f.svc.History()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Equal(t, StateIdle, s.State())

	steps := log.snapshot()
	require.GreaterOrEqual(t, len(steps), 5)
	assert.Equal(t, []State{StateSleeping, StateRunning, StateSleeping, StateRunning}, steps[:4])
	assert.Equal(t, StateIdle, steps[len(steps)-1])

	for _, r := range f.svc.History() {
		assert.Equal(t, TriggerScheduled, r.Trigger)
	}
	assert.Equal(t, 3, f.cache.Count())
}

func TestScheduler_StopDuringWarmup(t *testing.T) {
	f := newFixture(t, 10)
	s := NewScheduler(f.svc, time.Hour, time.Hour)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.State() == StateSleeping }, time.Second, time.Millisecond)

	s.Stop()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, f.svc.History())
	assert.Equal(t, 0, f.term.Counters().Login)

	// Stopped schedulers can be started again.
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestScheduler_StopIsSafeWhenNotStarted(t *testing.T) {
	f := newFixture(t, 10)
	s := NewScheduler(f.svc, time.Hour, time.Hour)
	s.Stop()
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_ForceRefresh(t *testing.T) {
	f := newFixture(t, 10)
	s := NewScheduler(f.svc, time.Hour, time.Hour)

	result, err := s.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TriggerManual, result.Trigger)
	assert.Equal(t, 3, result.AccountsRefreshed)
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_InvalidTransitionIgnored(t *testing.T) {
	f := newFixture(t, 10)
	s := NewScheduler(f.svc, time.Hour, time.Hour)

	s.transition(StateRunning)
	assert.Equal(t, StateIdle, s.State())
}
