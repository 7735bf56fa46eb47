package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State is the scheduler's position in its refresh loop.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
)

// ErrAlreadyStarted is returned by Start on a scheduler that is already running.
var ErrAlreadyStarted = errors.New("scheduler already started")

var transitions = map[State][]State{
	StateIdle:     {StateSleeping},
	StateSleeping: {StateRunning, StateIdle},
	StateRunning:  {StateSleeping, StateIdle},
}

// Scheduler drives the background refresh loop:
//
//	Idle -> Sleeping (warmup) -> Running(accountIndex) -> Sleeping (interval) -> Running ... -> Idle
//
// The warmup before the first cycle is spent in Sleeping. While Running, the
// account index is reported by AccountIndex.
// A single goroutine owns the loop; Stop returns it to Idle.
type Scheduler struct {
	svc      *Service
	warmup   time.Duration
	interval time.Duration

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	// onTransition, when set, is called after every state change.
	onTransition func(from, to State)
}

// NewScheduler creates an idle scheduler.
func NewScheduler(svc *Service, warmup, interval time.Duration) *Scheduler {
	return &Scheduler{
		svc:      svc,
		warmup:   warmup,
		interval: interval,
		state:    StateIdle,
	}
}

// Start launches the refresh loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for the in-flight account, if any, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
}

// State returns the current loop state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AccountIndex returns the registry index of the account being refreshed.
// ok is false when no cycle is running.
func (s *Scheduler) AccountIndex() (index int, ok bool) {
	return s.svc.Position()
}

// ForceRefresh runs one cycle now, outside the schedule. It waits for a
// scheduled cycle in progress to finish first.
func (s *Scheduler) ForceRefresh(ctx context.Context) (*CycleResult, error) {
	log.Info("[Sync] Forced refresh requested")
	return s.svc.RunCycle(ctx, TriggerManual)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.transition(StateIdle)

	log.WithFields(log.Fields{
		"warmup":   s.warmup,
		"interval": s.interval,
	}).Info("[Sync] Scheduler started")

	s.transition(StateSleeping)
	if err := sleep(ctx, s.warmup); err != nil {
		log.Info("[Sync] Scheduler stopped during warmup")
		return
	}

	for {
		s.transition(StateRunning)
		if _, err := s.svc.RunCycle(ctx, TriggerScheduled); err != nil {
			log.WithError(err).Info("[Sync] Scheduled cycle interrupted")
		}

		s.transition(StateSleeping)
		if err := sleep(ctx, s.interval); err != nil {
			log.Info("[Sync] Scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) transition(to State) {
	s.mu.Lock()
	from := s.state
	allowed := false
	for _, next := range transitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		s.mu.Unlock()
		log.Errorf("[Sync] Invalid scheduler transition %s -> %s", from, to)
		return
	}
	s.state = to
	hook := s.onTransition
	s.mu.Unlock()

	log.Debugf("[Sync] Scheduler %s -> %s", from, to)
	if hook != nil {
		hook(from, to)
	}
}
