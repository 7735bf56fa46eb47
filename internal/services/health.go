package services

import (
	"context"
	"time"

	"terminal_bridge/internal/cache"
	"terminal_bridge/internal/registry"
	"terminal_bridge/internal/sync"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// TerminalStatus is the read side of the terminal connection manager.
type TerminalStatus interface {
	Initialized() bool
	Connected(ctx context.Context) bool
	LastError() error
}

// SessionStatus reports which account the terminal is on.
type SessionStatus interface {
	CurrentAccount() int64
}

// SchedulerStatus reports the refresh loop state.
type SchedulerStatus interface {
	State() sync.State
	AccountIndex() (index int, ok bool)
}

// CycleHistory reports the most recent refresh cycle.
type CycleHistory interface {
	LastCycle() *sync.CycleResult
}

// Health is the bridge's self-report.
type Health struct {
	Status               string            `json:"status"`
	TerminalInitialized  bool              `json:"terminalInitialized"`
	TerminalConnected    bool              `json:"terminalConnected"`
	TerminalError        string            `json:"terminalError,omitempty"`
	CurrentActiveAccount *int64            `json:"currentActiveAccount"`
	CachedCount          int               `json:"cachedCount"`
	TotalManagedCount    int               `json:"totalManagedCount"`
	SchedulerState       sync.State        `json:"schedulerState"`
	CycleAccountIndex    *int              `json:"cycleAccountIndex,omitempty"` // set while a cycle runs
	LastCycle            *sync.CycleResult `json:"lastCycle,omitempty"`
	Version              string            `json:"version"`
	Timestamp            time.Time         `json:"timestamp"`
}

// HealthReporter builds Health without ever logging in.
type HealthReporter struct {
	terminal  TerminalStatus
	sessions  SessionStatus
	registry  *registry.Registry
	cache     *cache.AccountCache
	scheduler SchedulerStatus
	cycles    CycleHistory
	version   string
}

// NewHealthReporter creates a HealthReporter. scheduler and cycles may be nil.
func NewHealthReporter(
	term TerminalStatus,
	sessions SessionStatus,
	reg *registry.Registry,
	accountCache *cache.AccountCache,
	scheduler SchedulerStatus,
	cycles CycleHistory,
	version string,
) *HealthReporter {
	return &HealthReporter{
		terminal:  term,
		sessions:  sessions,
		registry:  reg,
		cache:     accountCache,
		scheduler: scheduler,
		cycles:    cycles,
		version:   version,
	}
}

// GetHealth reports terminal, cache and scheduler state.
func (r *HealthReporter) GetHealth(ctx context.Context) *Health {
	h := &Health{
		TerminalInitialized: r.terminal.Initialized(),
		CachedCount:         r.cache.Count(),
		TotalManagedCount:   r.registry.Len(),
		SchedulerState:      sync.StateIdle,
		Version:             r.version,
		Timestamp:           time.Now(),
	}
	if h.CachedCount > h.TotalManagedCount {
		h.CachedCount = h.TotalManagedCount
	}

	if h.TerminalInitialized {
		h.TerminalConnected = r.terminal.Connected(ctx)
	}
	if err := r.terminal.LastError(); err != nil && !h.TerminalConnected {
		h.TerminalError = err.Error()
	}
	if id := r.sessions.CurrentAccount(); id != 0 {
		h.CurrentActiveAccount = &id
	}
	if r.scheduler != nil {
		h.SchedulerState = r.scheduler.State()
		if idx, ok := r.scheduler.AccountIndex(); ok {
			h.CycleAccountIndex = &idx
		}
	}
	if r.cycles != nil {
		h.LastCycle = r.cycles.LastCycle()
	}

	switch {
	case !h.TerminalInitialized || !h.TerminalConnected:
		h.Status = StatusUnhealthy
	case h.CachedCount == 0:
		h.Status = StatusDegraded
	case h.LastCycle != nil && h.LastCycle.AccountsRefreshed == 0 && h.LastCycle.AccountsFailed > 0:
		h.Status = StatusDegraded
	default:
		h.Status = StatusHealthy
	}

	return h
}
