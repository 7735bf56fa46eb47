// Package sync refreshes the account cache from the terminal, one account at a time.
package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"terminal_bridge/internal/broker"
	"terminal_bridge/internal/cache"
	"terminal_bridge/internal/metrics"
	"terminal_bridge/internal/models"
	"terminal_bridge/internal/registry"
	"terminal_bridge/internal/session"
)

// Cycle triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// CredentialResolver resolves a managed account's credential reference.
type CredentialResolver interface {
	Resolve(ref string) (broker.Credential, error)
}

// SessionRunner runs reads against the terminal under one account's session.
type SessionRunner interface {
	WithSession(ctx context.Context, accountID int64, cred broker.Credential, fn func(ctx context.Context, h *session.Handle) error) error
}

// CycleResult contains the result of one refresh pass over all accounts.
type CycleResult struct {
	ID                string           `json:"id"`
	Trigger           string           `json:"trigger"`
	StartedAt         time.Time        `json:"startedAt"`
	CompletedAt       time.Time        `json:"completedAt"`
	AccountsRefreshed int              `json:"accountsRefreshed"`
	AccountsFailed    int              `json:"accountsFailed"`
	Failures          map[int64]string `json:"failures,omitempty"`
	Canceled          bool             `json:"canceled,omitempty"`
}

// Duration is how long the cycle took.
func (r *CycleResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Service runs refresh cycles.
type Service struct {
	registry          *registry.Registry
	creds             CredentialResolver
	sessions          SessionRunner
	cache             *cache.AccountCache
	interAccountDelay time.Duration
	historySize       int

	// cycleSem keeps a forced cycle and a scheduled one from interleaving.
	cycleSem *semaphore.Weighted
	// position is the running cycle's account index plus one, 0 when idle.
	position atomic.Int64

	histMu  sync.RWMutex
	history []CycleResult // oldest first, at most historySize
}

// NewService creates a new sync service.
func NewService(
	reg *registry.Registry,
	creds CredentialResolver,
	sessions SessionRunner,
	accountCache *cache.AccountCache,
	interAccountDelay time.Duration,
	historySize int,
) *Service {
	if historySize <= 0 {
		historySize = 1
	}
	return &Service{
		registry:          reg,
		creds:             creds,
		sessions:          sessions,
		cache:             accountCache,
		interAccountDelay: interAccountDelay,
		historySize:       historySize,
		cycleSem:          semaphore.NewWeighted(1),
	}
}

// RunCycle visits every managed account in registry order and refreshes its
// cache entry. A failing account is logged and skipped; its old entry is kept
// and tagged cached. The returned error is non-nil only when ctx ended the
// cycle early, in which case the partial result is still returned. If ctx
// ends while another cycle is still running, no cycle is started and the
// result is nil.
func (s *Service) RunCycle(ctx context.Context, trigger string) (*CycleResult, error) {
	if err := s.cycleSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for the running refresh cycle: %w", err)
	}
	defer s.cycleSem.Release(1)
	defer s.position.Store(0)

	result := &CycleResult{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
		Failures:  make(map[int64]string),
	}
	logger := log.WithFields(log.Fields{"cycle_id": result.ID, "trigger": trigger})
	logger.Infof("[Sync] Starting refresh cycle over %d accounts", s.registry.Len())

	var cycleErr error
	for i, acc := range s.registry.All() {
		if i > 0 && s.interAccountDelay > 0 {
			if err := sleep(ctx, s.interAccountDelay); err != nil {
				cycleErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			cycleErr = err
			break
		}

		s.position.Store(int64(i + 1))
		if err := s.refreshAccount(ctx, acc); err != nil {
			// Log error but continue with other accounts
			logger.WithField("account_id", acc.ID).WithError(err).Warn("[Sync] Account refresh failed")
			s.cache.MarkCached(acc.ID)
			result.AccountsFailed++
			result.Failures[acc.ID] = err.Error()
			metrics.CycleFailures.Add(1)
			continue
		}
		result.AccountsRefreshed++
	}

	result.CompletedAt = time.Now()
	result.Canceled = cycleErr != nil
	s.record(*result)
	metrics.CycleRuns.Add(1)

	logger.WithFields(log.Fields{
		"refreshed": result.AccountsRefreshed,
		"failed":    result.AccountsFailed,
		"duration":  result.Duration().Round(time.Millisecond),
	}).Info("[Sync] Refresh cycle complete")

	if cycleErr != nil {
		return result, fmt.Errorf("refresh cycle interrupted: %w", cycleErr)
	}
	return result, nil
}

// Position returns the registry index of the account the running cycle is
// on. running is false between cycles.
func (s *Service) Position() (accountIndex int, running bool) {
	p := s.position.Load()
	if p == 0 {
		return 0, false
	}
	return int(p - 1), true
}

// refreshAccount reads one account under its own session and writes the cache.
// Nothing is written unless the whole session succeeded.
func (s *Service) refreshAccount(ctx context.Context, acc models.ManagedAccount) error {
	cred, err := s.creds.Resolve(acc.CredentialRef)
	if err != nil {
		return fmt.Errorf("resolving credential: %w", err)
	}

	var info *broker.AccountInfo
	err = s.sessions.WithSession(ctx, acc.ID, cred, func(ctx context.Context, h *session.Handle) error {
		var err error
		info, err = h.AccountInfo(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.Set(acc.ID, snapshotFromInfo(acc.ID, info, time.Now()))
	log.WithField("account_id", acc.ID).Debugf("[Sync] Cached balance=%s equity=%s", info.Balance, info.Equity)
	return nil
}

func snapshotFromInfo(accountID int64, info *broker.AccountInfo, ts time.Time) models.AccountSnapshot {
	return models.AccountSnapshot{
		AccountID:   accountID,
		Balance:     info.Balance,
		Equity:      info.Equity,
		Profit:      info.Profit,
		Margin:      info.Margin,
		FreeMargin:  info.FreeMargin,
		MarginLevel: info.MarginLevel,
		Currency:    info.Currency,
		Leverage:    info.Leverage,
		Timestamp:   ts,
		Source:      models.SourceLive,
	}
}

func (s *Service) record(result CycleResult) {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	s.history = append(s.history, result)
	if len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
}

// History returns the recorded cycles, newest first.
func (s *Service) History() []CycleResult {
	s.histMu.RLock()
	defer s.histMu.RUnlock()
	out := make([]CycleResult, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	return out
}

// LastCycle returns the most recent cycle, or nil before the first one.
func (s *Service) LastCycle() *CycleResult {
	s.histMu.RLock()
	defer s.histMu.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	last := s.history[len(s.history)-1]
	return &last
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
