// Package session serializes all access to the terminal's single login slot.
//
// Every operation that needs an account's data goes through Broker.WithSession,
// which holds the global session lock across login, identity check and the
// caller's reads, so no other caller can switch the terminal in between.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"terminal_bridge/internal/broker"
	apperrors "terminal_bridge/internal/errors"
	"terminal_bridge/internal/metrics"
)

// ErrHandleReleased is returned by Handle methods called after WithSession returned.
var ErrHandleReleased = errors.New("session handle used after release")

// Initializer is the part of the terminal connection manager the broker needs.
// Invalidate is called when the terminal reports it lost its connection, so
// the next session reinitializes it.
type Initializer interface {
	Initialize(ctx context.Context) error
	Invalidate(cause error)
}

// Stats are cumulative session counters.
type Stats struct {
	Logins             int64     `json:"logins"`
	LoginFailures      int64     `json:"loginFailures"`
	LoginTimeouts      int64     `json:"loginTimeouts"`
	IdentityMismatches int64     `json:"identityMismatches"`
	LastLoginAt        time.Time `json:"lastLoginAt"`
}

// Handle gives read access to the terminal while its session is held.
type Handle struct {
	accountID int64
	term      broker.Terminal
	released  atomic.Bool
}

// AccountID is the account the session is logged in to.
func (h *Handle) AccountID() int64 {
	return h.accountID
}

// AccountInfo reads the active account state.
func (h *Handle) AccountInfo(ctx context.Context) (*broker.AccountInfo, error) {
	if h.released.Load() {
		return nil, ErrHandleReleased
	}
	return h.term.AccountInfo(ctx)
}

// HistoryDeals reads the active account's deals between from and to.
func (h *Handle) HistoryDeals(ctx context.Context, from, to time.Time) ([]broker.Deal, error) {
	if h.released.Load() {
		return nil, ErrHandleReleased
	}
	return h.term.HistoryDeals(ctx, from, to)
}

// Broker owns the global session lock. It is the only caller of Terminal.Login.
type Broker struct {
	term         broker.Terminal
	conn         Initializer
	sem          *semaphore.Weighted
	loginTimeout time.Duration

	mu      sync.Mutex
	current int64
	stats   Stats
}

// NewBroker creates a session broker. loginTimeout bounds each login attempt.
func NewBroker(term broker.Terminal, conn Initializer, loginTimeout time.Duration) *Broker {
	return &Broker{
		term:         term,
		conn:         conn,
		sem:          semaphore.NewWeighted(1),
		loginTimeout: loginTimeout,
	}
}

// WithSession logs the terminal in to accountID and runs fn while holding the
// session lock. Waiters are served in arrival order and give up when ctx ends.
// fn's result is discarded with an identity mismatch error if the active
// account changed while fn ran.
func (b *Broker) WithSession(ctx context.Context, accountID int64, cred broker.Credential, fn func(ctx context.Context, h *Handle) error) error {
	if err := b.conn.Initialize(ctx); err != nil {
		return err
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return apperrors.Wrap(apperrors.ErrTerminalUnavailable, "timed out waiting for the terminal session", err)
	}
	defer b.sem.Release(1)

	logger := log.WithField("account_id", accountID)

	if err := b.login(ctx, accountID, cred); err != nil {
		logger.WithError(err).Warn("[Session] Login failed")
		return err
	}
	if err := b.verify(ctx, accountID); err != nil {
		logger.WithError(err).Warn("[Session] Identity check after login failed")
		return err
	}
	b.recordLogin()
	logger.Debug("[Session] Logged in")

	h := &Handle{accountID: accountID, term: b.term}
	err := fn(ctx, h)
	h.released.Store(true)
	if connectionLost(err) {
		b.conn.Invalidate(err)
	}

	if verr := b.verify(ctx, accountID); verr != nil {
		logger.WithError(verr).Warn("[Session] Active account changed during session, discarding result")
		return verr
	}
	return err
}

// SwitchTo logs in to accountID and returns its account state in one session.
func (b *Broker) SwitchTo(ctx context.Context, accountID int64, cred broker.Credential) (*broker.AccountInfo, error) {
	var info *broker.AccountInfo
	err := b.WithSession(ctx, accountID, cred, func(ctx context.Context, h *Handle) error {
		var err error
		info, err = h.AccountInfo(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// CurrentAccount returns the account the terminal was last confirmed to be on,
// or 0 when unknown.
func (b *Broker) CurrentAccount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Stats returns a copy of the session counters.
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Broker) login(ctx context.Context, accountID int64, cred broker.Credential) error {
	loginCtx, cancel := context.WithTimeout(ctx, b.loginTimeout)
	defer cancel()

	err := b.term.Login(loginCtx, accountID, cred.Password, cred.Server)
	if err == nil {
		return nil
	}

	// A failed or abandoned login leaves the terminal in an unknown state.
	b.mu.Lock()
	b.current = 0
	b.stats.LoginFailures++
	timedOut := errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
	if timedOut {
		b.stats.LoginTimeouts++
	}
	b.mu.Unlock()

	metrics.LoginFailures.Add(1)
	switch {
	case timedOut:
		metrics.LoginTimeouts.Add(1)
		return apperrors.Login(accountID, fmt.Errorf("timed out after %s: %w", b.loginTimeout, err))
	case connectionLost(err):
		b.conn.Invalidate(err)
		return apperrors.TerminalUnavailable(err)
	default:
		return apperrors.Login(accountID, err)
	}
}

// verify checks that the terminal's active account is accountID.
func (b *Broker) verify(ctx context.Context, accountID int64) error {
	active, err := b.term.ActiveLogin(ctx)
	if err != nil && !errors.Is(err, broker.ErrNoSession) {
		b.setCurrent(0)
		if connectionLost(err) {
			b.conn.Invalidate(err)
		}
		return apperrors.TerminalUnavailable(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = active
	if active != accountID {
		b.stats.IdentityMismatches++
		metrics.IdentityMismatches.Add(1)
		return apperrors.IdentityMismatch(accountID, active)
	}

	return nil
}

// connectionLost reports whether err means the terminal connection must be
// reinitialized.
func connectionLost(err error) bool {
	return errors.Is(err, broker.ErrNotInitialized) || errors.Is(err, broker.ErrTerminalUnreachable)
}

func (b *Broker) recordLogin() {
	b.mu.Lock()
	b.stats.Logins++
	b.stats.LastLoginAt = time.Now()
	b.mu.Unlock()
	metrics.Logins.Add(1)
}

func (b *Broker) setCurrent(id int64) {
	b.mu.Lock()
	b.current = id
	b.mu.Unlock()
}
