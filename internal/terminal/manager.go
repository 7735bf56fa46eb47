// Package terminal manages the process-wide connection to the native terminal.
package terminal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"terminal_bridge/internal/broker"
	apperrors "terminal_bridge/internal/errors"
)

// Manager owns the terminal connection lifecycle. Initialize and Shutdown are
// serialized by initMu, separate from the session lock. Status readers never
// wait on initMu.
type Manager struct {
	term broker.Terminal

	initMu      sync.Mutex
	initialized atomic.Bool

	mu      sync.Mutex
	lastErr error
}

// NewManager creates a connection manager for the terminal.
func NewManager(term broker.Terminal) *Manager {
	return &Manager{term: term}
}

// Initialize connects to the terminal. Calling it again after success is a
// no-op until the connection is invalidated or shut down.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.initialized.Load() {
		return nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.initialized.Load() {
		return nil
	}

	if err := m.term.Initialize(ctx); err != nil {
		m.setLastError(err)
		log.WithError(err).Error("[Terminal] Initialization failed")
		return apperrors.TerminalUnavailable(err)
	}

	m.initialized.Store(true)
	m.setLastError(nil)
	log.Info("[Terminal] Initialized")
	return nil
}

// Invalidate marks the connection as lost so the next Initialize reconnects.
func (m *Manager) Invalidate(cause error) {
	m.setLastError(cause)
	if m.initialized.CompareAndSwap(true, false) {
		log.WithError(cause).Warn("[Terminal] Connection lost, will reinitialize")
	}
}

// Shutdown releases the connection. Safe to call when never initialized.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if !m.initialized.Swap(false) {
		return nil
	}

	if err := m.term.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("[Terminal] Shutdown returned an error")
		return err
	}
	log.Info("[Terminal] Shut down")
	return nil
}

// Initialized reports whether the connection is believed to be up.
func (m *Manager) Initialized() bool {
	return m.initialized.Load()
}

// Connected pings the terminal. It is false whenever the manager is not
// initialized. A terminal that forgot its initialization invalidates the manager.
func (m *Manager) Connected(ctx context.Context) bool {
	if !m.Initialized() {
		return false
	}
	if err := m.term.Ping(ctx); err != nil {
		if errors.Is(err, broker.ErrNotInitialized) {
			m.Invalidate(err)
		} else {
			m.setLastError(err)
		}
		return false
	}
	return true
}

// LastError returns the most recent initialization or ping failure.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
