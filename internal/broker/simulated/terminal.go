// Package simulated provides an in-memory native terminal for demo mode and tests.
package simulated

import (
	"context"
	"sync"
	"time"

	"terminal_bridge/internal/broker"
)

// Account is one login known to the simulated terminal.
type Account struct {
	Login    int64
	Password string // empty accepts any password
	Server   string
	Info     broker.AccountInfo
	Deals    []broker.Deal
}

// Counters records how often each primitive was called.
type Counters struct {
	Initialize   int
	Shutdown     int
	Login        int
	AccountInfo  int
	HistoryDeals int
	// Overlaps counts calls that started while another call was in flight.
	Overlaps int
}

// Terminal behaves like the native terminal: one active login at a time.
type Terminal struct {
	mu          sync.Mutex
	accounts    map[int64]*Account
	initialized bool
	active      int64
	inFlight    int
	counters    Counters

	initErr    error
	pingErr    error
	rejected   map[int64]bool
	drifting   map[int64]bool
	loginDelay time.Duration
	initDelay  time.Duration
}

var _ broker.Terminal = (*Terminal)(nil)

// New creates an empty simulated terminal.
func New() *Terminal {
	return &Terminal{
		accounts: make(map[int64]*Account),
		rejected: make(map[int64]bool),
		drifting: make(map[int64]bool),
	}
}

// AddAccount registers or replaces an account.
func (t *Terminal) AddAccount(acc Account) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if acc.Info.Login == 0 {
		acc.Info.Login = acc.Login
	}
	t.accounts[acc.Login] = &acc
}

// SetBalance updates the balance and equity reported for an account.
func (t *Terminal) SetBalance(login int64, balance, equity float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if acc, ok := t.accounts[login]; ok {
		acc.Info.Balance = dec(balance)
		acc.Info.Equity = dec(equity)
		acc.Info.Profit = acc.Info.Equity.Sub(acc.Info.Balance)
	}
}

// SetDeals replaces the deal history of an account.
func (t *Terminal) SetDeals(login int64, deals []broker.Deal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if acc, ok := t.accounts[login]; ok {
		acc.Deals = append([]broker.Deal(nil), deals...)
	}
}

// FailInitialize makes Initialize return err until cleared with nil.
func (t *Terminal) FailInitialize(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initErr = err
}

// FailPing makes Ping return err until cleared with nil.
func (t *Terminal) FailPing(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pingErr = err
}

// RejectLogin makes logins to the account fail with broker.ErrLoginRejected.
func (t *Terminal) RejectLogin(login int64, reject bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejected[login] = reject
}

// DriftLogin makes logins to the account report success while the active
// session stays on the previous account.
func (t *Terminal) DriftLogin(login int64, drift bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drifting[login] = drift
}

// SetLoginDelay delays every login. A login whose caller gives up still
// completes in the background, like a stuck native call.
func (t *Terminal) SetLoginDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loginDelay = d
}

// SetInitDelay makes Initialize block for d before answering.
func (t *Terminal) SetInitDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initDelay = d
}

// Counters returns a copy of the call counters.
func (t *Terminal) Counters() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}

func (t *Terminal) enter() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight > 0 {
		t.counters.Overlaps++
	}
	t.inFlight++
}

func (t *Terminal) leave() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight--
}

func (t *Terminal) Initialize(ctx context.Context) error {
	t.mu.Lock()
	delay := t.initDelay
	t.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.Initialize++
	if t.initErr != nil {
		return t.initErr
	}
	t.initialized = true
	return nil
}

func (t *Terminal) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.Shutdown++
	t.initialized = false
	t.active = 0
	return nil
}

func (t *Terminal) Ping(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return broker.ErrNotInitialized
	}
	return t.pingErr
}

func (t *Terminal) Login(ctx context.Context, login int64, password, server string) error {
	t.enter()
	defer t.leave()

	t.mu.Lock()
	t.counters.Login++
	delay := t.loginDelay
	t.mu.Unlock()

	if delay <= 0 {
		return t.completeLogin(login, password)
	}

	result := make(chan error, 1)
	go func() {
		time.Sleep(delay)
		result <- t.completeLogin(login, password)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Terminal) completeLogin(login int64, password string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return broker.ErrNotInitialized
	}
	acc, ok := t.accounts[login]
	if !ok || t.rejected[login] {
		return broker.ErrLoginRejected
	}
	if acc.Password != "" && acc.Password != password {
		return broker.ErrLoginRejected
	}
	if t.drifting[login] {
		return nil
	}
	t.active = login
	return nil
}

func (t *Terminal) ActiveLogin(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return 0, broker.ErrNotInitialized
	}
	if t.active == 0 {
		return 0, broker.ErrNoSession
	}
	return t.active, nil
}

func (t *Terminal) AccountInfo(ctx context.Context) (*broker.AccountInfo, error) {
	t.enter()
	defer t.leave()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.AccountInfo++

	acc, err := t.activeAccount()
	if err != nil {
		return nil, err
	}
	info := acc.Info
	return &info, nil
}

func (t *Terminal) HistoryDeals(ctx context.Context, from, to time.Time) ([]broker.Deal, error) {
	t.enter()
	defer t.leave()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.HistoryDeals++

	acc, err := t.activeAccount()
	if err != nil {
		return nil, err
	}

	var deals []broker.Deal
	for _, d := range acc.Deals {
		if d.Time.Before(from) || d.Time.After(to) {
			continue
		}
		deals = append(deals, d)
	}
	return deals, nil
}

func (t *Terminal) activeAccount() (*Account, error) {
	if !t.initialized {
		return nil, broker.ErrNotInitialized
	}
	if t.active == 0 {
		return nil, broker.ErrNoSession
	}
	acc, ok := t.accounts[t.active]
	if !ok {
		return nil, broker.ErrNoSession
	}
	return acc, nil
}
