package simulated

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal_bridge/internal/broker"
	"terminal_bridge/internal/models"
)

func newReady(t *testing.T) *Terminal {
	t.Helper()
	term := New()
	term.AddAccount(Account{Login: 1001, Password: "a"})
	term.AddAccount(Account{Login: 1002})
	require.NoError(t, term.Initialize(context.Background()))
	return term
}

func TestTerminal_OneActiveLogin(t *testing.T) {
	term := newReady(t)
	ctx := context.Background()

	_, err := term.ActiveLogin(ctx)
	assert.ErrorIs(t, err, broker.ErrNoSession)

	require.NoError(t, term.Login(ctx, 1001, "a", ""))
	active, _ := term.ActiveLogin(ctx)
	assert.Equal(t, int64(1001), active)

	require.NoError(t, term.Login(ctx, 1002, "anything", ""))
	active, _ = term.ActiveLogin(ctx)
	assert.Equal(t, int64(1002), active)

	info, err := term.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), info.Login)
}

func TestTerminal_Faults(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		term := newReady(t)
		assert.ErrorIs(t, term.Login(ctx, 1001, "b", ""), broker.ErrLoginRejected)
	})

	t.Run("unknown login", func(t *testing.T) {
		term := newReady(t)
		assert.ErrorIs(t, term.Login(ctx, 9999, "", ""), broker.ErrLoginRejected)
	})

	t.Run("rejected", func(t *testing.T) {
		term := newReady(t)
		term.RejectLogin(1002, true)
		assert.ErrorIs(t, term.Login(ctx, 1002, "", ""), broker.ErrLoginRejected)
	})

	t.Run("drift keeps previous session", func(t *testing.T) {
		term := newReady(t)
		require.NoError(t, term.Login(ctx, 1001, "a", ""))
		term.DriftLogin(1002, true)
		require.NoError(t, term.Login(ctx, 1002, "", ""))
		active, _ := term.ActiveLogin(ctx)
		assert.Equal(t, int64(1001), active)
	})

	t.Run("init failure", func(t *testing.T) {
		term := New()
		boom := errors.New("boom")
		term.FailInitialize(boom)
		assert.ErrorIs(t, term.Initialize(ctx), boom)
		assert.ErrorIs(t, term.Login(ctx, 1001, "", ""), broker.ErrNotInitialized)
	})
}

func TestTerminal_DelayedLoginCompletesLate(t *testing.T) {
	term := newReady(t)
	term.SetLoginDelay(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := term.Login(ctx, 1002, "", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		active, err := term.ActiveLogin(context.Background())
		return err == nil && active == 1002
	}, time.Second, 10*time.Millisecond)
}

func TestTerminal_HistoryDealsWindow(t *testing.T) {
	term := newReady(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	term.SetDeals(1002, []broker.Deal{
		{Ticket: 1, Time: base},
		{Ticket: 2, Time: base.Add(time.Hour)},
		{Ticket: 3, Time: base.Add(48 * time.Hour)},
	})
	require.NoError(t, term.Login(ctx, 1002, "", ""))

	deals, err := term.HistoryDeals(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, deals, 2)
	assert.Equal(t, 1, term.Counters().HistoryDeals)
}

func TestSeed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accounts := []models.ManagedAccount{
		{ID: 5001, Name: "Alpha"},
		{ID: 5002, Name: "Beta"},
	}

	term := Seed(accounts, now)
	ctx := context.Background()
	require.NoError(t, term.Initialize(ctx))
	require.NoError(t, term.Login(ctx, 5002, "whatever", "Demo-Server"))

	info, err := term.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5002), info.Login)
	assert.True(t, info.Balance.IsPositive())

	deals, err := term.HistoryDeals(ctx, now.AddDate(-3, 0, 0), now)
	require.NoError(t, err)
	assert.NotEmpty(t, deals)
	for _, d := range deals {
		assert.False(t, d.Time.After(now))
	}
	assert.True(t, dealBalance(deals).Equal(info.Balance))
}
