package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal_bridge/internal/broker"
	"terminal_bridge/internal/broker/simulated"
	"terminal_bridge/internal/cache"
	"terminal_bridge/internal/config"
	apperrors "terminal_bridge/internal/errors"
	"terminal_bridge/internal/models"
	"terminal_bridge/internal/registry"
	"terminal_bridge/internal/session"
	"terminal_bridge/internal/sync"
	"terminal_bridge/internal/terminal"
)

type fixture struct {
	reg      *registry.Registry
	term     *simulated.Terminal
	conn     *terminal.Manager
	sessions *session.Broker
	cache    *cache.AccountCache
	sync     *sync.Service
	sched    *sync.Scheduler
	trades   *TradeHistoryService
	query    *QueryService
	health   *HealthReporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg, err := registry.New([]models.ManagedAccount{
		{ID: 1001, Name: "A", FundType: "growth", Provider: "Alpha", CredentialRef: "shared"},
		{ID: 1002, Name: "B", FundType: "income", Provider: "Beta", CredentialRef: "shared"},
		{ID: 1003, Name: "C", FundType: "growth", Provider: "Gamma", CredentialRef: "shared"},
	})
	require.NoError(t, err)

	term := simulated.New()
	for _, id := range reg.IDs() {
		term.AddAccount(simulated.Account{Login: id, Password: "pw"})
		term.SetBalance(id, float64(id), float64(id)+10)
	}

	creds, err := broker.NewCredentialStore(map[string]config.CredentialConfig{
		"shared": {Password: "pw", Server: "Demo"},
	}, "", nil)
	require.NoError(t, err)

	f := &fixture{reg: reg, term: term, cache: cache.New()}
	f.conn = terminal.NewManager(term)
	f.sessions = session.NewBroker(term, f.conn, time.Second)
	f.sync = sync.NewService(reg, creds, f.sessions, f.cache, 0, 10)
	f.sched = sync.NewScheduler(f.sync, time.Hour, time.Hour)
	f.trades = NewTradeHistoryService(reg, creds, f.sessions, 90)
	f.query = NewQueryService(reg, f.cache)
	f.health = NewHealthReporter(f.conn, f.sessions, reg, f.cache, f.sched, f.sync, "test")
	return f
}

func deal(ticket int64, at time.Time, magic int64) broker.Deal {
	return broker.Deal{
		Ticket: ticket,
		Time:   at,
		Type:   broker.DealTypeBuy,
		Entry:  broker.DealEntryIn,
		Magic:  magic,
		Volume: decimal.NewFromFloat(0.1),
		Symbol: "EURUSD",
	}
}

func TestGetTrades_FewerThanLimit(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.term.SetDeals(1001, []broker.Deal{
		deal(3, now.Add(-1*time.Hour), 0),
		deal(1, now.Add(-3*time.Hour), 42),
		deal(2, now.Add(-2*time.Hour), 0),
	})

	history, err := f.trades.GetTrades(context.Background(), 1001, 5)
	require.NoError(t, err)

	require.Len(t, history.Trades, 3)
	assert.Equal(t, 3, history.TotalAvailable)
	assert.Equal(t, []int64{1, 2, 3}, []int64{history.Trades[0].Ticket, history.Trades[1].Ticket, history.Trades[2].Ticket})
	assert.Equal(t, int64(42), history.Trades[0].Magic)
	assert.Equal(t, "buy", history.Trades[0].Type)
	assert.Equal(t, "in", history.Trades[0].Entry)
	assert.Equal(t, int64(1001), history.Trades[0].AccountID)
}

func TestGetTrades_KeepsMostRecent(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-24 * time.Hour)

	var deals []broker.Deal
	for i := int64(1); i <= 10; i++ {
		deals = append(deals, deal(i, base.Add(time.Duration(i)*time.Minute), 0))
	}
	f.term.SetDeals(1002, deals)

	history, err := f.trades.GetTrades(context.Background(), 1002, 4)
	require.NoError(t, err)

	require.Len(t, history.Trades, 4)
	assert.Equal(t, 10, history.TotalAvailable)
	assert.Equal(t, int64(7), history.Trades[0].Ticket)
	assert.Equal(t, int64(10), history.Trades[3].Ticket)
}

func TestGetTrades_OutsideWindowExcluded(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.term.SetDeals(1001, []broker.Deal{
		deal(1, now.AddDate(0, 0, -200), 0),
		deal(2, now.Add(-time.Hour), 0),
	})

	history, err := f.trades.GetTrades(context.Background(), 1001, DefaultTradeLimit)
	require.NoError(t, err)
	require.Len(t, history.Trades, 1)
	assert.Equal(t, int64(2), history.Trades[0].Ticket)
}

func TestGetTrades_NoHistory(t *testing.T) {
	f := newFixture(t)

	history, err := f.trades.GetTrades(context.Background(), 1003, 10)
	require.NoError(t, err)
	assert.NotNil(t, history.Trades)
	assert.Empty(t, history.Trades)
	assert.Equal(t, 0, history.TotalAvailable)
}

func TestGetTrades_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.trades.GetTrades(context.Background(), 9999, 10)
	assert.True(t, apperrors.IsUnknownAccount(err))
	assert.Equal(t, 0, f.term.Counters().Login)
}

func TestGetTrades_LoginFailure(t *testing.T) {
	f := newFixture(t)
	f.term.RejectLogin(1002, true)

	_, err := f.trades.GetTrades(context.Background(), 1002, 10)
	assert.True(t, apperrors.IsLoginFailure(err))
}

func TestGetTrades_TerminalUnavailable(t *testing.T) {
	f := newFixture(t)
	f.term.FailInitialize(errors.New("down"))

	_, err := f.trades.GetTrades(context.Background(), 1002, 10)
	assert.True(t, apperrors.IsTerminalUnavailable(err))
}

func TestGetTrades_NonPositiveLimitRejected(t *testing.T) {
	f := newFixture(t)
	f.term.SetDeals(1001, []broker.Deal{deal(1, time.Now().Add(-time.Hour), 0)})

	for _, limit := range []int{0, -5} {
		_, err := f.trades.GetTrades(context.Background(), 1001, limit)
		assert.True(t, apperrors.IsValidation(err), "limit %d", limit)
	}
	assert.Equal(t, 0, f.term.Counters().Login)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxTradeLimit, NormalizeLimit(MaxTradeLimit+1))
}

func TestGetSummary_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.term.RejectLogin(1001, true)

	_, err := f.sync.RunCycle(context.Background(), sync.TriggerScheduled)
	require.NoError(t, err)

	summary := f.query.GetSummary()
	require.Len(t, summary.Accounts, 3)
	assert.Equal(t, 2, summary.CachedCount)

	a, b, c := summary.Accounts[0], summary.Accounts[1], summary.Accounts[2]
	assert.Equal(t, int64(1001), a.AccountID)
	assert.Equal(t, models.SourceNoCache, a.Source)
	assert.True(t, a.Balance.IsZero())
	assert.Equal(t, models.SourceLive, b.Source)
	assert.Equal(t, models.SourceLive, c.Source)
	assert.Equal(t, "Beta", b.Provider)
	assert.True(t, c.Equity.Equal(decimal.NewFromInt(1013)))
}

func TestGetSummary_DoesNotLogIn(t *testing.T) {
	f := newFixture(t)

	summary := f.query.GetSummary()
	assert.Len(t, summary.Accounts, 3)
	assert.Equal(t, 0, summary.CachedCount)
	assert.Equal(t, 0, f.term.Counters().Login)
	assert.Equal(t, 0, f.term.Counters().Initialize)
}

func TestGetAccountInfo(t *testing.T) {
	f := newFixture(t)

	detail, err := f.query.GetAccountInfo(1002)
	require.NoError(t, err)
	assert.Equal(t, models.SourceNoCache, detail.LiveData.Source)
	assert.Nil(t, detail.LastSync)

	_, err = f.sync.RunCycle(context.Background(), sync.TriggerManual)
	require.NoError(t, err)

	detail, err = f.query.GetAccountInfo(1002)
	require.NoError(t, err)
	assert.Equal(t, "B", detail.Name)
	assert.Equal(t, "income", detail.FundType)
	assert.Equal(t, models.SourceLive, detail.LiveData.Source)
	require.NotNil(t, detail.LastSync)
	assert.Equal(t, detail.LiveData.Timestamp, *detail.LastSync)

	_, err = f.query.GetAccountInfo(4242)
	assert.True(t, apperrors.IsUnknownAccount(err))
}

func TestGetHealth_BeforeAnyRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h := f.health.GetHealth(ctx)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.False(t, h.TerminalInitialized)
	assert.Equal(t, 0, h.CachedCount)
	assert.Equal(t, 3, h.TotalManagedCount)
	assert.Nil(t, h.CurrentActiveAccount)
	assert.Equal(t, sync.StateIdle, h.SchedulerState)
	assert.Nil(t, h.LastCycle)

	require.NoError(t, f.conn.Initialize(ctx))

	h = f.health.GetHealth(ctx)
	assert.True(t, h.TerminalInitialized)
	assert.True(t, h.TerminalConnected)
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Equal(t, 0, h.CachedCount)
}

func TestGetHealth_AfterRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sched.ForceRefresh(ctx)
	require.NoError(t, err)

	h := f.health.GetHealth(ctx)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, 3, h.CachedCount)
	require.NotNil(t, h.CurrentActiveAccount)
	assert.Equal(t, int64(1003), *h.CurrentActiveAccount)
	require.NotNil(t, h.LastCycle)
	assert.Equal(t, 3, h.LastCycle.AccountsRefreshed)
	assert.Equal(t, "test", h.Version)
	assert.Nil(t, h.CycleAccountIndex)
	assert.LessOrEqual(t, h.CachedCount, h.TotalManagedCount)
}

func TestGetHealth_InitFailureIsUnhealthy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.term.FailInitialize(errors.New("terminal process not running"))

	_ = f.conn.Initialize(ctx)

	h := f.health.GetHealth(ctx)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, "terminal process not running", h.TerminalError)
}

func TestGetHealth_AllFailedCycleIsDegraded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sync.RunCycle(ctx, sync.TriggerManual)
	require.NoError(t, err)

	for _, id := range f.reg.IDs() {
		f.term.RejectLogin(id, true)
	}
	_, err = f.sync.RunCycle(ctx, sync.TriggerManual)
	require.NoError(t, err)

	h := f.health.GetHealth(ctx)
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Equal(t, 3, h.CachedCount)
}
