// Package services contains the read paths of the terminal bridge.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"terminal_bridge/internal/broker"
	apperrors "terminal_bridge/internal/errors"
	"terminal_bridge/internal/metrics"
	"terminal_bridge/internal/models"
	"terminal_bridge/internal/registry"
	"terminal_bridge/internal/session"
	"terminal_bridge/internal/sync"
)

const (
	// DefaultTradeLimit is used when the caller gives no limit.
	DefaultTradeLimit = 100
	// MaxTradeLimit caps a single trade history response.
	MaxTradeLimit = 1000
)

// TradeHistory is the most recent trades of one account.
type TradeHistory struct {
	AccountID      int64
	Trades         []models.Trade
	TotalAvailable int
}

// TradeHistoryService reads deal history on demand. Every call logs the
// terminal in to the requested account under the shared session lock.
type TradeHistoryService struct {
	registry    *registry.Registry
	creds       sync.CredentialResolver
	sessions    sync.SessionRunner
	historyDays int
	now         func() time.Time
}

// NewTradeHistoryService creates a TradeHistoryService reading historyDays of deals.
func NewTradeHistoryService(reg *registry.Registry, creds sync.CredentialResolver, sessions sync.SessionRunner, historyDays int) *TradeHistoryService {
	return &TradeHistoryService{
		registry:    reg,
		creds:       creds,
		sessions:    sessions,
		historyDays: historyDays,
		now:         time.Now,
	}
}

// NormalizeLimit caps a requested limit at MaxTradeLimit.
func NormalizeLimit(limit int) int {
	if limit > MaxTradeLimit {
		return MaxTradeLimit
	}
	return limit
}

// GetTrades returns up to limit of the account's most recent trades in
// chronological order. An account without deals yields an empty list. limit
// must be positive.
func (s *TradeHistoryService) GetTrades(ctx context.Context, accountID int64, limit int) (*TradeHistory, error) {
	acc, ok := s.registry.Lookup(accountID)
	if !ok {
		return nil, apperrors.UnknownAccount(accountID)
	}
	if limit <= 0 {
		return nil, apperrors.ValidationField("limit", "limit must be a positive integer")
	}
	limit = NormalizeLimit(limit)

	cred, err := s.creds.Resolve(acc.CredentialRef)
	if err != nil {
		return nil, apperrors.Internal("resolving credential", err)
	}

	to := s.now()
	from := to.AddDate(0, 0, -s.historyDays)

	var deals []broker.Deal
	err = s.sessions.WithSession(ctx, accountID, cred, func(ctx context.Context, h *session.Handle) error {
		var err error
		deals, err = h.HistoryDeals(ctx, from, to)
		return err
	})
	metrics.TradeQueries.Add(1)
	if err != nil {
		log.WithField("account_id", accountID).WithError(err).Warn("[Trades] History request failed")
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.TerminalUnavailable(fmt.Errorf("reading deal history: %w", err))
	}

	trades := make([]models.Trade, 0, len(deals))
	for _, d := range deals {
		trades = append(trades, toTrade(accountID, d))
	}
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Time.Equal(trades[j].Time) {
			return trades[i].Ticket < trades[j].Ticket
		}
		return trades[i].Time.Before(trades[j].Time)
	})

	total := len(trades)
	if total > limit {
		trades = trades[total-limit:]
	}

	log.WithFields(log.Fields{"account_id": accountID, "returned": len(trades), "available": total}).
		Debug("[Trades] History served")

	return &TradeHistory{AccountID: accountID, Trades: trades, TotalAvailable: total}, nil
}

func toTrade(accountID int64, d broker.Deal) models.Trade {
	return models.Trade{
		Ticket:     d.Ticket,
		Order:      d.Order,
		Time:       d.Time,
		Type:       broker.DealTypeName(d.Type),
		Entry:      broker.DealEntryName(d.Entry),
		Magic:      d.Magic,
		Volume:     d.Volume,
		Price:      d.Price,
		Commission: d.Commission,
		Swap:       d.Swap,
		Profit:     d.Profit,
		Symbol:     d.Symbol,
		Comment:    d.Comment,
		PositionID: d.PositionID,
		AccountID:  accountID,
	}
}
