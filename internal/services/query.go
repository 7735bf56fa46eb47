package services

import (
	"time"

	"terminal_bridge/internal/cache"
	apperrors "terminal_bridge/internal/errors"
	"terminal_bridge/internal/models"
	"terminal_bridge/internal/registry"
)

// Summary is the multi-account overview served from the cache.
type Summary struct {
	Accounts    []models.AccountSummary
	CachedCount int
	Timestamp   time.Time
}

// QueryService answers account queries from the cache only. It never
// touches the terminal.
type QueryService struct {
	registry *registry.Registry
	cache    *cache.AccountCache
}

// NewQueryService creates a new QueryService.
func NewQueryService(reg *registry.Registry, accountCache *cache.AccountCache) *QueryService {
	return &QueryService{registry: reg, cache: accountCache}
}

// GetSummary returns one row per managed account in registry order.
// Accounts never refreshed appear with zero values and source no_cache.
func (s *QueryService) GetSummary() *Summary {
	accounts := s.registry.All()
	summary := &Summary{
		Accounts:  make([]models.AccountSummary, 0, len(accounts)),
		Timestamp: time.Now(),
	}

	for _, acc := range accounts {
		snap := s.cache.Snapshot(acc.ID)
		if snap.HasData() {
			summary.CachedCount++
		}
		summary.Accounts = append(summary.Accounts, models.AccountSummary{
			AccountID: acc.ID,
			Name:      acc.Name,
			FundType:  acc.FundType,
			Provider:  acc.Provider,
			Balance:   snap.Balance,
			Equity:    snap.Equity,
			Profit:    snap.Profit,
			Timestamp: snap.Timestamp,
			Source:    snap.Source,
		})
	}

	return summary
}

// GetAccountInfo returns registry metadata merged with the cached snapshot.
func (s *QueryService) GetAccountInfo(accountID int64) (*models.AccountDetail, error) {
	acc, ok := s.registry.Lookup(accountID)
	if !ok {
		return nil, apperrors.UnknownAccount(accountID)
	}

	snap := s.cache.Snapshot(accountID)
	detail := &models.AccountDetail{
		AccountID: acc.ID,
		Name:      acc.Name,
		FundType:  acc.FundType,
		Provider:  acc.Provider,
		LiveData:  snap,
	}
	if snap.HasData() {
		ts := snap.Timestamp
		detail.LastSync = &ts
	}
	return detail, nil
}
