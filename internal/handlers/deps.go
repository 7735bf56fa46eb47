package handlers

import (
	"terminal_bridge/internal/services"
	"terminal_bridge/internal/sync"
)

// Dependencies holds all handler dependencies.
// This reduces constructor parameter lists and simplifies dependency injection.
type Dependencies struct {
	QueryService   *services.QueryService
	TradeService   *services.TradeHistoryService
	HealthReporter *services.HealthReporter
	Scheduler      *sync.Scheduler
	SyncService    *sync.Service
}

// NewDependencies creates an empty Dependencies container.
// Use the builder pattern to set required dependencies.
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// WithQueryService sets the cache query service.
func (d *Dependencies) WithQueryService(s *services.QueryService) *Dependencies {
	d.QueryService = s
	return d
}

// WithTradeService sets the trade history service.
func (d *Dependencies) WithTradeService(s *services.TradeHistoryService) *Dependencies {
	d.TradeService = s
	return d
}

// WithHealthReporter sets the health reporter.
func (d *Dependencies) WithHealthReporter(r *services.HealthReporter) *Dependencies {
	d.HealthReporter = r
	return d
}

// WithScheduler sets the refresh scheduler.
func (d *Dependencies) WithScheduler(s *sync.Scheduler) *Dependencies {
	d.Scheduler = s
	return d
}

// WithSyncService sets the sync service, used for cycle history.
func (d *Dependencies) WithSyncService(s *sync.Service) *Dependencies {
	d.SyncService = s
	return d
}
