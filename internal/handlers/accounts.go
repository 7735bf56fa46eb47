package handlers

import (
	"net/http"
	"time"

	"terminal_bridge/internal/middleware"
	"terminal_bridge/internal/models"
	"terminal_bridge/internal/services"
)

// AccountHandler serves account data.
type AccountHandler struct {
	queryService *services.QueryService
	tradeService *services.TradeHistoryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(queryService *services.QueryService, tradeService *services.TradeHistoryService) *AccountHandler {
	return &AccountHandler{
		queryService: queryService,
		tradeService: tradeService,
	}
}

type summaryResponse struct {
	Success     bool                    `json:"success"`
	Accounts    []models.AccountSummary `json:"accounts"`
	Count       int                     `json:"count"`
	CachedCount int                     `json:"cachedCount"`
	Timestamp   time.Time               `json:"timestamp"`
}

type tradesResponse struct {
	Success        bool           `json:"success"`
	Trades         []models.Trade `json:"trades"`
	Count          int            `json:"count"`
	AccountID      int64          `json:"accountId"`
	TotalAvailable int            `json:"totalAvailable"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Summary returns the cached state of every managed account.
func (h *AccountHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary := h.queryService.GetSummary()

	writeJSON(w, http.StatusOK, summaryResponse{
		Success:     true,
		Accounts:    summary.Accounts,
		Count:       len(summary.Accounts),
		CachedCount: summary.CachedCount,
		Timestamp:   summary.Timestamp,
	})
}

// Info returns one account's metadata and cached snapshot.
func (h *AccountHandler) Info(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := h.queryService.GetAccountInfo(accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Trades returns the account's most recent trades. This logs the terminal in
// to the account and may wait behind a running refresh.
func (h *AccountHandler) Trades(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := middleware.IntQuery(r, "limit", services.DefaultTradeLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := h.tradeService.GetTrades(r.Context(), accountID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tradesResponse{
		Success:        true,
		Trades:         history.Trades,
		Count:          len(history.Trades),
		AccountID:      accountID,
		TotalAvailable: history.TotalAvailable,
		Timestamp:      time.Now(),
	})
}
