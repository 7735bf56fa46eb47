package handlers

import (
	"net/http"
	"time"

	apperrors "terminal_bridge/internal/errors"
	"terminal_bridge/internal/sync"
)

// RefreshHandler triggers and reports refresh cycles.
type RefreshHandler struct {
	scheduler   *sync.Scheduler
	syncService *sync.Service
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(scheduler *sync.Scheduler, syncService *sync.Service) *RefreshHandler {
	return &RefreshHandler{scheduler: scheduler, syncService: syncService}
}

type refreshResponse struct {
	Success           bool      `json:"success"`
	AccountsRefreshed int       `json:"accountsRefreshed"`
	AccountsFailed    int       `json:"accountsFailed"`
	CycleID           string    `json:"cycleId"`
	Timestamp         time.Time `json:"timestamp"`
}

type historyResponse struct {
	Success bool               `json:"success"`
	Cycles  []sync.CycleResult `json:"cycles"`
	Count   int                `json:"count"`
}

// Force runs one refresh cycle and waits for it to finish.
func (h *RefreshHandler) Force(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.ForceRefresh(r.Context())
	if err != nil && result == nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrTerminalUnavailable, "refresh cycle already running", err))
		return
	}
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrTerminalUnavailable, "refresh interrupted", err).
			WithDetails(map[string]any{
				"cycleId":           result.ID,
				"accountsRefreshed": result.AccountsRefreshed,
				"accountsFailed":    result.AccountsFailed,
			}))
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Success:           true,
		AccountsRefreshed: result.AccountsRefreshed,
		AccountsFailed:    result.AccountsFailed,
		CycleID:           result.ID,
		Timestamp:         result.CompletedAt,
	})
}

// History lists recent refresh cycles, newest first.
func (h *RefreshHandler) History(w http.ResponseWriter, r *http.Request) {
	cycles := h.syncService.History()
	writeJSON(w, http.StatusOK, historyResponse{
		Success: true,
		Cycles:  cycles,
		Count:   len(cycles),
	})
}
