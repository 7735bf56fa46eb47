// Package handlers provides the HTTP surface of the terminal bridge.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	apperrors "terminal_bridge/internal/errors"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("[HTTP] Error encoding response")
	}
}

// writeError maps err to a status code through apperrors and writes it.
// Internal errors are logged and their cause is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	body := errorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    apperrors.Code(err),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Details = appErr.Details
	}

	if status >= http.StatusInternalServerError {
		log.WithField("path", r.URL.Path).WithError(err).Warn("[HTTP] Request failed")
	}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}

	writeJSON(w, status, body)
}
