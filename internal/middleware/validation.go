package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "terminal_bridge/internal/errors"
)

// AccountIDParam parses the {accountId} route parameter as a positive integer.
func AccountIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "accountId"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationField("accountId", "accountId must be a positive integer")
	}
	return id, nil
}

// IntQuery parses an optional integer query parameter. Missing or empty
// yields def.
func IntQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationField(name, name+" must be an integer")
	}
	return v, nil
}
