package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "terminal_bridge/internal/errors"
)

func withAccountID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("accountId", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAccountIDParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1001", 1001, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := withAccountID(httptest.NewRequest("GET", "/", nil), tt.raw)
			got, err := AccountIDParam(req)
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntQuery(t *testing.T) {
	v, err := IntQuery(httptest.NewRequest("GET", "/?limit=5", nil), "limit", 100)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = IntQuery(httptest.NewRequest("GET", "/", nil), "limit", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	_, err = IntQuery(httptest.NewRequest("GET", "/?limit=ten", nil), "limit", 100)
	assert.True(t, apperrors.IsValidation(err))
}
