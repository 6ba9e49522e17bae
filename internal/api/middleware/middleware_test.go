package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/zara-ai/internal/api/middleware"
	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	f.keys = append(f.keys, key)
	return f.allowed, 3, time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC), f.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestRateLimit_Allowed(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	h := middleware.NewRateLimitMiddleware(limiter).Limit(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/messages", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2026-01-01T12:01:00Z", rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, []string{"10.0.0.7"}, limiter.keys)
}

func TestRateLimit_Denied(t *testing.T) {
	h := middleware.NewRateLimitMiddleware(&fakeLimiter{allowed: false}).Limit(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "too_many_requests", body.Error.Code)
	assert.Equal(t, "rate limit exceeded", body.Error.Message)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h := middleware.NewRateLimitMiddleware(&fakeLimiter{err: errors.New("redis down")}).Limit(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLogger_WritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	h := middleware.Logger(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/sessions", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.Equal(t, "request", entry["message"])
}
