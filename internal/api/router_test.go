package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/zara-ai/internal/api"
	"github.com/Rrens/zara-ai/internal/api/middleware"
	"github.com/Rrens/zara-ai/internal/chat"
	"github.com/Rrens/zara-ai/internal/config"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/Rrens/zara-ai/internal/offline"
	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/Rrens/zara-ai/internal/service"
	"github.com/Rrens/zara-ai/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyAll struct{}

func (denyAll) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	return false, 0, time.Now().Add(time.Minute), nil
}

func newRouter(t *testing.T, limiter middleware.Limiter) http.Handler {
	t.Helper()
	nop := zerolog.Nop()
	adapter := persistence.NewAdapter(persistence.NewMemoryKV()).WithLogger(nop)
	store := session.Open(context.Background(), adapter, session.Options{Debounce: time.Hour, Logger: &nop})
	llmRouter := llm.NewRouter("gemini")
	monitor := offline.NewMonitor(false)

	deps := api.Deps{
		Config:   &config.Config{Server: config.ServerConfig{RequestTimeout: time.Second}},
		Sessions: store,
		Chat:     chat.NewController(store, llmRouter, chat.WithConnectivity(monitor), chat.WithLogger(nop)),
		Study:    service.NewStudyService(llmRouter, llm.BehaviorConfig{}),
		LLM:      llmRouter,
		Storage:  adapter,
		Monitor:  monitor,
		Limiter:  limiter,
	}
	return api.NewRouter(deps)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	h := newRouter(t, nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/ready", "", http.StatusOK},
		{http.MethodGet, "/api/v1/llm-providers", "", http.StatusOK},
		{http.MethodGet, "/api/v1/connectivity", "", http.StatusOK},
		{http.MethodGet, "/api/v1/sessions", "", http.StatusOK},
		{http.MethodPost, "/api/v1/sessions/new", "", http.StatusOK},
		{http.MethodGet, "/api/v1/sessions/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/chat", "", http.StatusOK},
		{http.MethodPost, "/api/v1/chat/abort", "", http.StatusOK},
		{http.MethodPost, "/api/v1/chat/messages", `{"text":""}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_OfflineSendUsesFallback(t *testing.T) {
	h := newRouter(t, nil)

	rec := serve(h, http.MethodPost, "/api/v1/chat/messages", `{"text":"what is 6 * 7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")
	assert.Contains(t, rec.Body.String(), `"isOffline":true`)

	rec = serve(h, http.MethodGet, "/api/v1/sessions", "")
	assert.Contains(t, rec.Body.String(), "what is 6 * 7")
}

func TestRouter_RateLimitAppliesToSend(t *testing.T) {
	h := newRouter(t, denyAll{})

	rec := serve(h, http.MethodPost, "/api/v1/chat/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
