package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/Rrens/zara-ai/internal/offline"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including storage connectivity
func ReadyCheck(storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := storage.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns the registered LLM providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        router.GetProvidersInfo(),
			"default_provider": router.DefaultProvider(),
		})
	}
}

// ConnectivityHandler exposes the offline monitor
type ConnectivityHandler struct {
	monitor *offline.Monitor
}

// NewConnectivityHandler creates a new connectivity handler
func NewConnectivityHandler(monitor *offline.Monitor) *ConnectivityHandler {
	return &ConnectivityHandler{monitor: monitor}
}

type connectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// Get returns the current connectivity state
func (h *ConnectivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]bool{"online": h.monitor.Online()})
}

// Set forces the connectivity state until the next probe
func (h *ConnectivityHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.monitor.SetOnline(*req.Online)
	response.OK(w, map[string]bool{"online": h.monitor.Online()})
}
