package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/telhawk-systems/fwlens/common/httputil"
	"github.com/telhawk-systems/fwlens/common/messaging"
)

// Pinger reports whether the search backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	search Pinger
	bus    messaging.Client
}

// NewHealthHandler creates a HealthHandler. bus may be nil when NATS is disabled.
func NewHealthHandler(search Pinger, bus messaging.Client) *HealthHandler {
	return &HealthHandler{search: search, bus: bus}
}

// Health always reports ok while the process is serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks OpenSearch and, when configured, the message bus.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := map[string]interface{}{"status": "ready"}
	status := http.StatusOK

	if err := h.search.Ping(ctx); err != nil {
		resp["status"] = "not ready"
		resp["reason"] = "opensearch unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.bus != nil {
		bus := messaging.CheckClientHealth(ctx, h.bus)
		resp["nats"] = bus
		if !bus.Connected {
			resp["status"] = "not ready"
			status = http.StatusServiceUnavailable
		}
	}

	httputil.WriteJSON(w, status, resp)
}
