// Package server assembles the HTTP routes of the fwlens API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/fwlens/api/internal/auth"
	"github.com/telhawk-systems/fwlens/api/internal/handlers"
	"github.com/telhawk-systems/fwlens/common/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Analysis *handlers.AnalysisHandler
	Health   *handlers.HealthHandler
	AuthMW   *auth.Middleware
}

// NewRouter constructs a ServeMux with the API routes registered.
func NewRouter(h Handlers, cors middleware.CORSConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)

	// Analytics (bearer token required)
	mux.HandleFunc("POST /api/v1/search", h.AuthMW.RequireAuth(h.Analysis.Search))
	mux.HandleFunc("POST /api/v1/analyze", h.AuthMW.RequireAuth(h.Analysis.Analyze))

	// Health endpoints
	mux.HandleFunc("GET /healthz", h.Health.Health)
	mux.HandleFunc("GET /readyz", h.Health.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.AccessLog(logger)(handler)
	handler = middleware.CORS(cors)(handler)
	return middleware.RequestID(handler)
}
