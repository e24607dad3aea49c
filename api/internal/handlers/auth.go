package handlers

import (
	"net/http"
	"strings"

	"github.com/telhawk-systems/fwlens/api/internal/auth"
	"github.com/telhawk-systems/fwlens/api/internal/metrics"
	"github.com/telhawk-systems/fwlens/api/internal/ratelimit"
	"github.com/telhawk-systems/fwlens/common/httputil"
	"github.com/telhawk-systems/fwlens/common/logging"
)

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned on a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthHandler issues access tokens for the configured users.
type AuthHandler struct {
	users   *auth.UserStore
	tokens  *auth.TokenGenerator
	limiter ratelimit.RateLimiter
	proxies *httputil.TrustedProxies
	logger  *logging.Logger
}

// NewAuthHandler creates an AuthHandler. A nil limiter disables throttling.
// Failed logins are counted per client IP, which is taken from forwarding
// headers only when the peer is one of proxies.
func NewAuthHandler(users *auth.UserStore, tokens *auth.TokenGenerator, limiter ratelimit.RateLimiter, proxies *httputil.TrustedProxies, logger *logging.Logger) *AuthHandler {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		proxies: proxies,
		logger:  logger,
	}
}

// Login exchanges a username and password for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ctx := r.Context()
	ip := httputil.GetClientIP(r, h.proxies)

	allowed, err := h.limiter.Allow(ctx, ip)
	if err != nil {
		h.logger.WarnContext(ctx, "rate limiter unavailable", logging.IP(ip), logging.Error(err))
		allowed = true
	}
	if !allowed {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		h.logger.WarnContext(ctx, "login throttled", logging.IP(ip), logging.Username(req.Username))
		httputil.WriteError(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
		return
	}

	if err := h.users.Authenticate(req.Username, req.Password); err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		if hitErr := h.limiter.Hit(ctx, ip); hitErr != nil {
			h.logger.WarnContext(ctx, "failed to record login failure", logging.IP(ip), logging.Error(hitErr))
		}
		h.logger.InfoContext(ctx, "login failed", logging.IP(ip), logging.Username(req.Username))
		httputil.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := h.tokens.GenerateAccessToken(req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign token", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.logger.InfoContext(ctx, "login succeeded", logging.IP(ip), logging.Username(req.Username))

	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokens.TTL().Seconds()),
	})
}
