package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/api/internal/auth"
	"github.com/telhawk-systems/fwlens/api/internal/ratelimit"
	"github.com/telhawk-systems/fwlens/api/internal/service"
	"github.com/telhawk-systems/fwlens/common/config"
	"github.com/telhawk-systems/fwlens/common/httputil"
	"github.com/telhawk-systems/fwlens/common/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, slog.LevelError, "json")
}

type stubSearcher struct {
	events []analytics.RawEvent
	err    error
}

func (s *stubSearcher) Search(context.Context, string, map[string]interface{}) ([]analytics.RawEvent, error) {
	return s.events, s.err
}

func newAnalysisHandler(s analytics.Searcher) *AnalysisHandler {
	p := analytics.NewPipeline(s)
	return NewAnalysisHandler(service.NewAnalysisService(p, nil, quietLogger()))
}

func newAuthHandler(t *testing.T, limiter ratelimit.RateLimiter) (*AuthHandler, *auth.TokenGenerator) {
	t.Helper()
	return newAuthHandlerBehind(t, limiter, nil)
}

func newAuthHandlerBehind(t *testing.T, limiter ratelimit.RateLimiter, proxies *httputil.TrustedProxies) (*AuthHandler, *auth.TokenGenerator) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)
	users, err := auth.NewUserStore([]config.UserConfig{{Username: "admin", PasswordHash: string(hash)}})
	require.NoError(t, err)

	tokens := auth.NewTokenGenerator("test-secret", "fwlens", 60*time.Minute)
	return NewAuthHandler(users, tokens, limiter, proxies, quietLogger()), tokens
}

func loginRequest(body string, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = ip + ":51000"
	return req
}

func TestLogin_Success(t *testing.T) {
	h, tokens := newAuthHandler(t, nil)

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(`{"username":"admin","password":"1234"}`, "192.0.2.10"))

	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := tokens.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username())
}

func TestLogin_Failures(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "wrong password", body: `{"username":"admin","password":"nope"}`, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", body: `{"username":"root","password":"1234"}`, wantStatus: http.StatusUnauthorized},
		{name: "missing password", body: `{"username":"admin"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"username":`, wantStatus: http.StatusBadRequest},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, loginRequest(tt.body, "192.0.2.11"))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestLogin_ThrottlesFailedAttempts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h, _ := newAuthHandler(t, ratelimit.NewRedisRateLimiter(client, 3, time.Minute))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.Login(w, loginRequest(`{"username":"admin","password":"bad"}`, "198.51.100.7"))
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i)
	}

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(`{"username":"admin","password":"1234"}`, "198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// another client is unaffected
	w = httptest.NewRecorder()
	h.Login(w, loginRequest(`{"username":"admin","password":"1234"}`, "198.51.100.8"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h, _ := newAuthHandler(t, ratelimit.NewRedisRateLimiter(client, 3, time.Minute))

	throttled := 0
	for i := 0; i < 20; i++ {
		req := loginRequest(`{"username":"admin","password":"bad"}`, "198.51.100.7")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.8.8.%d", i))
		w := httptest.NewRecorder()
		h.Login(w, req)
		if w.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 17, throttled)
}

func TestLogin_ThrottlesForwardedClientBehindTrustedProxy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	proxies, err := httputil.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	h, _ := newAuthHandlerBehind(t, ratelimit.NewRedisRateLimiter(client, 3, time.Minute), proxies)

	login := func(clientIP, password string) int {
		req := loginRequest(`{"username":"admin","password":"`+password+`"}`, "10.0.0.5")
		req.Header.Set("X-Forwarded-For", clientIP)
		w := httptest.NewRecorder()
		h.Login(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusUnauthorized, login("203.0.113.50", "bad"))
	}
	assert.Equal(t, http.StatusTooManyRequests, login("203.0.113.50", "1234"))

	// other clients behind the same proxy are unaffected
	assert.Equal(t, http.StatusOK, login("203.0.113.51", "1234"))
}

func TestLogin_LimiterDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	h, _ := newAuthHandler(t, ratelimit.NewRedisRateLimiter(client, 3, time.Minute))

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(`{"username":"admin","password":"1234"}`, "198.51.100.9"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func failedEvents(n int, ip string) []analytics.RawEvent {
	events := make([]analytics.RawEvent, n)
	for i := range events {
		events[i] = analytics.RawEvent{"srcip": ip, "msg": "admin login failed", "severity": "medium"}
	}
	return events
}

func TestAnalyze(t *testing.T) {
	h := newAnalysisHandler(&stubSearcher{events: failedEvents(12, "10.0.0.2")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"query":"failed","days":1,"limit":100}`))
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report analytics.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, analytics.SearchRequest{Query: "failed", Days: 1, Limit: 100}, report.Request)
	assert.Len(t, report.Records, 12)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, analytics.CategoryFailedAuth, report.Findings[0].Category)
	assert.Equal(t, 12, report.Findings[0].Count)
	assert.Equal(t, analytics.Breakdown{{Key: "10.0.0.2", Count: 12}}, report.SuspiciousFailedIPs)
	assert.NotEmpty(t, report.ID)
}

func TestAnalyze_EmptyBodyUsesDefaults(t *testing.T) {
	h := newAnalysisHandler(&stubSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"query": "*", "days": float64(3), "limit": float64(1000)}, body["request"])
	assert.Equal(t, []interface{}{}, body["records"])
	assert.Equal(t, []interface{}{}, body["findings"])
	assert.Equal(t, []interface{}{}, body["suspicious_volume_ips"])
}

func TestAnalyze_BadBody(t *testing.T) {
	h := newAnalysisHandler(&stubSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"days":"three"}`))
	w := httptest.NewRecorder()
	h.Analyze(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	h := newAnalysisHandler(&stubSearcher{err: errors.New("dial tcp: connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"search backend unavailable"}`, w.Body.String())
}

func TestSearch(t *testing.T) {
	h := newAnalysisHandler(&stubSearcher{events: []analytics.RawEvent{
		{"srcip": "10.0.0.1", "action": "deny"},
		{"remip": "10.0.0.2"},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"action:deny"}`))
	w := httptest.NewRecorder()
	h.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "deny", resp.Results[0]["action"])
	assert.Equal(t, "action:deny", resp.Request.Query)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	h := newAnalysisHandler(&stubSearcher{err: errors.New("timeout")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, nil)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(stubPinger{}, nil).Ready(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())

	w = httptest.NewRecorder()
	NewHealthHandler(stubPinger{err: errors.New("down")}, nil).Ready(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "opensearch unavailable")
}
