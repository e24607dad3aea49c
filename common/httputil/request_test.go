package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "untrusted peer ignores X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195"},
			remoteAddr: "198.51.100.7:51000",
			want:       "198.51.100.7",
		},
		{
			name:       "untrusted peer ignores X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.195"},
			remoteAddr: "198.51.100.7:51000",
			want:       "198.51.100.7",
		},
		{
			name:       "trusted peer uses X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195"},
			remoteAddr: "10.1.2.3:51000",
			want:       "203.0.113.195",
		},
		{
			name:       "trusted hops are skipped right to left",
			headers:    map[string]string{"X-Forwarded-For": "6.6.6.6, 203.0.113.195 , 10.9.9.9"},
			remoteAddr: "192.0.2.1:51000",
			want:       "203.0.113.195",
		},
		{
			name:       "trusted peer falls back to X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "198.51.100.42"},
			remoteAddr: "10.1.2.3:51000",
			want:       "198.51.100.42",
		},
		{
			name:       "garbage header falls back to peer",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr: "10.1.2.3:51000",
			want:       "10.1.2.3",
		},
		{
			name:       "RemoteAddr IPv6",
			remoteAddr: "[2001:db8::1]:8080",
			want:       "2001:db8::1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.0.2.9",
			want:       "192.0.2.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req, trusted))
		})
	}
}

func TestGetClientIP_NoTrustedProxies(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:51000"
	req.Header.Set("X-Forwarded-For", "203.0.113.195")

	assert.Equal(t, "10.1.2.3", GetClientIP(req, nil))
	assert.Equal(t, "10.1.2.3", GetClientIP(req, &TrustedProxies{}))
}

func TestParseTrustedProxies(t *testing.T) {
	p, err := ParseTrustedProxies([]string{"172.16.0.0/12", " 127.0.0.1 ", "::1", ""})
	require.NoError(t, err)
	assert.True(t, p.contains("172.20.1.1"))
	assert.True(t, p.contains("127.0.0.1"))
	assert.True(t, p.contains("::1"))
	assert.False(t, p.contains("127.0.0.2"))
	assert.False(t, p.contains("garbage"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{header: "bearer abc", want: "abc", ok: true},
		{header: "Basic dXNlcjpwYXNz", ok: false},
		{header: "Bearer ", ok: false},
		{header: "Bearer", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Query string `json:"query"`
		Days  int    `json:"days"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"query":"failed","days":2}`))
		var p payload
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &p))
		assert.Equal(t, payload{Query: "failed", Days: 2}, p)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))
		var p payload
		assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &p), ErrEmptyBody)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"qry":"x"}`))
		var p payload
		assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &p))
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"query":`))
		var p payload
		err := DecodeJSON(httptest.NewRecorder(), req, &p)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmptyBody)
	})
}
