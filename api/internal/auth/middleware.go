package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/telhawk-systems/fwlens/common/httputil"
)

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims placed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// Middleware guards handlers with bearer token validation.
type Middleware struct {
	tokens *TokenGenerator
}

// NewMiddleware creates a Middleware validating with tokens.
func NewMiddleware(tokens *TokenGenerator) *Middleware {
	return &Middleware{tokens: tokens}
}

// RequireAuth rejects requests without a valid access token.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := httputil.BearerToken(r)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}

		claims, err := m.tokens.ValidateAccessToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "token expired"
			}
			httputil.WriteError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}
