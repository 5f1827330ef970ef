// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ManuGH/resumer/internal/player"
)

// ClientFactory builds an upstream client acting on behalf of one access token.
type ClientFactory interface {
	ForToken(accessToken string) player.Client
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func(accessToken string) player.Client

// ForToken implements ClientFactory.
func (f ClientFactoryFunc) ForToken(accessToken string) player.Client { return f(accessToken) }

type ctxClientKey struct{}

// extractToken returns the bearer token from the Authorization header.
// Query parameter tokens are never accepted.
func extractToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authMiddleware requires a bearer token and stores the per-request client in the context.
// The token itself is validated by the upstream API on first use.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, r, errMissingToken)
			return
		}
		ctx := context.WithValue(r.Context(), ctxClientKey{}, s.clients.ForToken(token))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientFromContext(ctx context.Context) player.Client {
	c, _ := ctx.Value(ctxClientKey{}).(player.Client)
	return c
}
