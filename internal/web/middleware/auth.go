// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/caseflow/caseflow/internal/core"
)

type identityKey struct{}

// ParseIdentityTokens turns configured token:user-id:role entries into a
// lookup table. Malformed entries are rejected by config validation before
// this runs, but are skipped defensively here as well.
func ParseIdentityTokens(entries []string) map[string]core.Identity {
	identities := make(map[string]core.Identity, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			continue
		}
		identities[parts[0]] = core.Identity{ID: parts[1], Role: parts[2]}
	}
	return identities
}

// Identity returns middleware that resolves the X-API-Key header to a
// configured identity and stores it in the request context. Requests without
// a valid key still pass through; handlers that need an identity reject them
// with 401 via the service's own precondition checks.
func Identity(identities map[string]core.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ident, ok := lookupKey(key, identities)
			if !ok {
				slog.Warn("auth: unknown API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupKey compares the presented key against every configured token in
// constant time so the comparison cost does not reveal which token matched.
func lookupKey(key string, identities map[string]core.Identity) (core.Identity, bool) {
	var found core.Identity
	matched := 0
	for token, ident := range identities {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			found = ident
			matched = 1
		}
	}
	return found, matched == 1
}

// IdentityFromContext returns the authenticated identity, or the zero value
// when the request carried no valid key.
func IdentityFromContext(ctx context.Context) core.Identity {
	ident, _ := ctx.Value(identityKey{}).(core.Identity)
	return ident
}
