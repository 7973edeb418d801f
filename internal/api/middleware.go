// Package api serves the notes HTTP contract with chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/starford/quire/internal/auth"
)

// Auth modes.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthConfig selects how bearer tokens are checked.
type AuthConfig struct {
	Mode   string
	Token  string // token mode
	Secret string // jwt mode, HS256
}

type subjectKey struct{}

// Subject returns the authenticated subject stored by AuthMiddleware, if any.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// AuthMiddleware enforces cfg on every request. Disabled mode lets all
// requests through; token mode compares against a shared token; jwt mode
// verifies an HS256 signature and stores the subject in the context.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch cfg.Mode {
			case AuthToken:
				tok, ok := bearer(r)
				if !ok || tok != cfg.Token {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
			case AuthJWT:
				tok, ok := bearer(r)
				if !ok {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				claims, err := auth.Verify(tok, cfg.Secret)
				if err != nil {
					writeJSON(w, http.StatusUnauthorized, errorBody("invalid token"))
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), subjectKey{}, claims.Subject))
			}
			next.ServeHTTP(w, r)
		})
	}
}
