package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig selects how API keys are verified. Hash takes precedence over
// Key. With neither set, authentication is disabled.
type AuthConfig struct {
	Key  string
	Hash string // bcrypt hash of the key
	// Public paths skip authentication.
	Public []string
}

// Auth returns middleware that checks a Bearer token or X-API-Key header.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(cfg.Public))
	for _, p := range cfg.Public {
		public[p] = true
	}

	verify := func(token string) bool {
		if cfg.Hash != "" {
			return bcrypt.CompareHashAndPassword([]byte(cfg.Hash), []byte(token)) == nil
		}
		return subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Key)) == 1
	}

	return func(next http.Handler) http.Handler {
		if cfg.Key == "" && cfg.Hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}
			if !verify(token) {
				writeJSONError(w, http.StatusUnauthorized, "invalid authentication token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads "Authorization: Bearer <token>" or X-API-Key.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"status":"error","message":"` + msg + `"}`))
}
