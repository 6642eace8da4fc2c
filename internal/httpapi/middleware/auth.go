package middleware

import (
	"net/http"
	"strings"
)

// Keys holds the configured API keys. Public keys unlock registration and
// query routes; admin keys additionally unlock sweep triggers.
type Keys struct {
	Public []string
	Admin  []string
}

func presentedKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func keyIn(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if k == given {
			return true
		}
	}
	return false
}

func reject(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if code == http.StatusForbidden {
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
		return
	}
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

// RequireAny admits requests presenting either a public or admin key.
// With no keys configured it admits everything (local dev).
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Public) > 0 || len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := presentedKey(r)
			if keyIn(key, keys.Public) || keyIn(key, keys.Admin) {
				next.ServeHTTP(w, r)
				return
			}
			reject(w, http.StatusUnauthorized)
		})
	}
}

// RequireAdmin only admits requests presenting an admin key.
// With no admin keys configured it admits everything (dev).
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyIn(presentedKey(r), keys.Admin) {
				next.ServeHTTP(w, r)
				return
			}
			reject(w, http.StatusForbidden)
		})
	}
}
