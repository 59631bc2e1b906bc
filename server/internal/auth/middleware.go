package auth

import (
	"encoding/json"
	"net/http"
)

// QueryParam is the query parameter accepted in place of the header, for
// WebSocket clients that cannot set request headers.
const QueryParam = "api_key"

// Middleware returns HTTP middleware with the same rules as APIKeyInterceptor.
// Requests for the paths in open (exact match) are never checked. Rejected
// requests get 401 with a JSON error body.
func Middleware(mode, header, key string, open ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(open))
	for _, p := range open {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if !enabled(mode, key) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(header)
			if got == "" {
				got = r.URL.Query().Get(QueryParam)
			}
			if !keyMatches(got, key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
