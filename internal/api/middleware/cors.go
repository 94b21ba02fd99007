package middleware

import (
	"net/http"
	"slices"
)

// CORS answers preflight requests and sets the allow headers. An empty
// origins list allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allow := "*"
			if len(origins) > 0 {
				allow = ""
				if slices.Contains(origins, origin) {
					allow = origin
				}
			}

			if allow != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allow)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, "+RequestIDHeader)
				h.Set("Access-Control-Max-Age", "3600")
				if allow != "*" {
					h.Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
