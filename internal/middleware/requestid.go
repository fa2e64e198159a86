package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID tags every request with a correlation ID. An inbound
// X-Request-ID is kept so callers can supply their own; otherwise a fresh
// UUID is assigned. The ID is mirrored on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
			r.Header.Set("X-Request-ID", id)
		}

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
