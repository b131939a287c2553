// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// responseWriter wraps http.ResponseWriter to capture status and size.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// RequestLogger tags every request with a short id (echoed in
// X-Request-ID) and logs one line per request. Non-verbose mode logs
// only failures; health probes are never logged, they just add noise.
func RequestLogger(verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()[:8]
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if strings.HasPrefix(r.URL.Path, "/health") {
				return
			}
			if !verbose && wrapped.status < 400 {
				return
			}

			log.Printf("%s %s %s from %s status=%d size=%d in %v",
				requestID, r.Method, r.URL.Path, r.RemoteAddr,
				wrapped.status, wrapped.size, time.Since(start))
		})
	}
}
