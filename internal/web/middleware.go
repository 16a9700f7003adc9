package web

import (
	"net/http"
	"time"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

// Logging wraps a handler with request logging.
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Info("%s %s %d %v", r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}

// Recover turns a panicking handler into a 500 instead of a dropped
// connection.
func Recover(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				JSON(w, http.StatusInternalServerError, map[string]string{"error": "Something went wrong. Please try again."})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
