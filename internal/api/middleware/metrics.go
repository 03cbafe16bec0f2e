package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type RequestObserver interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration)
}

// Observe records latency and status for a route. path is the route
// template, not the request URL.
func Observe(obs RequestObserver, path string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next(rec, r)

			elapsed := time.Since(start)
			if obs != nil {
				obs.ObserveRequest(r.Method, path, rec.status, elapsed)
			}
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", elapsed).
				Msg("request")
		}
	}
}
