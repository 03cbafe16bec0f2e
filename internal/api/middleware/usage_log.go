package middleware

import (
	"net/http"
	"time"

	apiContext "taskgate/internal/api/context"
	"taskgate/internal/engine/keys"
	"taskgate/internal/platform/audit"
)

type UsageRecorder interface {
	Log(e audit.Entry)
}

// UsageLog records every request made with a valid API key, including ones
// rejected by later gates. It must run after APIKeyMiddleware.
func UsageLog(recorder UsageRecorder) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next(rec, r)

			identity, ok := r.Context().Value(apiContext.APIKey).(*keys.Identity)
			if !ok {
				return
			}
			recorder.Log(audit.Entry{
				APIKeyID:   identity.KeyID,
				Endpoint:   r.URL.Path,
				Method:     r.Method,
				StatusCode: rec.status,
				IPAddress:  ClientIP(r),
				UserAgent:  r.UserAgent(),
				Elapsed:    time.Since(start),
			})
		}
	}
}
