package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	apiContext "taskgate/internal/api/context"
	"taskgate/internal/engine/keys"
	"taskgate/internal/engine/ratelimit"
	"taskgate/internal/pkg/errors"
)

type Limiter interface {
	Check(ctx context.Context, class ratelimit.Class, identity string) ratelimit.Result
}

// IdentityFunc picks the counter a request is charged against.
type IdentityFunc func(r *http.Request) string

type RateLimitMiddleware struct {
	limiter Limiter
	classes map[string]ratelimit.Class
	now     func() time.Time
}

func NewRateLimitMiddleware(limiter Limiter, classes map[string]ratelimit.Class) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, classes: classes, now: time.Now}
}

// Limit charges each request to class. Rate limit headers are set on every
// response, including the 429.
func (m *RateLimitMiddleware) Limit(className string, identity IdentityFunc) func(http.HandlerFunc) http.HandlerFunc {
	class := m.classes[className]
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			res := m.limiter.Check(r.Context(), class, identity(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", res.ResetAt.UTC().Format(time.RFC3339))

			if !res.Allowed {
				retry := int(res.ResetAt.Sub(m.now()).Seconds() + 0.999)
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimit, "Too many requests, please try again later", map[string]interface{}{
					"limit":    res.Limit,
					"reset_at": res.ResetAt.UTC().Format(time.RFC3339),
				})
				return
			}

			next(w, r)
		}
	}
}

// ClientIP prefers the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByAPIKey charges the authenticated key, falling back to the client IP.
func ByAPIKey(r *http.Request) string {
	if identity, ok := r.Context().Value(apiContext.APIKey).(*keys.Identity); ok {
		return "key:" + identity.KeyID
	}
	return "ip:" + ClientIP(r)
}

func ByIP(r *http.Request) string {
	return "ip:" + ClientIP(r)
}
