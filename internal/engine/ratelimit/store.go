// Package ratelimit implements a sliding-window request limiter with
// interchangeable in-process and redis-backed counter stores.
package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Degraded is set when the store failed and the request was let through.
	Degraded bool
}

// Store records request timestamps per key. Implementations prune entries
// at or before now-window, deny when the surviving count has reached limit,
// and otherwise record the request.
type Store interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Sweeper is implemented by stores that hold expired windows in memory.
type Sweeper interface {
	Sweep() int
}

func decide(now time.Time, hits int, oldest time.Time, limit int, window time.Duration) Result {
	resetAt := now.Add(window)
	if hits > 0 {
		resetAt = oldest.Add(window)
	}

	if hits >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}
	}

	remaining := limit - (hits + 1)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: limit, Remaining: remaining, ResetAt: resetAt}
}
