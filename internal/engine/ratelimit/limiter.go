package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/config"
)

// Class is an independent counter namespace with its own limit and window.
type Class struct {
	Name   string
	Limit  int
	Window time.Duration
}

const (
	ClassAuth      = "auth"
	ClassAPI       = "api"
	ClassPublicAPI = "public_api"
)

func ClassesFromConfig(cfg config.RateLimitConfig) map[string]Class {
	return map[string]Class{
		ClassAuth:      {Name: ClassAuth, Limit: cfg.Auth.Limit, Window: cfg.Auth.Window},
		ClassAPI:       {Name: ClassAPI, Limit: cfg.API.Limit, Window: cfg.API.Window},
		ClassPublicAPI: {Name: ClassPublicAPI, Limit: cfg.PublicAPI.Limit, Window: cfg.PublicAPI.Window},
	}
}

type Observer interface {
	ObserveRateLimit(class string, allowed bool)
	ObserveRateLimitDegraded(class string)
}

type Limiter struct {
	store  Store
	prefix string
	obs    Observer
	log    zerolog.Logger
	now    func() time.Time
}

func NewLimiter(store Store, prefix string, obs Observer) *Limiter {
	return &Limiter{
		store:  store,
		prefix: prefix,
		obs:    obs,
		log:    logger.Component("ratelimit"),
		now:    time.Now,
	}
}

func (l *Limiter) Key(class Class, identity string) string {
	return l.prefix + class.Name + ":" + identity
}

// Check never fails: a store error lets the request through and is logged
// as a degraded condition.
func (l *Limiter) Check(ctx context.Context, class Class, identity string) Result {
	res, err := l.store.Check(ctx, l.Key(class, identity), class.Limit, class.Window)
	if err != nil {
		l.log.Warn().Err(err).
			Str("class", class.Name).
			Str("identity", identity).
			Msg("rate limit store unavailable, failing open")
		if l.obs != nil {
			l.obs.ObserveRateLimitDegraded(class.Name)
		}
		return Result{
			Allowed:   true,
			Limit:     class.Limit,
			Remaining: class.Limit,
			ResetAt:   l.now().Add(class.Window),
			Degraded:  true,
		}
	}

	if l.obs != nil {
		l.obs.ObserveRateLimit(class.Name, res.Allowed)
	}
	return res
}

// Sweep evicts expired in-memory windows. Shared stores expire keys on their
// own and report zero.
func (l *Limiter) Sweep() int {
	if s, ok := l.store.(Sweeper); ok {
		return s.Sweep()
	}
	return 0
}
