package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window as a sorted set scored by request time in
// milliseconds so every gateway instance shares the same counters.
// Concurrent requests may race between the count and the insert; the
// resulting overshoot is tolerated.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func (s *RedisStore) Check(ctx context.Context, key string, limit int, win time.Duration) (Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	cutoff := nowMs - win.Milliseconds()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	first := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit window %s: %w", key, err)
	}

	var oldest time.Time
	if z := first.Val(); len(z) > 0 {
		oldest = time.UnixMilli(int64(z[0].Score))
	}

	res := decide(now, int(card.Val()), oldest, limit, win)
	if !res.Allowed {
		return res, nil
	}

	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()
	pipe = s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
	pipe.PExpire(ctx, key, win)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit record %s: %w", key, err)
	}
	return res, nil
}
