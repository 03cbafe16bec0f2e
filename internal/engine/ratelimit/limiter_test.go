package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"taskgate/internal/platform/config"
)

type failingStore struct{}

func (failingStore) Check(ctx context.Context, key string, limit int, win time.Duration) (Result, error) {
	return Result{}, errors.New("connection refused")
}

type recordingObserver struct {
	allowed  map[string]int
	denied   map[string]int
	degraded map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{allowed: map[string]int{}, denied: map[string]int{}, degraded: map[string]int{}}
}

func (o *recordingObserver) ObserveRateLimit(class string, allowed bool) {
	if allowed {
		o.allowed[class]++
	} else {
		o.denied[class]++
	}
}

func (o *recordingObserver) ObserveRateLimitDegraded(class string) {
	o.degraded[class]++
}

func TestLimiter_ClassesDoNotShareCounters(t *testing.T) {
	obs := newRecordingObserver()
	l := NewLimiter(NewMemoryStore(), "rl:", obs)
	ctx := context.Background()

	auth := Class{Name: ClassAuth, Limit: 1, Window: time.Minute}
	api := Class{Name: ClassAPI, Limit: 1, Window: time.Minute}

	assert.True(t, l.Check(ctx, auth, "1.2.3.4").Allowed)
	assert.False(t, l.Check(ctx, auth, "1.2.3.4").Allowed)
	assert.True(t, l.Check(ctx, api, "1.2.3.4").Allowed)

	assert.Equal(t, 1, obs.denied[ClassAuth])
	assert.Equal(t, 1, obs.allowed[ClassAPI])
	assert.Equal(t, "rl:auth:1.2.3.4", l.Key(auth, "1.2.3.4"))
}

func TestLimiter_FailsOpen(t *testing.T) {
	obs := newRecordingObserver()
	l := NewLimiter(failingStore{}, "rl:", obs)
	class := Class{Name: ClassPublicAPI, Limit: 100, Window: time.Hour}

	res := l.Check(context.Background(), class, "key_1")
	assert.True(t, res.Allowed)
	assert.True(t, res.Degraded)
	assert.Equal(t, 100, res.Remaining)
	assert.Equal(t, 1, obs.degraded[ClassPublicAPI])
}

func TestLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	l := NewLimiter(NewRedisStore(client), "rl:", nil)
	class := Class{Name: ClassAPI, Limit: 1, Window: time.Minute}

	assert.True(t, l.Check(context.Background(), class, "ip").Allowed)
	mr.Close()
	res := l.Check(context.Background(), class, "ip")
	assert.True(t, res.Allowed)
	assert.True(t, res.Degraded)
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	l := NewLimiter(store, "rl:", nil)

	l.Check(context.Background(), Class{Name: ClassAPI, Limit: 5, Window: time.Second}, "ip")
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, l.Sweep())

	redisBacked := NewLimiter(failingStore{}, "rl:", nil)
	assert.Equal(t, 0, redisBacked.Sweep())
}

func TestClassesFromConfig(t *testing.T) {
	classes := ClassesFromConfig(config.RateLimitConfig{
		Auth:      config.LimitClass{Limit: 5, Window: 15 * time.Minute},
		API:       config.LimitClass{Limit: 100, Window: 15 * time.Minute},
		PublicAPI: config.LimitClass{Limit: 100, Window: time.Hour},
	})

	assert.Equal(t, 5, classes[ClassAuth].Limit)
	assert.Equal(t, time.Hour, classes[ClassPublicAPI].Window)
	assert.Equal(t, ClassAPI, classes[ClassAPI].Name)
}
