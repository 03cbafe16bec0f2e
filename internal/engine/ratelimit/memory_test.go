package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_Monotonicity(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()
	const limit = 5
	win := time.Minute

	start := clock.Now()
	for i := 0; i < limit; i++ {
		res, err := store.Check(ctx, "k", limit, win)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
		assert.Equal(t, limit-(i+1), res.Remaining)
		clock.Advance(time.Second)
	}

	res, err := store.Check(ctx, "k", limit, win)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, start.Add(win), res.ResetAt, "reset is oldest entry plus window")

	clock.Advance(win)
	res, err = store.Check(ctx, "k", limit, win)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, limit-1, res.Remaining)
}

func TestMemoryStore_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	store.Check(ctx, "k", 2, 10*time.Second)
	clock.Advance(6 * time.Second)
	store.Check(ctx, "k", 2, 10*time.Second)

	res, _ := store.Check(ctx, "k", 2, 10*time.Second)
	assert.False(t, res.Allowed)

	// first hit ages out, second still counts
	clock.Advance(4 * time.Second)
	res, _ = store.Check(ctx, "k", 2, 10*time.Second)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	res, _ := store.Check(ctx, "a", 1, time.Minute)
	assert.True(t, res.Allowed)
	res, _ = store.Check(ctx, "a", 1, time.Minute)
	assert.False(t, res.Allowed)

	res, _ = store.Check(ctx, "b", 1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestMemoryStore_ZeroLimitDenies(t *testing.T) {
	store := NewMemoryStore()
	res, err := store.Check(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	store.Check(ctx, "old", 5, time.Minute)
	clock.Advance(30 * time.Second)
	store.Check(ctx, "fresh", 5, time.Minute)
	clock.Advance(31 * time.Second)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	store.Reset()
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ConcurrentChecks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	const limit = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := store.Check(ctx, "k", limit, time.Minute)
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
}
