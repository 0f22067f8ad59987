package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forumnotify/pkg/ratelimiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testConfig = ratelimiter.Config{
	Capacity:       3,
	RefillRate:     1,
	RefillInterval: 10 * time.Second,
}

func newTestBucket(t *testing.T, clock *fakeClock) *ratelimiter.Bucket {
	t.Helper()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now), ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	b, err := ratelimiter.NewBucket(store, testConfig)
	require.NoError(t, err)
	return b
}

func TestNewBucket_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]ratelimiter.Config{
		"zero capacity":    {Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		"zero refill rate": {Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		"zero interval":    {Capacity: 1, RefillRate: 1},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func TestBucket_TokenBucket(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	b := newTestBucket(t, clock)

	for want := 2; want >= 0; want-- {
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, want, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	t.Log("denied attempts do not drain the bucket further")
	for range 3 {
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, -1, res.Remaining)
		assert.Equal(t, 10*time.Second, res.RetryAfter(clock.Now()))
	}

	clock.Advance(10 * time.Second)
	res, err := b.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)

	t.Log("long idle periods refill up to capacity only")
	clock.Advance(100 * time.Second)
	res, err = b.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestBucket_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newTestBucket(t, newFakeClock())

	_, err := b.AllowN(ctx, "a", 3)
	require.NoError(t, err)

	res, err := b.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	res, err = b.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucket_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newTestBucket(t, newFakeClock())

	_, err := b.AllowN(ctx, "a", 3)
	require.NoError(t, err)
	require.NoError(t, b.Reset(ctx, "a"))

	res, err := b.Allow(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestBucket_AllowNInvalid(t *testing.T) {
	t.Parallel()
	b := newTestBucket(t, newFakeClock())
	_, err := b.AllowN(context.Background(), "a", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newTestBucket(t, newFakeClock())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(ctx, "shared")
			assert.NoError(t, err)
			if res.Allowed() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, testConfig.Capacity, allowed)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(time.Millisecond))
	store.Close()
	store.Close()
	assert.Equal(t, 0, store.Len())
}
