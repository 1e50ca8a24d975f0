package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
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

func TestMemoryLimiterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New("create", NewMemoryStoreWithClock(clock.Now), 10, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d := l.Allow(ctx, "203.0.113.9")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 9-i, d.Remaining)
	}

	d := l.Allow(ctx, "203.0.113.9")
	assert.False(t, d.Allowed)
	assert.Equal(t, 15*time.Minute, d.RetryAfter)

	// other clients are counted separately
	assert.True(t, l.Allow(ctx, "198.51.100.7").Allowed)

	clock.Advance(15 * time.Minute)
	assert.True(t, l.Allow(ctx, "203.0.113.9").Allowed)
}

func TestMemoryStoreSweepsEndedWindows(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	_, _, _ = s.Incr(ctx, "a", time.Second)
	_, _, _ = s.Incr(ctx, "b", time.Second)
	assert.Equal(t, 2, s.size())

	clock.Advance(2 * time.Minute)
	_, _, _ = s.Incr(ctx, "c", time.Second)
	assert.Equal(t, 1, s.size())
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := New("create", NewRedisStore(client), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow(ctx, "203.0.113.9").Allowed)
	}
	d := l.Allow(ctx, "203.0.113.9")
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, l.Allow(ctx, "203.0.113.9").Allowed)
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New("create", failingStore{}, 1, time.Minute)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), "203.0.113.9").Allowed)
	}
}
