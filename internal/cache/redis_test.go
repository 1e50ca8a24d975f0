package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Code   string `json:"code"`
	Clicks int    `json:"clicks"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCacheJSONRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, LinkKey("Ab3dEf"), payload{Code: "Ab3dEf", Clicks: 2}, time.Minute))

	var got payload
	require.NoError(t, c.GetJSON(ctx, LinkKey("Ab3dEf"), &got))
	assert.Equal(t, payload{Code: "Ab3dEf", Clicks: 2}, got)
}

func TestRedisCacheMissAndExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got payload
	assert.ErrorIs(t, c.GetJSON(ctx, "missing", &got), ErrCacheMiss)

	require.NoError(t, c.SetJSON(ctx, SettingsKey, payload{Code: "x"}, time.Minute))
	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.GetJSON(ctx, SettingsKey, &got), ErrCacheMiss)
}

func TestRedisCacheDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, LinkKey("a"), payload{}, 0))
	require.NoError(t, c.SetJSON(ctx, LinkKey("b"), payload{}, 0))
	require.NoError(t, c.Delete(ctx, LinkKey("a"), LinkKey("b")))
	assert.False(t, mr.Exists(LinkKey("a")))
	assert.False(t, mr.Exists(LinkKey("b")))
	assert.NoError(t, c.Delete(ctx))
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), addr)
	assert.Error(t, err)
}

func TestNopCache(t *testing.T) {
	var c Cache = Nop{}
	var got payload
	assert.ErrorIs(t, c.GetJSON(context.Background(), "k", &got), ErrCacheMiss)
	assert.NoError(t, c.SetJSON(context.Background(), "k", got, time.Second))
}
