package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test:"), mr
}

func TestRedisCacheGetSet(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)
	assert.True(t, mr.Exists("test:k"))

	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheOnce(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	calls := 0
	fn := func() error { calls++; return nil }

	require.NoError(t, c.Once(ctx, "event-1", time.Hour, fn))
	require.NoError(t, c.Once(ctx, "event-1", time.Hour, fn))
	assert.Equal(t, 1, calls)
}

func TestRedisCacheOnceReleasesKeyOnError(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := c.Once(ctx, "event-2", time.Hour, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("test:event-2"))

	calls := 0
	require.NoError(t, c.Once(ctx, "event-2", time.Hour, func() error { calls++; return nil }))
	assert.Equal(t, 1, calls)
}

func TestRedisCacheSurfacesConnectionErrors(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	_, found, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, found)
}
