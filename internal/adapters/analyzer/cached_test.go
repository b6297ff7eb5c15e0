package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-diary/internal/domain"
	"food-diary/internal/infra/cache"
)

type countingProvider struct {
	calls int
	next  domain.AnalysisProvider
}

func (p *countingProvider) Analyze(ctx context.Context, img domain.Image, description string) (domain.FoodAnalysis, error) {
	p.calls++
	return p.next.Analyze(ctx, img, description)
}

func newCached(t *testing.T) (*Cached, *countingProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingProvider{next: newStub()}
	return NewCached(inner, cache.NewRedis(client, "test:"), time.Hour, zerolog.Nop()), inner, mr
}

func TestCachedReusesSuccessfulAnalysis(t *testing.T) {
	c, inner, _ := newCached(t)
	ctx := context.Background()

	first, err := c.Analyze(ctx, jpegBytes, "피자")
	require.NoError(t, err)
	second, err := c.Analyze(ctx, jpegBytes, "피자")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)

	_, err = c.Analyze(ctx, jpegBytes, "샐러드")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "другое описание даёт другой ключ")
}

func TestCachedSkipsFailures(t *testing.T) {
	c, inner, mr := newCached(t)
	ctx := context.Background()

	_, err := c.Analyze(ctx, jpegBytes, "에러")
	require.Error(t, err)
	_, err = c.Analyze(ctx, jpegBytes, "에러")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, mr.Keys())
}

func TestCachedFallsThroughWhenRedisIsDown(t *testing.T) {
	c, inner, mr := newCached(t)
	mr.Close()

	got, err := c.Analyze(context.Background(), jpegBytes, "피자")
	require.NoError(t, err)
	assert.Equal(t, 854.0, got.TotalCalories)
	assert.Equal(t, 1, inner.calls)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(domain.Image{Data: []byte("ab")}, "c")
	b := cacheKey(domain.Image{Data: []byte("a")}, "bc")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len(cacheKeyPrefix)+64)
}
