package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

const cacheKeyPrefix = "analysis:"

// Cached кэширует успешные ответы провайдера по содержимому изображения
// и описанию.
type Cached struct {
	next   domain.AnalysisProvider
	cache  domain.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

var _ domain.AnalysisProvider = (*Cached)(nil)

// NewCached оборачивает провайдера кэшем.
func NewCached(next domain.AnalysisProvider, cache domain.Cache, ttl time.Duration, logger zerolog.Logger) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Analyze возвращает ответ из кэша или вызывает провайдера.
func (c *Cached) Analyze(ctx context.Context, img domain.Image, description string) (domain.FoodAnalysis, error) {
	key := cacheKey(img, description)
	if raw, found, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Msg("analysis cache read failed")
	} else if found {
		var cached domain.FoodAnalysis
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.ObserveCache(true)
			return cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("analysis cache entry is corrupted")
	}
	metrics.ObserveCache(false)

	analysis, err := c.next.Analyze(ctx, img, description)
	if err != nil {
		return domain.FoodAnalysis{}, err
	}
	if raw, err := json.Marshal(analysis); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn().Err(err).Msg("analysis cache write failed")
		}
	}
	return analysis, nil
}

func cacheKey(img domain.Image, description string) string {
	h := sha256.New()
	h.Write(img.Data)
	h.Write([]byte{0})
	h.Write([]byte(description))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
