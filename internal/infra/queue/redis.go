package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

// RedisEventQueue реализует очередь событий на базе Redis lists.
type RedisEventQueue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

var (
	_ domain.EventPublisher = (*RedisEventQueue)(nil)
	_ domain.EventConsumer  = (*RedisEventQueue)(nil)
)

// NewRedisEventQueue создаёт очередь по указанному ключу.
func NewRedisEventQueue(client *redis.Client, key string) *RedisEventQueue {
	return &RedisEventQueue{client: client, key: key, timeout: time.Second}
}

// Publish публикует событие в очередь.
func (q *RedisEventQueue) Publish(ctx context.Context, event domain.Event) error {
	env, err := domain.NewEventEnvelope(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

// Pop блокирующе читает событие из очереди.
func (q *RedisEventQueue) Pop(ctx context.Context) (domain.EventEnvelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.EventEnvelope{}, err
		}

		res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.EventEnvelope{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.EventEnvelope{}, err
		}
		if len(res) != 2 {
			return domain.EventEnvelope{}, errors.New("redis queue: unexpected response")
		}
		var env domain.EventEnvelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			return domain.EventEnvelope{}, fmt.Errorf("decode envelope: %w", err)
		}
		return env, nil
	}
}
