package autofill

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-diary/internal/domain"
	"food-diary/internal/infra/cache"
	"food-diary/internal/infra/queue"
)

type fakeDiaries struct {
	domain.DiaryService

	mu     sync.Mutex
	events []domain.FoodAnalyzedEvent
	err    error
}

func (f *fakeDiaries) RecordAnalysis(_ context.Context, event domain.FoodAnalyzedEvent) (domain.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if f.err != nil {
		return domain.Diary{}, f.err
	}
	return domain.Diary{ID: "diary-1", UserID: event.UserID}, nil
}

func (f *fakeDiaries) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func analyzed(userID string) domain.FoodAnalyzedEvent {
	return domain.FoodAnalyzedEvent{
		UserID:      userID,
		ImageURL:    "file:///uploads/1.jpg",
		Description: "피자",
		Analysis:    domain.FoodAnalysis{Ingredients: []string{"피자 도우"}, TotalCalories: 854, Breakdown: domain.Breakdown{}},
	}
}

func TestWorkerRunDispatchesEvents(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	diaries := &fakeDiaries{}
	w := NewWorker(q, diaries, nil, zerolog.Nop())

	require.NoError(t, q.Publish(context.Background(), analyzed("user-1")))
	require.NoError(t, q.Publish(context.Background(), analyzed("user-2")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return diaries.count() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, "user-1", diaries.events[0].UserID)
	assert.Equal(t, "user-2", diaries.events[1].UserID)
}

func TestWorkerSkipsBrokenAndForeignEvents(t *testing.T) {
	diaries := &fakeDiaries{}
	w := NewWorker(queue.NewMemoryQueue(1), diaries, nil, zerolog.Nop())

	w.Handle(context.Background(), domain.EventEnvelope{ID: "1", Name: "user.signed_up", Payload: json.RawMessage(`{}`)})
	w.Handle(context.Background(), domain.EventEnvelope{ID: "2", Name: domain.EventFoodAnalyzed, Payload: json.RawMessage(`{broken`)})
	assert.Zero(t, diaries.count())
}

func TestWorkerContinuesAfterRecordFailure(t *testing.T) {
	diaries := &fakeDiaries{err: errors.New("db down")}
	w := NewWorker(queue.NewMemoryQueue(1), diaries, nil, zerolog.Nop())

	env, err := domain.NewEventEnvelope(analyzed("user-1"))
	require.NoError(t, err)
	w.Handle(context.Background(), env)
	w.Handle(context.Background(), env)
	assert.Equal(t, 2, diaries.count())
}

func TestWorkerDeduplicatesRedeliveries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	diaries := &fakeDiaries{}
	w := NewWorker(queue.NewMemoryQueue(1), diaries, cache.NewRedis(client, "test:"), zerolog.Nop())

	env, err := domain.NewEventEnvelope(analyzed("user-1"))
	require.NoError(t, err)
	w.Handle(context.Background(), env)
	w.Handle(context.Background(), env)
	assert.Equal(t, 1, diaries.count())

	other, err := domain.NewEventEnvelope(analyzed("user-1"))
	require.NoError(t, err)
	w.Handle(context.Background(), other)
	assert.Equal(t, 2, diaries.count())
}

type failingConsumer struct{ calls int }

func (f *failingConsumer) Pop(ctx context.Context) (domain.EventEnvelope, error) {
	f.calls++
	return domain.EventEnvelope{}, errors.New("connection reset")
}

func TestWorkerBacksOffOnConsumerErrors(t *testing.T) {
	consumer := &failingConsumer{}
	w := NewWorker(consumer, &fakeDiaries{}, nil, zerolog.Nop())
	w.backoff = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)
	assert.Greater(t, consumer.calls, 1)
}
