package queue

import (
	"context"
	"errors"
	"fmt"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

// ErrQueueFull событие отброшено: буфер заполнен.
var ErrQueueFull = errors.New("event queue is full")

const defaultMemoryBuffer = 64

// MemoryQueue очередь событий внутри процесса на буферизованном канале.
// Publish никогда не блокирует: при заполненном буфере событие отбрасывается,
// доставка не более одного раза.
type MemoryQueue struct {
	events chan domain.EventEnvelope
}

var (
	_ domain.EventPublisher = (*MemoryQueue)(nil)
	_ domain.EventConsumer  = (*MemoryQueue)(nil)
)

// NewMemoryQueue создаёт очередь с буфером size.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = defaultMemoryBuffer
	}
	return &MemoryQueue{events: make(chan domain.EventEnvelope, size)}
}

// Publish кладёт событие в буфер.
func (q *MemoryQueue) Publish(_ context.Context, event domain.Event) error {
	env, err := domain.NewEventEnvelope(event)
	if err != nil {
		return err
	}
	select {
	case q.events <- env:
		return nil
	default:
		return fmt.Errorf("memory queue: %s: %w", env.Name, ErrQueueFull)
	}
}

// Pop ждёт следующее событие.
func (q *MemoryQueue) Pop(ctx context.Context) (domain.EventEnvelope, error) {
	select {
	case <-ctx.Done():
		return domain.EventEnvelope{}, ctx.Err()
	case env := <-q.events:
		return env, nil
	}
}

// Len возвращает число событий в буфере.
func (q *MemoryQueue) Len() int {
	return len(q.events)
}

// Discard издатель без получателей: событие проверяется и отбрасывается.
type Discard struct{}

var _ domain.EventPublisher = Discard{}

// Publish собирает конверт и ничего не хранит.
func (Discard) Publish(_ context.Context, event domain.Event) error {
	_, err := domain.NewEventEnvelope(event)
	return err
}

// InProcess выбирает издателя для очереди внутри процесса. Без читателя
// буфер только заполнялся бы, поэтому события отбрасываются, а очередь
// не создаётся.
func InProcess(size int, consumed bool) (domain.EventPublisher, *MemoryQueue) {
	if !consumed {
		return Discard{}, nil
	}
	q := NewMemoryQueue(size)
	return q, q
}

// Observed оборачивает издателя учётом метрик публикации.
func Observed(publisher domain.EventPublisher) domain.EventPublisher {
	return observedPublisher{next: publisher}
}

type observedPublisher struct {
	next domain.EventPublisher
}

func (p observedPublisher) Publish(ctx context.Context, event domain.Event) error {
	err := p.next.Publish(ctx, event)
	metrics.ObserveEventPublished(event.EventName(), err)
	return err
}
