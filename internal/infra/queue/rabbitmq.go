package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

// RabbitEventQueue реализует очередь событий поверх AMQP.
type RabbitEventQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	pubMu sync.Mutex

	consumeOnce sync.Once
	deliveries  <-chan amqp.Delivery
	consumeErr  error
}

var (
	_ domain.EventPublisher = (*RabbitEventQueue)(nil)
	_ domain.EventConsumer  = (*RabbitEventQueue)(nil)
)

// NewRabbitEventQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitEventQueue(amqpURL, queue string) (*RabbitEventQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitEventQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Publish публикует событие в очередь.
func (q *RabbitEventQueue) Publish(ctx context.Context, event domain.Event) error {
	env, err := domain.NewEventEnvelope(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         env.Name,
		Timestamp:    env.OccurredAt,
		Body:         body,
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, msg)
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Pop блокирующе читает событие и подтверждает его получение.
func (q *RabbitEventQueue) Pop(ctx context.Context) (domain.EventEnvelope, error) {
	q.consumeOnce.Do(func() {
		if err := q.ch.Qos(1, 0, false); err != nil {
			q.consumeErr = fmt.Errorf("set qos: %w", err)
			return
		}
		q.deliveries, q.consumeErr = q.ch.Consume(q.queue, "", false, false, false, false, nil)
	})
	if q.consumeErr != nil {
		return domain.EventEnvelope{}, q.consumeErr
	}

	select {
	case <-ctx.Done():
		return domain.EventEnvelope{}, ctx.Err()
	case d, ok := <-q.deliveries:
		if !ok {
			return domain.EventEnvelope{}, errors.New("rabbitmq: delivery channel closed")
		}
		var env domain.EventEnvelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			_ = d.Nack(false, false)
			return domain.EventEnvelope{}, fmt.Errorf("decode envelope: %w", err)
		}
		if err := d.Ack(false); err != nil {
			return domain.EventEnvelope{}, fmt.Errorf("ack delivery: %w", err)
		}
		return env, nil
	}
}

// Close закрывает канал и соединение.
func (q *RabbitEventQueue) Close() error {
	return errors.Join(q.ch.Close(), q.conn.Close())
}
