package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventFoodAnalyzed имя события об успешном анализе блюда.
const EventFoodAnalyzed = "food.analyzed"

// Event доменное событие.
type Event interface {
	EventName() string
}

// FoodAnalyzedEvent публикуется ровно один раз после успешной загрузки и анализа.
type FoodAnalyzedEvent struct {
	UserID      string       `json:"userId"`
	ImageURL    string       `json:"imageUrl"`
	Description string       `json:"description"`
	Analysis    FoodAnalysis `json:"analysis"`
	AnalyzedAt  time.Time    `json:"analyzedAt"`
}

// EventName реализует Event.
func (FoodAnalyzedEvent) EventName() string { return EventFoodAnalyzed }

// EventEnvelope транспортная обёртка события для очередей.
type EventEnvelope struct {
	ID         string          `json:"event_id"`
	Name       string          `json:"event_type"`
	OccurredAt time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"data"`
}

// NewEventEnvelope упаковывает событие и присваивает ему идентификатор.
func NewEventEnvelope(event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}
	return EventEnvelope{
		ID:         uuid.NewString(),
		Name:       event.EventName(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}, nil
}

// DecodeFoodAnalyzed распаковывает FoodAnalyzedEvent.
func (e EventEnvelope) DecodeFoodAnalyzed() (FoodAnalyzedEvent, error) {
	if e.Name != EventFoodAnalyzed {
		return FoodAnalyzedEvent{}, fmt.Errorf("unexpected event type %q", e.Name)
	}
	var event FoodAnalyzedEvent
	if err := json.Unmarshal(e.Payload, &event); err != nil {
		return FoodAnalyzedEvent{}, fmt.Errorf("decode %s payload: %w", e.Name, err)
	}
	return event, nil
}
