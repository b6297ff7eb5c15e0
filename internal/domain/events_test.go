package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEnvelopeRoundTrip(t *testing.T) {
	event := FoodAnalyzedEvent{
		UserID:      "user-1",
		ImageURL:    "file:///uploads/1.jpg",
		Description: "맛있는 피자",
		Analysis:    sampleAnalysis(),
		AnalyzedAt:  time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC),
	}

	env, err := NewEventEnvelope(event)
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, EventFoodAnalyzed, env.Name)
	assert.False(t, env.OccurredAt.IsZero())

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event_type":"food.analyzed"`)

	var decodedEnv EventEnvelope
	require.NoError(t, json.Unmarshal(raw, &decodedEnv))
	decoded, err := decodedEnv.DecodeFoodAnalyzed()
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestDecodeFoodAnalyzedRejectsOtherEvents(t *testing.T) {
	_, err := EventEnvelope{Name: "diary.created", Payload: []byte(`{}`)}.DecodeFoodAnalyzed()
	assert.Error(t, err)

	_, err = EventEnvelope{Name: EventFoodAnalyzed, Payload: []byte(`{"analysis":`)}.DecodeFoodAnalyzed()
	assert.Error(t, err)
}
