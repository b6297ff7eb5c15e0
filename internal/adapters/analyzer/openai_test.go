package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-diary/internal/domain"
	openai "food-diary/internal/infra/openai"
)

type fakeChat struct {
	content string
	err     error
	req     openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatMessage{Role: "assistant", Content: f.content}},
	}}, nil
}

const validContent = `{
  "ingredients": ["김치", "돼지고기"],
  "totalCalories": 320,
  "breakdown": {
    "김치": {"protein": {"amount": 2, "unit": "g", "calories": 8}, "fat": {"amount": 0.5, "unit": "g", "calories": 4.5}, "carbohydrate": {"amount": 5, "unit": "g", "calories": 20}},
    "돼지고기": {"protein": {"amount": 20, "calories": 80}, "fat": {"amount": 20, "unit": "g", "calories": 180}, "carbohydrate": {"amount": 0, "unit": "g", "calories": 0}}
  }
}`

func TestVisionBuildsRequest(t *testing.T) {
	chat := &fakeChat{content: validContent}
	v := NewVision(chat, "", time.Second)

	got, err := v.Analyze(context.Background(), jpegBytes, "김치찌개")
	require.NoError(t, err)
	assert.Equal(t, 320.0, got.TotalCalories)
	assert.Equal(t, []string{"김치", "돼지고기"}, got.Ingredients)
	assert.Equal(t, domain.UnitGram, got.Breakdown["돼지고기"].Protein.Unit)

	req := chat.req
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 1000, req.MaxTokens)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "totalCalories")

	parts := req.Messages[1].Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "김치찌개")
	require.NotNil(t, parts[1].ImageURL)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
	assert.Equal(t, "data:image/jpeg;base64,/9j/2Q==", parts[1].ImageURL.URL)
}

func TestVisionWrapsClientErrors(t *testing.T) {
	v := NewVision(&fakeChat{err: errors.New("rate limited")}, "gpt-4o", time.Second)
	_, err := v.Analyze(context.Background(), jpegBytes, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAnalysisProvider)
	assert.ErrorContains(t, err, "rate limited")
}

func TestVisionRejectsEmptyImage(t *testing.T) {
	chat := &fakeChat{content: validContent}
	_, err := NewVision(chat, "", time.Second).Analyze(context.Background(), domain.Image{}, "x")
	assert.ErrorIs(t, err, domain.ErrClientInput)
	assert.Empty(t, chat.req.Model, "запрос не отправлялся")
}

func TestParseAnalysisStrict(t *testing.T) {
	cases := map[string]string{
		"not json":           `ingredients: none`,
		"empty":              ``,
		"missing total":      `{"ingredients": [], "breakdown": {}}`,
		"missing breakdown":  `{"ingredients": [], "totalCalories": 1}`,
		"missing ingredient": `{"totalCalories": 1, "breakdown": {}}`,
		"wrong type":         `{"ingredients": "rice", "totalCalories": 1, "breakdown": {}}`,
		"incomplete split":   `{"ingredients": ["a"], "totalCalories": 1, "breakdown": {"a": {"protein": {"amount": 1, "calories": 4}}}}`,
		"negative":           `{"ingredients": ["a"], "totalCalories": -5, "breakdown": {}}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			v := NewVision(&fakeChat{content: content}, "", time.Second)
			_, err := v.Analyze(context.Background(), jpegBytes, "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrAnalysisProvider)
		})
	}
}

func TestParseAnalysisAllowsMismatchedKeys(t *testing.T) {
	got, err := parseAnalysis(`{"ingredients": ["밥"], "totalCalories": 300, "breakdown": {}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"밥"}, got.Ingredients)
	assert.Empty(t, got.Breakdown)
}
