package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
	openai "food-diary/internal/infra/openai"
)

const (
	defaultVisionModel = "gpt-4o-mini"
	visionMaxTokens    = 1000
)

const visionSystemPrompt = `당신은 음식 분석 AI입니다. 음식 이미지와 설명을 분석하고, 다음 구조의 JSON 응답을 한글로 제공하세요:
{
  "ingredients": string[],
  "totalCalories": number,
  "breakdown": {
    [ingredient: string]: {
      protein: { amount: number, unit: "g", calories: number },
      fat: { amount: number, unit: "g", calories: number },
      carbohydrate: { amount: number, unit: "g", calories: number }
    }
  }
}
Always use grams (g) as the unit for amount.`

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Vision анализирует фото через OpenAI Chat Completions с изображением.
type Vision struct {
	client  chatClient
	model   string
	timeout time.Duration
}

var _ domain.AnalysisProvider = (*Vision)(nil)

// NewVision создаёт провайдера анализа.
func NewVision(client chatClient, model string, timeout time.Duration) *Vision {
	if model == "" {
		model = defaultVisionModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Vision{client: client, model: model, timeout: timeout}
}

// Analyze отправляет изображение и описание модели и разбирает ответ.
func (v *Vision) Analyze(ctx context.Context, img domain.Image, description string) (domain.FoodAnalysis, error) {
	if img.Empty() {
		return domain.FoodAnalysis{}, domain.ClientInput(domain.CodeInvalidImage, "image is required")
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	analysis, err := v.analyze(ctx, img, description)
	metrics.ObserveFoodAnalysis("openai", start, err)
	return analysis, err
}

func (v *Vision) analyze(ctx context.Context, img domain.Image, description string) (domain.FoodAnalysis, error) {
	req := openai.ChatCompletionRequest{
		Model:     v.model,
		MaxTokens: visionMaxTokens,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: visionSystemPrompt},
			{Role: openai.RoleUser, Parts: []openai.ContentPart{
				openai.TextPart(fmt.Sprintf("Analyze this food image and the given description: %s. Provide ingredients, total calories, and detailed nutritional breakdown.", description)),
				openai.ImagePart(dataURL(img)),
			}},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.FoodAnalysis{}, domain.AnalysisFailed("food analysis failed", err)
	}
	if len(resp.Choices) == 0 {
		return domain.FoodAnalysis{}, domain.AnalysisFailed("food analysis failed", errors.New("empty completion"))
	}
	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.FoodAnalysis{}, domain.AnalysisFailed("food analysis response is malformed", err)
	}
	return analysis, nil
}

func dataURL(img domain.Image) string {
	mime := img.ContentType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

type analysisPayload struct {
	Ingredients   *[]string                `json:"ingredients"`
	TotalCalories *float64                 `json:"totalCalories"`
	Breakdown     map[string]*splitPayload `json:"breakdown"`
}

type splitPayload struct {
	Protein      *domain.Macro `json:"protein"`
	Fat          *domain.Macro `json:"fat"`
	Carbohydrate *domain.Macro `json:"carbohydrate"`
}

// parseAnalysis разбирает ответ модели. Все три поля обязательны.
func parseAnalysis(content string) (domain.FoodAnalysis, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.FoodAnalysis{}, errors.New("empty content")
	}
	var p analysisPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return domain.FoodAnalysis{}, fmt.Errorf("decode content: %w", err)
	}
	switch {
	case p.Ingredients == nil:
		return domain.FoodAnalysis{}, errors.New("ingredients is missing")
	case p.TotalCalories == nil:
		return domain.FoodAnalysis{}, errors.New("totalCalories is missing")
	case p.Breakdown == nil:
		return domain.FoodAnalysis{}, errors.New("breakdown is missing")
	}

	analysis := domain.FoodAnalysis{
		Ingredients:   *p.Ingredients,
		TotalCalories: *p.TotalCalories,
		Breakdown:     make(domain.Breakdown, len(p.Breakdown)),
	}
	for name, sp := range p.Breakdown {
		if sp == nil || sp.Protein == nil || sp.Fat == nil || sp.Carbohydrate == nil {
			return domain.FoodAnalysis{}, fmt.Errorf("breakdown %q is incomplete", name)
		}
		analysis.Breakdown[name] = domain.MacroSplit{
			Protein:      withUnit(*sp.Protein),
			Fat:          withUnit(*sp.Fat),
			Carbohydrate: withUnit(*sp.Carbohydrate),
		}
	}
	if err := analysis.Validate(); err != nil {
		return domain.FoodAnalysis{}, err
	}
	return analysis, nil
}

func withUnit(m domain.Macro) domain.Macro {
	if m.Unit == "" {
		m.Unit = domain.UnitGram
	}
	return m
}
