package analyzer

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

const (
	stubMinDelay = 100 * time.Millisecond
	stubMaxDelay = 600 * time.Millisecond
)

// ScenarioStub имитирует провайдера анализа без внешних вызовов. Ответ
// выбирается по ключевым словам в описании.
type ScenarioStub struct {
	logger zerolog.Logger
	delay  func() time.Duration
}

var _ domain.AnalysisProvider = (*ScenarioStub)(nil)

// StubOption настраивает заглушку.
type StubOption func(*ScenarioStub)

// WithoutDelay отключает искусственную задержку.
func WithoutDelay() StubOption {
	return func(s *ScenarioStub) { s.delay = func() time.Duration { return 0 } }
}

// NewScenarioStub создаёт заглушку со случайной задержкой 100–600 мс.
func NewScenarioStub(logger zerolog.Logger, opts ...StubOption) *ScenarioStub {
	s := &ScenarioStub{
		logger: logger,
		delay: func() time.Duration {
			return stubMinDelay + time.Duration(rand.Int63n(int64(stubMaxDelay-stubMinDelay)))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze возвращает анализ подходящего сценария.
func (s *ScenarioStub) Analyze(ctx context.Context, img domain.Image, description string) (domain.FoodAnalysis, error) {
	start := time.Now()
	if err := s.wait(ctx); err != nil {
		return domain.FoodAnalysis{}, err
	}

	lowered := strings.ToLower(description)
	if containsAny(lowered, errorKeywords) {
		err := domain.AnalysisFailed("food analysis failed", errors.New("mock error scenario requested"))
		metrics.ObserveFoodAnalysis("mock", start, err)
		return domain.FoodAnalysis{}, err
	}
	if img.Empty() {
		err := domain.ClientInput(domain.CodeInvalidImage, "image is required")
		metrics.ObserveFoodAnalysis("mock", start, err)
		return domain.FoodAnalysis{}, err
	}

	picked := defaultScenario
	for _, sc := range scenarios {
		if containsAny(lowered, sc.keywords) {
			picked = sc
			break
		}
	}
	s.logger.Debug().Str("scenario", picked.name).Int("image_bytes", len(img.Data)).Msg("mock analysis")
	metrics.ObserveFoodAnalysis("mock", start, nil)
	return picked.analysis.Clone(), nil
}

func (s *ScenarioStub) wait(ctx context.Context) error {
	d := s.delay()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
