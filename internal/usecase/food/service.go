package food

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

// Service выполняет анализ фото: нормализация, загрузка, анализ, событие.
type Service struct {
	normalizer domain.ImageNormalizer
	storage    domain.StorageGateway
	provider   domain.AnalysisProvider
	events     domain.EventPublisher
	logger     zerolog.Logger
	now        func() time.Time
}

var _ domain.FoodAnalysisService = (*Service)(nil)

// NewService создаёт сервис анализа.
func NewService(normalizer domain.ImageNormalizer, storage domain.StorageGateway, provider domain.AnalysisProvider, events domain.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		storage:    storage,
		provider:   provider,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// AnalyzeFoodImage анализирует фото блюда. Шаги идут строго по очереди,
// событие публикуется только после успешной загрузки и анализа. Отмена
// контекста вызывающего не прерывает начатый вызов.
func (s *Service) AnalyzeFoodImage(ctx context.Context, img domain.Image, description, userID string) (domain.FoodAnalysis, error) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With().Str("user_id", userID).Logger()

	if img.Empty() {
		return domain.FoodAnalysis{}, domain.ClientInput(domain.CodeInvalidImage, "image is required")
	}
	metrics.ObserveImageBytes("raw", int64(len(img.Data)))

	normalized, err := s.normalizer.Normalize(img)
	if err != nil {
		log.Warn().Err(err).Msg("image normalization failed")
		return domain.FoodAnalysis{}, classify(err, domain.Normalization)
	}
	metrics.ObserveImageBytes("normalized", int64(len(normalized.Data)))

	imageURL, err := s.storage.Upload(ctx, normalized, "")
	if err != nil {
		log.Error().Err(err).Msg("image upload failed")
		return domain.FoodAnalysis{}, classify(err, func(err error) *domain.Error {
			return domain.StorageFailed("upload", err)
		})
	}

	analysis, err := s.provider.Analyze(ctx, normalized, description)
	if err != nil {
		log.Warn().Err(err).Str("image_url", imageURL).Msg("food analysis failed")
		return domain.FoodAnalysis{}, classify(err, func(err error) *domain.Error {
			return domain.AnalysisFailed("food analysis failed", err)
		})
	}

	event := domain.FoodAnalyzedEvent{
		UserID:      userID,
		ImageURL:    imageURL,
		Description: description,
		Analysis:    analysis.Clone(),
		AnalyzedAt:  s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.EventName()).Msg("event publish failed")
	}

	log.Info().
		Str("image_url", imageURL).
		Float64("total_calories", analysis.TotalCalories).
		Int("ingredients", len(analysis.Ingredients)).
		Msg("food analyzed")
	return analysis, nil
}

// classify оставляет типизированные ошибки как есть, остальные относит к шагу.
func classify(err error, wrap func(error) *domain.Error) error {
	if domain.IsTyped(err) {
		return err
	}
	return wrap(err)
}
