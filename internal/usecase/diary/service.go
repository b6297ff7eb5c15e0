package diary

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

// Service управляет записями дневника. Каждая операция над существующей
// записью сначала проверяет её наличие, затем владельца.
type Service struct {
	store   domain.DiaryStore
	storage domain.StorageGateway
	logger  zerolog.Logger
}

var _ domain.DiaryService = (*Service)(nil)

// NewService создаёт сервис дневника.
func NewService(store domain.DiaryStore, storage domain.StorageGateway, logger zerolog.Logger) *Service {
	return &Service{store: store, storage: storage, logger: logger}
}

// Create сохраняет новую запись. Изображение загружается как есть.
func (s *Service) Create(ctx context.Context, in domain.CreateDiaryInput) (diary domain.Diary, err error) {
	defer func() { metrics.ObserveDiaryOperation("create", err) }()

	if strings.TrimSpace(in.UserID) == "" {
		return domain.Diary{}, domain.ClientInput("", "userId is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Diary{}, domain.ClientInput("", "content is required")
	}
	if err := validateTotals(in.TotalCalories, in.CalorieBreakdown); err != nil {
		return domain.Diary{}, err
	}

	record := domain.Diary{
		Content:          in.Content,
		UserID:           in.UserID,
		TotalCalories:    in.TotalCalories,
		CalorieBreakdown: cloneAnalysis(in.CalorieBreakdown),
	}
	if in.Image != nil && !in.Image.Empty() {
		url, err := s.upload(ctx, *in.Image)
		if err != nil {
			return domain.Diary{}, err
		}
		record.ImageURL = &url
	}
	return s.store.Insert(ctx, record)
}

// GetByID возвращает запись владельца.
func (s *Service) GetByID(ctx context.Context, id, userID string) (diary domain.Diary, err error) {
	defer func() { metrics.ObserveDiaryOperation("get", err) }()
	return s.authorized(ctx, id, userID)
}

// ListByUser возвращает все записи пользователя.
func (s *Service) ListByUser(ctx context.Context, userID string) (diaries []domain.Diary, err error) {
	defer func() { metrics.ObserveDiaryOperation("list", err) }()
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ClientInput("", "userId is required")
	}
	return s.store.FindByOwner(ctx, userID)
}

// ListByPeriod возвращает записи пользователя, созданные в интервале
// включительно.
func (s *Service) ListByPeriod(ctx context.Context, userID string, period domain.DiaryPeriod) (diaries []domain.Diary, err error) {
	defer func() { metrics.ObserveDiaryOperation("list_period", err) }()
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ClientInput("", "userId is required")
	}
	if period.Start.IsZero() || period.End.IsZero() {
		return nil, domain.ClientInput("", "startDate and endDate are required")
	}
	if period.Start.After(period.End) {
		return nil, domain.ClientInput("", "startDate must not be after endDate")
	}
	return s.store.FindByOwnerAndPeriod(ctx, userID, period.Start, period.End)
}

// Update меняет только переданные поля. Прежнее изображение не удаляется.
func (s *Service) Update(ctx context.Context, in domain.UpdateDiaryInput) (diary domain.Diary, err error) {
	defer func() { metrics.ObserveDiaryOperation("update", err) }()

	current, err := s.authorized(ctx, in.ID, in.UserID)
	if err != nil {
		return domain.Diary{}, err
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return domain.Diary{}, domain.ClientInput("", "content must not be empty")
	}
	if err := validateTotals(in.TotalCalories, in.CalorieBreakdown); err != nil {
		return domain.Diary{}, err
	}

	patch := domain.DiaryPatch{
		Content:          in.Content,
		TotalCalories:    in.TotalCalories,
		CalorieBreakdown: cloneAnalysis(in.CalorieBreakdown),
	}
	if in.Image != nil && !in.Image.Empty() {
		url, err := s.upload(ctx, *in.Image)
		if err != nil {
			return domain.Diary{}, err
		}
		patch.ImageURL = &url
		if current.HasImage() {
			s.logger.Debug().Str("diary_id", current.ID).Str("previous_image", *current.ImageURL).Msg("previous image kept")
		}
	}
	if patch.Empty() {
		return current, nil
	}
	return s.store.Update(ctx, current.ID, patch)
}

// Delete удаляет изображение записи, затем саму запись. Ошибка удаления
// изображения только логируется.
func (s *Service) Delete(ctx context.Context, id, userID string) (err error) {
	defer func() { metrics.ObserveDiaryOperation("delete", err) }()

	current, err := s.authorized(ctx, id, userID)
	if err != nil {
		return err
	}
	if current.HasImage() {
		if err := s.storage.Delete(ctx, *current.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("diary_id", current.ID).Str("image_url", *current.ImageURL).Msg("image delete failed")
		}
	}
	return s.store.Delete(ctx, current.ID)
}

// RecordAnalysis создаёт запись по событию анализа. Изображение уже
// загружено, повторной загрузки нет.
func (s *Service) RecordAnalysis(ctx context.Context, event domain.FoodAnalyzedEvent) (diary domain.Diary, err error) {
	defer func() { metrics.ObserveDiaryOperation("record_analysis", err) }()

	if strings.TrimSpace(event.UserID) == "" {
		return domain.Diary{}, domain.ClientInput("", "event has no userId")
	}
	content := strings.TrimSpace(event.Description)
	if content == "" {
		content = strings.Join(event.Analysis.Ingredients, ", ")
	}
	if content == "" {
		return domain.Diary{}, domain.ClientInput("", "event has neither description nor ingredients")
	}

	total := event.Analysis.TotalCalories
	analysis := event.Analysis.Clone()
	record := domain.Diary{
		Content:          content,
		UserID:           event.UserID,
		TotalCalories:    &total,
		CalorieBreakdown: &analysis,
	}
	if event.ImageURL != "" {
		url := event.ImageURL
		record.ImageURL = &url
	}
	return s.store.Insert(ctx, record)
}

func (s *Service) authorized(ctx context.Context, id, userID string) (domain.Diary, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && !domain.IsTyped(err) {
			return domain.Diary{}, domain.NotFound("diary", id)
		}
		return domain.Diary{}, err
	}
	if !current.OwnedBy(userID) {
		return domain.Diary{}, domain.Forbidden("you do not have access to this diary")
	}
	return current, nil
}

func (s *Service) upload(ctx context.Context, img domain.Image) (string, error) {
	url, err := s.storage.Upload(ctx, img, "")
	if err != nil {
		if domain.IsTyped(err) {
			return "", err
		}
		return "", domain.StorageFailed("upload", err)
	}
	return url, nil
}

func validateTotals(total *float64, breakdown *domain.FoodAnalysis) error {
	if total != nil && *total < 0 {
		return domain.ClientInput("", "totalCalories must not be negative")
	}
	if breakdown != nil {
		if err := breakdown.Validate(); err != nil {
			return domain.ClientInput("", "calorieBreakdown is invalid: "+err.Error())
		}
	}
	return nil
}

func cloneAnalysis(a *domain.FoodAnalysis) *domain.FoodAnalysis {
	if a == nil {
		return nil
	}
	c := a.Clone()
	return &c
}
