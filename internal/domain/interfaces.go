package domain

import (
	"context"
	"time"
)

// ImageNormalizer готовит изображение перед загрузкой и анализом.
type ImageNormalizer interface {
	Normalize(img Image) (Image, error)
}

// StorageGateway хранилище файлов.
type StorageGateway interface {
	// Upload сохраняет файл и возвращает локатор. Пустой key означает
	// сгенерированное имя.
	Upload(ctx context.Context, img Image, key string) (string, error)
	// Delete удаляет файл по локатору. Отсутствие файла ошибкой не считается.
	Delete(ctx context.Context, locator string) error
}

// AnalysisProvider анализирует фото блюда вместе с описанием.
type AnalysisProvider interface {
	Analyze(ctx context.Context, img Image, description string) (FoodAnalysis, error)
}

// EventPublisher отправляет события без гарантии доставки.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventConsumer блокирующе читает события из очереди.
type EventConsumer interface {
	Pop(ctx context.Context) (EventEnvelope, error)
}

// DiaryStore хранилище записей дневника.
type DiaryStore interface {
	Insert(ctx context.Context, diary Diary) (Diary, error)
	// FindByID возвращает ErrNotFound, если записи нет.
	FindByID(ctx context.Context, id string) (Diary, error)
	FindByOwner(ctx context.Context, userID string) ([]Diary, error)
	FindByOwnerAndPeriod(ctx context.Context, userID string, start, end time.Time) ([]Diary, error)
	Update(ctx context.Context, id string, patch DiaryPatch) (Diary, error)
	Delete(ctx context.Context, id string) error
}

// FoodAnalysisService анализ фото блюда.
type FoodAnalysisService interface {
	AnalyzeFoodImage(ctx context.Context, img Image, description, userID string) (FoodAnalysis, error)
}

// DiaryService жизненный цикл записей дневника с проверкой владельца.
type DiaryService interface {
	Create(ctx context.Context, in CreateDiaryInput) (Diary, error)
	GetByID(ctx context.Context, id, userID string) (Diary, error)
	ListByUser(ctx context.Context, userID string) ([]Diary, error)
	ListByPeriod(ctx context.Context, userID string, period DiaryPeriod) ([]Diary, error)
	Update(ctx context.Context, in UpdateDiaryInput) (Diary, error)
	Delete(ctx context.Context, id, userID string) error
	RecordAnalysis(ctx context.Context, event FoodAnalyzedEvent) (Diary, error)
}

// Cache простое TTL-хранилище.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
