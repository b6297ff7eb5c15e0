package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

const queryTimeout = 5 * time.Second

// db общий интерфейс *pgxpool.Pool и pgx.Tx.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DiaryStore хранит записи дневника в Postgres.
type DiaryStore struct {
	db db
}

var _ domain.DiaryStore = (*DiaryStore)(nil)

// NewDiaryStore создаёт хранилище. В тестах можно передать транзакцию.
func NewDiaryStore(db db) *DiaryStore {
	return &DiaryStore{db: db}
}

const diaryColumns = `id, content, image_url, user_id, total_calories, calorie_breakdown, created_at, updated_at`

// Insert сохраняет запись и возвращает её с идентификатором и датами.
func (s *DiaryStore) Insert(ctx context.Context, d domain.Diary) (domain.Diary, error) {
	const q = `
		INSERT INTO diaries (content, image_url, user_id, total_calories, calorie_breakdown)
		VALUES (@content, @image_url, @user_id, @total_calories, @calorie_breakdown)
		RETURNING ` + diaryColumns

	breakdown, err := encodeBreakdown(d.CalorieBreakdown)
	if err != nil {
		return domain.Diary{}, fmt.Errorf("repo.DiaryStore.Insert: %w", err)
	}
	args := pgx.NamedArgs{
		"content":           d.Content,
		"image_url":         d.ImageURL,
		"user_id":           d.UserID,
		"total_calories":    d.TotalCalories,
		"calorie_breakdown": breakdown,
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	result, err := scanDiary(s.db.QueryRow(ctx, q, args))
	metrics.ObserveNetworkRequest("postgres", "insert", "diaries", start, err)
	if err != nil {
		return domain.Diary{}, fmt.Errorf("repo.DiaryStore.Insert: %w", err)
	}
	return result, nil
}

// FindByID возвращает запись или domain.ErrNotFound.
func (s *DiaryStore) FindByID(ctx context.Context, id string) (domain.Diary, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.Diary{}, domain.ErrNotFound
	}
	q := `SELECT ` + diaryColumns + ` FROM diaries WHERE id = @id`

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	result, err := scanDiary(s.db.QueryRow(ctx, q, pgx.NamedArgs{"id": uid}))
	metrics.ObserveNetworkRequest("postgres", "select", "diaries", start, ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Diary{}, domain.ErrNotFound
		}
		return domain.Diary{}, fmt.Errorf("repo.DiaryStore.FindByID: %w", err)
	}
	return result, nil
}

// FindByOwner возвращает записи пользователя, новые первыми.
func (s *DiaryStore) FindByOwner(ctx context.Context, userID string) ([]domain.Diary, error) {
	q := `SELECT ` + diaryColumns + ` FROM diaries WHERE user_id = @user_id ORDER BY created_at DESC`
	return s.list(ctx, "FindByOwner", q, pgx.NamedArgs{"user_id": userID})
}

// FindByOwnerAndPeriod возвращает записи пользователя, созданные в
// интервале включительно.
func (s *DiaryStore) FindByOwnerAndPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Diary, error) {
	q := `SELECT ` + diaryColumns + `
		FROM diaries
		WHERE user_id = @user_id AND created_at BETWEEN @start AND @end
		ORDER BY created_at DESC`
	return s.list(ctx, "FindByOwnerAndPeriod", q, pgx.NamedArgs{"user_id": userID, "start": start, "end": end})
}

// Update меняет только переданные поля. user_id не изменяется никогда.
func (s *DiaryStore) Update(ctx context.Context, id string, patch domain.DiaryPatch) (domain.Diary, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.Diary{}, domain.ErrNotFound
	}
	const q = `
		UPDATE diaries
		SET content           = COALESCE(@content::text, content),
		    image_url         = COALESCE(@image_url::text, image_url),
		    total_calories    = COALESCE(@total_calories::double precision, total_calories),
		    calorie_breakdown = COALESCE(@calorie_breakdown::jsonb, calorie_breakdown),
		    updated_at        = now()
		WHERE id = @id
		RETURNING ` + diaryColumns

	breakdown, err := encodeBreakdown(patch.CalorieBreakdown)
	if err != nil {
		return domain.Diary{}, fmt.Errorf("repo.DiaryStore.Update: %w", err)
	}
	args := pgx.NamedArgs{
		"id":                uid,
		"content":           patch.Content,
		"image_url":         patch.ImageURL,
		"total_calories":    patch.TotalCalories,
		"calorie_breakdown": breakdown,
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	result, err := scanDiary(s.db.QueryRow(ctx, q, args))
	metrics.ObserveNetworkRequest("postgres", "update", "diaries", start, ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Diary{}, domain.ErrNotFound
		}
		return domain.Diary{}, fmt.Errorf("repo.DiaryStore.Update: %w", err)
	}
	return result, nil
}

// Delete удаляет запись.
func (s *DiaryStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrNotFound
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	tag, err := s.db.Exec(ctx, `DELETE FROM diaries WHERE id = @id`, pgx.NamedArgs{"id": uid})
	metrics.ObserveNetworkRequest("postgres", "delete", "diaries", start, err)
	if err != nil {
		return fmt.Errorf("repo.DiaryStore.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *DiaryStore) list(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Diary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.db.Query(ctx, q, args)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "select", "diaries", start, err)
		return nil, fmt.Errorf("repo.DiaryStore.%s: %w", op, err)
	}
	defer rows.Close()

	diaries := make([]domain.Diary, 0)
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			metrics.ObserveNetworkRequest("postgres", "select", "diaries", start, err)
			return nil, fmt.Errorf("repo.DiaryStore.%s: scan: %w", op, err)
		}
		diaries = append(diaries, d)
	}
	err = rows.Err()
	metrics.ObserveNetworkRequest("postgres", "select", "diaries", start, err)
	if err != nil {
		return nil, fmt.Errorf("repo.DiaryStore.%s: rows: %w", op, err)
	}
	return diaries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDiary(row scanner) (domain.Diary, error) {
	var (
		d         domain.Diary
		id        uuid.UUID
		breakdown []byte
	)
	err := row.Scan(&id, &d.Content, &d.ImageURL, &d.UserID, &d.TotalCalories, &breakdown, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Diary{}, domain.ErrNotFound
		}
		return domain.Diary{}, err
	}
	d.ID = id.String()
	if len(breakdown) > 0 {
		var analysis domain.FoodAnalysis
		if err := json.Unmarshal(breakdown, &analysis); err != nil {
			return domain.Diary{}, fmt.Errorf("decode calorie_breakdown: %w", err)
		}
		d.CalorieBreakdown = &analysis
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

// encodeBreakdown возвращает nil для отсутствующего анализа, чтобы в БД
// попал NULL.
func encodeBreakdown(a *domain.FoodAnalysis) (any, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode calorie_breakdown: %w", err)
	}
	return string(raw), nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
