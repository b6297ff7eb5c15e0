// Package autofill создаёт записи дневника из событий анализа блюд.
package autofill

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

const dedupTTL = 24 * time.Hour

// Deduper выполняет fn не более одного раза для ключа.
type Deduper interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// Worker читает события из очереди и передаёт их сервису дневника.
type Worker struct {
	consumer domain.EventConsumer
	diaries  domain.DiaryService
	dedup    Deduper
	log      zerolog.Logger
	backoff  time.Duration
}

// NewWorker создаёт обработчик. dedup может быть nil.
func NewWorker(consumer domain.EventConsumer, diaries domain.DiaryService, dedup Deduper, logger zerolog.Logger) *Worker {
	return &Worker{consumer: consumer, diaries: diaries, dedup: dedup, log: logger, backoff: time.Second}
}

// Run обрабатывает события до отмены контекста. Ошибки отдельных событий
// логируются и пропускаются.
func (w *Worker) Run(ctx context.Context) {
	for {
		env, err := w.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("autofill: ошибка чтения очереди")
			if !sleep(ctx, w.backoff) {
				return
			}
			continue
		}
		w.Handle(ctx, env)
	}
}

// Handle обрабатывает одно событие.
func (w *Worker) Handle(ctx context.Context, env domain.EventEnvelope) {
	log := w.log.With().Str("event_id", env.ID).Str("event", env.Name).Logger()
	if env.Name != domain.EventFoodAnalyzed {
		log.Debug().Msg("autofill: событие пропущено")
		return
	}

	event, err := env.DecodeFoodAnalyzed()
	if err != nil {
		metrics.ObserveEventConsumed(env.Name, err)
		log.Error().Err(err).Msg("autofill: не удалось разобрать событие")
		return
	}

	record := func() error {
		diary, err := w.diaries.RecordAnalysis(ctx, event)
		if err != nil {
			return err
		}
		log.Info().Str("diary_id", diary.ID).Str("user_id", event.UserID).Msg("autofill: запись создана")
		return nil
	}
	if w.dedup != nil && env.ID != "" {
		err = w.dedup.Once(ctx, "autofill:"+env.ID, dedupTTL, record)
	} else {
		err = record()
	}
	metrics.ObserveEventConsumed(env.Name, err)
	if err != nil {
		log.Error().Err(err).Str("user_id", event.UserID).Msg("autofill: не удалось создать запись")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
