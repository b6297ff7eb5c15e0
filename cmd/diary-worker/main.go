package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"food-diary/internal/adapters/repo"
	"food-diary/internal/adapters/storage"
	"food-diary/internal/domain"
	"food-diary/internal/infra/cache"
	"food-diary/internal/infra/config"
	"food-diary/internal/infra/db"
	applog "food-diary/internal/infra/log"
	"food-diary/internal/infra/metrics"
	"food-diary/internal/infra/queue"
	"food-diary/internal/usecase/autofill"
	"food-diary/internal/usecase/diary"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Fatal().Err(err).Msg("diary-worker: некорректная конфигурация")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("diary-worker: нет подключения к БД")
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	var consumer domain.EventConsumer
	switch cfg.EventsBackend() {
	case config.EventsRabbitMQ:
		rabbit, err := queue.NewRabbitEventQueue(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			logger.Fatal().Err(err).Msg("diary-worker: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		consumer = rabbit
	default:
		consumer = queue.NewRedisEventQueue(redisClient, cfg.Events.RedisKey)
	}

	// Воркер только создаёт записи без изображений, хранилище нужно
	// сервису для полноты и не вызывается.
	files, err := storage.NewLocal(cfg.Storage.LocalDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("diary-worker: не удалось создать хранилище файлов")
	}
	diaries := diary.NewService(repo.NewDiaryStore(pool), files, applog.Component(logger, "diary"))

	var dedup autofill.Deduper
	if redisClient != nil {
		dedup = cache.NewRedis(redisClient, "food-diary")
	}
	worker := autofill.NewWorker(consumer, diaries, dedup, applog.Component(logger, "autofill"))

	logger.Info().Str("backend", cfg.EventsBackend()).Msg("diary-worker: запуск обработки событий")
	worker.Run(ctx)
	logger.Info().Msg("diary-worker: остановлен")
}
