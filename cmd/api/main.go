package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"food-diary/internal/adapters/analyzer"
	"food-diary/internal/adapters/repo"
	"food-diary/internal/adapters/rest"
	"food-diary/internal/adapters/storage"
	"food-diary/internal/domain"
	"food-diary/internal/infra/cache"
	"food-diary/internal/infra/config"
	"food-diary/internal/infra/db"
	httpinfra "food-diary/internal/infra/http"
	"food-diary/internal/infra/imaging"
	applog "food-diary/internal/infra/log"
	"food-diary/internal/infra/metrics"
	"food-diary/internal/infra/openai"
	"food-diary/internal/infra/queue"
	"food-diary/internal/usecase/autofill"
	"food-diary/internal/usecase/diary"
	"food-diary/internal/usecase/food"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("api: некорректная конфигурация")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	files, err := newStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось создать хранилище файлов")
	}
	provider, err := newProvider(cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось создать провайдера анализа")
	}

	var (
		publisher domain.EventPublisher
		memory    *queue.MemoryQueue
	)
	switch cfg.EventsBackend() {
	case config.EventsRedis:
		publisher = queue.NewRedisEventQueue(redisClient, cfg.Events.RedisKey)
	case config.EventsRabbitMQ:
		rabbit, err := queue.NewRabbitEventQueue(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		publisher = rabbit
	default:
		publisher, memory = queue.InProcess(cfg.Events.MemoryBuffer, cfg.DiaryAutofill)
	}

	diaries := diary.NewService(repo.NewDiaryStore(pool), files, applog.Component(logger, "diary"))
	analysis := food.NewService(imaging.NewNormalizer(), files, provider, queue.Observed(publisher), applog.Component(logger, "food"))

	if memory != nil {
		var dedup autofill.Deduper
		if redisClient != nil {
			dedup = cache.NewRedis(redisClient, "food-diary")
		}
		worker := autofill.NewWorker(memory, diaries, dedup, applog.Component(logger, "autofill"))
		go worker.Run(ctx)
	}

	verifier, err := httpinfra.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: некорректные настройки JWT")
	}

	// Лимит тела с запасом: размер файла проверяет обработчик, чтобы
	// клиент получил понятное сообщение.
	server := httpinfra.NewServer(applog.Component(logger, "http"), httpinfra.Options{
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: 2 * cfg.Limits.UploadMaxBytes,
	})
	rest.NewHandler(analysis, diaries, cfg.Limits.UploadMaxBytes, applog.Component(logger, "rest")).Mount(server.Router, verifier)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + strconv.Itoa(cfg.Port))
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("api: получен сигнал остановки")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api: HTTP сервер остановился с ошибкой")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("api: graceful shutdown failed")
	}
	logger.Info().Msg("api: остановлен")
}

func newStorage(ctx context.Context, cfg config.AppConfig) (domain.StorageGateway, error) {
	if cfg.StorageBackend() == config.StorageLocal {
		return storage.NewLocal(cfg.Storage.LocalDir)
	}
	return storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Bucket:          cfg.AWS.Bucket,
		PublicURL:       cfg.AWS.PublicURL,
		Endpoint:        cfg.AWS.Endpoint,
	})
}

// newProvider выбирает провайдера анализа один раз при старте.
func newProvider(cfg config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) (domain.AnalysisProvider, error) {
	var provider domain.AnalysisProvider
	if cfg.OpenAI.UseMock {
		logger.Warn().Msg("api: используется тестовый провайдер анализа")
		provider = analyzer.NewScenarioStub(applog.Component(logger, "analyzer"))
	} else {
		client, err := openai.NewClient(openai.Config{
			APIKey:       cfg.OpenAI.APIKey,
			Organization: cfg.OpenAI.OrgID,
			Project:      cfg.OpenAI.ProjectID,
			BaseURL:      cfg.OpenAI.BaseURL,
			Timeout:      cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		provider = analyzer.NewVision(client, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	}
	if cfg.AnalysisCacheTTL > 0 && redisClient != nil {
		provider = analyzer.NewCached(provider, cache.NewRedis(redisClient, "food-diary"), cfg.AnalysisCacheTTL, applog.Component(logger, "analysis-cache"))
	}
	return provider, nil
}
