package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FoodAnalysisTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "food_analysis_total",
		Help: "Количество анализов блюд по провайдеру и статусу",
	}, []string{"provider", "status"})
	FoodAnalysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "food_analysis_duration_seconds",
		Help:    "Длительность полного цикла анализа блюда",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	AnalysisCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "food_analysis_cache_total",
		Help: "Попадания и промахи кэша анализов",
	}, []string{"result"})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Опубликованные события по статусу",
	}, []string{"event", "status"})
	EventsConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Обработанные события по статусу",
	}, []string{"event", "status"})
	DiaryOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_operations_total",
		Help: "Операции с записями дневника",
	}, []string{"operation", "status"})
	ImageBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_bytes",
		Help:    "Размер изображений до и после нормализации",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	}, []string{"stage"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FoodAnalysisTotal,
		FoodAnalysisDuration,
		AnalysisCacheTotal,
		EventsPublishedTotal,
		EventsConsumedTotal,
		DiaryOperationsTotal,
		ImageBytes,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := statusOf(err)
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveFoodAnalysis записывает результат анализа блюда.
func ObserveFoodAnalysis(provider string, start time.Time, err error) {
	if provider == "" {
		provider = "unknown"
	}
	FoodAnalysisTotal.WithLabelValues(provider, statusOf(err)).Inc()
	FoodAnalysisDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ObserveEventPublished учитывает публикацию события.
func ObserveEventPublished(event string, err error) {
	EventsPublishedTotal.WithLabelValues(event, statusOf(err)).Inc()
}

// ObserveEventConsumed учитывает обработку события.
func ObserveEventConsumed(event string, err error) {
	EventsConsumedTotal.WithLabelValues(event, statusOf(err)).Inc()
}

// ObserveDiaryOperation учитывает операцию с дневником.
func ObserveDiaryOperation(operation string, err error) {
	DiaryOperationsTotal.WithLabelValues(operation, statusOf(err)).Inc()
}

// ObserveCache учитывает обращение к кэшу анализов.
func ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	AnalysisCacheTotal.WithLabelValues(result).Inc()
}

// ObserveImageBytes записывает размер изображения на этапе stage.
func ObserveImageBytes(stage string, size int64) {
	ImageBytes.WithLabelValues(stage).Observe(float64(size))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
