package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"food-diary/internal/domain"
)

// Варианты хранилища файлов.
const (
	StorageS3    = "s3"
	StorageLocal = "local"
)

// Варианты очереди событий.
const (
	EventsMemory   = "memory"
	EventsRedis    = "redis"
	EventsRabbitMQ = "rabbitmq"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	Port        int    `envconfig:"PORT" default:"4000"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	JWT struct {
		Secret string `envconfig:"JWT_SECRET"`
		Issuer string `envconfig:"JWT_ISSUER"`
	} `envconfig:""`

	Storage struct {
		Backend  string `envconfig:"STORAGE_BACKEND"`
		LocalDir string `envconfig:"UPLOADS_DIR" default:"uploads"`
	} `envconfig:""`

	AWS struct {
		Region          string `envconfig:"AWS_REGION"`
		AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
		Bucket          string `envconfig:"AWS_S3_BUCKET_NAME"`
		PublicURL       string `envconfig:"AWS_S3_PUBLIC_URL"`
		Endpoint        string `envconfig:"AWS_S3_ENDPOINT"`
	} `envconfig:""`

	OpenAI struct {
		UseMock   bool          `envconfig:"USE_MOCK_OPENAI" default:"false"`
		APIKey    string        `envconfig:"OPENAI_API_KEY"`
		OrgID     string        `envconfig:"OPENAI_ORG_ID"`
		ProjectID string        `envconfig:"OPENAI_PROJECT_ID"`
		Model     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		BaseURL   string        `envconfig:"OPENAI_BASE_URL"`
		Timeout   time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Events struct {
		Backend      string `envconfig:"EVENTS_BACKEND" default:"memory"`
		RedisKey     string `envconfig:"EVENTS_REDIS_KEY" default:"food_events"`
		AMQPURL      string `envconfig:"AMQP_URL"`
		Queue        string `envconfig:"EVENTS_QUEUE" default:"food.analyzed"`
		MemoryBuffer int    `envconfig:"EVENTS_MEMORY_BUFFER" default:"64"`
	} `envconfig:""`

	Limits struct {
		UploadMaxBytes int64 `envconfig:"UPLOAD_MAX_BYTES" default:"3145728"`
	} `envconfig:""`

	AnalysisCacheTTL time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"0s"`
	DiaryAutofill    bool          `envconfig:"DIARY_AUTOFILL" default:"false"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает окружение без завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// StorageBackend возвращает выбранное хранилище: local для тестового
// окружения, иначе s3.
func (c AppConfig) StorageBackend() string {
	if b := strings.ToLower(strings.TrimSpace(c.Storage.Backend)); b != "" {
		return b
	}
	if c.AppEnv == "test" {
		return StorageLocal
	}
	return StorageS3
}

// EventsBackend возвращает выбранную очередь событий.
func (c AppConfig) EventsBackend() string {
	if b := strings.ToLower(strings.TrimSpace(c.Events.Backend)); b != "" {
		return b
	}
	return EventsMemory
}

// Validate проверяет обязательные настройки для выбранных вариантов.
func (c AppConfig) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require("DATABASE_URL", c.DatabaseURL)
	require("JWT_SECRET", c.JWT.Secret)

	switch c.StorageBackend() {
	case StorageS3:
		require("AWS_REGION", c.AWS.Region)
		require("AWS_ACCESS_KEY_ID", c.AWS.AccessKeyID)
		require("AWS_SECRET_ACCESS_KEY", c.AWS.SecretAccessKey)
		require("AWS_S3_BUCKET_NAME", c.AWS.Bucket)
	case StorageLocal:
		require("UPLOADS_DIR", c.Storage.LocalDir)
	default:
		return domain.Configuration(fmt.Sprintf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	if !c.OpenAI.UseMock {
		require("OPENAI_API_KEY", c.OpenAI.APIKey)
		require("OPENAI_ORG_ID", c.OpenAI.OrgID)
		require("OPENAI_PROJECT_ID", c.OpenAI.ProjectID)
	}

	switch c.EventsBackend() {
	case EventsMemory:
	case EventsRedis:
		require("REDIS_ADDR", c.RedisAddr)
	case EventsRabbitMQ:
		require("AMQP_URL", c.Events.AMQPURL)
	default:
		return domain.Configuration(fmt.Sprintf("unknown EVENTS_BACKEND %q", c.Events.Backend))
	}

	if c.AnalysisCacheTTL > 0 && c.EventsBackend() != EventsRedis {
		require("REDIS_ADDR", c.RedisAddr)
	}
	if c.Limits.UploadMaxBytes <= 0 {
		return domain.Configuration("UPLOAD_MAX_BYTES must be positive")
	}

	if len(missing) > 0 {
		return domain.Configuration("required environment variables not set: " + strings.Join(missing, ", "))
	}
	return nil
}

// ValidateWorker проверяет настройки фонового обработчика событий.
func (c AppConfig) ValidateWorker() error {
	var missing []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	switch c.EventsBackend() {
	case EventsRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case EventsRabbitMQ:
		if strings.TrimSpace(c.Events.AMQPURL) == "" {
			missing = append(missing, "AMQP_URL")
		}
	default:
		return domain.Configuration(fmt.Sprintf("EVENTS_BACKEND %q is not supported by the worker", c.EventsBackend()))
	}
	if len(missing) > 0 {
		return domain.Configuration("required environment variables not set: " + strings.Join(missing, ", "))
	}
	return nil
}
