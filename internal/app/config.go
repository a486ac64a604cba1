package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flora-agent/flora/internal/cache"
	"github.com/flora-agent/flora/internal/service/auth"
)

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
// Брокеры Kafka хранятся строкой через запятую, чтобы конфиг оставался
// сравнимым значением.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers  string
	ConsumerGroup string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CatalogCacheTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает настройки для локального запуска на памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		ConsumerGroup: "flora-catalog-cache",

		AccessTokenTTL:  auth.DefaultAccessTTL,
		RefreshTokenTTL: auth.DefaultRefreshTTL,

		CatalogCacheTTL: cache.DefaultTTL,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   200 * time.Millisecond,

		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfig читает настройки из окружения поверх значений по умолчанию.
// Наличие FLORA_POSTGRES_DSN переключает хранилище на postgres.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envOr("FLORA_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envOr("FLORA_METRICS_ADDR", cfg.MetricsAddr)

	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("FLORA_POSTGRES_DSN"))
	if cfg.PostgresDSN != "" {
		cfg.StorageDriver = StorageDriverPostgres
	}
	if v := os.Getenv("FLORA_POSTGRES_AUTO_MIGRATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("FLORA_KAFKA_BROKERS"))
	cfg.ConsumerGroup = envOr("FLORA_KAFKA_GROUP", cfg.ConsumerGroup)

	cfg.JWTSecret = os.Getenv("FLORA_JWT_SECRET")
	cfg.AccessTokenTTL = envDurationOr("FLORA_ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.RefreshTokenTTL = envDurationOr("FLORA_REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL)

	cfg.CatalogCacheTTL = envDurationOr("FLORA_CATALOG_CACHE_TTL", cfg.CatalogCacheTTL)

	cfg.OutboxPollInterval = envDurationOr("FLORA_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envIntOr("FLORA_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envIntOr("FLORA_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)

	cfg.IdempotencyCleanupInterval = envDurationOr("FLORA_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)
	cfg.IdempotencyCleanupBatchSize = envIntOr("FLORA_IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize)

	return cfg
}

// Brokers возвращает список брокеров Kafka; пустой список — Kafka выключен.
func (c Config) Brokers() []string {
	raw := strings.TrimSpace(c.KafkaBrokers)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envDurationOr(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
