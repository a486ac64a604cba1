package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/cache"
	"github.com/flora-agent/flora/internal/messaging/kafka"
	"github.com/flora-agent/flora/internal/metrics"
	"github.com/flora-agent/flora/internal/service/auth"
	"github.com/flora-agent/flora/internal/service/catalog"
	"github.com/flora-agent/flora/internal/service/customer"
	"github.com/flora-agent/flora/internal/service/order"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Storage *storageSet
	Cache   *cache.FlowerListCache

	Catalog   *catalog.Service
	Customers *customer.Service
	Orders    *order.Ledger
	Auth      *auth.Service

	Producer *kafka.Producer
	Logger   *log.Entry
}

// NewDependencies собирает хранилище, кэш, Kafka и доменные сервисы.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	listCache := cache.NewFlowerListCache(cfg.CatalogCacheTTL, metrics.NewCacheMetrics())
	producer := initKafkaProducer(cfg.Brokers(), logger)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "flora-dev-secret"
		logger.Warn("FLORA_JWT_SECRET is not set, using development secret")
	}
	tokens := auth.NewTokenManager(secret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	return &Dependencies{
		Storage: storage,
		Cache:   listCache,

		Catalog:   catalog.NewService(storage.flowers, listCache, storage.outbox, logger.WithField("component", "catalog")),
		Customers: customer.NewService(storage.customers, logger.WithField("component", "customers")),
		Orders:    order.NewLedger(storage.uow, storage.orders, storage.timeline, listCache, logger.WithField("component", "order-ledger")),
		Auth:      auth.NewService(storage.users, tokens, auth.NewBlacklist(), logger.WithField("component", "auth")),

		Producer: producer,
		Logger:   logger,
	}, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	closeKafka(d.Producer, d.Logger)
	d.Storage.Close(d.Logger)
}
