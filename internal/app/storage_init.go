package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/health"
	"github.com/flora-agent/flora/internal/storage/memory"
	"github.com/flora-agent/flora/internal/storage/postgres"
)

const storageCheckTimeout = 2 * time.Second

// storageSet — полный набор репозиториев поверх одного хранилища.
type storageSet struct {
	flowers     domain.FlowerRepository
	customers   domain.CustomerRepository
	orders      domain.OrderRepository
	users       domain.UserRepository
	timeline    domain.TimelineRepository
	outbox      domain.OutboxRepository
	idempotency domain.IdempotencyRepository
	uow         domain.UnitOfWork

	pg *postgres.Store
}

// initStorage собирает хранилище по cfg.StorageDriver.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageSet, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return initMemoryStorage(), nil
	case StorageDriverPostgres:
		return initPostgresStorage(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initMemoryStorage() *storageSet {
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()

	return &storageSet{
		flowers:     memory.NewFlowerRepository(store),
		customers:   memory.NewCustomerRepository(store),
		orders:      memory.NewOrderRepository(store),
		users:       memory.NewUserRepository(store),
		timeline:    memory.NewTimelineRepository(),
		outbox:      outbox,
		idempotency: memory.NewIdempotencyRepository(),
		uow:         memory.NewUnitOfWork(store, outbox),
	}
}

func initPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageSet, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}
	logger.Info("using postgres storage")

	return &storageSet{
		flowers:     postgres.NewFlowerRepository(store),
		customers:   postgres.NewCustomerRepository(store),
		orders:      postgres.NewOrderRepository(store),
		users:       postgres.NewUserRepository(store),
		timeline:    postgres.NewTimelineRepository(store),
		outbox:      postgres.NewOutboxRepository(store),
		idempotency: postgres.NewIdempotencyRepository(store),
		uow:         postgres.NewUnitOfWork(store),
		pg:          store,
	}, nil
}

// healthChecker возвращает проверку хранилища для /healthz.
func (s *storageSet) healthChecker() health.Checker {
	if s.pg == nil {
		return health.NewSimpleChecker("storage", func() error { return nil })
	}
	return health.NewSimpleChecker("storage", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), storageCheckTimeout)
		defer cancel()
		return s.pg.Ping(ctx)
	})
}

// Close освобождает ресурсы хранилища.
func (s *storageSet) Close(logger *log.Entry) {
	if s.pg == nil {
		return
	}
	if err := s.pg.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}
