package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/flora-agent/flora/internal/health"
	"github.com/flora-agent/flora/internal/messaging/kafka"
	"github.com/flora-agent/flora/internal/metrics"
	"github.com/flora-agent/flora/internal/service/idempotency"
	"github.com/flora-agent/flora/internal/service/outbox"
	httpapi "github.com/flora-agent/flora/internal/transport/http"
	"github.com/flora-agent/flora/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает HTTP API, сервер метрик и фоновые воркеры и блокируется
// до отмены контекста или падения API-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	api := httpapi.NewServer(httpapi.Options{
		Catalog:     deps.Catalog,
		Customers:   deps.Customers,
		Orders:      deps.Orders,
		Auth:        deps.Auth,
		Idempotency: deps.Storage.idempotency,
		Logger:      logger.WithField("component", "http-api"),
		Metrics:     metrics.NewHTTPMetrics(),
	})

	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", deps.Storage.healthChecker())

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	startWorkers(ctx, cfg, deps, logger)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Routes()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startWorkers поднимает outbox-воркер, чистку идемпотентных ключей
// и consumer событий каталога. Всё опциональное пропускается молча.
func startWorkers(ctx context.Context, cfg Config, deps *Dependencies, logger *log.Entry) {
	if deps.Producer != nil {
		publisher := kafka.NewOutboxPublisher(deps.Producer, kafka.TopicOrderEvents, kafka.TopicCatalogEvents)
		dlq := kafka.NewOutboxPublisher(deps.Producer, kafka.TopicDeadLetterQueue, kafka.TopicDeadLetterQueue)

		worker := outbox.NewWorker(deps.Storage.outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		go worker.Run(ctx)
	}

	cleanup := idempotency.NewCleanupWorker(deps.Storage.idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanup.Run(ctx)

	if consumer := initCatalogConsumer(cfg, deps.Cache, deps.Producer, logger); consumer != nil {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Warn("failed to start catalog consumer")
		} else {
			go func() {
				<-ctx.Done()
				if err := consumer.Stop(); err != nil {
					logger.WithError(err).Warn("catalog consumer stopped with error")
				}
			}()
		}
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health-проб.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
