package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/messaging/kafka"
)

const consumerMaxRetries = 3

// initKafkaProducer создаёт producer, если брокеры заданы.
// Недоступный кластер не валит запуск: сервис работает без Kafka.
func initKafkaProducer(brokers []string, logger *log.Entry) *kafka.Producer {
	if len(brokers) == 0 {
		return nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer
}

// initCatalogConsumer подписывает сброс кэша каталога на события catalog-топика.
// Необработанные после retry сообщения уходят в DLQ через dlqProducer.
func initCatalogConsumer(cfg Config, invalidator kafka.CacheInvalidator, dlqProducer *kafka.Producer, logger *log.Entry) *kafka.Consumer {
	brokers := cfg.Brokers()
	if len(brokers) == 0 || invalidator == nil {
		return nil
	}

	handler := kafka.NewCatalogCacheHandler(invalidator, logger)
	consumer, err := kafka.NewConsumerWithDLQ(
		brokers,
		cfg.ConsumerGroup,
		[]string{kafka.TopicCatalogEvents},
		handler,
		dlqProducer,
		consumerMaxRetries,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create catalog consumer, cache will rely on TTL only")
		return nil
	}

	logger.WithField("group", cfg.ConsumerGroup).Info("catalog cache consumer initialized")
	return consumer
}

// closeKafka закрывает producer, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
