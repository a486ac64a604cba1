package kafka

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/flora-agent/flora/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka.
// События каталога идут в topic каталога, события заказов — в topic заказов.
type OutboxTopicPublisher struct {
	producer     *Producer
	orderTopic   string
	catalogTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, orderTopic, catalogTopic string) domain.OutboxPublisher {
	if orderTopic == "" {
		orderTopic = TopicOrderEvents
	}
	if catalogTopic == "" {
		catalogTopic = TopicCatalogEvents
	}
	return &OutboxTopicPublisher{
		producer:     producer,
		orderTopic:   orderTopic,
		catalogTopic: catalogTopic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event.EventType), key, envelope)
}

func (p *OutboxTopicPublisher) topicFor(eventType string) string {
	if strings.HasPrefix(eventType, "catalog.") {
		return p.catalogTopic
	}
	return p.orderTopic
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
