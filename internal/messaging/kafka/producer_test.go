package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"customer-1",
		"ordered",
		map[string]interface{}{
			"total_price": "30.00",
		},
	)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewCatalogEvent(EventTypeStockChanged, "flower-1", nil)

	err := producer.PublishEvent(TopicCatalogEvents, "flower-1", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewCatalogEvent(t *testing.T) {
	event := NewCatalogEvent(EventTypeStockChanged, "flower-1", map[string]interface{}{
		"order_id": "order-1",
	})

	if event.EventType != EventTypeStockChanged {
		t.Errorf("expected event type %s, got %s", EventTypeStockChanged, event.EventType)
	}
	if event.FlowerID != "flower-1" {
		t.Errorf("expected flower id flower-1, got %s", event.FlowerID)
	}
	if event.Metadata["order_id"] != "order-1" {
		t.Error("metadata not set correctly")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderDeleted, "order-123", "customer-1", "ordered", map[string]interface{}{
		"items_restored": 2,
	})

	if event.EventType != EventTypeOrderDeleted {
		t.Errorf("expected event type %s, got %s", EventTypeOrderDeleted, event.EventType)
	}
	if event.OrderID != "order-123" {
		t.Errorf("expected order id order-123, got %s", event.OrderID)
	}
	if event.CustomerID != "customer-1" {
		t.Errorf("expected customer id customer-1, got %s", event.CustomerID)
	}
	if event.Status != "ordered" {
		t.Errorf("expected status ordered, got %s", event.Status)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
