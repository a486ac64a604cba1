package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderDeleted       EventType = "order.deleted"
	EventTypeOrderStatusChanged EventType = "order.status_changed"

	// Catalog события
	EventTypeStockChanged  EventType = "catalog.stock_changed"
	EventTypeFlowerUpdated EventType = "catalog.flower_updated"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "flora.order.events"
	TopicCatalogEvents   = "flora.catalog.events"
	TopicDeadLetterQueue = "flora.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// CatalogEvent представляет событие каталога: смену стока или карточки.
// Consumer'ы сбрасывают по нему кэш листинга.
type CatalogEvent struct {
	EventType EventType              `json:"event_type"`
	FlowerID  string                 `json:"flower_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewCatalogEvent создает новое событие каталога
func NewCatalogEvent(eventType EventType, flowerID string, metadata map[string]interface{}) *CatalogEvent {
	return &CatalogEvent{
		EventType: eventType,
		FlowerID:  flowerID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
