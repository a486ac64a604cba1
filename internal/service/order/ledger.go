package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/messaging/kafka"
	"github.com/flora-agent/flora/internal/metrics"
)

// Ledger — сервис журнала заказов. Создание и удаление заказа меняют
// заказ, позиции и сток каталога одной транзакцией: либо все записи
// фиксируются, либо ни одной.
type Ledger struct {
	uow         domain.UnitOfWork
	orders      domain.OrderRepository
	timeline    domain.TimelineRepository
	invalidator domain.CacheInvalidator
	logger      *log.Entry
	metrics     *metrics.LedgerMetrics
}

// NewLedger создаёт рабочий экземпляр сервиса заказов.
func NewLedger(
	uow domain.UnitOfWork,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	invalidator domain.CacheInvalidator,
	logger *log.Entry,
) *Ledger {
	if logger == nil {
		logger = log.New().WithField("component", "order-ledger")
	}
	return &Ledger{
		uow:         uow,
		orders:      orders,
		timeline:    timeline,
		invalidator: invalidator,
		logger:      logger,
		metrics:     metrics.NewLedgerMetrics(),
	}
}

// NewLedgerWithoutMetrics создаёт сервис без метрик (для тестов).
func NewLedgerWithoutMetrics(
	uow domain.UnitOfWork,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	invalidator domain.CacheInvalidator,
	logger *log.Entry,
) *Ledger {
	l := NewLedger(uow, orders, timeline, invalidator, logger)
	l.metrics = nil
	return l
}

// Create проводит заказ: проверяет клиента и все позиции, снимает снимок
// цен, списывает сток и сохраняет заказ с позициями в одной транзакции.
// Первая непроходящая позиция прерывает заказ целиком.
func (l *Ledger) Create(ctx context.Context, input domain.CreateOrderInput) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.RecordWorkflowDuration("create", time.Since(start))
		}
	}()

	if errs := input.Validate(); len(errs) > 0 {
		l.reject("invalid")
		return domain.Order{}, errors.Join(errs...)
	}

	var (
		created  domain.Order
		customer domain.Customer
		flowers  = make(map[string]domain.Flower)
		staged   int
	)

	err := l.uow.Execute(ctx, func(tx domain.Tx) error {
		var err error
		customer, err = tx.Customers().Get(ctx, input.CustomerID)
		if err != nil {
			return err
		}

		// Фаза проверки: все позиции валидируются до первой мутации.
		now := time.Now().UTC()
		orderID := uuid.NewString()
		items := make([]domain.OrderItem, 0, len(input.Lines))
		var total domain.Money
		for _, line := range input.Lines {
			flower, err := tx.Flowers().Get(ctx, line.FlowerID)
			if err != nil {
				return err
			}
			if flower.StockQuantity < line.Qty {
				return &domain.InsufficientStockError{
					FlowerID:   flower.ID,
					FlowerName: flower.Name,
					Available:  flower.StockQuantity,
					Requested:  line.Qty,
				}
			}
			flowers[flower.ID] = flower
			items = append(items, domain.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				FlowerID:  flower.ID,
				Qty:       line.Qty,
				UnitPrice: flower.Price, // снимок цены на момент заказа
				CreatedAt: now,
			})
			total += flower.Price.MulQty(line.Qty)
		}

		// Фаза мутации: заказ, позиции и списания фиксируются вместе.
		created = domain.Order{
			ID:         orderID,
			CustomerID: customer.ID,
			Status:     domain.OrderStatusOrdered,
			TotalPrice: total,
			Notes:      input.Notes,
			Items:      items,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Orders().Insert(ctx, created); err != nil {
			return err
		}
		for _, line := range input.Lines {
			ok, err := tx.Flowers().AdjustStock(ctx, line.FlowerID, -line.Qty, true)
			if err != nil {
				return err
			}
			if !ok {
				// Условное обновление — решающая проверка: параллельное
				// списание могло опередить чтение выше.
				flower := flowers[line.FlowerID]
				return &domain.InsufficientStockError{
					FlowerID:   flower.ID,
					FlowerName: flower.Name,
					Available:  flower.StockQuantity,
					Requested:  line.Qty,
				}
			}
		}

		staged, err = l.stageEvents(ctx, tx, created, kafka.EventTypeOrderCreated, nil)
		return err
	})
	if err != nil {
		l.reject(rejectionReason(err))
		l.logger.WithError(err).WithField("customer_id", input.CustomerID).Warn("order creation rejected")
		return domain.Order{}, err
	}

	l.afterCommit(created.ID, "OrderCreated", "", staged, len(created.Items))
	if l.metrics != nil {
		l.metrics.RecordOrderCreated()
	}
	l.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
		"total_price": created.TotalPrice.String(),
		"items":       len(created.Items),
	}).Info("order created")

	return l.hydrate(created, customer, flowers), nil
}

// Delete удаляет заказ и возвращает списанный сток каталогу в той же
// транзакции. Позиции, чей цветок уже удалён из каталога, пропускаются.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.RecordWorkflowDuration("delete", time.Since(start))
		}
	}()

	var (
		restored int
		staged   int
	)

	err := l.uow.Execute(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, id)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			ok, err := tx.Flowers().AdjustStock(ctx, item.FlowerID, item.Qty, false)
			if err != nil {
				if domain.IsNotFound(err) {
					l.logger.WithFields(log.Fields{
						"order_id":  id,
						"flower_id": item.FlowerID,
					}).Warn("flower missing during stock restore, skipping")
					continue
				}
				return err
			}
			if ok {
				restored++
			}
		}

		if err := tx.Orders().Delete(ctx, id); err != nil {
			return err
		}

		staged, err = l.stageEvents(ctx, tx, order, kafka.EventTypeOrderDeleted, map[string]interface{}{
			"items_restored": restored,
		})
		return err
	})
	if err != nil {
		l.reject(rejectionReason(err))
		l.logger.WithError(err).WithField("order_id", id).Warn("order deletion rejected")
		return err
	}

	l.afterCommit(id, "OrderDeleted", "", staged, restored)
	if l.metrics != nil {
		l.metrics.RecordOrderDeleted()
	}
	l.logger.WithFields(log.Fields{
		"order_id":       id,
		"items_restored": restored,
	}).Info("order deleted, stock restored")
	return nil
}

// UpdateStatus перезаписывает статус заказа. Переходы не ограничены,
// сток и сумма не затрагиваются.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		l.reject("invalid")
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrOrderStatusInvalid, status)
	}

	var staged int
	err := l.uow.Execute(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.Orders().UpdateStatus(ctx, id, status, now); err != nil {
			return err
		}
		order.Status = status
		order.UpdatedAt = now
		staged, err = l.stageEvents(ctx, tx, order, kafka.EventTypeOrderStatusChanged, map[string]interface{}{
			"status": string(status),
		})
		return err
	})
	if err != nil {
		l.reject(rejectionReason(err))
		return domain.Order{}, err
	}

	l.afterCommit(id, "OrderStatusChanged", string(status), staged, 0)
	if l.metrics != nil {
		l.metrics.RecordStatusUpdate()
	}
	l.logger.WithFields(log.Fields{
		"order_id": id,
		"status":   status,
	}).Info("order status updated")

	return l.orders.Get(ctx, id)
}

// Get возвращает заказ с позициями, клиентом и каталожными карточками.
func (l *Ledger) Get(ctx context.Context, id string) (domain.Order, error) {
	return l.orders.Get(ctx, id)
}

// List возвращает страницу заказов, новые первыми.
func (l *Ledger) List(ctx context.Context, status *domain.OrderStatus, offset, limit int) (domain.OrderPage, error) {
	return l.orders.List(ctx, status, offset, limit)
}

// ListByCustomer возвращает страницу заказов одного клиента.
func (l *Ledger) ListByCustomer(ctx context.Context, customerID string, offset, limit int) (domain.OrderPage, error) {
	return l.orders.ListByCustomer(ctx, customerID, offset, limit)
}

// Timeline возвращает события жизненного цикла заказа.
// Отсутствующий заказ — NotFoundError.
func (l *Ledger) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if _, err := l.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	if l.timeline == nil {
		return nil, nil
	}
	return l.timeline.List(orderID)
}

// stageEvents ставит в outbox событие заказа и по одному событию
// каталога на каждый затронутый цветок. Возвращает число событий.
func (l *Ledger) stageEvents(ctx context.Context, tx domain.Tx, order domain.Order, eventType kafka.EventType, extra map[string]interface{}) (int, error) {
	payload := map[string]interface{}{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"status":      string(order.Status),
		"total_price": order.TotalPrice.String(),
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	staged := 0
	if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       data,
	}); err != nil {
		return staged, err
	}
	staged++

	// Смена статуса сток не трогает, событие каталога не нужно.
	if eventType == kafka.EventTypeOrderStatusChanged {
		return staged, nil
	}

	seen := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		if seen[item.FlowerID] {
			continue
		}
		seen[item.FlowerID] = true
		stockPayload, err := json.Marshal(map[string]interface{}{
			"flower_id": item.FlowerID,
			"order_id":  order.ID,
			"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return staged, fmt.Errorf("marshal stock event: %w", err)
		}
		if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "flower",
			AggregateID:   item.FlowerID,
			EventType:     string(kafka.EventTypeStockChanged),
			Payload:       stockPayload,
		}); err != nil {
			return staged, err
		}
		staged++
	}
	return staged, nil
}

// afterCommit фиксирует сопутствующие эффекты успешной транзакции:
// timeline, метрики outbox и стока, сброс локального кэша каталога.
func (l *Ledger) afterCommit(orderID, eventType, reason string, staged, adjustments int) {
	if l.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  orderID,
			Type:     eventType,
			Reason:   reason,
			Occurred: time.Now().UTC(),
		}
		if err := l.timeline.Append(event); err != nil {
			l.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if l.metrics != nil {
			l.metrics.RecordTimelineEvent()
		}
	}

	if l.metrics != nil {
		for i := 0; i < staged; i++ {
			l.metrics.RecordOutboxEvent()
		}
		for i := 0; i < adjustments; i++ {
			l.metrics.RecordStockAdjustment()
		}
	}

	if adjustments > 0 && l.invalidator != nil {
		l.invalidator.InvalidateFlowers()
	}
}

// hydrate дополняет только что созданный заказ данными, уже прочитанными
// в транзакции, без повторного похода в хранилище.
func (l *Ledger) hydrate(order domain.Order, customer domain.Customer, flowers map[string]domain.Flower) domain.Order {
	order.Customer = &customer
	for i := range order.Items {
		if flower, ok := flowers[order.Items[i].FlowerID]; ok {
			f := flower
			order.Items[i].Flower = &f
		}
	}
	return order
}

func (l *Ledger) reject(reason string) {
	if l.metrics != nil {
		l.metrics.RecordOrderRejected(reason)
	}
}

// rejectionReason приводит ошибку workflow к метке метрики.
func rejectionReason(err error) string {
	switch {
	case domain.IsInsufficientStock(err):
		return "insufficient_stock"
	case domain.IsNotFound(err):
		return "not_found"
	case errors.Is(err, domain.ErrOrderStatusInvalid):
		return "invalid"
	default:
		return "error"
	}
}
