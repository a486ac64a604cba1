package memory

import (
	"context"
	"time"

	"github.com/flora-agent/flora/internal/domain"
)

// unitOfWork — copy-on-write транзакция поверх Store.
// Execute клонирует состояние, исполняет fn на клоне и подменяет состояние
// только при успехе: либо применяются все записи единицы работы, либо ни одна.
type unitOfWork struct {
	store  *Store
	outbox domain.OutboxRepository
}

// NewUnitOfWork возвращает in-memory реализацию UnitOfWork.
func NewUnitOfWork(store *Store, outbox domain.OutboxRepository) domain.UnitOfWork {
	return &unitOfWork{store: store, outbox: outbox}
}

func (u *unitOfWork) Execute(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	tx := &memTx{state: u.store.cloneLocked()}
	if err := fn(tx); err != nil {
		// Клон отбрасывается, состояние Store не тронуто.
		return err
	}

	u.store.swapLocked(tx.state)
	for _, msg := range tx.staged {
		if _, err := u.outbox.Enqueue(msg); err != nil {
			return err
		}
	}
	return nil
}

// memTx реализует domain.Tx поверх клонированного состояния.
type memTx struct {
	state *state
	// staged — outbox-события транзакции; публикуются только при commit.
	staged []domain.OutboxMessage
}

func (t *memTx) Flowers() domain.FlowerTx     { return &flowerTx{t} }
func (t *memTx) Customers() domain.CustomerTx { return &customerTx{t} }
func (t *memTx) Orders() domain.OrderTx       { return &orderTx{t} }
func (t *memTx) Outbox() domain.OutboxTx      { return &outboxTx{t} }

type flowerTx struct{ tx *memTx }

func (f *flowerTx) Get(_ context.Context, id string) (domain.Flower, error) {
	flower, ok := f.tx.state.flowers[id]
	if !ok {
		return domain.Flower{}, domain.NewNotFound("flower", id)
	}
	return flower, nil
}

func (f *flowerTx) AdjustStock(_ context.Context, id string, delta int32, requireNonNegative bool) (bool, error) {
	flower, ok := f.tx.state.flowers[id]
	if !ok {
		return false, domain.NewNotFound("flower", id)
	}

	next := flower.StockQuantity + delta
	if requireNonNegative && next < 0 {
		return false, nil
	}

	flower.StockQuantity = next
	flower.UpdatedAt = time.Now().UTC()
	f.tx.state.flowers[id] = flower
	return true, nil
}

type customerTx struct{ tx *memTx }

func (c *customerTx) Get(_ context.Context, id string) (domain.Customer, error) {
	customer, ok := c.tx.state.customers[id]
	if !ok {
		return domain.Customer{}, domain.NewNotFound("customer", id)
	}
	return customer, nil
}

type orderTx struct{ tx *memTx }

func (o *orderTx) Insert(_ context.Context, order domain.Order) error {
	o.tx.state.orders[order.ID] = cloneOrder(order)
	return nil
}

func (o *orderTx) Get(_ context.Context, id string) (domain.Order, error) {
	order, ok := o.tx.state.orders[id]
	if !ok {
		return domain.Order{}, domain.NewNotFound("order", id)
	}
	return cloneOrder(order), nil
}

func (o *orderTx) Delete(_ context.Context, id string) error {
	if _, ok := o.tx.state.orders[id]; !ok {
		return domain.NewNotFound("order", id)
	}
	delete(o.tx.state.orders, id)
	return nil
}

func (o *orderTx) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, updatedAt time.Time) error {
	order, ok := o.tx.state.orders[id]
	if !ok {
		return domain.NewNotFound("order", id)
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	o.tx.state.orders[id] = order
	return nil
}

type outboxTx struct{ tx *memTx }

func (o *outboxTx) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	o.tx.staged = append(o.tx.staged, msg)
	return msg, nil
}

var _ domain.UnitOfWork = (*unitOfWork)(nil)
