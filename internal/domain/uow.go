package domain

import (
	"context"
	"time"
)

// UnitOfWork исполняет fn внутри одной транзакции хранилища.
// Все записи, сделанные через tx, фиксируются или откатываются вместе;
// чтения внутри tx видят незакоммиченные записи той же транзакции.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx Tx) error) error
}

// Tx — транзакционный контекст одного workflow.
// Передаётся в workflow явно, отдельных auto-commit вызовов внутри него нет.
type Tx interface {
	Flowers() FlowerTx
	Customers() CustomerTx
	Orders() OrderTx
	Outbox() OutboxTx
}

// FlowerTx — операции каталога внутри транзакции.
type FlowerTx interface {
	// Get возвращает цветок или NotFoundError.
	Get(ctx context.Context, id string) (Flower, error)
	// AdjustStock атомарно меняет остаток на delta.
	// При requireNonNegative=true уменьшение, уводящее сток ниже нуля,
	// не применяется и возвращает ok=false (условный UPDATE, не read-modify-write).
	// Отсутствующий цветок — NotFoundError.
	AdjustStock(ctx context.Context, id string, delta int32, requireNonNegative bool) (bool, error)
}

// CustomerTx — чтения реестра клиентов внутри транзакции.
type CustomerTx interface {
	Get(ctx context.Context, id string) (Customer, error)
}

// OrderTx — записи журнала заказов внутри транзакции.
type OrderTx interface {
	// Insert сохраняет заказ вместе со всеми позициями.
	Insert(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями (без гидрации клиента и каталога).
	Get(ctx context.Context, id string) (Order, error)
	// Delete удаляет заказ и все его позиции. Отсутствующий заказ — NotFoundError.
	Delete(ctx context.Context, id string) error
	// UpdateStatus перезаписывает статус. Отсутствующий заказ — NotFoundError.
	UpdateStatus(ctx context.Context, id string, status OrderStatus, updatedAt time.Time) error
}

// OutboxTx ставит событие в transactional outbox в рамках той же транзакции,
// что и породившие его записи.
type OutboxTx interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}
