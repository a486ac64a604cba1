package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flora-agent/flora/internal/domain"
)

// unitOfWork исполняет workflow внутри одной транзакции PostgreSQL.
// Все записи фиксируются одним COMMIT, включая outbox-события.
type unitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork возвращает PostgreSQL-реализацию UnitOfWork.
func NewUnitOfWork(store *Store) domain.UnitOfWork {
	return &unitOfWork{db: store.DB()}
}

func (u *unitOfWork) Execute(ctx context.Context, fn func(tx domain.Tx) error) error {
	sqlTx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	tx := &pgTx{tx: sqlTx}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// pgTx реализует domain.Tx поверх *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Flowers() domain.FlowerTx     { return &pgFlowerTx{tx: t.tx} }
func (t *pgTx) Customers() domain.CustomerTx { return &pgCustomerTx{tx: t.tx} }
func (t *pgTx) Orders() domain.OrderTx       { return &pgOrderTx{tx: t.tx} }
func (t *pgTx) Outbox() domain.OutboxTx      { return &pgOutboxTx{tx: t.tx} }

type pgFlowerTx struct {
	tx *sql.Tx
}

func (f *pgFlowerTx) Get(ctx context.Context, id string) (domain.Flower, error) {
	flower, err := scanFlower(f.tx.QueryRowContext(ctx, `
		SELECT `+flowerColumns+`
		FROM flowers
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Flower{}, domain.NewNotFound("flower", id)
		}
		return domain.Flower{}, fmt.Errorf("select flower in tx: %w", err)
	}
	return flower, nil
}

// AdjustStock меняет остаток одним условным UPDATE, без read-modify-write.
// При requireNonNegative=true уменьшение ниже нуля не применяется: WHERE не
// совпадает, UPDATE затрагивает ноль строк и возвращается ok=false.
func (f *pgFlowerTx) AdjustStock(ctx context.Context, id string, delta int32, requireNonNegative bool) (bool, error) {
	res, err := f.tx.ExecContext(ctx, `
		UPDATE flowers
		SET stock_quantity = stock_quantity + $2,
		    updated_at = $3
		WHERE id = $1
		  AND ($4 = FALSE OR stock_quantity + $2 >= 0)
	`, id, delta, time.Now().UTC(), requireNonNegative)
	if err != nil {
		return false, fmt.Errorf("adjust flower stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adjust stock rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Ноль строк: либо цветка нет, либо не прошла проверка стока.
	var exists bool
	if err := f.tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM flowers WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check flower exists: %w", err)
	}
	if !exists {
		return false, domain.NewNotFound("flower", id)
	}

	return false, nil
}

type pgCustomerTx struct {
	tx *sql.Tx
}

func (c *pgCustomerTx) Get(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := scanCustomer(c.tx.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.NewNotFound("customer", id)
		}
		return domain.Customer{}, fmt.Errorf("select customer in tx: %w", err)
	}
	return customer, nil
}

type pgOrderTx struct {
	tx *sql.Tx
}

func (o *pgOrderTx) Insert(ctx context.Context, order domain.Order) error {
	_, err := o.tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, status, total_minor, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		order.ID, order.CustomerID, string(order.Status), order.TotalPrice.Minor(),
		order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.IntegrityConflictError{Entity: "order", Field: "id"}
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := o.tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, flower_id, qty, unit_price_minor, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID, order.ID, item.FlowerID, item.Qty, item.UnitPrice.Minor(), item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (o *pgOrderTx) Get(ctx context.Context, id string) (domain.Order, error) {
	order, err := scanOrder(o.tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.NewNotFound("order", id)
		}
		return domain.Order{}, fmt.Errorf("select order in tx: %w", err)
	}

	rows, err := o.tx.QueryContext(ctx, `
		SELECT id, order_id, flower_id, qty, unit_price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order items in tx: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item       domain.OrderItem
			priceMinor int64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.FlowerID, &item.Qty, &priceMinor, &item.CreatedAt); err != nil {
			return domain.Order{}, fmt.Errorf("scan order item in tx: %w", err)
		}
		item.UnitPrice = domain.Money(priceMinor)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("iterate order items in tx: %w", err)
	}
	order.Items = items

	return order, nil
}

func (o *pgOrderTx) Delete(ctx context.Context, id string) error {
	// Позиции удаляются каскадом (FK ON DELETE CASCADE).
	res, err := o.tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFound("order", id)
	}

	return nil
}

func (o *pgOrderTx) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, updatedAt time.Time) error {
	res, err := o.tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    updated_at = $3
		WHERE id = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFound("order", id)
	}

	return nil
}

type pgOutboxTx struct {
	tx *sql.Tx
}

func (o *pgOutboxTx) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := o.tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
	`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now,
	)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message in tx: %w", err)
	}

	return msg, nil
}

var _ domain.UnitOfWork = (*unitOfWork)(nil)
