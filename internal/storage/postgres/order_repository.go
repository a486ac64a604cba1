package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flora-agent/flora/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию read-стороны OrderRepository.
// Записи заказов идут только через UnitOfWork.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

const orderColumns = `id, customer_id, status, total_minor, notes, created_at, updated_at`

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.NewNotFound("order", id)
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	orders := []domain.Order{order}
	if err := r.hydrate(ctx, orders); err != nil {
		return domain.Order{}, err
	}

	return orders[0], nil
}

func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus, offset, limit int) (domain.OrderPage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	offset, limitArg := normalizePage(offset, limit)

	var (
		total int
		rows  *sql.Rows
		err   error
	)

	if status != nil {
		if err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM orders WHERE status = $1
		`, string(*status)).Scan(&total); err != nil {
			return domain.OrderPage{}, fmt.Errorf("count orders: %w", err)
		}
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			WHERE status = $1
			ORDER BY created_at DESC, id DESC
			OFFSET $2 LIMIT $3
		`, string(*status), offset, limitArg)
	} else {
		if err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM orders
		`).Scan(&total); err != nil {
			return domain.OrderPage{}, fmt.Errorf("count orders: %w", err)
		}
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			ORDER BY created_at DESC, id DESC
			OFFSET $1 LIMIT $2
		`, offset, limitArg)
	}
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return domain.OrderPage{}, err
	}
	if err := r.hydrate(ctx, orders); err != nil {
		return domain.OrderPage{}, err
	}

	return domain.OrderPage{Orders: orders, Total: total, Offset: offset, Limit: limit}, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, offset, limit int) (domain.OrderPage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	offset, limitArg := normalizePage(offset, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders WHERE customer_id = $1
	`, customerID).Scan(&total); err != nil {
		return domain.OrderPage{}, fmt.Errorf("count customer orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`, customerID, offset, limitArg)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("list customer orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return domain.OrderPage{}, err
	}
	if err := r.hydrate(ctx, orders); err != nil {
		return domain.OrderPage{}, err
	}

	return domain.OrderPage{Orders: orders, Total: total, Offset: offset, Limit: limit}, nil
}

// hydrate дозагружает позиции, клиентов и каталожные карточки для страницы заказов.
func (r *orderRepository) hydrate(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return err
		}
		orders[i].Items = items
	}

	customers := map[string]*domain.Customer{}
	for i := range orders {
		customerID := orders[i].CustomerID
		customer, ok := customers[customerID]
		if !ok {
			loaded, err := r.loadCustomer(ctx, customerID)
			if err != nil {
				return err
			}
			customer = loaded
			customers[customerID] = customer
		}
		orders[i].Customer = customer
	}

	flowers := map[string]*domain.Flower{}
	for i := range orders {
		for j := range orders[i].Items {
			flowerID := orders[i].Items[j].FlowerID
			flower, ok := flowers[flowerID]
			if !ok {
				loaded, err := r.loadFlower(ctx, flowerID)
				if err != nil {
					return err
				}
				flower = loaded
				flowers[flowerID] = flower
			}
			orders[i].Items[j].Flower = flower
		}
	}

	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, flower_id, qty, unit_price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item       domain.OrderItem
			priceMinor int64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.FlowerID, &item.Qty, &priceMinor, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPrice = domain.Money(priceMinor)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// loadCustomer возвращает nil без ошибки, если клиент уже удалён:
// заказы на удалённого клиента не существуют (FK RESTRICT), но гидрация
// не должна падать на гонке чтения.
func (r *orderRepository) loadCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, address, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load order customer: %w", err)
	}
	return &c, nil
}

func (r *orderRepository) loadFlower(ctx context.Context, id string) (*domain.Flower, error) {
	var (
		f          domain.Flower
		priceMinor int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price_minor, stock_quantity, created_at, updated_at
		FROM flowers
		WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &priceMinor, &f.StockQuantity, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load order flower: %w", err)
	}
	f.Price = domain.Money(priceMinor)
	return &f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order      domain.Order
		status     string
		totalMinor int64
	)
	if err := row.Scan(
		&order.ID, &order.CustomerID, &status, &totalMinor,
		&order.Notes, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.TotalPrice = domain.Money(totalMinor)
	return order, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// normalizePage приводит параметры страницы к значениям для OFFSET/LIMIT.
// limit <= 0 означает выборку без ограничения (LIMIT NULL).
func normalizePage(offset, limit int) (int, any) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return offset, nil
	}
	return offset, limit
}

var _ domain.OrderRepository = (*orderRepository)(nil)
