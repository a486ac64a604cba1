package memory

import (
	"context"
	"sort"

	"github.com/flora-agent/flora/internal/domain"
)

// orderRepositoryInMemory — read-сторона хранилища заказов поверх Store.
// Записи идут только через unit of work.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.NewNotFound("order", id)
	}
	return r.hydrateLocked(order), nil
}

func (r *orderRepositoryInMemory) List(_ context.Context, status *domain.OrderStatus, offset, limit int) (domain.OrderPage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		if status != nil && order.Status != *status {
			continue
		}
		all = append(all, order)
	}
	return r.pageLocked(all, offset, limit), nil
}

func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerID string, offset, limit int) (domain.OrderPage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.CustomerID == customerID {
			all = append(all, order)
		}
	}
	return r.pageLocked(all, offset, limit), nil
}

// pageLocked сортирует выборку (новые первыми) и гидрирует страницу. Вызывается под mu.
func (r *orderRepositoryInMemory) pageLocked(all []domain.Order, offset, limit int) domain.OrderPage {
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	page := pageSlice(all, offset, limit)
	for i := range page {
		page[i] = r.hydrateLocked(page[i])
	}
	return domain.OrderPage{Orders: page, Total: total, Offset: offset, Limit: limit}
}

// hydrateLocked дополняет заказ данными клиента и каталожными карточками позиций.
// Вызывается под mu.
func (r *orderRepositoryInMemory) hydrateLocked(order domain.Order) domain.Order {
	order = cloneOrder(order)
	if customer, ok := r.store.customers[order.CustomerID]; ok {
		c := customer
		order.Customer = &c
	}
	for i := range order.Items {
		if flower, ok := r.store.flowers[order.Items[i].FlowerID]; ok {
			f := flower
			order.Items[i].Flower = &f
		}
	}
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
