package memory

import (
	"sync"

	"github.com/flora-agent/flora/internal/domain"
)

// Store — in-memory состояние всех сущностей для локальной разработки и тестов.
// Один мьютекс на всё состояние: единица работы блокирует Store целиком,
// поэтому транзакционные снимки всегда консистентны.
type Store struct {
	mu        sync.RWMutex
	flowers   map[string]domain.Flower
	customers map[string]domain.Customer
	orders    map[string]domain.Order
	users     map[string]domain.User
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		flowers:   make(map[string]domain.Flower),
		customers: make(map[string]domain.Customer),
		orders:    make(map[string]domain.Order),
		users:     make(map[string]domain.User),
	}
}

// state — копируемое содержимое Store для copy-on-write транзакций.
type state struct {
	flowers   map[string]domain.Flower
	customers map[string]domain.Customer
	orders    map[string]domain.Order
	users     map[string]domain.User
}

// cloneLocked делает глубокую копию состояния. Вызывается под mu.
func (s *Store) cloneLocked() *state {
	c := &state{
		flowers:   make(map[string]domain.Flower, len(s.flowers)),
		customers: make(map[string]domain.Customer, len(s.customers)),
		orders:    make(map[string]domain.Order, len(s.orders)),
		users:     make(map[string]domain.User, len(s.users)),
	}
	for id, f := range s.flowers {
		c.flowers[id] = f
	}
	for id, cust := range s.customers {
		c.customers[id] = cust
	}
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	return c
}

// swapLocked подменяет состояние на зафиксированный снимок. Вызывается под mu.
func (s *Store) swapLocked(c *state) {
	s.flowers = c.flowers
	s.customers = c.customers
	s.orders = c.orders
	s.users = c.users
}

// cloneOrder копирует заказ вместе со срезом позиций,
// чтобы избежать непредсказуемых мутаций извне.
func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	o.Customer = nil
	for i := range items {
		items[i].Flower = nil
	}
	return o
}
