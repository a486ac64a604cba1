package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flora-agent/flora/internal/domain"
)

// customerRepositoryInMemory — in-memory реализация CustomerRepository поверх Store.
type customerRepositoryInMemory struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory реестр клиентов.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepositoryInMemory{store: store}
}

func (r *customerRepositoryInMemory) Create(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.checkEmailLocked(customer.Email, ""); err != nil {
		return domain.Customer{}, err
	}

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	r.store.customers[customer.ID] = customer
	return customer, nil
}

func (r *customerRepositoryInMemory) Get(_ context.Context, id string) (domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	customer, ok := r.store.customers[id]
	if !ok {
		return domain.Customer{}, domain.NewNotFound("customer", id)
	}
	return customer, nil
}

func (r *customerRepositoryInMemory) GetByEmail(_ context.Context, email string) (domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, customer := range r.store.customers {
		if strings.EqualFold(customer.Email, email) {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.NewNotFound("customer", email)
}

func (r *customerRepositoryInMemory) List(_ context.Context, offset, limit int) ([]domain.Customer, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := r.sortedLocked()
	return pageSlice(all, offset, limit), len(all), nil
}

func (r *customerRepositoryInMemory) Search(_ context.Context, query string, offset, limit int) ([]domain.Customer, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	matched := make([]domain.Customer, 0)
	for _, customer := range r.sortedLocked() {
		if strings.Contains(strings.ToLower(customer.FirstName), q) ||
			strings.Contains(strings.ToLower(customer.LastName), q) ||
			strings.Contains(strings.ToLower(customer.Email), q) {
			matched = append(matched, customer)
		}
	}

	return pageSlice(matched, offset, limit), len(matched), nil
}

func (r *customerRepositoryInMemory) Update(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.customers[customer.ID]
	if !ok {
		return domain.Customer{}, domain.NewNotFound("customer", customer.ID)
	}
	if err := r.checkEmailLocked(customer.Email, customer.ID); err != nil {
		return domain.Customer{}, err
	}

	current.FirstName = customer.FirstName
	current.LastName = customer.LastName
	current.Email = customer.Email
	current.Phone = customer.Phone
	current.Address = customer.Address
	current.UpdatedAt = time.Now().UTC()
	r.store.customers[customer.ID] = current
	return current, nil
}

func (r *customerRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.customers[id]; !ok {
		return domain.NewNotFound("customer", id)
	}

	// Удаление заблокировано, пока на клиента ссылается хотя бы один заказ.
	for _, order := range r.store.orders {
		if order.CustomerID == id {
			return &domain.ConstraintBlockedError{Entity: "customer", ID: id}
		}
	}

	delete(r.store.customers, id)
	return nil
}

// sortedLocked возвращает клиентов, отсортированных по фамилии и имени. Вызывается под mu.
func (r *customerRepositoryInMemory) sortedLocked() []domain.Customer {
	all := make([]domain.Customer, 0, len(r.store.customers))
	for _, c := range r.store.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastName != all[j].LastName {
			return all[i].LastName < all[j].LastName
		}
		if all[i].FirstName != all[j].FirstName {
			return all[i].FirstName < all[j].FirstName
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// checkEmailLocked проверяет уникальность email. Вызывается под mu.
func (r *customerRepositoryInMemory) checkEmailLocked(email, excludeID string) error {
	for id, customer := range r.store.customers {
		if id == excludeID {
			continue
		}
		if strings.EqualFold(customer.Email, email) {
			return &domain.IntegrityConflictError{Entity: "customer", Field: "email"}
		}
	}
	return nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
