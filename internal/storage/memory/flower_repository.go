package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flora-agent/flora/internal/domain"
)

// flowerRepositoryInMemory — in-memory реализация FlowerRepository поверх Store.
type flowerRepositoryInMemory struct {
	store *Store
}

// NewFlowerRepository возвращает in-memory репозиторий каталога.
func NewFlowerRepository(store *Store) domain.FlowerRepository {
	return &flowerRepositoryInMemory{store: store}
}

func (r *flowerRepositoryInMemory) Create(_ context.Context, flower domain.Flower) (domain.Flower, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if flower.ID == "" {
		flower.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	flower.CreatedAt = now
	flower.UpdatedAt = now

	r.store.flowers[flower.ID] = flower
	return flower, nil
}

func (r *flowerRepositoryInMemory) Get(_ context.Context, id string) (domain.Flower, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	flower, ok := r.store.flowers[id]
	if !ok {
		return domain.Flower{}, domain.NewNotFound("flower", id)
	}
	return flower, nil
}

func (r *flowerRepositoryInMemory) List(_ context.Context, offset, limit int) ([]domain.Flower, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.Flower, 0, len(r.store.flowers))
	for _, f := range r.store.flowers {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	return pageSlice(all, offset, limit), total, nil
}

func (r *flowerRepositoryInMemory) Update(_ context.Context, flower domain.Flower) (domain.Flower, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.flowers[flower.ID]
	if !ok {
		return domain.Flower{}, domain.NewNotFound("flower", flower.ID)
	}

	current.Name = flower.Name
	current.Price = flower.Price
	current.UpdatedAt = time.Now().UTC()
	r.store.flowers[flower.ID] = current
	return current, nil
}

func (r *flowerRepositoryInMemory) SetStock(_ context.Context, id string, quantity int32) (domain.Flower, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.flowers[id]
	if !ok {
		return domain.Flower{}, domain.NewNotFound("flower", id)
	}
	if quantity < 0 {
		return domain.Flower{}, domain.ErrStockNegative
	}

	current.StockQuantity = quantity
	current.UpdatedAt = time.Now().UTC()
	r.store.flowers[id] = current
	return current, nil
}

func (r *flowerRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.flowers[id]; !ok {
		return domain.NewNotFound("flower", id)
	}

	// Удаление заблокировано, пока на цветок ссылается хотя бы одна позиция заказа.
	for _, order := range r.store.orders {
		for _, item := range order.Items {
			if item.FlowerID == id {
				return &domain.ConstraintBlockedError{Entity: "flower", ID: id}
			}
		}
	}

	delete(r.store.flowers, id)
	return nil
}

// pageSlice вырезает страницу [offset, offset+limit) из отсортированного среза.
func pageSlice[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	result := make([]T, end-offset)
	copy(result, all[offset:end])
	return result
}

var _ domain.FlowerRepository = (*flowerRepositoryInMemory)(nil)
