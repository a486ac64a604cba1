package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flora-agent/flora/internal/domain"
)

// userRepositoryInMemory — in-memory реализация UserRepository поверх Store.
type userRepositoryInMemory struct {
	store *Store
}

// NewUserRepository возвращает in-memory хранилище учётных записей.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepositoryInMemory{store: store}
}

func (r *userRepositoryInMemory) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return domain.User{}, &domain.IntegrityConflictError{Entity: "user", Field: "username"}
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, &domain.IntegrityConflictError{Entity: "user", Field: "email"}
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.store.users[user.ID] = user
	return user, nil
}

func (r *userRepositoryInMemory) Get(_ context.Context, id string) (domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return domain.User{}, domain.NewNotFound("user", id)
	}
	return user, nil
}

func (r *userRepositoryInMemory) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, user := range r.store.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return domain.User{}, domain.NewNotFound("user", username)
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
