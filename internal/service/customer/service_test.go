package customer

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/storage/memory"
)

func newEnv(t *testing.T) (*Service, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	svc := NewService(memory.NewCustomerRepository(store), log.New().WithField("test", t.Name()))
	return svc, store
}

func newCustomer(email string) domain.Customer {
	return domain.Customer{
		FirstName: "Anna",
		LastName:  "Petrova",
		Email:     email,
		Phone:     "+7 900 000-00-00",
		Address:   "Nevsky 1",
	}
}

func TestService_CreateValidatesAndTrims(t *testing.T) {
	svc, _ := newEnv(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Customer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCustomerFirstNameRequired)
	assert.ErrorIs(t, err, domain.ErrCustomerEmailRequired)

	created, err := svc.Create(ctx, newCustomer("  anna@example.com  "))
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", created.Email)
	assert.NotEmpty(t, created.ID)
}

func TestService_DuplicateEmailConflicts(t *testing.T) {
	svc, _ := newEnv(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, newCustomer("anna@example.com"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, newCustomer("ANNA@example.com"))
	assert.True(t, domain.IsIntegrityConflict(err), "expected IntegrityConflict, got %v", err)
}

func TestService_SearchMatchesNameAndEmail(t *testing.T) {
	svc, _ := newEnv(t)
	ctx := context.Background()

	first := newCustomer("anna@example.com")
	_, err := svc.Create(ctx, first)
	require.NoError(t, err)

	second := domain.Customer{FirstName: "Boris", LastName: "Ivanov", Email: "boris@shop.ru"}
	_, err = svc.Create(ctx, second)
	require.NoError(t, err)

	found, total, err := svc.Search(ctx, "ivan", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Boris", found[0].FirstName)

	found, total, err = svc.Search(ctx, "EXAMPLE.COM", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Anna", found[0].FirstName)

	// Пустой запрос эквивалентен листингу.
	_, total, err = svc.Search(ctx, "   ", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestService_DeleteBlockedByOrders(t *testing.T) {
	svc, store := newEnv(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, newCustomer("anna@example.com"))
	require.NoError(t, err)

	uow := memory.NewUnitOfWork(store, memory.NewOutboxRepository())
	now := time.Now().UTC()
	err = uow.Execute(ctx, func(tx domain.Tx) error {
		return tx.Orders().Insert(ctx, domain.Order{
			ID:         "order-1",
			CustomerID: created.ID,
			Status:     domain.OrderStatusOrdered,
			TotalPrice: 1000,
			Items: []domain.OrderItem{
				{ID: "item-1", OrderID: "order-1", FlowerID: "flower-1", Qty: 1, UnitPrice: 1000, CreatedAt: now},
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, created.ID)
	assert.True(t, domain.IsConstraintBlocked(err), "expected ConstraintBlocked, got %v", err)

	err = uow.Execute(ctx, func(tx domain.Tx) error {
		return tx.Orders().Delete(ctx, "order-1")
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestService_UpdateConflictsWithOtherEmail(t *testing.T) {
	svc, _ := newEnv(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, newCustomer("anna@example.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.Customer{FirstName: "Boris", LastName: "Ivanov", Email: "boris@shop.ru"})
	require.NoError(t, err)

	first.Email = "boris@shop.ru"
	_, err = svc.Update(ctx, first)
	assert.True(t, domain.IsIntegrityConflict(err), "expected IntegrityConflict, got %v", err)

	first.Email = "anna@example.com"
	first.Address = "Nevsky 2"
	updated, err := svc.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Nevsky 2", updated.Address)
}
