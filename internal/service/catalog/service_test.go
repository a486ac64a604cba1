package catalog

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flora-agent/flora/internal/cache"
	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/storage/memory"
)

func newService(t *testing.T) (*Service, domain.OutboxRepository) {
	t.Helper()

	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	listCache := cache.NewFlowerListCache(time.Minute, nil)
	svc := NewService(memory.NewFlowerRepository(store), listCache, outbox, log.New().WithField("test", t.Name()))
	return svc, outbox
}

func TestService_CreateValidates(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.Flower{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFlowerNameRequired)

	created, err := svc.Create(context.Background(), domain.Flower{Name: "Rose", Price: 1000, StockQuantity: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.Money(1000), created.Price)
}

func TestService_ListReadsThroughCache(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Flower{Name: "Rose", Price: 1000, StockQuantity: 5})
	require.NoError(t, err)

	flowers, total, err := svc.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, flowers, 1)

	// Вторая выборка идёт из кэша и не видит прямую запись мимо сервиса.
	again, total, err := svc.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, flowers[0].ID, again[0].ID)
}

func TestService_MutationsInvalidateCacheAndEnqueueEvents(t *testing.T) {
	svc, outbox := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Flower{Name: "Rose", Price: 1000, StockQuantity: 5})
	require.NoError(t, err)

	_, _, err = svc.List(ctx, 0, 10)
	require.NoError(t, err)

	updated, err := svc.SetStock(ctx, created.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, int32(12), updated.StockQuantity)

	// Кэш сброшен, листинг видит новый сток.
	flowers, _, err := svc.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(12), flowers[0].StockQuantity)

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	types := make(map[string]int)
	for _, msg := range pending {
		types[msg.EventType]++
	}
	assert.Equal(t, 1, types["catalog.flower_updated"], "create event")
	assert.Equal(t, 1, types["catalog.stock_changed"], "set stock event")
}

func TestService_SetStockRejectsNegative(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Flower{Name: "Rose", Price: 1000, StockQuantity: 5})
	require.NoError(t, err)

	_, err = svc.SetStock(ctx, created.ID, -1)
	assert.ErrorIs(t, err, domain.ErrStockNegative)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), stored.StockQuantity)
}

func TestService_GetUnknown(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestService_UpdateKeepsStock(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Flower{Name: "Rose", Price: 1000, StockQuantity: 5})
	require.NoError(t, err)

	created.Name = "Red Rose"
	created.Price = 1500
	created.StockQuantity = 99 // игнорируется, сток меняется только через SetStock

	updated, err := svc.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Red Rose", updated.Name)
	assert.Equal(t, domain.Money(1500), updated.Price)
	assert.Equal(t, int32(5), updated.StockQuantity)
}
