package order

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/storage/memory"
)

type cacheSpy struct {
	invalidations int
}

func (c *cacheSpy) InvalidateFlowers() {
	c.invalidations++
}

type env struct {
	store     *memory.Store
	flowers   domain.FlowerRepository
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository
	cache     *cacheSpy
	ledger    *Ledger
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	cache := &cacheSpy{}
	e := &env{
		store:     store,
		flowers:   memory.NewFlowerRepository(store),
		customers: memory.NewCustomerRepository(store),
		orders:    memory.NewOrderRepository(store),
		outbox:    outbox,
		timeline:  memory.NewTimelineRepository(),
		cache:     cache,
	}
	uow := memory.NewUnitOfWork(store, outbox)
	e.ledger = NewLedgerWithoutMetrics(uow, e.orders, e.timeline, cache, log.New().WithField("test", t.Name()))
	return e
}

func (e *env) seedCustomer(t *testing.T) domain.Customer {
	t.Helper()

	customer, err := e.customers.Create(context.Background(), domain.Customer{
		FirstName: "Anna",
		LastName:  "Petrova",
		Email:     "anna@example.com",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func (e *env) seedFlower(t *testing.T, name string, price domain.Money, stock int32) domain.Flower {
	t.Helper()

	flower, err := e.flowers.Create(context.Background(), domain.Flower{
		Name:          name,
		Price:         price,
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("seed flower %s: %v", name, err)
	}
	return flower
}

func (e *env) stockOf(t *testing.T, id string) int32 {
	t.Helper()

	flower, err := e.flowers.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get flower: %v", err)
	}
	return flower.StockQuantity
}

func TestLedger_CreateDeductsStockAndSnapshotsPrice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)

	created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if created.Status != domain.OrderStatusOrdered {
		t.Fatalf("expected status ordered, got %s", created.Status)
	}
	if created.TotalPrice != 3000 {
		t.Fatalf("expected total 30.00, got %s", created.TotalPrice.String())
	}
	if len(created.Items) != 1 || created.Items[0].UnitPrice != 1000 {
		t.Fatalf("expected unit price snapshot 10.00, got %+v", created.Items)
	}
	if got := e.stockOf(t, rose.ID); got != 2 {
		t.Fatalf("expected stock 2 after deduction, got %d", got)
	}
	if e.cache.invalidations != 1 {
		t.Fatalf("expected 1 cache invalidation, got %d", e.cache.invalidations)
	}

	stored, err := e.ledger.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Customer == nil || stored.Customer.ID != customer.ID {
		t.Fatalf("expected hydrated customer, got %+v", stored.Customer)
	}
}

func TestLedger_CreateInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 2)

	_, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 3}},
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}

	var is *domain.InsufficientStockError
	if !errors.As(err, &is) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if is.Available != 2 || is.Requested != 3 {
		t.Fatalf("expected available=2 requested=3, got %+v", is)
	}

	if got := e.stockOf(t, rose.ID); got != 2 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
	page, err := e.ledger.List(ctx, nil, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected no persisted orders, got %d", page.Total)
	}
	pending, _ := e.outbox.PullPending(10)
	if len(pending) != 0 {
		t.Fatalf("expected no outbox events after rollback, got %d", len(pending))
	}
}

func TestLedger_CreateAtomicAcrossLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)
	tulip := e.seedFlower(t, "Tulip", 500, 1)

	// Вторая позиция не проходит, списание первой не должно зафиксироваться.
	_, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines: []domain.OrderLine{
			{FlowerID: rose.ID, Qty: 2},
			{FlowerID: tulip.ID, Qty: 3},
		},
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}

	if got := e.stockOf(t, rose.ID); got != 5 {
		t.Fatalf("expected rose stock untouched, got %d", got)
	}
	if got := e.stockOf(t, tulip.ID); got != 1 {
		t.Fatalf("expected tulip stock untouched, got %d", got)
	}
}

func TestLedger_CreateDuplicateLinesAreIndependent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)

	created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines: []domain.OrderLine{
			{FlowerID: rose.ID, Qty: 2},
			{FlowerID: rose.ID, Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(created.Items) != 2 {
		t.Fatalf("expected 2 independent items, got %d", len(created.Items))
	}
	if created.TotalPrice != 4000 {
		t.Fatalf("expected total 40.00, got %s", created.TotalPrice.String())
	}
	if got := e.stockOf(t, rose.ID); got != 1 {
		t.Fatalf("expected stock 1, got %d", got)
	}
}

func TestLedger_CreateUnknownCustomerOrFlower(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)

	_, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: "missing",
		Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 1}},
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound for customer, got %v", err)
	}

	_, err = e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []domain.OrderLine{{FlowerID: "missing", Qty: 1}},
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound for flower, got %v", err)
	}
	if got := e.stockOf(t, rose.ID); got != 5 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
}

func TestLedger_CreateInvalidInput(t *testing.T) {
	e := newEnv(t)

	_, err := e.ledger.Create(context.Background(), domain.CreateOrderInput{})
	if !errors.Is(err, domain.ErrCustomerRequired) || !errors.Is(err, domain.ErrItemsRequired) {
		t.Fatalf("expected joined validation errors, got %v", err)
	}
}

func TestLedger_PriceSnapshotSurvivesCatalogUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)

	created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rose.Price = 2500
	if _, err := e.flowers.Update(ctx, rose); err != nil {
		t.Fatalf("update flower: %v", err)
	}

	stored, err := e.ledger.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Items[0].UnitPrice != 1000 || stored.TotalPrice != 2000 {
		t.Fatalf("expected frozen snapshot 10.00/20.00, got %s/%s",
			stored.Items[0].UnitPrice.String(), stored.TotalPrice.String())
	}
}

func TestLedger_DeleteRestoresStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)
	tulip := e.seedFlower(t, "Tulip", 500, 4)

	created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines: []domain.OrderLine{
			{FlowerID: rose.ID, Qty: 2},
			{FlowerID: tulip.ID, Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.TotalPrice != 3500 {
		t.Fatalf("expected total 35.00, got %s", created.TotalPrice.String())
	}

	if err := e.ledger.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if got := e.stockOf(t, rose.ID); got != 5 {
		t.Fatalf("expected rose stock restored to 5, got %d", got)
	}
	if got := e.stockOf(t, tulip.ID); got != 4 {
		t.Fatalf("expected tulip stock restored to 4, got %d", got)
	}
	if _, err := e.ledger.Get(ctx, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected order gone, got %v", err)
	}
}

func TestLedger_DeleteUnknownOrder(t *testing.T) {
	e := newEnv(t)

	if err := e.ledger.Delete(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLedger_UpdateStatusLeavesStockAndTotalUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)

	created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := e.ledger.UpdateStatus(ctx, created.ID, domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", updated.Status)
	}
	if updated.TotalPrice != created.TotalPrice {
		t.Fatalf("expected total unchanged, got %s", updated.TotalPrice.String())
	}
	if got := e.stockOf(t, rose.ID); got != 2 {
		t.Fatalf("expected stock unchanged, got %d", got)
	}

	// Переходы не ограничены: откат обратно в ordered допустим.
	if _, err := e.ledger.UpdateStatus(ctx, created.ID, domain.OrderStatusOrdered); err != nil {
		t.Fatalf("revert status failed: %v", err)
	}

	if _, err := e.ledger.UpdateStatus(ctx, created.ID, "shipped"); !errors.Is(err, domain.ErrOrderStatusInvalid) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestLedger_OutboxAndTimelinePerWorkflow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 5)

	created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	pending, err := e.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	types := make(map[string]int)
	for _, msg := range pending {
		types[msg.EventType]++
	}
	if types["order.created"] != 1 || types["catalog.stock_changed"] != 1 {
		t.Fatalf("expected order.created and catalog.stock_changed, got %v", types)
	}

	events, err := e.ledger.Timeline(ctx, created.ID)
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != "OrderCreated" {
		t.Fatalf("expected OrderCreated timeline event, got %+v", events)
	}

	if _, err := e.ledger.UpdateStatus(ctx, created.ID, domain.OrderStatusDelivered); err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if err := e.ledger.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	pending, _ = e.outbox.PullPending(20)
	types = make(map[string]int)
	for _, msg := range pending {
		types[msg.EventType]++
	}
	if types["order.status_changed"] != 1 || types["order.deleted"] != 1 {
		t.Fatalf("expected status and delete events, got %v", types)
	}
	if types["catalog.stock_changed"] != 2 {
		t.Fatalf("expected stock events for create and delete, got %v", types)
	}

	if _, err := e.ledger.Timeline(ctx, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound for deleted order timeline, got %v", err)
	}
}

func TestLedger_ListFiltersAndPaginates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := e.seedCustomer(t)
	rose := e.seedFlower(t, "Rose", 1000, 100)

	var last domain.Order
	for i := 0; i < 3; i++ {
		created, err := e.ledger.Create(ctx, domain.CreateOrderInput{
			CustomerID: customer.ID,
			Lines:      []domain.OrderLine{{FlowerID: rose.ID, Qty: 1}},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		last = created
	}
	if _, err := e.ledger.UpdateStatus(ctx, last.ID, domain.OrderStatusDelivered); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	page, err := e.ledger.List(ctx, nil, 0, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Total != 3 || len(page.Orders) != 2 {
		t.Fatalf("expected total=3 page=2, got total=%d page=%d", page.Total, len(page.Orders))
	}

	delivered := domain.OrderStatusDelivered
	page, err = e.ledger.List(ctx, &delivered, 0, 10)
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if page.Total != 1 || page.Orders[0].ID != last.ID {
		t.Fatalf("expected only delivered order, got %+v", page)
	}

	byCustomer, err := e.ledger.ListByCustomer(ctx, customer.ID, 0, 10)
	if err != nil {
		t.Fatalf("list by customer failed: %v", err)
	}
	if byCustomer.Total != 3 {
		t.Fatalf("expected 3 orders for customer, got %d", byCustomer.Total)
	}
}
