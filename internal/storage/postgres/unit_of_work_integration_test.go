package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flora-agent/flora/internal/domain"
)

func TestUnitOfWork_PostgresCommitAppliesAllWrites(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	uow := NewUnitOfWork(store)
	flowers := NewFlowerRepository(store)
	outbox := NewOutboxRepository(store)

	ctx := context.Background()
	customer := seedCustomerForIntegrationTest(t, store, "uow-customer", "uow@example.com")
	rose := seedFlowerForIntegrationTest(t, store, "uow-rose", "Rose", 1500, 5)

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder("uow-order", customer.ID, now, rose.ID)

	err := uow.Execute(ctx, func(tx domain.Tx) error {
		if err := tx.Orders().Insert(ctx, order); err != nil {
			return err
		}
		ok, err := tx.Flowers().AdjustStock(ctx, rose.ID, -2, true)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected stock adjustment to apply")
		}
		_, err = tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     "order.created",
			Payload:       []byte(`{}`),
		})
		return err
	})
	if err != nil {
		t.Fatalf("execute unit of work: %v", err)
	}

	got, err := flowers.Get(ctx, rose.ID)
	if err != nil {
		t.Fatalf("get flower after commit: %v", err)
	}
	if got.StockQuantity != 3 {
		t.Fatalf("unexpected stock after commit: got=%d want=3", got.StockQuantity)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending outbox: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.created" {
		t.Fatalf("expected one staged event after commit, got %+v", pending)
	}
}

func TestUnitOfWork_PostgresRollbackDiscardsAllWrites(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	uow := NewUnitOfWork(store)
	flowers := NewFlowerRepository(store)
	outbox := NewOutboxRepository(store)

	ctx := context.Background()
	customer := seedCustomerForIntegrationTest(t, store, "rb-customer", "rb@example.com")
	rose := seedFlowerForIntegrationTest(t, store, "rb-rose", "Rose", 1500, 5)

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder("rb-order", customer.ID, now, rose.ID)

	boom := errors.New("boom")
	err := uow.Execute(ctx, func(tx domain.Tx) error {
		if err := tx.Orders().Insert(ctx, order); err != nil {
			return err
		}
		if _, err := tx.Flowers().AdjustStock(ctx, rose.ID, -2, true); err != nil {
			return err
		}
		if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     "order.created",
			Payload:       []byte(`{}`),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected workflow error, got %v", err)
	}

	got, err := flowers.Get(ctx, rose.ID)
	if err != nil {
		t.Fatalf("get flower after rollback: %v", err)
	}
	if got.StockQuantity != 5 {
		t.Fatalf("stock must be untouched after rollback: got=%d want=5", got.StockQuantity)
	}

	if _, err := NewOrderRepository(store).Get(ctx, order.ID); !domain.IsNotFound(err) {
		t.Fatalf("order must not exist after rollback, got %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending outbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("outbox must be empty after rollback, got %+v", pending)
	}
}

func TestUnitOfWork_PostgresAdjustStockConditional(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	uow := NewUnitOfWork(store)
	flowers := NewFlowerRepository(store)

	ctx := context.Background()
	rose := seedFlowerForIntegrationTest(t, store, "cond-rose", "Rose", 1500, 2)

	err := uow.Execute(ctx, func(tx domain.Tx) error {
		ok, err := tx.Flowers().AdjustStock(ctx, rose.ID, -3, true)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("decrement below zero must not apply")
		}

		// Возврат стока может уводить выше любого уровня и не проверяется.
		ok, err = tx.Flowers().AdjustStock(ctx, rose.ID, 7, false)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("unconditional increment must apply")
		}

		if _, err := tx.Flowers().AdjustStock(ctx, "missing-flower", 1, false); !domain.IsNotFound(err) {
			t.Fatalf("expected NotFoundError for missing flower, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("execute unit of work: %v", err)
	}

	got, err := flowers.Get(ctx, rose.ID)
	if err != nil {
		t.Fatalf("get flower: %v", err)
	}
	if got.StockQuantity != 9 {
		t.Fatalf("unexpected stock: got=%d want=9", got.StockQuantity)
	}
}

func TestUnitOfWork_PostgresOrderDeleteCascadesItems(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	uow := NewUnitOfWork(store)

	ctx := context.Background()
	customer := seedCustomerForIntegrationTest(t, store, "del-customer", "del@example.com")
	rose := seedFlowerForIntegrationTest(t, store, "del-rose", "Rose", 1500, 5)

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder("del-order", customer.ID, now, rose.ID)
	insertOrderForIntegrationTest(t, uow, order)

	err := uow.Execute(ctx, func(tx domain.Tx) error {
		return tx.Orders().Delete(ctx, order.ID)
	})
	if err != nil {
		t.Fatalf("delete order: %v", err)
	}

	var itemCount int
	if err := store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM order_items WHERE order_id = $1
	`, order.ID).Scan(&itemCount); err != nil {
		t.Fatalf("count order items: %v", err)
	}
	if itemCount != 0 {
		t.Fatalf("expected cascaded item delete, got %d rows", itemCount)
	}

	err = uow.Execute(ctx, func(tx domain.Tx) error {
		return tx.Orders().Delete(ctx, order.ID)
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError on repeated delete, got %v", err)
	}
}

func TestUnitOfWork_PostgresUpdateStatus(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	uow := NewUnitOfWork(store)
	repo := NewOrderRepository(store)

	ctx := context.Background()
	customer := seedCustomerForIntegrationTest(t, store, "st-customer", "st@example.com")
	rose := seedFlowerForIntegrationTest(t, store, "st-rose", "Rose", 1500, 5)

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder("st-order", customer.ID, now, rose.ID)
	insertOrderForIntegrationTest(t, uow, order)

	updatedAt := now.Add(time.Minute)
	err := uow.Execute(ctx, func(tx domain.Tx) error {
		return tx.Orders().UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered, updatedAt)
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusDelivered {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if got.TotalPrice != order.TotalPrice {
		t.Fatalf("total must survive status change: got=%s want=%s", got.TotalPrice, order.TotalPrice)
	}

	err = uow.Execute(ctx, func(tx domain.Tx) error {
		return tx.Orders().UpdateStatus(ctx, "missing-order", domain.OrderStatusDelivered, updatedAt)
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
