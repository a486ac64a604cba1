package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/storage/memory"
)

func TestUnitOfWork_RollbackOnError(t *testing.T) {
	store := memory.NewStore()
	flowers := memory.NewFlowerRepository(store)
	uow := memory.NewUnitOfWork(store, memory.NewOutboxRepository())
	ctx := context.Background()

	flower, err := flowers.Create(ctx, newFlower("Rose", 1000, 5))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	boom := errors.New("boom")
	err = uow.Execute(ctx, func(tx domain.Tx) error {
		ok, err := tx.Flowers().AdjustStock(ctx, flower.ID, -3, true)
		if err != nil || !ok {
			t.Fatalf("adjust failed: ok=%v err=%v", ok, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	stored, err := flowers.Get(ctx, flower.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.StockQuantity != 5 {
		t.Fatalf("expected stock untouched after rollback, got %d", stored.StockQuantity)
	}
}

func TestUnitOfWork_AdjustStockRequireNonNegative(t *testing.T) {
	store := memory.NewStore()
	flowers := memory.NewFlowerRepository(store)
	uow := memory.NewUnitOfWork(store, memory.NewOutboxRepository())
	ctx := context.Background()

	flower, err := flowers.Create(ctx, newFlower("Rose", 1000, 2))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = uow.Execute(ctx, func(tx domain.Tx) error {
		ok, err := tx.Flowers().AdjustStock(ctx, flower.ID, -3, true)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected reduce below zero to be rejected")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	stored, _ := flowers.Get(ctx, flower.ID)
	if stored.StockQuantity != 2 {
		t.Fatalf("expected stock 2, got %d", stored.StockQuantity)
	}
}

func TestUnitOfWork_ReadsSeeEarlierWrites(t *testing.T) {
	store := memory.NewStore()
	flowers := memory.NewFlowerRepository(store)
	uow := memory.NewUnitOfWork(store, memory.NewOutboxRepository())
	ctx := context.Background()

	flower, err := flowers.Create(ctx, newFlower("Rose", 1000, 4))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Второе списание в той же транзакции должно видеть первое.
	err = uow.Execute(ctx, func(tx domain.Tx) error {
		if ok, err := tx.Flowers().AdjustStock(ctx, flower.ID, -2, true); err != nil || !ok {
			t.Fatalf("first adjust: ok=%v err=%v", ok, err)
		}
		current, err := tx.Flowers().Get(ctx, flower.ID)
		if err != nil {
			return err
		}
		if current.StockQuantity != 2 {
			t.Fatalf("expected uncommitted stock 2, got %d", current.StockQuantity)
		}
		ok, err := tx.Flowers().AdjustStock(ctx, flower.ID, -3, true)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected second adjust to be rejected")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
}

func TestUnitOfWork_OutboxStagedUntilCommit(t *testing.T) {
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	uow := memory.NewUnitOfWork(store, outbox)
	ctx := context.Background()

	boom := errors.New("boom")
	_ = uow.Execute(ctx, func(tx domain.Tx) error {
		if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{EventType: "catalog.stock_changed"}); err != nil {
			return err
		}
		return boom
	})

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no outbox messages after rollback, got %d", len(pending))
	}

	if err := uow.Execute(ctx, func(tx domain.Tx) error {
		_, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{EventType: "catalog.stock_changed"})
		return err
	}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	pending, _ = outbox.PullPending(10)
	if len(pending) != 1 {
		t.Fatalf("expected 1 outbox message after commit, got %d", len(pending))
	}
}
