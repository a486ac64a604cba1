package cache

import (
	"testing"
	"time"

	"github.com/flora-agent/flora/internal/domain"
)

func TestFlowerListCache_PutGet(t *testing.T) {
	c := NewFlowerListCache(time.Minute, nil)

	if _, _, ok := c.Get(0, 10); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(0, 10, []domain.Flower{{ID: "f1", Name: "Rose"}}, 1)

	flowers, total, ok := c.Get(0, 10)
	if !ok || total != 1 || len(flowers) != 1 || flowers[0].Name != "Rose" {
		t.Fatalf("expected cached page, got ok=%v total=%d flowers=%+v", ok, total, flowers)
	}

	// Другой ключ страницы не задет.
	if _, _, ok := c.Get(10, 10); ok {
		t.Fatal("expected miss for different page key")
	}
}

func TestFlowerListCache_Expiry(t *testing.T) {
	c := NewFlowerListCache(time.Millisecond, nil)
	c.Put(0, 10, []domain.Flower{{ID: "f1"}}, 1)

	time.Sleep(5 * time.Millisecond)

	if _, _, ok := c.Get(0, 10); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestFlowerListCache_Invalidate(t *testing.T) {
	c := NewFlowerListCache(time.Minute, nil)
	c.Put(0, 10, []domain.Flower{{ID: "f1"}}, 1)
	c.Put(10, 10, []domain.Flower{{ID: "f2"}}, 2)

	c.InvalidateFlowers()

	if _, _, ok := c.Get(0, 10); ok {
		t.Fatal("expected invalidated cache to miss")
	}
	if _, _, ok := c.Get(10, 10); ok {
		t.Fatal("expected all pages dropped")
	}
}

func TestFlowerListCache_CopyOnRead(t *testing.T) {
	c := NewFlowerListCache(time.Minute, nil)
	c.Put(0, 10, []domain.Flower{{ID: "f1", Name: "Rose"}}, 1)

	flowers, _, _ := c.Get(0, 10)
	flowers[0].Name = "Mutated"

	again, _, _ := c.Get(0, 10)
	if again[0].Name != "Rose" {
		t.Fatalf("expected cached copy untouched, got %s", again[0].Name)
	}
}
