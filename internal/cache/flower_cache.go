package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/metrics"
)

// DefaultTTL — срок жизни закэшированной страницы каталога.
const DefaultTTL = 5 * time.Minute

type listEntry struct {
	flowers   []domain.Flower
	total     int
	expiresAt time.Time
}

// FlowerListCache кэширует страницы листинга каталога по ключу offset:limit.
// Любая мутация каталога или стока сбрасывает кэш целиком: страницы
// пересекаются, точечная инвалидация не окупается.
type FlowerListCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]listEntry
	metrics *metrics.CacheMetrics
}

// NewFlowerListCache создаёт кэш с заданным TTL.
func NewFlowerListCache(ttl time.Duration, m *metrics.CacheMetrics) *FlowerListCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FlowerListCache{
		ttl:     ttl,
		entries: make(map[string]listEntry),
		metrics: m,
	}
}

// Get возвращает закэшированную страницу, если она ещё не протухла.
func (c *FlowerListCache) Get(offset, limit int) ([]domain.Flower, int, bool) {
	key := pageKey(offset, limit)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		if c.metrics != nil {
			c.metrics.RecordMiss()
		}
		return nil, 0, false
	}
	if c.metrics != nil {
		c.metrics.RecordHit()
	}

	flowers := make([]domain.Flower, len(entry.flowers))
	copy(flowers, entry.flowers)
	return flowers, entry.total, true
}

// Put сохраняет страницу листинга.
func (c *FlowerListCache) Put(offset, limit int, flowers []domain.Flower, total int) {
	stored := make([]domain.Flower, len(flowers))
	copy(stored, flowers)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pageKey(offset, limit)] = listEntry{
		flowers:   stored,
		total:     total,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// InvalidateFlowers сбрасывает все закэшированные страницы.
func (c *FlowerListCache) InvalidateFlowers() {
	c.mu.Lock()
	c.entries = make(map[string]listEntry)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordInvalidation()
	}
}

func pageKey(offset, limit int) string {
	return fmt.Sprintf("%d:%d", offset, limit)
}

var _ domain.CacheInvalidator = (*FlowerListCache)(nil)
