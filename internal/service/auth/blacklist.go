package auth

import (
	"sync"
	"time"
)

// Blacklist хранит отозванные токены до истечения их срока.
// Записи удаляются лениво при проверке и массово при Purge.
type Blacklist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewBlacklist создаёт пустой чёрный список токенов.
func NewBlacklist() *Blacklist {
	return &Blacklist{revoked: make(map[string]time.Time)}
}

// Revoke помечает токен отозванным до expiresAt.
func (b *Blacklist) Revoke(tokenID string, expiresAt time.Time) {
	if tokenID == "" || time.Now().After(expiresAt) {
		return
	}
	b.mu.Lock()
	b.revoked[tokenID] = expiresAt
	b.mu.Unlock()
}

// IsRevoked сообщает, отозван ли токен.
func (b *Blacklist) IsRevoked(tokenID string) bool {
	b.mu.RLock()
	expiresAt, ok := b.revoked[tokenID]
	b.mu.RUnlock()

	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		b.mu.Lock()
		delete(b.revoked, tokenID)
		b.mu.Unlock()
		return false
	}
	return true
}

// Purge удаляет все истёкшие записи и возвращает их количество.
func (b *Blacklist) Purge() int {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, expiresAt := range b.revoked {
		if now.After(expiresAt) {
			delete(b.revoked, id)
			removed++
		}
	}
	return removed
}
