package cache

import (
	"context"
	"sync"

	"bridgeit/internal/domain/entity"
)

// MemoryIdentityCache holds resolved identities for the life of the process.
// Writes are insert-if-absent; concurrent writers for the same key all carry
// the same value, so whichever lands first wins.
type MemoryIdentityCache struct {
	entries sync.Map
}

func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{}
}

func (c *MemoryIdentityCache) Get(ctx context.Context, userID string) (entity.Identity, bool) {
	v, ok := c.entries.Load(userID)
	if !ok {
		return entity.Identity{}, false
	}
	return v.(entity.Identity), true
}

func (c *MemoryIdentityCache) Add(ctx context.Context, userID string, identity entity.Identity) {
	c.entries.LoadOrStore(userID, identity)
}

func (c *MemoryIdentityCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
