package auth

import "sync"

type MemoryRoleCache struct {
	mu    sync.RWMutex
	entry *CachedRole
}

var _ RoleCache = (*MemoryRoleCache)(nil)

func NewMemoryRoleCache() *MemoryRoleCache {
	return &MemoryRoleCache{}
}

func (c *MemoryRoleCache) Load() (CachedRole, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return CachedRole{}, false
	}
	return *c.entry, true
}

func (c *MemoryRoleCache) Store(r CachedRole) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &r
	return nil
}

func (c *MemoryRoleCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	return nil
}
