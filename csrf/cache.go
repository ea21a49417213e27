package csrf

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry struct {
	token    string
	issuedAt time.Time
}

// tokenCache remembers issued tokens for ModeBound validation. It is a
// bounded set kept in issuance order with per-entry expiry; when full, the
// oldest token is dropped, which simply forces that client to fetch a
// fresh one.
type tokenCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
}

func newTokenCache(capacity int, ttl time.Duration) *tokenCache {
	return &tokenCache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
	}
}

func (c *tokenCache) add(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[token]; exists {
		elem.Value.(*cacheEntry).issuedAt = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	c.pruneExpiredLocked()
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		delete(c.items, entry.token)
		c.order.Remove(oldest)
	}

	elem := c.order.PushFront(&cacheEntry{token: token, issuedAt: time.Now()})
	c.items[token] = elem
}

func (c *tokenCache) has(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[token]
	if !exists {
		return false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Since(entry.issuedAt) >= c.ttl {
		delete(c.items, entry.token)
		c.order.Remove(elem)
		return false
	}
	return true
}

// pruneExpiredLocked removes expired entries from the back. Tokens expire a
// fixed TTL after issuance and the list is kept in issuance order, so once a
// live entry is found the rest are live too.
func (c *tokenCache) pruneExpiredLocked() {
	now := time.Now()
	for elem := c.order.Back(); elem != nil; {
		entry := elem.Value.(*cacheEntry)
		if now.Sub(entry.issuedAt) < c.ttl {
			break
		}
		prev := elem.Prev()
		delete(c.items, entry.token)
		c.order.Remove(elem)
		elem = prev
	}
}
