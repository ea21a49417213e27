package store

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultCapacity is the number of distinct keys the memory store holds
// before evicting the least-recently-used one.
const DefaultCapacity = 10000

type memoryEntry struct {
	key        string
	count      int64
	expiration time.Time
}

// Memory is an in-memory, capacity-bounded implementation of Store.
// When the number of distinct keys exceeds the configured capacity, the
// least-recently-used key is evicted before a new one is admitted.
//
// WARNING: this implementation is NOT suitable for distributed deployments.
// Each instance maintains its own separate state, so limits are not shared
// across instances. Use Memory only for local development and single-instance
// deployments; use the Redis store otherwise.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemory creates an in-memory store with the given key capacity and
// automatic cleanup of expired entries. A capacity <= 0 uses DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Memory{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		stopCh:   make(chan struct{}),
	}

	go m.cleanup()
	return m
}

func (m *Memory) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	if elem, exists := m.entries[key]; exists {
		entry := elem.Value.(*memoryEntry)
		if now.After(entry.expiration) {
			entry.count = 1
		} else {
			entry.count++
		}
		// Every access slides the window forward.
		entry.expiration = now.Add(window)
		m.order.MoveToFront(elem)
		return entry.count, window, nil
	}

	for m.order.Len() >= m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*memoryEntry)
		delete(m.entries, entry.key)
		m.order.Remove(oldest)
	}

	elem := m.order.PushFront(&memoryEntry{
		key:        key,
		count:      1,
		expiration: now.Add(window),
	})
	m.entries[key] = elem
	return 1, window, nil
}

func (m *Memory) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, exists := m.entries[key]
	if !exists {
		return 0, nil
	}
	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiration) {
		return 0, nil
	}
	return entry.count, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, exists := m.entries[key]; exists {
		m.order.Remove(elem)
		delete(m.entries, key)
	}
	return nil
}

// Len returns the number of keys currently held, including not-yet-collected
// expired ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	return nil
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			// Windows differ per key, so recency order does not imply
			// expiration order. Scan everything.
			for elem := m.order.Front(); elem != nil; {
				next := elem.Next()
				entry := elem.Value.(*memoryEntry)
				if now.After(entry.expiration) {
					delete(m.entries, entry.key)
					m.order.Remove(elem)
				}
				elem = next
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}
