package storage

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value  string
	expiry time.Time // zero means no expiry
}

// MemoryStore is the in-process fallback. Entries are dropped lazily on
// access, so an idle store holds dead keys until they are touched again.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.getLocked(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiry = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if e, ok := m.getLocked(key); ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	e := m.entries[key] // keeps existing expiry on re-increment
	e.value = strconv.FormatInt(n, 10)
	m.entries[key] = e
	return n, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.getLocked(key)
	if !ok {
		return ErrNotFound
	}
	e.expiry = time.Now().Add(ttl)
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.getLocked(key)
	if !ok || e.expiry.IsZero() {
		return -1, nil
	}
	return time.Until(e.expiry), nil
}

// getLocked drops the entry if it expired. Caller holds the mutex.
func (m *MemoryStore) getLocked(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiry.IsZero() && time.Now().After(e.expiry) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
