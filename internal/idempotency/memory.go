package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec     Record
	expires time.Time
}

// Memory is a process-local Store. Expired records are dropped lazily.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the live record under key.
func (m *Memory) Get(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	rec := e.rec
	return &rec, nil
}

// Save stores rec unless a live record exists.
func (m *Memory) Save(_ context.Context, key string, rec Record, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	m.entries[key] = memoryEntry{rec: rec, expires: now.Add(ttl)}
	return true, nil
}

// Put stores rec, replacing any record under key.
func (m *Memory) Put(_ context.Context, key string, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{rec: rec, expires: m.now().Add(ttl)}
	return nil
}

// Delete drops the record under key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
