package blob

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and the default dev setup.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

// Put stores a copy of obj.
func (m *Memory) Put(_ context.Context, key string, obj Object) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: data, ContentType: obj.ContentType}
	return nil
}

// Get returns the object stored under key.
func (m *Memory) Get(_ context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}
