// Package history records every ask together with the answers it produced.
package history

import (
	"context"
	"sync"

	"github.com/jonathan/resume-rag/internal/types"
)

const (
	// DefaultLimit is used when Recent is asked for zero entries.
	DefaultLimit = 20
	// MaxLimit caps Recent.
	MaxLimit = 100
)

// Log is append-only. Entries are never mutated or deleted.
type Log interface {
	Append(ctx context.Context, q *types.AskQuery) error
	Recent(ctx context.Context, limit int) ([]*types.AskQuery, error)
}

// ClampLimit applies the default and cap to a requested history size.
func ClampLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, types.NewInvalidArgument("limit", "must not be negative, got %d", limit)
	}
	if limit == 0 {
		return DefaultLimit, nil
	}
	return min(limit, MaxLimit), nil
}

// Memory is an in-process Log.
type Memory struct {
	mu      sync.RWMutex
	entries []*types.AskQuery
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// Append adds q to the end of the log.
func (m *Memory) Append(_ context.Context, q *types.AskQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, q)
	return nil
}

// Recent returns up to limit entries, most recent first.
func (m *Memory) Recent(_ context.Context, limit int) ([]*types.AskQuery, error) {
	limit, err := ClampLimit(limit)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(limit, len(m.entries))
	out := make([]*types.AskQuery, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
