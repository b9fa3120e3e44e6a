package staging

import (
	"context"
	"sync"
)

// MemoryStore keeps staged items in process memory. It is the fastest backend
// but sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Item
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Item)}
}

// Open creates an empty session if none exists for key.
func (m *MemoryStore) Open(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; !ok {
		m.sessions[key] = []Item{}
	}
	return nil
}

// Append adds item to an open session.
//
// The lock only guards map bookkeeping; no I/O happens under it, so sessions
// on different keys never stall one another.
func (m *MemoryStore) Append(_ context.Context, key string, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	m.sessions[key] = append(items, item)
	return nil
}

// List returns a copy of the staged items in attach order.
func (m *MemoryStore) List(_ context.Context, key string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items, ok := m.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

// Destroy drops the session. Safe to call on a missing key.
func (m *MemoryStore) Destroy(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
