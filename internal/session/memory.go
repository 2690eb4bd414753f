// Package session provides per-session key/value storage and the cache
// mirror that snapshots the rendered todo list into it.
package session

import "sync"

// Memory is SessionStorage held in process memory. It lives as long as the
// session that owns it.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemory returns empty in-memory session storage.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

// SetItem implements types.SessionStorage.
func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

// GetItem implements types.SessionStorage.
func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// RemoveItem implements types.SessionStorage.
func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
