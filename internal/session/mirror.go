package session

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Mirror writes full snapshots of the rendered list into session storage
// under a single key. Snapshots always replace the previous value.
type Mirror struct {
	storage types.SessionStorage
	key     string
}

// NewMirror returns a Mirror writing to key in storage. An empty key uses
// types.DefaultCacheKey.
func NewMirror(storage types.SessionStorage, key string) *Mirror {
	if key == "" {
		key = types.DefaultCacheKey
	}
	return &Mirror{storage: storage, key: key}
}

// Key returns the storage key the mirror writes.
func (m *Mirror) Key() string {
	return m.key
}

// Snapshot encodes todos as a JSON array and overwrites the cache entry.
func (m *Mirror) Snapshot(todos []types.Todo) error {
	if todos == nil {
		todos = []types.Todo{}
	}
	data, err := json.Marshal(todos)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := m.storage.SetItem(m.key, string(data)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Clear removes the cache entry.
func (m *Mirror) Clear() error {
	if err := m.storage.RemoveItem(m.key); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Read decodes the current cache entry. It reports false when no snapshot
// has been written. The list controller never calls Read.
func (m *Mirror) Read() ([]types.Todo, bool, error) {
	raw, ok, err := m.storage.GetItem(m.key)
	if err != nil || !ok {
		return nil, ok, err
	}
	var todos []types.Todo
	if err := json.Unmarshal([]byte(raw), &todos); err != nil {
		return nil, true, fmt.Errorf("decode snapshot: %w", err)
	}
	return todos, true, nil
}
