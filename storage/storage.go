// Package storage holds the durable blob stores the shop state persists to.
// Every store reads and writes whole blobs; there are no partial updates.
package storage

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Load when nothing was saved under the key
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistence port used by the cart and the order history
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// MemoryStore keeps blobs in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// Load returns a copy of the blob stored under key
func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Save replaces the blob stored under key
func (m *MemoryStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes the blob stored under key; deleting a missing key is not an error
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
