// Package storage provides the key-value persistence backends the ledger
// writes its state through. The ledger only ever uses two logical keys,
// "accounts" and "transactions" (JSON arrays); the auth service adds "users".
// Backends are interchangeable and carry no business logic.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Logical keys used by the application.
const (
	KeyAccounts     = "accounts"
	KeyTransactions = "transactions"
	KeyUsers        = "users"
)

// ErrKeyNotFound is returned by Load when the key has never been saved.
// Callers must treat it as a normal first-run outcome, not a failure.
var ErrKeyNotFound = errors.New("storage: key not found")

// Store is an opaque key-value document store.
type Store interface {
	// Load returns the document last saved under key, or ErrKeyNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save durably replaces the document under key.
	Save(ctx context.Context, key string, data []byte) error
}

// MemoryStore is a map-backed Store. It is the default when no driver is
// configured and the backend used throughout the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cp
	return nil
}
