// Package storage defines the pluggable key/value storage interface the
// verifier persists chain state and sync-committee records through, plus
// an in-memory NullStorage implementation suitable for a single-process
// CLI or tests.
package storage

import (
	"fmt"
	"sync"
)

// Plugin is the storage interface injected at process start. Keys are
// plain strings; values are opaque byte blobs owned by the caller once
// returned from Get.
type Plugin interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
}

// DefaultMaxSyncStates is the default capacity for the sync-committee
// period set kept per chain.
const DefaultMaxSyncStates = 8

// StatesKey returns the storage key for a chain's compact chain-state blob.
func StatesKey(chain uint64) string {
	return fmt.Sprintf("states_%d", chain)
}

// SyncKey returns the storage key for one chain+period's committee pubkeys.
func SyncKey(chain, period uint64) string {
	return fmt.Sprintf("sync_%d_%d", chain, period)
}

// NullStorage is an in-memory Plugin, the degenerate storage backend used
// by the CLI entrypoint and by tests; nothing survives process restart.
type NullStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewNullStorage returns an empty in-memory storage plugin.
func NewNullStorage() *NullStorage {
	return &NullStorage{data: make(map[string][]byte)}
}

func (s *NullStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *NullStorage) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *NullStorage) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Len reports the number of keys currently stored, for tests.
func (s *NullStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
