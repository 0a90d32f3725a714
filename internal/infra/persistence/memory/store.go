// Package memory provides an in-memory key-value store used for tests and
// ephemeral environments. An optional byte capacity emulates quota-bound
// storage.
package memory

import (
	"context"
	"fmt"
	"sync"

	"pdmtracker/pkg/domain"
)

var _ domain.KeyValueStore = (*Store)(nil)

// Store is a mutex-guarded map of copied values.
type Store struct {
	mu       sync.RWMutex
	data     map[string][]byte
	used     int
	capacity int
}

// NewStore returns a store. capacity bounds the sum of key and value lengths
// in bytes; zero or negative means unbounded.
func NewStore(capacity int) *Store {
	return &Store{data: make(map[string][]byte), capacity: capacity}
}

// Get returns a copy of the value under key or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value. Writes that would exceed the capacity fail with
// domain.ErrCapacity and leave the previous value in place.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := len(key) + len(value)
	used := s.used
	if old, ok := s.data[key]; ok {
		used -= len(key) + len(old)
	}
	if s.capacity > 0 && used+size > s.capacity {
		return fmt.Errorf("%w: %d of %d bytes in use, %d requested", domain.ErrCapacity, used, s.capacity, size)
	}
	s.data[key] = append([]byte(nil), value...)
	s.used = used + size
	return nil
}

// Remove deletes key; a missing key is not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

// Used reports the bytes currently held.
func (s *Store) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}
