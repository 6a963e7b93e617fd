// Package memory is the in-memory implementation of the shared data store
// handed to handlers and seed functions. All state resets on restart.
package memory

import (
	"fmt"
	"maps"
	"sync"

	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// Store keeps items in named collections.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]map[string]any)}
}

// Insert adds an item to a collection. An item whose "id" matches an existing
// item in the collection is rejected as a duplicate.
func (s *Store) Insert(collection string, item map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := item["id"]; ok {
		key := fmt.Sprintf("%v", id)
		for _, existing := range s.collections[collection] {
			if existingID, ok := existing["id"]; ok && fmt.Sprintf("%v", existingID) == key {
				return fmt.Errorf("duplicate id %s in collection %s", key, collection)
			}
		}
	}

	s.collections[collection] = append(s.collections[collection], maps.Clone(item))
	return nil
}

// List returns a snapshot of all items in a collection.
func (s *Store) List(collection string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.collections[collection]
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, maps.Clone(item))
	}
	return out
}

// Find returns the first item whose field stringwise-equals value.
func (s *Store) Find(collection, field, value string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.collections[collection] {
		if v, ok := item[field]; ok && fmt.Sprintf("%v", v) == value {
			return maps.Clone(item), true
		}
	}
	return nil, false
}

// Reset drops all collections.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string][]map[string]any)
}

var _ ports.DataStore = (*Store)(nil)
