// Package simulation holds the in-memory fault-injection table.
package simulation

import (
	"sort"
	"sync"

	"github.com/mocksmith/mocksmith/internal/core/domain"
)

// Manager maps endpoint keys to fault/delay/override rules. All operations are
// safe for concurrent use; entries are replaced wholesale so readers never
// observe a partial update.
type Manager struct {
	mu    sync.RWMutex
	table map[domain.EndpointKey]*domain.Simulation
}

// NewManager creates an empty simulation table.
func NewManager() *Manager {
	return &Manager{table: make(map[domain.EndpointKey]*domain.Simulation)}
}

// Set validates and stores a simulation, replacing any prior rule for the same
// key. The stored value is a defensive copy of the input.
func (m *Manager) Set(sim *domain.Simulation) error {
	if sim == nil || sim.Path == "" {
		return &domain.SimulationValidationError{Field: "path", Message: "path is required"}
	}
	if sim.Status < 100 || sim.Status > 599 {
		return &domain.SimulationValidationError{Field: "status", Message: "status must be a valid HTTP status code"}
	}
	if sim.DelayMillis < 0 {
		return &domain.SimulationValidationError{Field: "delay", Message: "delay must be non-negative"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[sim.Key()] = sim.Clone()
	return nil
}

// Get returns a copy of the simulation for a path, in either addressing
// convention. Callers may freely mutate the returned value.
func (m *Manager) Get(path string) (*domain.Simulation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sim, ok := m.table[domain.NormalizeEndpointKey(path)]
	if !ok {
		return nil, false
	}
	return sim.Clone(), true
}

// List returns copies of all simulations in key order.
func (m *Manager) List() []*domain.Simulation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]domain.EndpointKey, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]*domain.Simulation, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.table[k].Clone())
	}
	return out
}

// Remove deletes the simulation for a path, reporting whether one existed.
func (m *Manager) Remove(path string) bool {
	key := domain.NormalizeEndpointKey(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.table[key]; !ok {
		return false
	}
	delete(m.table, key)
	return true
}

// Clear wipes the whole table.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = make(map[domain.EndpointKey]*domain.Simulation)
}

// Has reports whether a simulation exists for a path.
func (m *Manager) Has(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.table[domain.NormalizeEndpointKey(path)]
	return ok
}

// Count returns the number of active simulations.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}
