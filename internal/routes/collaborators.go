package routes

import (
	"sync/atomic"

	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// Collaborators holds the hot-swappable handler and seed-data sets. Readers
// always see a complete snapshot; a reload replaces the snapshot wholesale via
// a single atomic pointer swap, so in-flight requests keep whichever snapshot
// they read at resolution time.
type Collaborators struct {
	p atomic.Pointer[snapshot]
}

type snapshot struct {
	handlers map[string]ports.HandlerFn
	seeds    map[string][]map[string]any
}

// NewCollaborators creates an empty collaborator set.
func NewCollaborators() *Collaborators {
	c := &Collaborators{}
	c.p.Store(&snapshot{
		handlers: map[string]ports.HandlerFn{},
		seeds:    map[string][]map[string]any{},
	})
	return c
}

// Swap installs a new snapshot. Nil maps are normalized to empty ones.
func (c *Collaborators) Swap(handlers map[string]ports.HandlerFn, seeds map[string][]map[string]any) {
	if handlers == nil {
		handlers = map[string]ports.HandlerFn{}
	}
	if seeds == nil {
		seeds = map[string][]map[string]any{}
	}
	c.p.Store(&snapshot{handlers: handlers, seeds: seeds})
}

// Handlers returns the current handler map. Treat it as read-only.
func (c *Collaborators) Handlers() map[string]ports.HandlerFn {
	return c.p.Load().handlers
}

// Seeds returns the current seed-data map. Treat it as read-only.
func (c *Collaborators) Seeds() map[string][]map[string]any {
	return c.p.Load().seeds
}

// HandlerIDs returns the operation-id membership set for registry updates.
func (c *Collaborators) HandlerIDs() map[string]bool {
	handlers := c.Handlers()
	ids := make(map[string]bool, len(handlers))
	for id := range handlers {
		ids[id] = true
	}
	return ids
}

// SeedNames returns the schema-name membership set for registry updates.
// Only non-empty seed arrays count.
func (c *Collaborators) SeedNames() map[string]bool {
	seeds := c.Seeds()
	names := make(map[string]bool, len(seeds))
	for name, items := range seeds {
		if len(items) > 0 {
			names[name] = true
		}
	}
	return names
}
