// Package runtime assembles the mock server from its parts: document
// processing, seeding, route building, simulations and the HTTP surface.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/adapters/audit/memorylog"
	"github.com/mocksmith/mocksmith/internal/core/ports"
	"github.com/mocksmith/mocksmith/internal/document"
	"github.com/mocksmith/mocksmith/internal/generator"
	"github.com/mocksmith/mocksmith/internal/registry"
	"github.com/mocksmith/mocksmith/internal/routes"
	"github.com/mocksmith/mocksmith/internal/security"
	"github.com/mocksmith/mocksmith/internal/seeder"
	"github.com/mocksmith/mocksmith/internal/server"
	"github.com/mocksmith/mocksmith/internal/simulation"
	"github.com/mocksmith/mocksmith/internal/store/memory"
)

// Mock is a running (or runnable) mock server bound to one spec document.
// Handlers, seeds and the document itself can be swapped at runtime without
// dropping in-flight requests.
type Mock struct {
	opts      Options
	logger    *slog.Logger
	processor *document.Processor
	store     ports.DataStore
	sims      *simulation.Manager
	collab    *routes.Collaborators
	events    ports.EventPublisher
	faker     *gofakeit.Faker
	gen       *generator.Generator
	srv       *server.Server

	mu       sync.Mutex
	doc      *openapi3.T
	handlers map[string]ports.HandlerFn
	seeds    map[string]ports.SeedFn
	registry atomic.Pointer[registry.Registry]
}

// New builds a Mock: processes the configured spec, runs seeds, constructs
// the routing table and prepares the HTTP server. The returned instance is
// ready to serve but not yet listening.
func New(opts ...Option) (*Mock, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Events == nil {
		o.Events = memorylog.NewPublisher(0)
	}
	if o.Store == nil {
		o.Store = memory.New()
	}

	m := &Mock{
		opts:      o,
		logger:    o.Logger,
		processor: document.NewProcessor(o.Logger),
		store:     o.Store,
		sims:      simulation.NewManager(),
		collab:    routes.NewCollaborators(),
		events:    o.Events,
		faker:     gofakeit.New(o.FakerSeed),
		handlers:  maps.Clone(o.Handlers),
		seeds:     maps.Clone(o.Seeds),
	}
	m.gen = generator.New(m.faker)

	ops := server.NewOpsHandler(m.Registry, m.sims, m.logger)
	m.srv = server.New(o.Port, o.RequestTimeout, o.Logger, ops)

	if err := m.rebuild(context.Background(), o.Spec); err != nil {
		return nil, err
	}
	return m, nil
}

// rebuild processes input into a canonical document, reseeds the store and
// swaps in a fresh routing table. Callers must hold m.mu or have exclusive
// ownership (New).
func (m *Mock) rebuild(ctx context.Context, input any) error {
	doc, err := m.processor.Process(input)
	if err != nil {
		return fmt.Errorf("process document: %w", err)
	}

	m.store.Reset()
	data, warnings, err := seeder.New(m.store, m.faker, m.logger).Execute(ctx, doc, m.seeds)
	if err != nil {
		return fmt.Errorf("execute seeds: %w", err)
	}
	for _, w := range warnings {
		m.logger.Warn("seed warning",
			slog.String("schema", w.SchemaName),
			slog.String("message", w.Message))
	}

	m.collab.Swap(maps.Clone(m.handlers), data)

	result := routes.Build(doc, routes.Dependencies{
		Store:         m.store,
		Simulations:   m.sims,
		Security:      security.NewValidator(doc, m.opts.Security, m.logger),
		Generator:     m.gen,
		Faker:         m.faker,
		Events:        m.events,
		Collaborators: m.collab,
		Logger:        m.logger,
		SeedIDField:   m.opts.SeedIDField,
	})

	m.doc = doc
	m.registry.Store(result.Registry)
	m.srv.SwapRoutes(result.Router)

	stats := result.Registry.Stats()
	m.logger.Info("routes built",
		slog.Int("endpoints", stats.TotalEndpoints),
		slog.Int("with_handler", stats.WithHandler),
		slog.Int("with_seed", stats.WithSeed))
	return nil
}

// Start begins serving and blocks until the listener stops.
func (m *Mock) Start() error {
	return m.srv.Start()
}

// Shutdown gracefully stops the server and closes the event publisher.
func (m *Mock) Shutdown(ctx context.Context) error {
	err := m.srv.Shutdown(ctx)
	if cerr := m.events.Close(); err == nil {
		err = cerr
	}
	return err
}

// Reload replaces the running document. A nil input reprocesses the original
// spec source. Seeds are re-run against a reset store; in-flight requests
// finish against the old routing table.
func (m *Mock) Reload(ctx context.Context, input any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if input == nil {
		input = m.opts.Spec
	}
	return m.rebuild(ctx, input)
}

// RegisterHandler installs a custom handler at runtime.
func (m *Mock) RegisterHandler(operationID string, fn ports.HandlerFn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[operationID] = fn
	m.swapCollaborators()
}

// RemoveHandler uninstalls a custom handler; resolution falls through to the
// next source on subsequent requests.
func (m *Mock) RemoveHandler(operationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, operationID)
	m.swapCollaborators()
}

// RegisterSeed installs a seed function and runs it immediately against the
// current document.
func (m *Mock) RegisterSeed(ctx context.Context, schemaName string, fn ports.SeedFn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds[schemaName] = fn

	data, warnings, err := seeder.New(m.store, m.faker, m.logger).Execute(ctx, m.doc, map[string]ports.SeedFn{schemaName: fn})
	if err != nil {
		delete(m.seeds, schemaName)
		return err
	}
	for _, w := range warnings {
		m.logger.Warn("seed warning",
			slog.String("schema", w.SchemaName),
			slog.String("message", w.Message))
	}

	seeds := maps.Clone(m.collab.Seeds())
	seeds[schemaName] = data[schemaName]
	m.collab.Swap(maps.Clone(m.handlers), seeds)
	m.updateRegistryFlags()
	return nil
}

// RemoveSeed drops a schema's seed data; resolution falls through to the next
// source on subsequent requests.
func (m *Mock) RemoveSeed(schemaName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seeds, schemaName)
	seeds := maps.Clone(m.collab.Seeds())
	delete(seeds, schemaName)
	m.collab.Swap(maps.Clone(m.handlers), seeds)
	m.updateRegistryFlags()
}

// swapCollaborators publishes the current handler set with the existing seed
// data. Callers hold m.mu.
func (m *Mock) swapCollaborators() {
	m.collab.Swap(maps.Clone(m.handlers), m.collab.Seeds())
	m.updateRegistryFlags()
}

func (m *Mock) updateRegistryFlags() {
	if reg := m.registry.Load(); reg != nil {
		reg.UpdateHandlers(m.collab.HandlerIDs())
		reg.UpdateSeeds(m.collab.SeedNames())
	}
}

// Registry returns the current endpoint registry.
func (m *Mock) Registry() *registry.Registry {
	return m.registry.Load()
}

// Simulations returns the fault-injection table.
func (m *Mock) Simulations() *simulation.Manager {
	return m.sims
}

// Events returns the audit-event publisher.
func (m *Mock) Events() ports.EventPublisher {
	return m.events
}

// Store returns the shared data store.
func (m *Mock) Store() ports.DataStore {
	return m.store
}

// Handler returns the full middleware-wrapped HTTP handler, useful for
// serving through a custom listener or an httptest server.
func (m *Mock) Handler() http.Handler {
	return m.srv.Handler()
}

// Document returns the canonical document currently being served.
func (m *Mock) Document() *openapi3.T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}
