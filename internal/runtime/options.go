package runtime

import (
	"log/slog"
	"time"

	"github.com/mocksmith/mocksmith/internal/core/ports"
	"github.com/mocksmith/mocksmith/internal/security"
)

// Options configures a Mock instance.
type Options struct {
	// Spec is the document input: nil, an inline map, a JSON/YAML string,
	// raw bytes, a file path, or an HTTP(S) URL.
	Spec any

	Port     int
	Logger   *slog.Logger
	Events   ports.EventPublisher
	Store    ports.DataStore
	Handlers map[string]ports.HandlerFn
	Seeds    map[string]ports.SeedFn
	Security security.Config

	// RequestTimeout bounds each request's context. Handlers may do their own
	// I/O, so this is the only backstop against one that never returns.
	// Zero disables the bound.
	RequestTimeout time.Duration

	// FakerSeed fixes the fake-data source. Zero means non-deterministic.
	FakerSeed uint64

	// SeedIDField overrides the item field consulted first for seed
	// single-item lookups.
	SeedIDField string
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Port:     4000,
		Logger:   slog.Default(),
		Handlers: map[string]ports.HandlerFn{},
		Seeds:    map[string]ports.SeedFn{},
	}
}

// WithSpec sets the document input.
func WithSpec(spec any) Option {
	return func(o *Options) { o.Spec = spec }
}

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(o *Options) { o.Port = port }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithEventPublisher sets the audit-event publisher.
func WithEventPublisher(p ports.EventPublisher) Option {
	return func(o *Options) { o.Events = p }
}

// WithStore sets the shared data store.
func WithStore(s ports.DataStore) Option {
	return func(o *Options) { o.Store = s }
}

// WithHandler registers a custom handler for an operation id.
func WithHandler(operationID string, fn ports.HandlerFn) Option {
	return func(o *Options) { o.Handlers[operationID] = fn }
}

// WithHandlers registers custom handlers in bulk.
func WithHandlers(handlers map[string]ports.HandlerFn) Option {
	return func(o *Options) {
		for id, fn := range handlers {
			o.Handlers[id] = fn
		}
	}
}

// WithSeed registers a seed function for a schema name.
func WithSeed(schemaName string, fn ports.SeedFn) Option {
	return func(o *Options) { o.Seeds[schemaName] = fn }
}

// WithSeeds registers seed functions in bulk.
func WithSeeds(seeds map[string]ports.SeedFn) Option {
	return func(o *Options) {
		for name, fn := range seeds {
			o.Seeds[name] = fn
		}
	}
}

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

// WithSecurity sets the credential configuration for secured operations.
func WithSecurity(cfg security.Config) Option {
	return func(o *Options) { o.Security = cfg }
}

// WithFakerSeed fixes the fake-data source for reproducible output.
func WithFakerSeed(seed uint64) Option {
	return func(o *Options) { o.FakerSeed = seed }
}

// WithSeedIDField sets the seed lookup field.
func WithSeedIDField(field string) Option {
	return func(o *Options) { o.SeedIDField = field }
}
