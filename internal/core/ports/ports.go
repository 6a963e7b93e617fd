// Package ports defines the interfaces between the mock engine core and its
// collaborators: custom handlers, seed functions, the shared data store, and
// the audit-event transport.
package ports

import (
	"context"
	"log/slog"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/core/domain"
)

// EventPublisher receives the audit events emitted by the request pipeline.
// Publishing is a side effect with no bearing on control flow; implementations
// must not fail the request path.
type EventPublisher interface {
	PublishRequest(ctx context.Context, entry *domain.RequestLogEntry) error
	PublishResponse(ctx context.Context, entry *domain.ResponseLogEntry) error
	Close() error
}

// DataStore is the shared mutable store handed to handlers and seed
// functions. Items live in named collections, usually one per schema.
type DataStore interface {
	// Insert adds an item to a collection. Items carrying an "id" that is
	// already present in the collection are rejected.
	Insert(collection string, item map[string]any) error

	// List returns a snapshot of all items in a collection.
	List(collection string) []map[string]any

	// Find returns the first item whose field stringwise-equals value.
	Find(collection, field, value string) (map[string]any, bool)

	// Reset drops all collections.
	Reset()
}

// Request is the parsed inbound request exposed to custom handlers.
// Header keys are lower-cased for case-insensitive lookup.
type Request struct {
	Method      string
	Path        string
	LiteralPath string
	Params      map[string]string
	Query       map[string]string
	Headers     map[string]string
	Body        any
}

// ResponseMeta is the mutable response stub a handler may adjust before
// returning its result.
type ResponseMeta struct {
	Status  int
	Headers map[string]string
}

// SecurityContext describes the credential that satisfied an operation's
// security requirement. Nil when the operation declares none.
type SecurityContext struct {
	Scheme     string
	Credential string
	Scopes     []string
}

// HandlerContext is passed to every custom handler invocation.
type HandlerContext struct {
	Request  *Request
	Response *ResponseMeta
	Store    DataStore
	Faker    *gofakeit.Faker
	Logger   *slog.Logger
	Security *SecurityContext
}

// HandlerFn is injected custom logic overriding default mock behavior for one
// operation. It may block on its own I/O; the pipeline waits for it.
type HandlerFn func(ctx context.Context, hc *HandlerContext) (*domain.HandlerResult, error)

// SeedContext is passed to seed functions at startup and reload.
type SeedContext struct {
	Store  DataStore
	Faker  *gofakeit.Faker
	Schema *openapi3.Schema
	Logger *slog.Logger
}

// Times is the count-based factory helper: it builds n items by calling fn
// with each index.
func (sc *SeedContext) Times(n int, fn func(i int) map[string]any) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fn(i))
	}
	return items
}

// SeedFn produces the pre-seeded items for one named schema.
type SeedFn func(ctx context.Context, sc *SeedContext) ([]map[string]any, error)
