// Package seeder runs registered seed functions against the shared store.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// Warning records a recoverable seeding problem: an empty seed result or an
// item that failed to insert. Warnings never abort seeding.
type Warning struct {
	SchemaName string
	Message    string
}

// Executor seeds collections from registered seed functions.
type Executor struct {
	store  ports.DataStore
	faker  *gofakeit.Faker
	logger *slog.Logger
}

// New creates a seed executor.
func New(store ports.DataStore, faker *gofakeit.Faker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, faker: faker, logger: logger}
}

// Execute runs every seed function in schema-name order. Each function's
// items are inserted into the collection named after its schema and returned
// for response resolution. A seed function that errors or panics aborts
// execution with a SeedExecutorError; per-item failures degrade to warnings.
func (e *Executor) Execute(ctx context.Context, doc *openapi3.T, seeds map[string]ports.SeedFn) (map[string][]map[string]any, []Warning, error) {
	data := make(map[string][]map[string]any, len(seeds))
	var warnings []Warning

	names := make([]string, 0, len(seeds))
	for name := range seeds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		items, err := e.runSeed(ctx, name, seeds[name], componentSchema(doc, name))
		if err != nil {
			return data, warnings, err
		}
		if len(items) == 0 {
			warnings = append(warnings, Warning{SchemaName: name, Message: "seed produced no items"})
			e.logger.Warn("seed produced no items", slog.String("schema", name))
			continue
		}
		for _, item := range items {
			if err := e.store.Insert(name, item); err != nil {
				warnings = append(warnings, Warning{SchemaName: name, Message: err.Error()})
				e.logger.Warn("seed item skipped", slog.String("schema", name), slog.String("error", err.Error()))
			}
		}
		data[name] = items
	}
	return data, warnings, nil
}

// runSeed invokes one seed function, converting panics and errors into a
// SeedExecutorError so a broken seed never crashes the process.
func (e *Executor) runSeed(ctx context.Context, name string, fn ports.SeedFn, schema *openapi3.Schema) (items []map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.SeedExecutorError{SchemaName: name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	items, fnErr := fn(ctx, &ports.SeedContext{
		Store:  e.store,
		Faker:  e.faker,
		Schema: schema,
		Logger: e.logger,
	})
	if fnErr != nil {
		return nil, &domain.SeedExecutorError{SchemaName: name, Cause: fnErr}
	}
	return items, nil
}

func componentSchema(doc *openapi3.T, name string) *openapi3.Schema {
	if doc == nil || doc.Components == nil {
		return nil
	}
	if ref, ok := doc.Components.Schemas[name]; ok && ref != nil {
		return ref.Value
	}
	return nil
}
