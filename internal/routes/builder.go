// Package routes installs one request handler per registered operation and
// runs the deterministic response-resolution pipeline:
// authorization → fault simulation → custom handler → seed data → spec
// example → synthetic generation.
package routes

import (
	"log/slog"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
	"github.com/mocksmith/mocksmith/internal/generator"
	"github.com/mocksmith/mocksmith/internal/registry"
	"github.com/mocksmith/mocksmith/internal/security"
	"github.com/mocksmith/mocksmith/internal/simulation"
)

// Dependencies wires the pipeline's collaborators. Logger and Generator
// default sensibly when unset; everything else is required.
type Dependencies struct {
	Store         ports.DataStore
	Simulations   *simulation.Manager
	Security      *security.Validator
	Generator     *generator.Generator
	Faker         *gofakeit.Faker
	Events        ports.EventPublisher
	Collaborators *Collaborators
	Logger        *slog.Logger

	// SeedIDField is the item field used for seed single-item lookups before
	// the generic id/ID fallbacks. Defaults to "id".
	SeedIDField string
}

// Result is the outcome of building routes for a document.
type Result struct {
	Router   chi.Router
	Registry *registry.Registry
}

type builder struct {
	deps       Dependencies
	operations map[domain.EndpointKey]*openapi3.Operation
}

// Build constructs the registry for a canonical document and mounts one
// handler per operation on a fresh router. The document and registry indexes
// are read-only for the lifetime of the returned router.
func Build(doc *openapi3.T, deps Dependencies) *Result {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Generator == nil {
		deps.Generator = generator.New(deps.Faker)
	}
	if deps.Collaborators == nil {
		deps.Collaborators = NewCollaborators()
	}
	if deps.SeedIDField == "" {
		deps.SeedIDField = "id"
	}

	reg := registry.Build(doc, registry.Options{
		HandlerOperationIDs: deps.Collaborators.HandlerIDs(),
		SeedSchemaNames:     deps.Collaborators.SeedNames(),
	})

	b := &builder{
		deps:       deps,
		operations: make(map[domain.EndpointKey]*openapi3.Operation),
	}
	if doc != nil && doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				b.operations[domain.NewEndpointKey(method, path)] = op
			}
		}
	}

	router := chi.NewRouter()
	for _, entry := range reg.Entries() {
		op := b.operations[entry.Key]
		router.MethodFunc(strings.ToUpper(entry.Method), entry.Path, b.handle(entry, op))
		deps.Logger.Debug("route registered",
			slog.String("key", string(entry.Key)),
			slog.String("operation_id", entry.OperationID))
	}

	return &Result{Router: router, Registry: reg}
}
