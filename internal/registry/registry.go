// Package registry builds and owns the indexed catalog of operations found in
// a canonical document.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/document"
)

// Options carries the collaborator sets known at build time.
type Options struct {
	// HandlerOperationIDs holds the operation ids with a registered custom handler.
	HandlerOperationIDs map[string]bool
	// SeedSchemaNames holds the schema names with registered seed data.
	SeedSchemaNames map[string]bool
}

// Registry indexes every operation by endpoint key, tag and literal path, and
// keeps aggregate stats consistent with the entry map. The indexes are fixed
// after build; only the handler/seed flags mutate, through UpdateHandlers and
// UpdateSeeds.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.EndpointKey]*domain.EndpointEntry
	byTag   map[string][]domain.EndpointKey
	byPath  map[string][]domain.EndpointKey
	stats   domain.RegistryStats
}

// Build walks the document's path table and produces the registry.
func Build(doc *openapi3.T, opts Options) *Registry {
	r := &Registry{
		entries: make(map[domain.EndpointKey]*domain.EndpointEntry),
		byTag:   make(map[string][]domain.EndpointKey),
		byPath:  make(map[string][]domain.EndpointKey),
	}
	if doc == nil || doc.Paths == nil {
		return r
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		operations := item.Operations()
		methods := make([]string, 0, len(operations))
		for m := range operations {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := operations[method]
			if op == nil {
				continue
			}
			entry := buildEntry(doc, method, path, op, opts)
			r.entries[entry.Key] = entry
			for _, tag := range entry.Tags {
				r.byTag[tag] = append(r.byTag[tag], entry.Key)
			}
			r.byPath[path] = append(r.byPath[path], entry.Key)
		}
	}

	r.recomputeStats()
	return r
}

func buildEntry(doc *openapi3.T, method, path string, op *openapi3.Operation, opts Options) *domain.EndpointEntry {
	opID := op.OperationID
	if opID == "" {
		opID = domain.DeriveOperationID(method, path)
	}
	tags := op.Tags
	if len(tags) == 0 {
		tags = []string{"default"}
	}
	schemaName := ResponseSchemaName(op)
	return &domain.EndpointEntry{
		Key:            domain.NewEndpointKey(method, path),
		Method:         strings.ToLower(method),
		Path:           path,
		OperationID:    opID,
		Tags:           tags,
		ResponseSchema: schemaName,
		Security:       flattenSecurity(doc, op),
		HasHandler:     opts.HandlerOperationIDs[opID],
		HasSeed:        schemaName != "" && opts.SeedSchemaNames[schemaName],
	}
}

// ResponseSchemaName infers the schema name backing an operation's success
// response: the JSON body schema's title, an inlined array-items title, or the
// schema-id tag injected by the document processor.
func ResponseSchemaName(op *openapi3.Operation) string {
	schema := SuccessSchema(op)
	if schema == nil {
		return ""
	}
	if schema.Title != "" {
		return schema.Title
	}
	if schema.Type != nil && schema.Type.Is("array") && schema.Items != nil && schema.Items.Value != nil {
		items := schema.Items.Value
		if items.Title != "" {
			return items.Title
		}
		if id, ok := items.Extensions[document.SchemaIDExtension].(string); ok {
			return id
		}
		return ""
	}
	if id, ok := schema.Extensions[document.SchemaIDExtension].(string); ok {
		return id
	}
	return ""
}

// SuccessSchema returns the JSON body schema of the first successful response,
// lowest status code first.
func SuccessSchema(op *openapi3.Operation) *openapi3.Schema {
	mt := SuccessMediaType(op)
	if mt == nil || mt.Schema == nil {
		return nil
	}
	return mt.Schema.Value
}

// SuccessMediaType returns the JSON media type of the first successful
// response.
func SuccessMediaType(op *openapi3.Operation) *openapi3.MediaType {
	resp := SuccessResponse(op)
	if resp == nil {
		return nil
	}
	if mt := resp.Content.Get("application/json"); mt != nil {
		return mt
	}
	for ct, mt := range resp.Content {
		if strings.Contains(ct, "json") {
			return mt
		}
	}
	return nil
}

// SuccessResponse returns the first 2xx response declared by the operation.
func SuccessResponse(op *openapi3.Operation) *openapi3.Response {
	if op == nil || op.Responses == nil {
		return nil
	}
	respMap := op.Responses.Map()
	codes := make([]string, 0, len(respMap))
	for code := range respMap {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if strings.HasPrefix(code, "2") {
			if ref := respMap[code]; ref != nil {
				return ref.Value
			}
		}
	}
	return nil
}

// flattenSecurity turns the operation's security array (or the document-level
// default when the operation declares none) into an ordered requirement list.
func flattenSecurity(doc *openapi3.T, op *openapi3.Operation) []domain.SecurityRequirement {
	var reqs openapi3.SecurityRequirements
	switch {
	case op.Security != nil:
		reqs = *op.Security
	case doc != nil:
		reqs = doc.Security
	}
	if len(reqs) == 0 {
		return nil
	}
	var out []domain.SecurityRequirement
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			scopes := req[name]
			if scopes == nil {
				scopes = []string{}
			}
			out = append(out, domain.SecurityRequirement{Name: name, Scopes: scopes})
		}
	}
	return out
}

// Get returns a copy of the entry for a key.
func (r *Registry) Get(key domain.EndpointKey) (domain.EndpointEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	if !ok {
		return domain.EndpointEntry{}, false
	}
	return *entry, true
}

// Keys returns all endpoint keys in lexical order.
func (r *Registry) Keys() []domain.EndpointKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]domain.EndpointKey, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Entries returns copies of all entries in key order.
func (r *Registry) Entries() []domain.EndpointEntry {
	keys := r.Keys()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EndpointEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, *r.entries[k])
	}
	return out
}

// ByTag returns the keys registered under a tag.
func (r *Registry) ByTag(tag string) []domain.EndpointKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]domain.EndpointKey, len(r.byTag[tag]))
	copy(keys, r.byTag[tag])
	return keys
}

// ByPath returns the keys registered under a literal path.
func (r *Registry) ByPath(path string) []domain.EndpointKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]domain.EndpointKey, len(r.byPath[path]))
	copy(keys, r.byPath[path])
	return keys
}

// Stats returns the aggregate statistics.
func (r *Registry) Stats() domain.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// UpdateHandlers recomputes the HasHandler flags against a new operation-id
// set without rebuilding the registry.
func (r *Registry) UpdateHandlers(ids map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.HasHandler = ids[entry.OperationID]
	}
	r.recomputeStats()
}

// UpdateSeeds recomputes the HasSeed flags against a new seeded-schema set
// without rebuilding the registry.
func (r *Registry) UpdateSeeds(names map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.HasSeed = entry.ResponseSchema != "" && names[entry.ResponseSchema]
	}
	r.recomputeStats()
}

// recomputeStats rebuilds the aggregate view. Callers hold the write lock
// (or exclusive ownership during Build).
func (r *Registry) recomputeStats() {
	stats := domain.RegistryStats{TotalEndpoints: len(r.entries)}
	schemas := make(map[string]bool)
	for _, entry := range r.entries {
		if entry.HasHandler {
			stats.WithHandler++
		}
		if entry.HasSeed {
			stats.WithSeed++
		}
		if entry.ResponseSchema != "" {
			schemas[entry.ResponseSchema] = true
		}
	}
	stats.ResponseSchemas = len(schemas)
	r.stats = stats
}
