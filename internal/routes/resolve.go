package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
	"github.com/mocksmith/mocksmith/internal/registry"
)

// resolve runs the normal resolution chain with strict precedence:
// custom handler > seed data > spec example > generated placeholder.
func (b *builder) resolve(ctx context.Context, entry domain.EndpointEntry, op *openapi3.Operation, req *ports.Request, secCtx *ports.SecurityContext) *domain.HandlerResponse {
	if fn, ok := b.deps.Collaborators.Handlers()[entry.OperationID]; ok {
		return b.invokeHandler(ctx, entry, fn, req, secCtx)
	}

	if entry.ResponseSchema != "" {
		if items := b.deps.Collaborators.Seeds()[entry.ResponseSchema]; len(items) > 0 {
			return b.resolveSeed(entry, op, req, items)
		}
	}

	if resp := specExample(op); resp != nil {
		return resp
	}

	return b.generated(op)
}

// invokeHandler calls a custom handler and normalizes its tagged result. A
// panicking or erroring handler is converted to a 500; it never crashes the
// server.
func (b *builder) invokeHandler(ctx context.Context, entry domain.EndpointEntry, fn ports.HandlerFn, req *ports.Request, secCtx *ports.SecurityContext) (resp *domain.HandlerResponse) {
	meta := &ports.ResponseMeta{Headers: make(map[string]string)}

	defer func() {
		if r := recover(); r != nil {
			b.deps.Logger.Error("handler panicked",
				slog.String("operation_id", entry.OperationID),
				slog.Any("panic", r))
			resp = handlerFailure(fmt.Sprintf("%v", r))
		}
	}()

	result, err := fn(ctx, &ports.HandlerContext{
		Request:  req,
		Response: meta,
		Store:    b.deps.Store,
		Faker:    b.deps.Faker,
		Logger:   b.deps.Logger,
		Security: secCtx,
	})
	if err != nil {
		b.deps.Logger.Error("handler failed",
			slog.String("operation_id", entry.OperationID),
			slog.String("error", err.Error()))
		return handlerFailure(err.Error())
	}

	return normalizeResult(result, meta, b.deps.Logger)
}

// normalizeResult converts a tagged handler result into a HandlerResponse.
// Unknown tags are rejected rather than guessed at.
func normalizeResult(result *domain.HandlerResult, meta *ports.ResponseMeta, logger *slog.Logger) *domain.HandlerResponse {
	if result == nil {
		logger.Error("handler returned no result")
		return handlerFailure("handler returned no result")
	}

	headers := make(map[string]string, len(meta.Headers)+len(result.Headers))
	for k, v := range meta.Headers {
		headers[k] = v
	}

	switch result.Type {
	case domain.ResultRaw:
		status := http.StatusOK
		if meta.Status > 0 {
			status = meta.Status
		}
		return &domain.HandlerResponse{Status: status, Body: result.Data, Headers: headers}
	case domain.ResultStatus:
		return &domain.HandlerResponse{Status: result.Status, Body: result.Data, Headers: headers}
	case domain.ResultFull:
		for k, v := range result.Headers {
			headers[k] = v
		}
		return &domain.HandlerResponse{Status: result.Status, Body: result.Data, Headers: headers}
	default:
		logger.Error("handler returned unknown result type", slog.String("type", string(result.Type)))
		return handlerFailure(fmt.Sprintf("unknown result type %q", result.Type))
	}
}

func handlerFailure(message string) *domain.HandlerResponse {
	return &domain.HandlerResponse{
		Status: http.StatusInternalServerError,
		Body:   map[string]any{"error": "Handler execution failed", "message": message},
	}
}

// resolveSeed serves pre-seeded data. Array operations get the whole seed
// array; everything else is a single-item lookup by path parameter.
func (b *builder) resolveSeed(entry domain.EndpointEntry, op *openapi3.Operation, req *ports.Request, items []map[string]any) *domain.HandlerResponse {
	schema := registry.SuccessSchema(op)
	if schema != nil && schema.Type != nil && schema.Type.Is("array") {
		return &domain.HandlerResponse{Status: http.StatusOK, Body: items}
	}

	// Heuristic parameter search order: generic id, <schemaNameLower>Id, then
	// the configured id field.
	paramNames := []string{"id", strings.ToLower(entry.ResponseSchema) + "Id", b.deps.SeedIDField}
	var lookup string
	found := false
	for _, name := range paramNames {
		if v, ok := req.Params[name]; ok && v != "" {
			lookup = v
			found = true
			break
		}
	}
	if !found {
		return &domain.HandlerResponse{Status: http.StatusOK, Body: items[0]}
	}

	for _, item := range items {
		for _, field := range []string{b.deps.SeedIDField, "id", "ID"} {
			if v, ok := item[field]; ok && fmt.Sprintf("%v", v) == lookup {
				return &domain.HandlerResponse{Status: http.StatusOK, Body: item}
			}
		}
	}
	return &domain.HandlerResponse{
		Status: http.StatusNotFound,
		Body:   map[string]any{"error": "Not found", "message": fmt.Sprintf("no %s with id %s", entry.ResponseSchema, lookup)},
	}
}

// specExample serves the first example the operation declares, checking the
// media-type example, the named examples table, then the schema example.
func specExample(op *openapi3.Operation) *domain.HandlerResponse {
	mt := registry.SuccessMediaType(op)
	if mt == nil {
		return nil
	}
	if mt.Example != nil {
		return &domain.HandlerResponse{Status: http.StatusOK, Body: mt.Example}
	}
	if len(mt.Examples) > 0 {
		names := make([]string, 0, len(mt.Examples))
		for name := range mt.Examples {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if ref := mt.Examples[name]; ref != nil && ref.Value != nil && ref.Value.Value != nil {
				return &domain.HandlerResponse{Status: http.StatusOK, Body: ref.Value.Value}
			}
		}
	}
	if mt.Schema != nil && mt.Schema.Value != nil && mt.Schema.Value.Example != nil {
		return &domain.HandlerResponse{Status: http.StatusOK, Body: mt.Schema.Value.Example}
	}
	return nil
}

// generated is the last-resort source: synthesize a value from the declared
// response schema, or an empty object when none is declared.
func (b *builder) generated(op *openapi3.Operation) *domain.HandlerResponse {
	schema := registry.SuccessSchema(op)
	if schema == nil {
		return &domain.HandlerResponse{Status: http.StatusOK, Body: map[string]any{}}
	}
	return &domain.HandlerResponse{Status: http.StatusOK, Body: b.deps.Generator.Generate(schema)}
}
