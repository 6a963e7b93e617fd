package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// handle runs the per-request pipeline for one operation:
// Ingest → Authorize → Simulate → Resolve → Emit. Each stage may
// short-circuit the rest; every terminal path goes through emit.
func (b *builder) handle(entry domain.EndpointEntry, op *openapi3.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		req := b.ingest(r, entry)
		b.publishRequest(r.Context(), requestID, start, entry, req)

		var secCtx *ports.SecurityContext
		if len(entry.Security) > 0 && b.deps.Security != nil {
			sc, ok := b.deps.Security.Authorize(entry.Security, req.Headers, req.Query)
			if !ok {
				resp := &domain.HandlerResponse{
					Status: http.StatusUnauthorized,
					Body: map[string]any{
						"error":   "Unauthorized",
						"message": "valid credentials are required to access this resource",
					},
				}
				if challenge := b.deps.Security.Challenge(entry.Security); challenge != "" {
					resp.Headers = map[string]string{"WWW-Authenticate": challenge}
				}
				b.emit(r.Context(), w, requestID, start, resp)
				return
			}
			secCtx = sc
		}

		if sim, ok := b.deps.Simulations.Get(string(entry.Key)); ok {
			if sim.DelayMillis > 0 {
				// Per-request suspension only; other in-flight requests keep going.
				time.Sleep(time.Duration(sim.DelayMillis) * time.Millisecond)
			}
			if resp := simulatedResponse(sim); resp != nil {
				b.emit(r.Context(), w, requestID, start, resp)
				return
			}
		}

		resp := b.resolve(r.Context(), entry, op, req, secCtx)
		b.emit(r.Context(), w, requestID, start, resp)
	}
}

// ingest parses the inbound request. Body-parse failures are swallowed: the
// body becomes absent, never a hard error. Header keys are lower-cased for
// case-insensitive lookup.
func (b *builder) ingest(r *http.Request, entry domain.EndpointEntry) *ports.Request {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	query := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	params := make(map[string]string)
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key != "*" {
				params[key] = rctx.URLParams.Values[i]
			}
		}
	}

	var body any
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			body = nil
		}
	}

	return &ports.Request{
		Method:      strings.ToLower(r.Method),
		Path:        r.URL.Path,
		LiteralPath: entry.Path,
		Params:      params,
		Query:       query,
		Headers:     headers,
		Body:        body,
	}
}

// simulatedResponse maps a simulation to a terminal response, or nil when the
// rule is delay-only (status 200, no body) and normal resolution proceeds.
func simulatedResponse(sim *domain.Simulation) *domain.HandlerResponse {
	if sim.Body != nil {
		return &domain.HandlerResponse{
			Status:    sim.Status,
			Body:      sim.Body,
			Headers:   sim.Headers,
			Simulated: true,
		}
	}
	if sim.Status != http.StatusOK {
		return &domain.HandlerResponse{
			Status:    sim.Status,
			Body:      map[string]any{"error": "Simulated error", "status": sim.Status},
			Headers:   sim.Headers,
			Simulated: true,
		}
	}
	return nil
}

// emit writes the resolved response and publishes the response audit event.
func (b *builder) emit(ctx context.Context, w http.ResponseWriter, requestID string, start time.Time, resp *domain.HandlerResponse) {
	w.Header().Set("Content-Type", "application/json")
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.Status)
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		b.deps.Logger.Warn("failed to write response body", slog.String("error", err.Error()))
	}

	if b.deps.Events == nil {
		return
	}
	entry := &domain.ResponseLogEntry{
		ID:        uuid.New().String(),
		RequestID: requestID,
		Status:    resp.Status,
		Duration:  time.Since(start),
		Headers:   resp.Headers,
		Body:      resp.Body,
		Simulated: resp.Simulated,
	}
	if err := b.deps.Events.PublishResponse(ctx, entry); err != nil {
		b.deps.Logger.Warn("failed to publish response event", slog.String("error", err.Error()))
	}
}

func (b *builder) publishRequest(ctx context.Context, requestID string, start time.Time, entry domain.EndpointEntry, req *ports.Request) {
	if b.deps.Events == nil {
		return
	}
	logEntry := &domain.RequestLogEntry{
		ID:          requestID,
		Method:      req.Method,
		Path:        req.Path,
		LiteralPath: domain.ColonPath(entry.Path),
		OperationID: entry.OperationID,
		Timestamp:   start,
		Headers:     req.Headers,
		Query:       req.Query,
		Body:        req.Body,
	}
	if err := b.deps.Events.PublishRequest(ctx, logEntry); err != nil {
		b.deps.Logger.Warn("failed to publish request event", slog.String("error", err.Error()))
	}
}
