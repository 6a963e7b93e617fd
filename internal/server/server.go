// Package server owns the HTTP surface: middleware chain, the hot-swappable
// mock routing table, and the operational endpoints under /_mock.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server serves the mock routing table plus the /_mock operational API.
// The routing table is swapped atomically on reload; in-flight requests keep
// the table they started with.
type Server struct {
	port    int
	timeout time.Duration
	logger  *slog.Logger
	ops     http.Handler
	mock    atomic.Pointer[routeTable]
	http    *http.Server
}

type routeTable struct {
	handler http.Handler
}

// New creates a server. The ops handler is mounted under /_mock; everything
// else goes to the current mock routing table. A positive timeout bounds each
// request's context; zero disables the bound.
func New(port int, timeout time.Duration, logger *slog.Logger, ops http.Handler) *Server {
	s := &Server{port: port, timeout: timeout, logger: logger, ops: ops}
	s.mock.Store(&routeTable{handler: http.NotFoundHandler()})
	return s
}

// SwapRoutes atomically replaces the mock routing table.
func (s *Server) SwapRoutes(h http.Handler) {
	s.mock.Store(&routeTable{handler: h})
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.dispatch)
	h = middleware.Recoverer(h)
	if s.timeout > 0 {
		h = TimeoutMiddleware(s.timeout)(h)
	}
	h = LoggingMiddleware(s.logger)(h)
	h = RequestIDMiddleware(h)
	h = otelhttp.NewHandler(h, "mocksmith")
	return h
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	if s.ops != nil && (r.URL.Path == "/_mock" || strings.HasPrefix(r.URL.Path, "/_mock/")) {
		s.ops.ServeHTTP(w, r)
		return
	}
	s.mock.Load().handler.ServeHTTP(w, r)
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", slog.Int("port", s.port))
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
