// Package memorylog is an in-memory audit-event publisher backed by a
// bounded ring buffer. It is the default when no audit storage is configured
// and the workhorse for tests.
package memorylog

import (
	"context"
	"sync"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// DefaultCapacity bounds the number of retained entries per event kind.
const DefaultCapacity = 1000

// Publisher retains the most recent audit events in memory.
type Publisher struct {
	mu        sync.Mutex
	capacity  int
	requests  []*domain.RequestLogEntry
	responses []*domain.ResponseLogEntry
}

// NewPublisher creates a publisher retaining up to capacity entries per kind.
// A non-positive capacity uses DefaultCapacity.
func NewPublisher(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{capacity: capacity}
}

// PublishRequest records a request audit event.
func (p *Publisher) PublishRequest(_ context.Context, entry *domain.RequestLogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, entry)
	if len(p.requests) > p.capacity {
		p.requests = p.requests[len(p.requests)-p.capacity:]
	}
	return nil
}

// PublishResponse records a response audit event.
func (p *Publisher) PublishResponse(_ context.Context, entry *domain.ResponseLogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, entry)
	if len(p.responses) > p.capacity {
		p.responses = p.responses[len(p.responses)-p.capacity:]
	}
	return nil
}

// Requests returns a snapshot of retained request events, oldest first.
func (p *Publisher) Requests() []*domain.RequestLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.RequestLogEntry, len(p.requests))
	copy(out, p.requests)
	return out
}

// Responses returns a snapshot of retained response events, oldest first.
func (p *Publisher) Responses() []*domain.ResponseLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.ResponseLogEntry, len(p.responses))
	copy(out, p.responses)
	return out
}

// Close is a no-op for the in-memory publisher.
func (p *Publisher) Close() error { return nil }

var _ ports.EventPublisher = (*Publisher)(nil)
