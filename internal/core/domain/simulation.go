package domain

import "maps"

// Simulation is one fault-injection rule attached to an endpoint. At most one
// simulation exists per endpoint key; a repeated Set replaces the prior rule
// wholesale. A 200-status simulation with no body is delay-only and lets
// normal resolution proceed after the delay.
type Simulation struct {
	Path        string            `json:"path"`
	OperationID string            `json:"operationId,omitempty"`
	Status      int               `json:"status"`
	DelayMillis int               `json:"delay,omitempty"`
	Body        any               `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Key returns the canonical endpoint key this simulation targets, accepting
// both the "get:/pets" and "GET /pets" addressing conventions.
func (s *Simulation) Key() EndpointKey {
	return NormalizeEndpointKey(s.Path)
}

// Clone returns an independent copy. The simulation table stores and returns
// clones so callers can never mutate table state through a held reference.
// The body is shared as-is; the table treats it as opaque and read-only.
func (s *Simulation) Clone() *Simulation {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Headers = maps.Clone(s.Headers)
	return &dup
}
