package domain

import "time"

// HandlerResponse is the normalized output of every resolution stage. All
// sources (handler, seed, example, generated, simulation, security rejection)
// produce one of these before anything is written to the wire.
type HandlerResponse struct {
	Status    int
	Body      any
	Headers   map[string]string
	Simulated bool
}

// ResultType discriminates the shapes a custom handler may return.
type ResultType string

const (
	// ResultRaw is a bare payload served with status 200.
	ResultRaw ResultType = "raw"
	// ResultStatus carries an explicit status code alongside the payload.
	ResultStatus ResultType = "status"
	// ResultFull carries status, payload and response headers.
	ResultFull ResultType = "full"
)

// HandlerResult is the tagged return value of a custom handler. Use the
// constructors; results with an unknown type are rejected at the
// normalization boundary rather than guessed at.
type HandlerResult struct {
	Type    ResultType
	Status  int
	Data    any
	Headers map[string]string
}

// Raw wraps data in a raw result (status 200).
func Raw(data any) *HandlerResult {
	return &HandlerResult{Type: ResultRaw, Data: data}
}

// WithStatus wraps data in a status result.
func WithStatus(status int, data any) *HandlerResult {
	return &HandlerResult{Type: ResultStatus, Status: status, Data: data}
}

// Full wraps data in a full result carrying headers.
func Full(status int, data any, headers map[string]string) *HandlerResult {
	return &HandlerResult{Type: ResultFull, Status: status, Data: data, Headers: headers}
}

// RequestLogEntry is the audit event emitted when a request enters the
// resolution pipeline.
type RequestLogEntry struct {
	ID          string            `json:"id"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	LiteralPath string            `json:"literalPath"`
	OperationID string            `json:"operationId"`
	Timestamp   time.Time         `json:"timestamp"`
	Headers     map[string]string `json:"headers,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	Body        any               `json:"body,omitempty"`
}

// ResponseLogEntry is the audit event emitted when a response is written.
type ResponseLogEntry struct {
	ID        string            `json:"id"`
	RequestID string            `json:"requestId"`
	Status    int               `json:"status"`
	Duration  time.Duration     `json:"duration"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      any               `json:"body,omitempty"`
	Simulated bool              `json:"simulated"`
}
