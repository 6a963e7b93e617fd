package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// EndpointKey uniquely identifies one operation as "<lowercase-method>:<literal-path>",
// e.g. "get:/pets/{petId}". Keys order lexically and index both the registry and
// the simulation table.
type EndpointKey string

// NewEndpointKey builds the canonical key for a method and spec-literal path.
func NewEndpointKey(method, path string) EndpointKey {
	return EndpointKey(strings.ToLower(method) + ":" + path)
}

// Parse splits the key back into its method and literal path. The split happens
// at the first colon, so paths that themselves contain colons round-trip.
func (k EndpointKey) Parse() (method, path string, err error) {
	method, path, ok := strings.Cut(string(k), ":")
	if !ok || method == "" {
		return "", "", fmt.Errorf("malformed endpoint key %q", string(k))
	}
	return method, path, nil
}

// NormalizeEndpointKey accepts both the canonical "get:/pets/{petId}" form and
// the "GET /pets/{petId}" convention used by external tooling, returning the
// canonical key in either case.
func NormalizeEndpointKey(s string) EndpointKey {
	s = strings.TrimSpace(s)
	if method, path, ok := strings.Cut(s, " "); ok && path != "" {
		return NewEndpointKey(method, strings.TrimSpace(path))
	}
	if method, path, ok := strings.Cut(s, ":"); ok && path != "" {
		return NewEndpointKey(method, path)
	}
	return EndpointKey(strings.ToLower(s))
}

// ColonPath converts a spec-literal path to the colon-parameter representation
// used in audit events and by external tooling, e.g. "/pet/{petId}" becomes
// "/pet/:petId". Paths without parameters are returned unchanged.
func ColonPath(path string) string {
	if !strings.Contains(path, "{") {
		return path
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segments[i] = ":" + seg[1:len(seg)-1]
		}
	}
	return strings.Join(segments, "/")
}

// DeriveOperationID produces the deterministic operation id for an operation
// that declares none: the lower-cased method concatenated with the camel-cased
// path segments, parameter braces stripped. "get" + "/pet/{petId}" yields
// "getPetPetId".
func DeriveOperationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}")
		for _, part := range strings.FieldsFunc(seg, func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		}) {
			runes := []rune(part)
			runes[0] = unicode.ToUpper(runes[0])
			b.WriteString(string(runes))
		}
	}
	return b.String()
}

// SecurityRequirement is one flattened scheme reference declared by an operation.
type SecurityRequirement struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// EndpointEntry is one registry row per operation. HasHandler and HasSeed are
// the only fields mutated after build, via the registry's update operations.
type EndpointEntry struct {
	Key            EndpointKey           `json:"key"`
	Method         string                `json:"method"`
	Path           string                `json:"path"`
	OperationID    string                `json:"operationId"`
	Tags           []string              `json:"tags"`
	ResponseSchema string                `json:"responseSchema,omitempty"`
	Security       []SecurityRequirement `json:"security,omitempty"`
	HasHandler     bool                  `json:"hasHandler"`
	HasSeed        bool                  `json:"hasSeed"`
}

// RegistryStats aggregates over all registry entries. The registry keeps these
// consistent with the entry map at all times.
type RegistryStats struct {
	TotalEndpoints  int `json:"totalEndpoints"`
	WithHandler     int `json:"withHandler"`
	WithSeed        int `json:"withSeed"`
	ResponseSchemas int `json:"responseSchemas"`
}
