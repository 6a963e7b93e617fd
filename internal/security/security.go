// Package security validates presented credentials against the document's
// resolved security schemes and builds WWW-Authenticate challenges.
package security

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// Config controls how presented credentials are judged.
type Config struct {
	// Tokens maps scheme name to accepted credentials. A scheme with no entry
	// accepts any non-empty credential, which is the useful default for a mock.
	Tokens map[string][]string

	// Validate, when set, overrides Tokens for every scheme.
	Validate func(scheme, credential string) bool
}

// Validator holds the resolved scheme set for one serving generation. The set
// is read-only after construction and safe for concurrent use.
type Validator struct {
	schemes map[string]*openapi3.SecurityScheme
	config  Config
	logger  *slog.Logger
}

// NewValidator resolves the document's security schemes.
func NewValidator(doc *openapi3.T, cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	schemes := make(map[string]*openapi3.SecurityScheme)
	if doc != nil && doc.Components != nil {
		for name, ref := range doc.Components.SecuritySchemes {
			if ref != nil && ref.Value != nil {
				schemes[name] = ref.Value
			}
		}
	}
	return &Validator{schemes: schemes, config: cfg, logger: logger}
}

// Authorize checks the request's credentials against the operation's
// requirements. Satisfying any one requirement grants access; the returned
// context describes the scheme that matched. Requirements naming schemes the
// document never resolves are skipped.
func (v *Validator) Authorize(reqs []domain.SecurityRequirement, headers, query map[string]string) (*ports.SecurityContext, bool) {
	if len(reqs) == 0 {
		return nil, true
	}
	for _, req := range reqs {
		scheme, ok := v.schemes[req.Name]
		if !ok {
			v.logger.Debug("skipping unresolved security scheme", slog.String("scheme", req.Name))
			continue
		}
		credential := extractCredential(scheme, headers, query)
		if credential == "" {
			continue
		}
		if v.valid(req.Name, credential) {
			return &ports.SecurityContext{
				Scheme:     req.Name,
				Credential: credential,
				Scopes:     req.Scopes,
			}, true
		}
	}
	return nil, false
}

// Challenge builds the WWW-Authenticate value advertising the operation's
// declared schemes. HTTP and OAuth2 schemes collapse to Bearer or Basic;
// API-key schemes name the sanitized parameter; unresolved schemes are
// skipped.
func (v *Validator) Challenge(reqs []domain.SecurityRequirement) string {
	var challenges []string
	for _, req := range reqs {
		scheme, ok := v.schemes[req.Name]
		if !ok {
			continue
		}
		var challenge string
		switch scheme.Type {
		case "http":
			if strings.EqualFold(scheme.Scheme, "basic") {
				challenge = "Basic"
			} else {
				challenge = "Bearer"
			}
		case "oauth2", "openIdConnect":
			challenge = "Bearer"
		case "apiKey":
			challenge = fmt.Sprintf("ApiKey %s=%q", scheme.In, sanitizeParam(scheme.Name))
		default:
			continue
		}
		if !slices.Contains(challenges, challenge) {
			challenges = append(challenges, challenge)
		}
	}
	return strings.Join(challenges, ", ")
}

func (v *Validator) valid(schemeName, credential string) bool {
	if v.config.Validate != nil {
		return v.config.Validate(schemeName, credential)
	}
	accepted := v.config.Tokens[schemeName]
	if len(accepted) == 0 {
		return true
	}
	return slices.Contains(accepted, credential)
}

// extractCredential pulls the presented credential for a scheme from the
// request. Header keys are expected lower-cased.
func extractCredential(scheme *openapi3.SecurityScheme, headers, query map[string]string) string {
	switch scheme.Type {
	case "apiKey":
		switch scheme.In {
		case "header":
			return headers[strings.ToLower(scheme.Name)]
		case "query":
			return query[scheme.Name]
		}
		return ""
	case "http":
		auth := headers["authorization"]
		prefix := "Bearer "
		if strings.EqualFold(scheme.Scheme, "basic") {
			prefix = "Basic "
		}
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return auth[len(prefix):]
		}
		return ""
	case "oauth2", "openIdConnect":
		auth := headers["authorization"]
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			return auth[7:]
		}
		return ""
	}
	return ""
}

// sanitizeParam strips characters that would corrupt a challenge header.
func sanitizeParam(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == 0x7f {
			return -1
		}
		return r
	}, name)
}
