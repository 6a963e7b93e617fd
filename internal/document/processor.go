// Package document turns arbitrary spec input into one canonical, fully
// dereferenced OpenAPI 3.x document.
package document

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	kyaml "github.com/knadh/koanf/parsers/yaml"

	"github.com/mocksmith/mocksmith/internal/core/domain"
)

// SchemaIDExtension is the extension key carrying each component schema's
// stable identifier. Injected once per schema; a user-supplied value is never
// overwritten.
const SchemaIDExtension = "x-schema-id"

// currentVersion is the OpenAPI version every processed document is
// normalized to.
const currentVersion = "3.0.3"

// Processor runs the bundle → upgrade → dereference → tag pipeline.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a document processor.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// Process normalizes spec input into a canonical document. Accepted inputs:
// nil, an inline map, a JSON or YAML string, raw bytes, a local file path, or
// an HTTP(S) URL. Empty or ambiguous-empty input short-circuits to a minimal
// valid document rather than erroring.
func (p *Processor) Process(input any) (*openapi3.T, error) {
	switch v := input.(type) {
	case nil:
		return p.minimalDocument(), nil
	case *openapi3.T:
		if v == nil {
			return p.minimalDocument(), nil
		}
		if err := p.verifyDereferenced(v); err != nil {
			return nil, err
		}
		p.tagSchemas(v)
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || trimmed == "{}" {
			return p.minimalDocument(), nil
		}
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			return p.processURL(trimmed)
		}
		if strings.ContainsAny(trimmed, "\n{[") || strings.Contains(trimmed, ": ") {
			return p.processData([]byte(v), nil)
		}
		return p.processFile(v)
	case []byte:
		if len(strings.TrimSpace(string(v))) == 0 {
			return p.minimalDocument(), nil
		}
		return p.processData(v, nil)
	case map[string]any:
		if len(v) == 0 {
			return p.minimalDocument(), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &domain.ProcessorError{Step: domain.StepValidation, Message: "spec object is not serializable", Cause: err}
		}
		return p.processData(data, nil)
	case []any:
		return nil, &domain.ProcessorError{Step: domain.StepValidation, Message: "spec input is an array, expected a mapping"}
	default:
		return nil, &domain.ProcessorError{Step: domain.StepValidation, Message: fmt.Sprintf("unsupported spec input type %T", input)}
	}
}

func (p *Processor) processFile(path string) (*openapi3.T, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "resolving spec path", Cause: err}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "reading spec file", Cause: err}
	}
	return p.processData(data, &url.URL{Path: abs})
}

func (p *Processor) processURL(raw string) (*openapi3.T, error) {
	location, err := url.Parse(raw)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "parsing spec URL", Cause: err}
	}
	resp, err := http.Get(raw)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "fetching spec URL", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: fmt.Sprintf("fetching spec URL: unexpected status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "reading spec URL body", Cause: err}
	}
	return p.processData(data, location)
}

// processData is the shared tail of the pipeline: sniff the document shape,
// upgrade 2.x input, resolve every reference, and tag component schemas.
func (p *Processor) processData(data []byte, location *url.URL) (*openapi3.T, error) {
	raw, err := p.sniff(data)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return p.minimalDocument(), nil
	}

	var doc *openapi3.T
	if _, isV2 := raw["swagger"]; isV2 {
		doc, err = p.upgrade(raw)
		if err != nil {
			return nil, err
		}
		loader := p.newLoader()
		if err := loader.ResolveRefsIn(doc, location); err != nil {
			return nil, &domain.ProcessorError{Step: domain.StepDereference, Message: "resolving references in upgraded document", Cause: err}
		}
	} else {
		loader := p.newLoader()
		if location != nil {
			doc, err = loader.LoadFromDataWithPath(data, location)
		} else {
			doc, err = loader.LoadFromData(data)
		}
		if err != nil {
			return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "loading document", Cause: err}
		}
	}

	if doc.Paths == nil {
		doc.Paths = openapi3.NewPaths()
	}
	if err := p.verifyDereferenced(doc); err != nil {
		return nil, err
	}
	p.tagSchemas(doc)
	return doc, nil
}

// sniff parses raw bytes into a mapping, rejecting JSON-parseable input that
// is not a map. YAML being a superset of JSON, the YAML parser handles both.
func (p *Processor) sniff(data []byte) (map[string]any, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err == nil {
		switch probe.(type) {
		case map[string]any, nil:
		default:
			return nil, &domain.ProcessorError{Step: domain.StepValidation, Message: fmt.Sprintf("spec input is %T, expected a mapping", probe)}
		}
	}
	raw, err := kyaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepBundle, Message: "parsing document", Cause: err}
	}
	return raw, nil
}

// upgrade transforms a 2.x document into the current major version.
func (p *Processor) upgrade(raw map[string]any) (*openapi3.T, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepUpgrade, Message: "serializing 2.x document", Cause: err}
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepUpgrade, Message: "decoding 2.x document", Cause: err}
	}
	doc, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, &domain.ProcessorError{Step: domain.StepUpgrade, Message: "converting 2.x document to 3.x", Cause: err}
	}
	doc.OpenAPI = currentVersion
	p.logger.Info("upgraded 2.x document", slog.String("to", currentVersion))
	return doc, nil
}

func (p *Processor) newLoader() *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	return loader
}

func (p *Processor) minimalDocument() *openapi3.T {
	return &openapi3.T{
		OpenAPI: currentVersion,
		Info:    &openapi3.Info{Title: "OpenAPI Server", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
	}
}

// verifyDereferenced walks the document and fails if any reference survived
// resolution. Dereferenced occurrences of one component share the same
// underlying node, so later extension injection is visible everywhere.
func (p *Processor) verifyDereferenced(doc *openapi3.T) error {
	seen := make(map[*openapi3.Schema]bool)

	var checkSchema func(ref *openapi3.SchemaRef) error
	checkSchema = func(ref *openapi3.SchemaRef) error {
		if ref == nil {
			return nil
		}
		if ref.Value == nil {
			return &domain.ProcessorError{Step: domain.StepDereference, Message: fmt.Sprintf("unresolved schema reference %q", ref.Ref)}
		}
		s := ref.Value
		if seen[s] {
			return nil
		}
		seen[s] = true
		if err := checkSchema(s.Items); err != nil {
			return err
		}
		for _, prop := range s.Properties {
			if err := checkSchema(prop); err != nil {
				return err
			}
		}
		for _, sub := range s.AllOf {
			if err := checkSchema(sub); err != nil {
				return err
			}
		}
		for _, sub := range s.AnyOf {
			if err := checkSchema(sub); err != nil {
				return err
			}
		}
		for _, sub := range s.OneOf {
			if err := checkSchema(sub); err != nil {
				return err
			}
		}
		return nil
	}

	checkContent := func(content openapi3.Content) error {
		for _, mt := range content {
			if mt == nil {
				continue
			}
			if err := checkSchema(mt.Schema); err != nil {
				return err
			}
		}
		return nil
	}

	if doc.Components != nil {
		for _, ref := range doc.Components.Schemas {
			if err := checkSchema(ref); err != nil {
				return err
			}
		}
	}
	if doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op == nil {
				continue
			}
			for _, param := range op.Parameters {
				if param == nil || param.Value == nil {
					continue
				}
				if err := checkSchema(param.Value.Schema); err != nil {
					return err
				}
			}
			if op.RequestBody != nil && op.RequestBody.Value != nil {
				if err := checkContent(op.RequestBody.Value.Content); err != nil {
					return err
				}
			}
			if op.Responses != nil {
				for _, respRef := range op.Responses.Map() {
					if respRef == nil || respRef.Value == nil {
						continue
					}
					if err := checkContent(respRef.Value.Content); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// tagSchemas stamps every named component schema with its stable identifier.
// An existing value is kept so callers can pin a custom name.
func (p *Processor) tagSchemas(doc *openapi3.T) {
	if doc.Components == nil {
		return
	}
	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		s := ref.Value
		if s.Extensions == nil {
			s.Extensions = make(map[string]any)
		}
		if _, ok := s.Extensions[SchemaIDExtension]; !ok {
			s.Extensions[SchemaIDExtension] = name
		}
	}
}
