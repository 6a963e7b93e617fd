package registry

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/document"
)

const registrySpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "security": [{"apiAuth": []}],
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "tags": ["pets"],
        "security": [],
        "responses": {
          "200": {
            "description": "pets",
            "content": {
              "application/json": {
                "schema": {"type": "array", "items": {"$ref": "#/components/schemas/Pet"}}
              }
            }
          }
        }
      },
      "post": {
        "tags": ["pets"],
        "responses": {"201": {"description": "created"}}
      }
    },
    "/pets/{petId}": {
      "get": {
        "operationId": "getPet",
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "a pet",
            "content": {
              "application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}
            }
          }
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "apiAuth": {"type": "apiKey", "in": "header", "name": "X-Api-Key"}
    },
    "schemas": {
      "Pet": {
        "type": "object",
        "title": "Pet",
        "properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
      }
    }
  }
}`

func loadDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := document.NewProcessor(nil).Process(registrySpec)
	if err != nil {
		t.Fatalf("processing fixture: %v", err)
	}
	return doc
}

func TestBuildIndexesEveryOperation(t *testing.T) {
	reg := Build(loadDoc(t), Options{})

	keys := reg.Keys()
	want := []domain.EndpointKey{"get:/pets", "get:/pets/{petId}", "post:/pets"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}

	entry, ok := reg.Get("get:/pets")
	if !ok {
		t.Fatal("get:/pets missing from registry")
	}
	if entry.OperationID != "listPets" {
		t.Errorf("operation id = %q, want %q", entry.OperationID, "listPets")
	}
	if entry.ResponseSchema != "Pet" {
		t.Errorf("response schema = %q, want %q", entry.ResponseSchema, "Pet")
	}
	if len(entry.Security) != 0 {
		t.Errorf("empty operation security should override the document default, got %v", entry.Security)
	}
}

func TestBuildDerivesMissingOperationID(t *testing.T) {
	reg := Build(loadDoc(t), Options{})
	entry, ok := reg.Get("post:/pets")
	if !ok {
		t.Fatal("post:/pets missing from registry")
	}
	if entry.OperationID != "postPets" {
		t.Errorf("derived operation id = %q, want %q", entry.OperationID, "postPets")
	}
}

func TestBuildAppliesDocumentSecurityDefault(t *testing.T) {
	reg := Build(loadDoc(t), Options{})
	entry, _ := reg.Get("get:/pets/{petId}")
	if len(entry.Security) != 1 || entry.Security[0].Name != "apiAuth" {
		t.Errorf("security = %v, want the document-level apiAuth requirement", entry.Security)
	}
}

func TestStatsAndUpdates(t *testing.T) {
	reg := Build(loadDoc(t), Options{
		HandlerOperationIDs: map[string]bool{"listPets": true},
		SeedSchemaNames:     map[string]bool{"Pet": true},
	})

	stats := reg.Stats()
	if stats.TotalEndpoints != 3 {
		t.Errorf("TotalEndpoints = %d, want 3", stats.TotalEndpoints)
	}
	if stats.WithHandler != 1 {
		t.Errorf("WithHandler = %d, want 1", stats.WithHandler)
	}
	if stats.WithSeed != 2 {
		t.Errorf("WithSeed = %d, want 2 (both Pet-backed operations)", stats.WithSeed)
	}
	if stats.ResponseSchemas != 1 {
		t.Errorf("ResponseSchemas = %d, want 1", stats.ResponseSchemas)
	}

	reg.UpdateHandlers(map[string]bool{})
	reg.UpdateSeeds(map[string]bool{})
	stats = reg.Stats()
	if stats.WithHandler != 0 || stats.WithSeed != 0 {
		t.Errorf("after clearing updates stats = %+v, want zero handler/seed counts", stats)
	}
}

func TestTagAndPathQueries(t *testing.T) {
	reg := Build(loadDoc(t), Options{})
	if got := len(reg.ByTag("pets")); got != 2 {
		t.Errorf("ByTag(pets) returned %d keys, want 2", got)
	}
	if got := len(reg.ByTag("default")); got != 1 {
		t.Errorf("ByTag(default) returned %d keys, want 1", got)
	}
	if got := len(reg.ByPath("/pets")); got != 2 {
		t.Errorf("ByPath(/pets) returned %d keys, want 2", got)
	}
}

func TestBuildNilDocument(t *testing.T) {
	reg := Build(nil, Options{})
	if got := reg.Stats().TotalEndpoints; got != 0 {
		t.Errorf("nil document registry has %d endpoints, want 0", got)
	}
}
