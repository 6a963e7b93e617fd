package runtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
)

const petstore = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
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
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "title": "Pet",
        "properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
      }
    }
  }
}`

const orderstore = `{
  "openapi": "3.0.3",
  "info": {"title": "Orderstore", "version": "1.0.0"},
  "paths": {
    "/orders": {
      "get": {"operationId": "listOrders", "responses": {"200": {"description": "orders"}}}
    }
  }
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	// Not-found responses from the router are plain text; leave those nil.
	var body any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestNewServesSeededSpec(t *testing.T) {
	mock, err := New(
		WithSpec(petstore),
		WithLogger(quietLogger()),
		WithFakerSeed(3),
		WithSeed("Pet", func(ctx context.Context, sc *ports.SeedContext) ([]map[string]any, error) {
			return sc.Times(2, func(i int) map[string]any {
				return map[string]any{"id": i + 1, "name": sc.Faker.Name()}
			}), nil
		}),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec, body := get(t, mock.Handler(), "/pets")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if arr, _ := body.([]any); len(arr) != 2 {
		t.Errorf("seeded array = %v", body)
	}

	stats := mock.Registry().Stats()
	if stats.TotalEndpoints != 1 || stats.WithSeed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := len(mock.Store().List("Pet")); got != 2 {
		t.Errorf("store holds %d Pet items, want 2", got)
	}
}

func TestOpsEndpointsMounted(t *testing.T) {
	mock, err := New(WithSpec(petstore), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	rec, body := get(t, mock.Handler(), "/_mock/endpoints")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m, _ := body.(map[string]any)
	if endpoints, _ := m["endpoints"].([]any); len(endpoints) != 1 {
		t.Errorf("endpoints = %v", m["endpoints"])
	}
}

func TestReloadSwapsDocument(t *testing.T) {
	mock, err := New(WithSpec(petstore), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	h := mock.Handler()

	if rec, _ := get(t, h, "/pets"); rec.Code != http.StatusOK {
		t.Fatalf("/pets before reload: %d", rec.Code)
	}

	if err := mock.Reload(context.Background(), orderstore); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	if rec, _ := get(t, h, "/orders"); rec.Code != http.StatusOK {
		t.Errorf("/orders after reload: %d", rec.Code)
	}
	if rec, _ := get(t, h, "/pets"); rec.Code != http.StatusNotFound {
		t.Errorf("/pets after reload: %d, want 404", rec.Code)
	}
	if mock.Document().Info.Title != "Orderstore" {
		t.Errorf("document title = %q", mock.Document().Info.Title)
	}
}

func TestRuntimeHandlerRegistration(t *testing.T) {
	mock, err := New(WithSpec(petstore), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	h := mock.Handler()

	mock.RegisterHandler("listPets", func(ctx context.Context, hc *ports.HandlerContext) (*domain.HandlerResult, error) {
		return domain.Raw(map[string]any{"source": "runtime-handler"}), nil
	})
	_, body := get(t, h, "/pets")
	if m, _ := body.(map[string]any); m["source"] != "runtime-handler" {
		t.Errorf("registered handler not used: %v", body)
	}
	if mock.Registry().Stats().WithHandler != 1 {
		t.Error("registry handler flag not updated")
	}

	mock.RemoveHandler("listPets")
	_, body = get(t, h, "/pets")
	if _, ok := body.([]any); !ok {
		t.Errorf("after removal resolution should fall through to generation: %v", body)
	}
	if mock.Registry().Stats().WithHandler != 0 {
		t.Error("registry handler flag not cleared")
	}
}

func TestRuntimeSeedRegistration(t *testing.T) {
	mock, err := New(WithSpec(petstore), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	h := mock.Handler()

	err = mock.RegisterSeed(context.Background(), "Pet", func(ctx context.Context, sc *ports.SeedContext) ([]map[string]any, error) {
		return []map[string]any{{"id": 1, "name": "late"}}, nil
	})
	if err != nil {
		t.Fatalf("RegisterSeed returned error: %v", err)
	}

	_, body := get(t, h, "/pets")
	arr, ok := body.([]any)
	if !ok || len(arr) != 1 {
		t.Fatalf("seed not served: %v", body)
	}
	if item, _ := arr[0].(map[string]any); item["name"] != "late" {
		t.Errorf("seed item = %v", arr[0])
	}
	if mock.Registry().Stats().WithSeed != 1 {
		t.Error("registry seed flag not updated")
	}

	mock.RemoveSeed("Pet")
	if mock.Registry().Stats().WithSeed != 0 {
		t.Error("registry seed flag not cleared")
	}
}

func TestNewRejectsBrokenSpec(t *testing.T) {
	if _, err := New(WithSpec([]any{"not", "a", "spec"}), WithLogger(quietLogger())); err == nil {
		t.Fatal("expected error for array spec input")
	}
}
