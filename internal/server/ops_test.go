package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mocksmith/mocksmith/internal/document"
	"github.com/mocksmith/mocksmith/internal/registry"
	"github.com/mocksmith/mocksmith/internal/simulation"
)

const opsSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {"operationId": "listPets", "responses": {"200": {"description": "pets"}}}
    }
  }
}`

func newOpsFixture(t *testing.T) (*OpsHandler, *simulation.Manager) {
	t.Helper()
	doc, err := document.NewProcessor(nil).Process(opsSpec)
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.Build(doc, registry.Options{})
	sims := simulation.NewManager()
	h := NewOpsHandler(func() *registry.Registry { return reg }, sims, discardLogger())
	return h, sims
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %s %s response: %v", method, target, err)
	}
	return rec, out
}

func TestOpsListEndpoints(t *testing.T) {
	h, _ := newOpsFixture(t)
	rec, body := doJSON(t, h, http.MethodGet, "/_mock/endpoints", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	endpoints, ok := body["endpoints"].([]any)
	if !ok || len(endpoints) != 1 {
		t.Errorf("endpoints = %v", body["endpoints"])
	}
	stats, ok := body["stats"].(map[string]any)
	if !ok || stats["totalEndpoints"] != float64(1) {
		t.Errorf("stats = %v", body["stats"])
	}
}

func TestOpsSimulationLifecycle(t *testing.T) {
	h, sims := newOpsFixture(t)

	rec, _ := doJSON(t, h, http.MethodPut, "/_mock/simulations",
		`{"path": "GET /pets", "status": 503, "delay": 5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !sims.Has("get:/pets") {
		t.Fatal("simulation not stored")
	}

	rec, body := doJSON(t, h, http.MethodGet, "/_mock/simulations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if list, _ := body["simulations"].([]any); len(list) != 1 {
		t.Errorf("simulations = %v", body["simulations"])
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/_mock/simulations?path=get:/pets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if sims.Has("get:/pets") {
		t.Error("simulation survived delete")
	}
}

func TestOpsSimulationValidation(t *testing.T) {
	h, _ := newOpsFixture(t)

	rec, body := doJSON(t, h, http.MethodPut, "/_mock/simulations",
		`{"path": "GET /pets", "status": 99}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "invalid simulation" {
		t.Errorf("body = %v", body)
	}

	rec, _ = doJSON(t, h, http.MethodPut, "/_mock/simulations", `not-json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed payload status = %d, want 400", rec.Code)
	}
}

func TestOpsDeleteWithoutPathClears(t *testing.T) {
	h, sims := newOpsFixture(t)
	_, _ = doJSON(t, h, http.MethodPut, "/_mock/simulations", `{"path": "get:/pets", "status": 500}`)
	_, _ = doJSON(t, h, http.MethodPut, "/_mock/simulations", `{"path": "post:/pets", "status": 500}`)

	rec, _ := doJSON(t, h, http.MethodDelete, "/_mock/simulations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sims.Count() != 0 {
		t.Errorf("table holds %d rules after clear", sims.Count())
	}
}

func TestOpsDeleteUnknownPath(t *testing.T) {
	h, _ := newOpsFixture(t)
	rec, _ := doJSON(t, h, http.MethodDelete, "/_mock/simulations?path=get:/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
